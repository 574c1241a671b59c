package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/franz/bachpedia/internal/store"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:       "list <genres|keys|instruments>",
	Short:     "List the ids of a lookup table",
	Long:      `Print the id and name of every genre, key or instrument, for use with the --genre-id, --key-id and --instrument-id search flags.`,
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"genres", "keys", "instruments"},
	RunE:      runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := openStore(nil)
	if err != nil {
		return err
	}
	defer db.Close()

	values, err := listLookups(context.Background(), db, args[0])
	if err != nil {
		return err
	}
	printLookups(os.Stdout, values)
	return nil
}

func listLookups(ctx context.Context, db *store.Store, table string) ([]store.Lookup, error) {
	switch table {
	case "genres":
		return db.ListGenres(ctx)
	case "keys":
		return db.ListKeys(ctx)
	case "instruments":
		return db.ListInstruments(ctx)
	}
	return nil, fmt.Errorf("unknown table %q", table)
}

func printLookups(w io.Writer, values []store.Lookup) {
	if len(values) == 0 {
		fmt.Fprintln(w, "(none)")
		return
	}
	for _, v := range values {
		fmt.Fprintf(w, "%6d  %s\n", v.ID, v.Name)
	}
}
