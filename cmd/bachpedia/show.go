package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/franz/bachpedia/internal/store"
	"github.com/franz/bachpedia/internal/util"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <id | catalog label>",
	Short: "Show one work",
	Long: `Display a single work with its genre, key, instruments and notes.

The work is given by its database id or by its catalog label:
  bachpedia show 12
  bachpedia show "BWV 1007"
  bachpedia show bwv1007 -o json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().StringP("output", "o", "human", "Output format: human, json")
}

func runShow(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	ref := strings.Join(args, " ")

	db, err := openStore(nil)
	if err != nil {
		return err
	}
	defer db.Close()

	w, err := lookupWork(ctx, db, ref)
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	if output == "json" {
		return outputJSON(os.Stdout, w)
	}
	outputHuman(os.Stdout, w)
	return nil
}

// lookupWork resolves a numeric id first and a catalog label otherwise
func lookupWork(ctx context.Context, db *store.Store, ref string) (*store.WorkDetail, error) {
	id, err := strconv.ParseInt(ref, 10, 64)
	if err != nil || id <= 0 {
		id, err = db.FindWorkByCatalog(ctx, ref)
		if err != nil {
			return nil, err
		}
	}
	if id == 0 {
		return nil, fmt.Errorf("%w: no work matches %q", util.ErrNotFound, ref)
	}

	w, err := db.GetWork(ctx, id)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("%w: no work with id %d", util.ErrNotFound, id)
	}
	return w, nil
}

func outputHuman(out io.Writer, w *store.WorkDetail) {
	fmt.Fprintf(out, "%s\n", w.Title)
	fmt.Fprintln(out, strings.Repeat("=", len([]rune(w.Title))))

	instruments := make([]string, len(w.Instruments))
	for i, in := range w.Instruments {
		instruments[i] = in.Name
	}
	duration := ""
	if w.DurationEst > 0 {
		duration = fmt.Sprintf("%d min", w.DurationEst)
	}

	for _, row := range [][2]string{
		{"ID", strconv.FormatInt(w.ID, 10)},
		{"Catalog", w.BWVFull},
		{"Also known as", w.AltTitles},
		{"Genre", w.Genre},
		{"Key", w.Key},
		{"Instruments", strings.Join(instruments, ", ")},
		{"Collection", w.OpusOrCollection},
		{"Composed", w.DateComp},
		{"Duration", duration},
		{"Composer", w.Composer},
		{"Sources", w.Sources},
	} {
		fmt.Fprintf(out, "%-14s %s\n", row[0]+":", formatStringOrEmpty(row[1]))
	}
	if w.Notes != "" {
		fmt.Fprintf(out, "\n%s\n", w.Notes)
	}
}

func outputJSON(out io.Writer, w *store.WorkDetail) error {
	instruments := make([]string, len(w.Instruments))
	for i, in := range w.Instruments {
		instruments[i] = in.Name
	}
	obj := map[string]interface{}{
		"id":           w.ID,
		"bwv_id":       w.BWVID,
		"bwv_full":     w.BWVFull,
		"title":        w.Title,
		"alt_titles":   w.AltTitles,
		"genre":        w.Genre,
		"key":          w.Key,
		"instruments":  instruments,
		"collection":   w.OpusOrCollection,
		"date_comp":    w.DateComp,
		"duration_min": w.DurationEst,
		"composer":     w.Composer,
		"notes":        w.Notes,
		"sources":      w.Sources,
		"openopus_id":  w.OpenOpusID,
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(obj); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func formatStringOrEmpty(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
