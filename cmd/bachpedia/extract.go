package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract-bwv",
	Short: "Fill in missing BWV numbers from labels and titles",
	Long: `Set the numeric BWV number of every work that lacks one, reading it from the
work's catalog label or else from a "BWV 565" mention in its title. Appendix
labels ("BWV Anh. 10") have no number and are left alone.`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().Bool("dry-run", false, "report the changes and roll them back")
	extractCmd.Flags().String("report", "", "write a Markdown run report to this file")
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	im, closeAll, err := newImporter()
	if err != nil {
		return err
	}
	defer closeAll()

	summary, err := im.BackfillBWV(ctx, dryRun)
	if err != nil {
		return fmt.Errorf("backfill failed: %w", err)
	}
	return finishImport(cmd, summary)
}
