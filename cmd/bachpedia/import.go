package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/franz/bachpedia/internal/importer"
	"github.com/franz/bachpedia/internal/openopus"
	"github.com/franz/bachpedia/internal/report"
	"github.com/franz/bachpedia/internal/util"
	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Load works into the catalog",
	Long: `Load works into the catalog from a CSV export or an Open Opus dump.

Works are matched on their BWV label, then on their Open Opus id: a match is
updated, anything else is inserted. Fields missing from the input keep their
stored values. Every run writes a JSONL event log under events_dir.`,
}

var importCSVCmd = &cobra.Command{
	Use:   "csv <file>",
	Short: "Import a catalog CSV export",
	Long: `Import a CSV file with the header

  BWV,Title,Year,Instrumentation,Key,Genre,Collection,Comments,Sources,Duration,OpenOpusID

A bare number in the BWV column ("1007") is stored as "BWV 1007". Rows without
a title are skipped. Instrumentation is split on commas, semicolons, slashes,
"+", "&" and "and".`,
	Args: cobra.ExactArgs(1),
	RunE: runImportCSV,
}

var importOpenOpusCmd = &cobra.Command{
	Use:   "openopus <dump.json>",
	Short: "Import an Open Opus dump",
	Long: `Import the works of an Open Opus dump. Accepted layouts:

  {"composer": {...}, "works": [...]}     API listing (see 'bachpedia fetch openopus')
  {"data": {"works": [...]}}
  {"composers": [{"id": 87, "works": [...]}, ...]}   full dump, Bach only
  [{...}, {...}]                          bare list
  one JSON object per line

Records by other composers are skipped unless --assume-bach is set. A record
counts as Bach when its composer is named so or its catalogue is BWV.`,
	Args: cobra.ExactArgs(1),
	RunE: runImportOpenOpus,
}

func init() {
	rootCmd.AddCommand(importCmd)
	importCmd.AddCommand(importCSVCmd, importOpenOpusCmd)

	importCmd.PersistentFlags().Bool("dry-run", false, "run the import and roll it back")
	importCmd.PersistentFlags().String("report", "", "write a Markdown run report to this file")
	importOpenOpusCmd.Flags().Bool("assume-bach", false, "treat every record as a Bach work")
}

// newImporter opens the store and event log; the returned func closes both
func newImporter() (*importer.Importer, func(), error) {
	db, err := openStore(nil)
	if err != nil {
		return nil, nil, err
	}
	logger := newEventLogger()
	im := importer.New(&importer.Config{Store: db, Logger: logger, Progress: true})
	return im, func() {
		logger.Close()
		db.Close()
	}, nil
}

func runImportCSV(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open CSV: %w", err)
	}
	defer f.Close()

	im, closeAll, err := newImporter()
	if err != nil {
		return err
	}
	defer closeAll()

	summary, err := im.ImportCSV(ctx, f, args[0], dryRun)
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	return finishImport(cmd, summary)
}

func runImportOpenOpus(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	assumeBach, _ := cmd.Flags().GetBool("assume-bach")

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open dump: %w", err)
	}
	defer f.Close()

	dump, err := openopus.ParseDump(f)
	if err != nil {
		return err
	}
	util.InfoLog("Dump: %d works", len(dump.Works))
	if dump.ComposerName != "" {
		util.InfoLog("Composer: %s", dump.ComposerName)
	}

	im, closeAll, err := newImporter()
	if err != nil {
		return err
	}
	defer closeAll()

	summary, err := im.ImportOpenOpus(ctx, dump, args[0], importer.OpenOpusOptions{
		DryRun:     dryRun,
		AssumeBach: assumeBach,
	})
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}
	return finishImport(cmd, summary)
}

// finishImport prints the run summary and writes the optional report
func finishImport(cmd *cobra.Command, summary *report.ImportSummary) error {
	if summary.Failed > 0 {
		util.WarnLog("%s", summary)
		for _, e := range summary.TopErrors(5) {
			util.WarnLog("  %dx %s", e.Count, e.Error)
		}
	} else {
		util.SuccessLog("%s", summary)
	}
	for _, r := range summary.SkipReasons() {
		util.InfoLog("  skipped %dx: %s", r.Count, r.Error)
	}
	if summary.NoCatalog > 0 {
		util.WarnLog("%d work(s) stored without a BWV label", summary.NoCatalog)
	}

	reportPath, _ := cmd.Flags().GetString("report")
	if reportPath != "" {
		if err := report.WriteMarkdownReport(summary, reportPath); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		util.InfoLog("Report: %s", reportPath)
	}
	return nil
}
