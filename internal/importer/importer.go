// Package importer loads catalog records into the store: CSV exports, Open
// Opus dumps, and the BWV number backfill for works imported without one.
package importer

import (
	"errors"
	"os"
	"time"

	"github.com/franz/bachpedia/internal/report"
	"github.com/franz/bachpedia/internal/store"
	"github.com/franz/bachpedia/internal/util"
	"github.com/schollz/progressbar/v3"
)

// errDryRun aborts a transaction so that a dry run leaves no trace
var errDryRun = errors.New("dry run")

// Importer writes records from external sources into the catalog
type Importer struct {
	store    *store.Store
	logger   *report.EventLogger
	progress bool
}

// Config holds importer configuration
type Config struct {
	Store  *store.Store
	Logger *report.EventLogger
	// Progress draws a progress bar when stdout is a terminal
	Progress bool
}

// New creates a new Importer
func New(cfg *Config) *Importer {
	return &Importer{
		store:    cfg.Store,
		logger:   cfg.Logger,
		progress: cfg.Progress,
	}
}

// newSummary starts a run summary tied to the event log
func (im *Importer) newSummary(source, path string, dryRun bool) *report.ImportSummary {
	s := report.NewImportSummary(source, path, dryRun)
	s.RunID = im.logger.RunID()
	s.EventLogPath = im.logger.Path()
	im.logger.LogRunStart(source, path, dryRun)
	return s
}

// finish closes a run summary and records it
func (im *Importer) finish(s *report.ImportSummary) {
	s.Finish()
	im.logger.LogRunEnd(s)
	util.DebugLog("%s import finished in %s", s.Source, s.Duration.Round(time.Millisecond))
}

// newBar returns a progress bar for total records, or nil when output is not
// a terminal or progress is off
func (im *Importer) newBar(total int, description string) *progressbar.ProgressBar {
	if !im.progress || util.IsQuiet() || !util.IsTerminal(os.Stdout.Fd()) {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("works"),
		progressbar.OptionThrottle(200*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func advance(bar *progressbar.ProgressBar) {
	if bar != nil {
		bar.Add(1)
	}
}

func closeBar(bar *progressbar.ProgressBar) {
	if bar != nil {
		bar.Finish()
	}
}
