package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// ImportSummary collects the outcome of one import run
type ImportSummary struct {
	RunID     string
	Source    string // "csv", "openopus" or "extract-bwv"
	InputPath string
	DryRun    bool
	StartedAt time.Time
	Duration  time.Duration

	Total     int // Records read from the input
	Inserted  int
	Updated   int
	Skipped   int
	Failed    int
	NoCatalog int // Stored works without a catalog label

	skipReasons map[string]int
	errors      map[string]int

	EventLogPath string
}

// ErrorSummary represents an error with its count
type ErrorSummary struct {
	Error string
	Count int
}

// NewImportSummary starts a summary for a run
func NewImportSummary(source, inputPath string, dryRun bool) *ImportSummary {
	return &ImportSummary{
		Source:      source,
		InputPath:   inputPath,
		DryRun:      dryRun,
		StartedAt:   time.Now(),
		skipReasons: make(map[string]int),
		errors:      make(map[string]int),
	}
}

// AddSkip counts a skipped record under reason
func (s *ImportSummary) AddSkip(reason string) {
	s.Skipped++
	s.skipReasons[reason]++
}

// AddError counts a failed record
func (s *ImportSummary) AddError(err error) {
	s.Failed++
	s.errors[err.Error()]++
}

// AddStored counts an inserted or updated record
func (s *ImportSummary) AddStored(inserted bool) {
	if inserted {
		s.Inserted++
	} else {
		s.Updated++
	}
}

// Finish stamps the run duration
func (s *ImportSummary) Finish() {
	s.Duration = time.Since(s.StartedAt)
}

// SkipReasons returns skip counts ordered by frequency
func (s *ImportSummary) SkipReasons() []ErrorSummary {
	return ranked(s.skipReasons, 0)
}

// TopErrors returns the most frequent errors
func (s *ImportSummary) TopErrors(limit int) []ErrorSummary {
	return ranked(s.errors, limit)
}

func ranked(counts map[string]int, limit int) []ErrorSummary {
	out := make([]ErrorSummary, 0, len(counts))
	for msg, n := range counts {
		out = append(out, ErrorSummary{Error: msg, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Error < out[j].Error
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// String renders a one-line summary for the terminal
func (s *ImportSummary) String() string {
	line := fmt.Sprintf("Read %s records: %s inserted, %s updated, %s skipped, %s failed",
		humanize.Comma(int64(s.Total)),
		humanize.Comma(int64(s.Inserted)),
		humanize.Comma(int64(s.Updated)),
		humanize.Comma(int64(s.Skipped)),
		humanize.Comma(int64(s.Failed)))
	if s.DryRun {
		line += " (dry run, nothing written)"
	}
	return line
}

// WriteMarkdownReport writes the summary as Markdown
func WriteMarkdownReport(s *ImportSummary, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var md strings.Builder

	md.WriteString("# Bachpedia - Import Report\n\n")
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", s.StartedAt.Format("2006-01-02 15:04:05")))
	if s.RunID != "" {
		md.WriteString(fmt.Sprintf("**Run:** `%s`\n\n", s.RunID))
	}
	if s.InputPath != "" {
		md.WriteString(fmt.Sprintf("**Input:** `%s` (%s)\n\n", s.InputPath, s.Source))
	}
	if s.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", s.EventLogPath))
	}
	if s.DryRun {
		md.WriteString("*Dry run: no changes were written.*\n\n")
	}

	md.WriteString("---\n\n")

	md.WriteString("## Overview\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	md.WriteString(fmt.Sprintf("| Records Read | %s |\n", humanize.Comma(int64(s.Total))))
	md.WriteString(fmt.Sprintf("| Inserted | %s |\n", humanize.Comma(int64(s.Inserted))))
	md.WriteString(fmt.Sprintf("| Updated | %s |\n", humanize.Comma(int64(s.Updated))))
	md.WriteString(fmt.Sprintf("| Skipped | %s |\n", humanize.Comma(int64(s.Skipped))))
	if s.Failed > 0 {
		md.WriteString(fmt.Sprintf("| Failed | %s |\n", humanize.Comma(int64(s.Failed))))
	}
	if s.NoCatalog > 0 {
		md.WriteString(fmt.Sprintf("| Without BWV | %s |\n", humanize.Comma(int64(s.NoCatalog))))
	}
	if s.Duration > 0 {
		md.WriteString(fmt.Sprintf("| Duration | %s |\n", s.Duration.Round(time.Millisecond)))
	}
	md.WriteString("\n")

	if reasons := s.SkipReasons(); len(reasons) > 0 {
		md.WriteString("## Skipped Records\n\n")
		md.WriteString("| Count | Reason |\n")
		md.WriteString("|-------|--------|\n")
		for _, r := range reasons {
			md.WriteString(fmt.Sprintf("| %d | %s |\n", r.Count, r.Error))
		}
		md.WriteString("\n")
	}

	if errs := s.TopErrors(20); len(errs) > 0 {
		md.WriteString("## Top Errors\n\n")
		md.WriteString("| Count | Error |\n")
		md.WriteString("|-------|-------|\n")
		for _, e := range errs {
			md.WriteString(fmt.Sprintf("| %d | %s |\n", e.Count, strings.ReplaceAll(e.Error, "|", `\|`)))
		}
		md.WriteString("\n")
	}

	if err := os.WriteFile(outputPath, []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}
