package importer

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/franz/bachpedia/internal/catalog"
	"github.com/franz/bachpedia/internal/report"
	"github.com/franz/bachpedia/internal/store"
	"github.com/franz/bachpedia/internal/util"
)

// CSVColumns are the header names a catalog CSV export must carry
var CSVColumns = []string{
	"BWV", "Title", "Year", "Instrumentation", "Key", "Genre",
	"Collection", "Comments", "Sources", "Duration", "OpenOpusID",
}

// CSVRecord is one parsed CSV row, cleaned and cut to column limits
type CSVRecord struct {
	Line            int
	Label           string
	BWVID           int64
	Title           string
	DateComp        string
	Instrumentation []string
	Key             string
	Genre           string
	Collection      string
	Notes           string
	Sources         string
	DurationEst     int
	OpenOpusID      int64
}

// parseCSVRow maps a row to a record using the header index
func parseCSVRow(row []string, idx map[string]int, line int) *CSVRecord {
	get := func(col string) string {
		i, ok := idx[col]
		if !ok || i >= len(row) {
			return ""
		}
		return catalog.CleanString(row[i])
	}

	rec := &CSVRecord{
		Line:            line,
		Label:           labelFromColumn(get("BWV")),
		Title:           catalog.Truncate(get("Title"), catalog.MaxTitleLen),
		DateComp:        catalog.Truncate(get("Year"), catalog.MaxDateLen),
		Instrumentation: catalog.SplitInstrumentation(get("Instrumentation")),
		Key:             catalog.Truncate(get("Key"), catalog.MaxKeyLen),
		Genre:           catalog.Truncate(get("Genre"), catalog.MaxGenreLen),
		Collection:      catalog.Truncate(get("Collection"), catalog.MaxCollectionLen),
		Notes:           catalog.Truncate(get("Comments"), catalog.MaxNotesLen),
		Sources:         catalog.Truncate(get("Sources"), catalog.MaxSourcesLen),
	}
	rec.BWVID, _ = catalog.ParseBWVID(rec.Label)
	if d, ok := catalog.ParseDurationMinutes(get("Duration")); ok {
		rec.DurationEst = d
	}
	if id, err := strconv.ParseInt(get("OpenOpusID"), 10, 64); err == nil && id > 0 {
		rec.OpenOpusID = id
	}
	return rec
}

// labelFromColumn turns the BWV column into a full label: "1007" becomes
// "BWV 1007", labelled values are kept as given
func labelFromColumn(s string) string {
	if s == "" || catalog.LooksLikeBWV(s) {
		return catalog.Truncate(s, catalog.MaxCatalogNameLen)
	}
	return catalog.Truncate(catalog.BuildLabel("BWV", s), catalog.MaxCatalogNameLen)
}

// ImportCSV reads a catalog CSV export and upserts every row with a title.
// Rows that fail are logged and counted; the run goes on. A dry run rolls
// every write back.
func (im *Importer) ImportCSV(ctx context.Context, r io.Reader, path string, dryRun bool) (*report.ImportSummary, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: CSV is empty", util.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	idx := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.TrimSpace(strings.TrimPrefix(col, "\ufeff"))
		idx[col] = i
	}
	var missing []string
	for _, col := range CSVColumns {
		if _, ok := idx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: CSV is missing columns: %s", util.ErrInvalidInput, strings.Join(missing, ", "))
	}

	summary := im.newSummary("csv", path, dryRun)
	util.InfoLog("Importing CSV: %s", path)

	bar := im.newBar(-1, "Importing")
	defer closeBar(bar)

	err = im.store.Transaction(func(tx *sql.Tx) error {
		w := store.NewWriter(tx)
		for {
			if err := ctx.Err(); err != nil {
				return err
			}

			row, err := reader.Read()
			if err == io.EOF {
				break
			}
			if err != nil {
				line := 0
				var perr *csv.ParseError
				if errors.As(err, &perr) {
					line = perr.Line
				}
				summary.Total++
				summary.AddError(err)
				im.logger.LogError("csv", line, "", err)
				util.WarnLog("[L%d] unreadable row: %v", line, err)
				continue
			}

			line, _ := reader.FieldPos(0)
			summary.Total++
			im.importCSVRecord(ctx, w, parseCSVRow(row, idx, line), summary)
			advance(bar)
		}

		if dryRun {
			return errDryRun
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDryRun) {
		return nil, err
	}

	im.finish(summary)
	return summary, nil
}

func (im *Importer) importCSVRecord(ctx context.Context, w *store.Writer, rec *CSVRecord, summary *report.ImportSummary) {
	if rec.Title == "" {
		summary.AddSkip("empty title")
		im.logger.LogSkip("csv", rec.Line, rec.Label, "", "empty title")
		util.DebugLog("[L%d] skipped: empty title", rec.Line)
		return
	}

	var work *store.Work
	var inserted bool
	// A row is stored whole or not at all
	err := w.Savepoint(ctx, "csv_row", func() error {
		genreID, err := w.EnsureGenre(ctx, rec.Genre)
		if err != nil {
			return err
		}
		keyID, err := w.EnsureKey(ctx, rec.Key)
		if err != nil {
			return err
		}

		work = &store.Work{
			BWVID:            rec.BWVID,
			BWVFull:          rec.Label,
			Title:            rec.Title,
			GenreID:          genreID,
			KeyID:            keyID,
			OpusOrCollection: rec.Collection,
			DurationEst:      rec.DurationEst,
			DateComp:         rec.DateComp,
			Notes:            rec.Notes,
			Sources:          rec.Sources,
			OpenOpusID:       rec.OpenOpusID,
		}
		if inserted, err = w.UpsertWork(ctx, work); err != nil {
			return err
		}

		if len(rec.Instrumentation) > 0 {
			return w.SetWorkInstruments(ctx, work.ID, rec.Instrumentation)
		}
		return nil
	})
	if err != nil {
		summary.AddError(err)
		im.logger.LogError("csv", rec.Line, rec.Label, err)
		util.WarnLog("[L%d] failed to import %s %q: %v", rec.Line, rec.Label, rec.Title, err)
		return
	}

	summary.AddStored(inserted)
	if rec.Label == "" {
		summary.NoCatalog++
	}
	im.logger.LogStored("csv", rec.Line, rec.Label, rec.Title, work.ID, inserted)
}
