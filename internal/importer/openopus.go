package importer

import (
	"context"
	"database/sql"
	"errors"

	"github.com/franz/bachpedia/internal/catalog"
	"github.com/franz/bachpedia/internal/openopus"
	"github.com/franz/bachpedia/internal/report"
	"github.com/franz/bachpedia/internal/store"
	"github.com/franz/bachpedia/internal/util"
)

// BachName is the composer name stored for imported works
const BachName = "Johann Sebastian Bach"

// OpenOpusOptions controls a dump import
type OpenOpusOptions struct {
	DryRun bool
	// AssumeBach accepts every record without checking its composer
	AssumeBach bool
}

// ImportOpenOpus upserts the Bach works of a dump in one transaction.
// Records by other composers and records without a title are skipped.
// A dry run performs every write and then rolls the transaction back,
// so the counts match what a real run would do.
func (im *Importer) ImportOpenOpus(ctx context.Context, dump *openopus.Dump, path string, opts OpenOpusOptions) (*report.ImportSummary, error) {
	summary := im.newSummary("openopus", path, opts.DryRun)
	summary.Total = len(dump.Works) + dump.Skipped
	for i := 0; i < dump.Skipped; i++ {
		summary.AddSkip("not an object")
	}

	assume := opts.AssumeBach || openopus.IsBachName(dump.ComposerName)
	if assume {
		util.InfoLog("Treating every record as a Bach work")
	}

	bar := im.newBar(len(dump.Works), "Importing")
	defer closeBar(bar)

	err := im.store.Transaction(func(tx *sql.Tx) error {
		w := store.NewWriter(tx)

		composerID, err := w.EnsurePerson(ctx, openopus.BachID, BachName)
		if err != nil {
			return err
		}

		for i, rec := range dump.Works {
			if err := ctx.Err(); err != nil {
				return err
			}
			im.importOpenOpusRecord(ctx, w, rec, i+1, composerID, assume, summary)
			advance(bar)
		}

		if opts.DryRun {
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

func (im *Importer) importOpenOpusRecord(ctx context.Context, w *store.Writer, rec openopus.Record, line int, composerID int64, assume bool, summary *report.ImportSummary) {
	title := catalog.Truncate(catalog.CleanString(rec.Title()), catalog.MaxTitleLen)
	label := catalog.Truncate(catalog.CleanString(rec.CatalogLabel()), catalog.MaxCatalogNameLen)

	if !rec.IsBach(assume) {
		summary.AddSkip("not a Bach work")
		im.logger.LogSkip("openopus", line, label, title, "not a Bach work")
		return
	}
	if title == "" {
		summary.AddSkip("empty title")
		im.logger.LogSkip("openopus", line, label, "", "empty title")
		return
	}

	fail := func(err error) {
		summary.AddError(err)
		im.logger.LogError("openopus", line, label, err)
		util.WarnLog("[#%d] failed to import %s %q: %v", line, label, title, err)
	}

	genreID, err := w.EnsureGenre(ctx, catalog.Truncate(rec.Genre(), catalog.MaxGenreLen))
	if err != nil {
		fail(err)
		return
	}
	keyID, err := w.EnsureKey(ctx, catalog.Truncate(rec.Key(), catalog.MaxKeyLen))
	if err != nil {
		fail(err)
		return
	}

	// A BWV catalogue is the label itself, not a collection
	collection := rec.Catalogue()
	if catalog.LooksLikeBWV(collection) {
		collection = ""
	}

	work := &store.Work{
		BWVFull:          label,
		Title:            title,
		AltTitles:        catalog.Truncate(rec.Subtitle(), catalog.MaxAltTitlesLen),
		GenreID:          genreID,
		KeyID:            keyID,
		OpusOrCollection: catalog.Truncate(collection, catalog.MaxCollectionLen),
		DateComp:         catalog.Truncate(rec.Year(), catalog.MaxDateLen),
		OpenOpusID:       rec.OpenOpusID(),
		ComposerID:       composerID,
	}
	work.BWVID, _ = catalog.ParseBWVID(label)

	inserted, err := w.UpsertWork(ctx, work)
	if err != nil {
		fail(err)
		return
	}

	summary.AddStored(inserted)
	if label == "" {
		summary.NoCatalog++
		util.WarnLog("No BWV: openOpusId=%d | title=%s", work.OpenOpusID, title)
	}
	im.logger.LogStored("openopus", line, label, title, work.ID, inserted)
}
