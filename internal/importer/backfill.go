package importer

import (
	"context"
	"database/sql"
	"errors"

	"github.com/franz/bachpedia/internal/catalog"
	"github.com/franz/bachpedia/internal/report"
	"github.com/franz/bachpedia/internal/store"
	"github.com/franz/bachpedia/internal/util"
)

// BackfillBWV sets the numeric catalog number of works that lack one, taken
// from their catalog label or else from a "BWV 565" style mention in the title.
// For a range like "BWV 939-943" the first number is used.
func (im *Importer) BackfillBWV(ctx context.Context, dryRun bool) (*report.ImportSummary, error) {
	works, err := im.store.ListWorksMissingBWV(ctx)
	if err != nil {
		return nil, err
	}

	summary := im.newSummary("extract-bwv", "", dryRun)
	summary.Total = len(works)
	util.InfoLog("Found %d works without a BWV number", len(works))

	bar := im.newBar(len(works), "Backfilling")
	defer closeBar(bar)

	err = im.store.Transaction(func(tx *sql.Tx) error {
		w := store.NewWriter(tx)
		for _, work := range works {
			if err := ctx.Err(); err != nil {
				return err
			}
			advance(bar)

			bwvID, ok := catalog.ParseBWVID(work.BWVFull)
			if !ok {
				bwvID, ok = catalog.ParseBWVID(work.Title)
			}
			if !ok {
				summary.AddSkip("no catalog number")
				util.DebugLog("Work %d %q: no catalog number", work.ID, work.Title)
				continue
			}

			if err := w.SetWorkBWV(ctx, work.ID, bwvID); err != nil {
				summary.AddError(err)
				im.logger.LogError("extract-bwv", 0, work.BWVFull, err)
				continue
			}
			summary.Updated++
			im.logger.LogBackfill(work.ID, work.Title, bwvID)
			util.DebugLog("Work %d %q: BWV %d", work.ID, work.Title, bwvID)
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
