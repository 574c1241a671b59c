package search

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/franz/bachpedia/internal/catalog"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Item is one result row
type Item struct {
	ID               int64
	BWVID            int64
	BWVFull          string
	Title            string
	AltTitles        string
	Genre            string
	Key              string
	OpusOrCollection string
	DurationEst      int
	DateComp         string

	// Relevance orders results; it never filters them
	Relevance float64

	bwvNorm string
}

// Ranker fetches one page of matching rows in result order. Implementations
// are interchangeable behind this contract.
type Ranker interface {
	Name() string
	Rank(ctx context.Context, db Querier, q *Query, p Params) ([]Item, error)
	// RowLimit is the number of rows reachable through paging, 0 for no limit
	RowLimit() int
}

// NewRanker returns the ranker registered under name ("sql" or "legacy")
func NewRanker(name string) (Ranker, error) {
	switch name {
	case "", "sql":
		return SQLRanker{}, nil
	case "legacy":
		return LegacyRanker{}, nil
	default:
		return nil, fmt.Errorf("unknown ranker %q (use sql or legacy)", name)
	}
}

const itemColumns = `w.id, COALESCE(w.bwv_id, 0), COALESCE(w.bwv_full, ''), COALESCE(w.bwv_norm, ''),
	w.title, COALESCE(w.alt_titles, ''), COALESCE(g.name, ''), COALESCE(k.name, ''),
	COALESCE(w.opus_or_collection, ''), COALESCE(w.duration_est, 0), COALESCE(w.date_comp, '')`

// selectItems runs the item query for q ordered by sort
func selectItems(ctx context.Context, db Querier, q *Query, sort Sort, limit, offset int) ([]Item, error) {
	relExpr, join, args := q.relevanceSQL()
	where := q.Where(FacetNone)
	args = append(args, where.Args...)
	args = append(args, limit, offset)

	stmt := fmt.Sprintf(`
		SELECT %s, %s
		FROM work w
		LEFT JOIN genre g ON g.id = w.genre_id
		LEFT JOIN musical_key k ON k.id = w.key_id
		%s
		WHERE %s
		ORDER BY %s
		LIMIT ? OFFSET ?
	`, itemColumns, relExpr, join, where.SQL, q.orderBy(sort))

	rows, err := db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query works: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0, limit)
	for rows.Next() {
		var it Item
		err := rows.Scan(
			&it.ID, &it.BWVID, &it.BWVFull, &it.bwvNorm,
			&it.Title, &it.AltTitles, &it.Genre, &it.Key,
			&it.OpusOrCollection, &it.DurationEst, &it.DateComp,
			&it.Relevance,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan work: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read works: %w", err)
	}
	return items, nil
}

// SQLRanker orders rows in the database, with full-text relevance from bm25
type SQLRanker struct{}

func (SQLRanker) Name() string { return "sql" }

func (SQLRanker) RowLimit() int { return 0 }

func (SQLRanker) Rank(ctx context.Context, db Querier, q *Query, p Params) ([]Item, error) {
	return selectItems(ctx, db, q, p.Sort, p.PageSize, p.Offset())
}

// LegacyRanker scores at most MaxLegacyRows candidates in process:
// +100 for an exact catalog match, +60 for a partial one, +30 when the
// title contains the query. Ties go to natural title order.
type LegacyRanker struct{}

func (LegacyRanker) Name() string { return "legacy" }

func (LegacyRanker) RowLimit() int { return MaxLegacyRows }

func (r LegacyRanker) Rank(ctx context.Context, db Querier, q *Query, p Params) ([]Item, error) {
	offset := p.Offset()
	if offset < 0 || offset >= MaxLegacyRows {
		return []Item{}, nil
	}

	order := p.Sort
	if order == SortRelevance {
		order = SortBWVAsc
	}
	candidates, err := selectItems(ctx, db, q, order, MaxLegacyRows, 0)
	if err != nil {
		return nil, err
	}

	if p.Sort == SortRelevance && q.HasText() {
		ScoreItems(candidates, q.CatalogKey(), q.Filter.Text)
	}

	end := offset + p.PageSize
	if end > len(candidates) {
		end = len(candidates)
	}
	if offset >= end {
		return []Item{}, nil
	}
	return candidates[offset:end], nil
}

// Score computes the legacy relevance of one row
func Score(bwvNorm, title, catalogKey, query string) int {
	score := 0
	if catalogKey != "" && bwvNorm != "" {
		if bwvNorm == catalogKey || bwvNorm == catalog.FamilyPrefix+catalogKey {
			score += 100
		} else if strings.Contains(bwvNorm, catalogKey) {
			score += 60
		}
	}
	if needle := catalog.Fold(strings.TrimSpace(query)); needle != "" {
		if strings.Contains(catalog.Fold(title), needle) {
			score += 30
		}
	}
	return score
}

// ScoreItems sets Relevance on each item and sorts by score, then by
// case-insensitive natural title order ("No. 2" before "No. 10")
func ScoreItems(items []Item, catalogKey, query string) {
	for i := range items {
		items[i].Relevance = float64(Score(items[i].bwvNorm, items[i].Title, catalogKey, query))
	}

	// Collators are not safe for concurrent use
	coll := collate.New(language.Und, collate.IgnoreCase, collate.Numeric)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Relevance != items[j].Relevance {
			return items[i].Relevance > items[j].Relevance
		}
		return coll.CompareString(items[i].Title, items[j].Title) < 0
	})
}
