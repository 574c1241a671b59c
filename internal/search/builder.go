package search

import (
	"strings"

	"github.com/franz/bachpedia/internal/catalog"
)

// Filter holds the matching criteria of a search. Zero ids are unset.
type Filter struct {
	Text         string
	GenreID      int64
	KeyID        int64
	InstrumentID int64
}

// Facet names a filter dimension that can be left out of a predicate
type Facet int

const (
	FacetNone Facet = iota
	FacetGenre
	FacetKey
	FacetInstrument
)

// Predicate is a WHERE clause over "work w" with its positional arguments
type Predicate struct {
	SQL  string
	Args []any
}

// Query is a compiled Filter. One Query serves the item page, the total
// count and each facet count.
type Query struct {
	Filter Filter
	Mode   Mode

	match string // FTS5 expression, full-text mode only
	cat   catalogMatch
}

// Compile analyzes the free text of f once
func Compile(f Filter) *Query {
	f.Text = strings.TrimSpace(f.Text)
	q := &Query{Filter: f, Mode: DetectMode(f.Text)}

	switch q.Mode {
	case ModeFullText:
		terms := parseTerms(f.Text)
		q.match = matchExpression(terms)
		if q.match != "" {
			q.cat = analyzeCatalog(positiveText(terms))
		}
	case ModeSubstring:
		q.cat = analyzeCatalog(f.Text)
	}

	// Without a recognized reference only a query with digits can score on the catalog label
	if !q.cat.ref && !strings.ContainsAny(q.cat.key, "0123456789") {
		q.cat.key = ""
	}
	return q
}

// FullTextActive reports whether rows are matched through the full-text index
func (q *Query) FullTextActive() bool {
	return q.Mode == ModeFullText && q.match != ""
}

// HasText reports whether the query carries free text
func (q *Query) HasText() bool {
	return q.Mode != ModeNone
}

// CatalogKey is the normalized catalog value used for relevance, "" when none
func (q *Query) CatalogKey() string {
	return q.cat.key
}

// MatchExpression is the FTS5 expression of a full-text query
func (q *Query) MatchExpression() string {
	return q.match
}

// Where builds the predicate with every active criterion except the one named by without
func (q *Query) Where(without Facet) Predicate {
	var clauses []string
	var args []any

	if q.HasText() {
		sql, textArgs := q.textPredicate()
		clauses = append(clauses, sql)
		args = append(args, textArgs...)
	}

	if q.Filter.GenreID > 0 && without != FacetGenre {
		clauses = append(clauses, "w.genre_id = ?")
		args = append(args, q.Filter.GenreID)
	}
	if q.Filter.KeyID > 0 && without != FacetKey {
		clauses = append(clauses, "w.key_id = ?")
		args = append(args, q.Filter.KeyID)
	}
	if q.Filter.InstrumentID > 0 && without != FacetInstrument {
		clauses = append(clauses, `EXISTS (
			SELECT 1 FROM work_instrumentation wif
			WHERE wif.work_id = w.id AND wif.instrument_id = ?)`)
		args = append(args, q.Filter.InstrumentID)
	}

	if len(clauses) == 0 {
		return Predicate{SQL: "1 = 1"}
	}
	return Predicate{SQL: strings.Join(clauses, " AND "), Args: args}
}

// textPredicate matches the free text, widened by the catalog reference if there is one
func (q *Query) textPredicate() (string, []any) {
	var sql string
	var args []any

	switch q.Mode {
	case ModeFullText:
		if q.match == "" {
			// Exclusions alone select nothing
			return "0", nil
		}
		sql = "w.id IN (SELECT rowid FROM work_fts WHERE work_fts MATCH ?)"
		args = append(args, q.match)
	case ModeSubstring:
		pattern := "%" + escapeLike(catalog.Fold(q.Filter.Text)) + "%"
		cols := []string{"w.bwv_full", "w.title", "w.alt_titles", "w.opus_or_collection"}
		parts := make([]string, len(cols))
		for i, col := range cols {
			parts[i] = "fold(" + col + `) LIKE ? ESCAPE '\'`
			args = append(args, pattern)
		}
		sql = "(" + strings.Join(parts, " OR ") + ")"
	}

	if !q.cat.ref {
		return sql, args
	}

	var catSQL string
	var catArgs []any
	if q.cat.whole {
		catSQL = "instr(w.bwv_norm, ?) > 0"
		catArgs = []any{q.cat.key}
	} else {
		catSQL = "w.bwv_norm IN (?, ?)"
		catArgs = []any{q.cat.key, catalog.FamilyPrefix + q.cat.key}
	}
	return "(" + catSQL + " OR " + sql + ")", append(catArgs, args...)
}

// escapeLike escapes LIKE wildcards with a backslash
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// orderBy returns the ORDER BY list for a sort. Relevance ordering needs a
// "relevance" column in the select list.
func (q *Query) orderBy(sort Sort) string {
	const catalogOrder = "(w.bwv_id IS NULL), w.bwv_id ASC, w.bwv_full ASC, w.id ASC"

	switch sort {
	case SortBWVAsc:
		return catalogOrder
	case SortBWVDesc:
		return "(w.bwv_id IS NULL), w.bwv_id DESC, w.bwv_full DESC, w.id DESC"
	case SortTitleAsc:
		return "w.title COLLATE NOCASE ASC, w.bwv_full ASC, w.id ASC"
	case SortTitleDesc:
		return "w.title COLLATE NOCASE DESC, w.bwv_full ASC, w.id ASC"
	default:
		if q.FullTextActive() {
			return "relevance DESC, " + catalogOrder
		}
		return catalogOrder
	}
}

// relevanceSQL returns the select expression computing relevance, the join
// it depends on, and the arguments of both in placeholder order.
//
// Catalog tiers dominate: an exact label match adds 100 and a partial one 60,
// while the full-text part stays below 30, so exact > partial > text-only.
func (q *Query) relevanceSQL() (expr, join string, args []any) {
	tier := "0"
	if key := q.cat.key; key != "" {
		tier = "CASE WHEN w.bwv_norm IN (?, ?) THEN 100 WHEN instr(w.bwv_norm, ?) > 0 THEN 60 ELSE 0 END"
		args = append(args, key, catalog.FamilyPrefix+key, key)
	}

	if !q.FullTextActive() {
		return tier + " AS relevance", "", args
	}

	expr = "(" + tier + ") + COALESCE(30.0 * f.s / (f.s + 1.0), 0) AS relevance"
	join = `LEFT JOIN (
		SELECT rowid AS id, max(-bm25(work_fts, 10.0, 5.0, 2.0, 1.0, 1.0), 0.0) AS s
		FROM work_fts WHERE work_fts MATCH ?) f ON f.id = w.id`
	args = append(args, q.match)
	return expr, join, args
}
