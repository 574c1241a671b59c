// Package search implements faceted catalog search: one compiled query
// drives the item page, the total count and the genre, key and instrument
// facet counts.
package search

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Querier is the read side of *sql.DB
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// FacetValue is one selectable value of a facet with its match count
type FacetValue struct {
	ID    int64
	Name  string
	Count int
}

// Facets holds the three facet lists of a result
type Facets struct {
	Genres      []FacetValue
	Keys        []FacetValue
	Instruments []FacetValue
}

// Result is one page of search results
type Result struct {
	Params  Params
	Items   []Item
	Total   int  // Rows matching the filters
	Capped  bool // Total exceeds the rows the ranker can page through
	Pages   int
	Mode    Mode
	Ranker  string
	Facets  Facets
	Elapsed time.Duration
}

// HasNext reports whether a page follows the current one
func (r *Result) HasNext() bool {
	return r.Params.Page < r.Pages
}

// HasPrev reports whether a page precedes the current one
func (r *Result) HasPrev() bool {
	return r.Params.Page > 1
}

// Service runs searches against a catalog database
type Service struct {
	db      Querier
	ranker  Ranker
	metrics *Metrics
}

// Option configures a Service
type Option func(*Service)

// WithRanker selects the ranking implementation
func WithRanker(r Ranker) Option {
	return func(s *Service) { s.ranker = r }
}

// WithMetrics records search latency and outcomes
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// New returns a search service reading from db
func New(db Querier, opts ...Option) *Service {
	s := &Service{db: db, ranker: SQLRanker{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs the item page, total count and facet queries for p.
// Any store error fails the whole search.
func (s *Service) Search(ctx context.Context, p Params) (*Result, error) {
	start := time.Now()
	p = p.Normalize()
	q := Compile(p.Filter())

	tracer := otel.Tracer("bachpedia/search")
	ctx, span := tracer.Start(ctx, "Service.Search", trace.WithSpanKind(trace.SpanKindInternal))
	span.SetAttributes(
		attribute.String("mode", string(q.Mode)),
		attribute.String("sort", string(p.Sort)),
		attribute.String("ranker", s.ranker.Name()),
		attribute.Int("page", p.Page),
	)
	defer span.End()

	res, err := s.search(ctx, q, p)
	elapsed := time.Since(start)
	s.metrics.observe(q.Mode, s.ranker.Name(), elapsed, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	res.Elapsed = elapsed
	span.SetAttributes(attribute.Int("total", res.Total))
	return res, nil
}

func (s *Service) search(ctx context.Context, q *Query, p Params) (*Result, error) {
	items, err := s.ranker.Rank(ctx, s.db, q, p)
	if err != nil {
		return nil, err
	}

	total, err := s.count(ctx, q)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Params: p,
		Items:  items,
		Total:  total,
		Mode:   q.Mode,
		Ranker: s.ranker.Name(),
	}

	reachable := total
	if limit := s.ranker.RowLimit(); limit > 0 && reachable > limit {
		reachable = limit
		res.Capped = true
	}
	res.Pages = (reachable + p.PageSize - 1) / p.PageSize

	if res.Facets.Genres, err = s.facet(ctx, q, FacetGenre); err != nil {
		return nil, err
	}
	if res.Facets.Keys, err = s.facet(ctx, q, FacetKey); err != nil {
		return nil, err
	}
	if res.Facets.Instruments, err = s.facet(ctx, q, FacetInstrument); err != nil {
		return nil, err
	}

	return res, nil
}

func (s *Service) count(ctx context.Context, q *Query) (int, error) {
	where := q.Where(FacetNone)
	var total int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM work w WHERE "+where.SQL, where.Args...).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to count works: %w", err)
	}
	return total, nil
}

// facet counts matches per value of one dimension, with that dimension's own
// filter left out so the other values stay reachable
func (s *Service) facet(ctx context.Context, q *Query, f Facet) ([]FacetValue, error) {
	where := q.Where(f)

	var stmt string
	switch f {
	case FacetGenre:
		stmt = `
			SELECT g.id, g.name, COUNT(*) AS n
			FROM work w
			JOIN genre g ON g.id = w.genre_id
			WHERE %s
			GROUP BY g.id, g.name
			ORDER BY n DESC, g.name ASC`
	case FacetKey:
		stmt = `
			SELECT k.id, k.name, COUNT(*) AS n
			FROM work w
			JOIN musical_key k ON k.id = w.key_id
			WHERE %s
			GROUP BY k.id, k.name
			ORDER BY n DESC, k.name ASC`
	case FacetInstrument:
		stmt = `
			SELECT i.id, i.name, COUNT(DISTINCT w.id) AS n
			FROM work w
			JOIN work_instrumentation wi ON wi.work_id = w.id
			JOIN instrument i ON i.id = wi.instrument_id
			WHERE %s
			GROUP BY i.id, i.name
			ORDER BY n DESC, i.name ASC`
	default:
		return nil, fmt.Errorf("unknown facet %d", f)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(stmt, where.SQL), where.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query facet: %w", err)
	}
	defer rows.Close()

	values := []FacetValue{}
	for rows.Next() {
		var v FacetValue
		if err := rows.Scan(&v.ID, &v.Name, &v.Count); err != nil {
			return nil, fmt.Errorf("failed to scan facet: %w", err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read facet: %w", err)
	}
	return values, nil
}
