package web

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/franz/bachpedia/internal/search"
	"github.com/franz/bachpedia/internal/store"
	"github.com/franz/bachpedia/internal/util"
	"github.com/gorilla/mux"
)

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	v := view{}
	// The home page still renders when the counts cannot be read
	if stats, err := s.store.Stats(); err == nil {
		v.Data = stats
	} else {
		util.WarnLog("Failed to read catalog stats [%s]: %v", RequestIDFrom(r.Context()), err)
	}
	s.render(w, r, http.StatusOK, "home", v)
}

var sortLabels = map[search.Sort]string{
	search.SortRelevance: "Relevance",
	search.SortBWVAsc:    "BWV ascending",
	search.SortBWVDesc:   "BWV descending",
	search.SortTitleAsc:  "Title A-Z",
	search.SortTitleDesc: "Title Z-A",
}

type sortOption struct {
	Value    search.Sort
	Label    string
	Selected bool
}

type facetLink struct {
	Name   string
	Count  int
	URL    string
	Active bool
}

type facetGroup struct {
	Title    string
	ClearURL string
	Values   []facetLink
}

type searchPage struct {
	Params  search.Params
	Result  *search.Result
	Failed  bool
	Limit   int
	Sorts   []sortOption
	Facets  []facetGroup
	PrevURL string
	NextURL string
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	p := search.ParamsFromValues(r.URL.Query())

	status := http.StatusOK
	res, err := s.search.Search(r.Context(), p)
	if err != nil {
		// The page shell still renders, with no results and a banner
		util.ErrorLog("Search %q failed [%s]: %v", p.Query, RequestIDFrom(r.Context()), err)
		status = http.StatusInternalServerError
		res = &search.Result{Params: p}
	}

	s.render(w, r, status, "search", view{
		Title: searchTitle(p),
		Query: p.Query,
		Data:  newSearchPage(p, res, err != nil),
	})
}

func searchTitle(p search.Params) string {
	q := strings.TrimSpace(p.Query)
	if q == "" {
		return "Search"
	}
	return fmt.Sprintf("%s - Search", q)
}

func newSearchPage(p search.Params, res *search.Result, failed bool) *searchPage {
	page := &searchPage{
		Params: p,
		Result: res,
		Failed: failed,
		Limit:  search.MaxLegacyRows,
	}

	for _, sv := range search.Sorts {
		page.Sorts = append(page.Sorts, sortOption{Value: sv, Label: sortLabels[sv], Selected: sv == p.Sort})
	}

	if res.HasPrev() {
		page.PrevURL = p.WithPage(p.Page - 1).URL("/search")
	}
	if res.HasNext() {
		page.NextURL = p.WithPage(p.Page + 1).URL("/search")
	}

	page.Facets = []facetGroup{
		newFacetGroup("Genre", res.Facets.Genres, p, p.GenreID, func(q search.Params, id int64) search.Params {
			q.GenreID = id
			return q
		}),
		newFacetGroup("Key", res.Facets.Keys, p, p.KeyID, func(q search.Params, id int64) search.Params {
			q.KeyID = id
			return q
		}),
		newFacetGroup("Instrument", res.Facets.Instruments, p, p.InstrumentID, func(q search.Params, id int64) search.Params {
			q.InstrumentID = id
			return q
		}),
	}
	return page
}

// newFacetGroup links every facet value to the current search narrowed to
// it, back on page one. The active value links to the search without it.
func newFacetGroup(title string, values []search.FacetValue, p search.Params, current int64, set func(search.Params, int64) search.Params) facetGroup {
	g := facetGroup{Title: title}
	without := set(p, 0).WithPage(1).URL("/search")
	if current > 0 {
		g.ClearURL = without
	}
	for _, v := range values {
		link := facetLink{Name: v.Name, Count: v.Count, Active: v.ID == current}
		if link.Active {
			link.URL = without
		} else {
			link.URL = set(p, v.ID).WithPage(1).URL("/search")
		}
		g.Values = append(g.Values, link)
	}
	return g
}

// parseWorkID reads a positive work id
func parseWorkID(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, withStatus(fmt.Errorf("%w: missing work id", util.ErrInvalidInput), http.StatusBadRequest, "A work id is required.")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, withStatus(fmt.Errorf("%w: work id %q", util.ErrInvalidInput, raw), http.StatusBadRequest, "The work id must be a positive number.")
	}
	return id, nil
}

func (s *Server) handleWork(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	raw, routed := mux.Vars(r)["id"]
	if !routed {
		raw = query.Get("id")
	}

	var id int64
	if !routed && raw == "" && query.Get("bwv") != "" {
		// Links by catalog label, e.g. /work?bwv=BWV1007
		found, err := s.store.FindWorkByCatalog(ctx, query.Get("bwv"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		if found == 0 {
			s.fail(w, r, fmt.Errorf("%w: catalog label %q", util.ErrNotFound, query.Get("bwv")))
			return
		}
		id = found
	} else {
		var err error
		if id, err = parseWorkID(raw); err != nil {
			s.fail(w, r, err)
			return
		}
	}

	work, err := s.store.GetWork(ctx, id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if work == nil {
		s.fail(w, r, fmt.Errorf("%w: work %d", util.ErrNotFound, id))
		return
	}

	s.render(w, r, http.StatusOK, "work", view{Title: workTitle(work), Data: work})
}

func workTitle(w *store.WorkDetail) string {
	if w.BWVFull == "" {
		return w.Title
	}
	return w.Title + " - " + w.BWVFull
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := s.store.Ping(ctx); err != nil {
		util.WarnLog("Health check failed: %v", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintln(w, "unavailable")
		return
	}
	fmt.Fprintln(w, "ok")
}
