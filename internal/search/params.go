package search

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

// Sort is a result ordering
type Sort string

const (
	SortRelevance Sort = "relevance"
	SortBWVAsc    Sort = "bwv_asc"
	SortBWVDesc   Sort = "bwv_desc"
	SortTitleAsc  Sort = "title_asc"
	SortTitleDesc Sort = "title_desc"
)

// Sorts lists the accepted orderings in display order
var Sorts = []Sort{SortRelevance, SortBWVAsc, SortBWVDesc, SortTitleAsc, SortTitleDesc}

// ParseSort maps a request value to a Sort; unknown values read as relevance
func ParseSort(s string) Sort {
	for _, v := range Sorts {
		if string(v) == s {
			return v
		}
	}
	return SortRelevance
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	// MaxLegacyRows caps the rows the in-process ranker will order
	MaxLegacyRows = 200

	// MaxPage keeps (Page-1)*PageSize within int for every page size
	MaxPage = math.MaxInt / MaxPageSize
)

// Params is a complete search request
type Params struct {
	Query        string
	GenreID      int64
	KeyID        int64
	InstrumentID int64
	Sort         Sort
	Page         int
	PageSize     int
}

// Normalize clamps paging and fills defaults. The query text is kept as
// given so that links rebuild it verbatim; Filter trims it.
func (p Params) Normalize() Params {
	if p.GenreID < 0 {
		p.GenreID = 0
	}
	if p.KeyID < 0 {
		p.KeyID = 0
	}
	if p.InstrumentID < 0 {
		p.InstrumentID = 0
	}
	p.Sort = ParseSort(string(p.Sort))
	if p.PageSize == 0 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize < 1 {
		p.PageSize = 1
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	return p
}

// Offset is the row offset of the current page. It saturates at
// math.MaxInt instead of overflowing.
func (p Params) Offset() int {
	if p.Page <= 1 || p.PageSize <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.PageSize {
		return math.MaxInt
	}
	return (p.Page - 1) * p.PageSize
}

// Filter returns the filtering part of the request
func (p Params) Filter() Filter {
	return Filter{
		Text:         strings.TrimSpace(p.Query),
		GenreID:      p.GenreID,
		KeyID:        p.KeyID,
		InstrumentID: p.InstrumentID,
	}
}

// ParamsFromValues reads request parameters leniently: malformed numbers read as unset
func ParamsFromValues(v url.Values) Params {
	return Params{
		Query:        v.Get("q"),
		GenreID:      parseID(v.Get("genreId")),
		KeyID:        parseID(v.Get("keyId")),
		InstrumentID: parseID(v.Get("instrumentId")),
		Sort:         ParseSort(v.Get("sort")),
		Page:         parseInt(v.Get("page")),
		PageSize:     parseInt(v.Get("pageSize")),
	}.Normalize()
}

// Values encodes p as request parameters; unset filters are omitted
func (p Params) Values() url.Values {
	v := url.Values{}
	if p.Query != "" {
		v.Set("q", p.Query)
	}
	if p.GenreID > 0 {
		v.Set("genreId", strconv.FormatInt(p.GenreID, 10))
	}
	if p.KeyID > 0 {
		v.Set("keyId", strconv.FormatInt(p.KeyID, 10))
	}
	if p.InstrumentID > 0 {
		v.Set("instrumentId", strconv.FormatInt(p.InstrumentID, 10))
	}
	if p.Sort != "" && p.Sort != SortRelevance {
		v.Set("sort", string(p.Sort))
	}
	if p.PageSize > 0 && p.PageSize != DefaultPageSize {
		v.Set("pageSize", strconv.Itoa(p.PageSize))
	}
	if p.Page > 1 {
		v.Set("page", strconv.Itoa(p.Page))
	}
	return v
}

// WithPage returns a copy of p positioned on page n
func (p Params) WithPage(n int) Params {
	p.Page = n
	return p
}

// URL renders p against path, e.g. "/search?q=BWV+1007&page=2"
func (p Params) URL(path string) string {
	enc := p.Values().Encode()
	if enc == "" {
		return path
	}
	return path + "?" + enc
}

func parseID(s string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func parseInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
