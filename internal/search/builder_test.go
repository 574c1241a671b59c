package search

import (
	"strings"
	"testing"
)

func TestDetectMode(t *testing.T) {
	tests := []struct {
		text     string
		expected Mode
	}{
		{"", ModeNone},
		{"   ", ModeNone},
		{"BWV 1007", ModeFullText},
		{"1007", ModeFullText},
		{"Präludium", ModeFullText},
		{"in", ModeSubstring},
		{"10", ModeSubstring},
		{"g 7", ModeSubstring},
		{"kä", ModeSubstring},
	}

	for _, tt := range tests {
		if got := DetectMode(tt.text); got != tt.expected {
			t.Errorf("DetectMode(%q) = %s, expected %s", tt.text, got, tt.expected)
		}
	}
}

func TestMatchExpression(t *testing.T) {
	tests := []struct {
		query    string
		expected string
	}{
		{"mass minor", `"mass" AND "minor"`},
		{"+mass -minor", `("mass") NOT "minor"`},
		{`"ich habe" genug`, `"ich habe" AND "genug"`},
		{"präl*", `"präl"*`},
		{`"open phrase`, `"open phrase"`},
		{`say"what`, `"say""what"`},
		{"-mass -minor", ""},
		{"- + * --", ""},
		{"cello -suite -1008", `("cello") NOT "suite" NOT "1008"`},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := matchExpression(parseTerms(tt.query))
			if got != tt.expected {
				t.Errorf("matchExpression(%q) = %q, expected %q", tt.query, got, tt.expected)
			}
		})
	}
}

func TestCompileCatalogKey(t *testing.T) {
	tests := []struct {
		text  string
		key   string
		ref   bool
		whole bool
	}{
		{"BWV 1007", "1007", true, true},
		{"bwv1007a", "1007a", true, true},
		{"1007", "1007", true, true},
		{"BWV Anh. 10", "anh10", true, true},
		{"cello suite 1007", "1007", true, false},
		{"cello suite", "", false, false},
		{"mass -232", "", false, false},
		{"kä", "", false, false},
		{"", "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			q := Compile(Filter{Text: tt.text})
			if q.CatalogKey() != tt.key || q.cat.ref != tt.ref || q.cat.whole != tt.whole {
				t.Errorf("Compile(%q) catalog = %+v, expected key=%q ref=%v whole=%v",
					tt.text, q.cat, tt.key, tt.ref, tt.whole)
			}
		})
	}
}

func TestWhereLeavesOutFacet(t *testing.T) {
	q := Compile(Filter{Text: "cantata", GenreID: 1, KeyID: 2, InstrumentID: 3})

	tests := []struct {
		without Facet
		absent  string
	}{
		{FacetGenre, "w.genre_id"},
		{FacetKey, "w.key_id"},
		{FacetInstrument, "wif.instrument_id"},
	}

	all := q.Where(FacetNone)
	for _, tt := range tests {
		if !strings.Contains(all.SQL, tt.absent) {
			t.Errorf("full predicate lacks %s: %s", tt.absent, all.SQL)
		}
		p := q.Where(tt.without)
		if strings.Contains(p.SQL, tt.absent) {
			t.Errorf("Where(%d) still filters on %s", tt.without, tt.absent)
		}
		if len(p.Args) != len(all.Args)-1 {
			t.Errorf("Where(%d) has %d args, expected %d", tt.without, len(p.Args), len(all.Args)-1)
		}
	}
}

func TestPredicatePlaceholdersMatchArgs(t *testing.T) {
	filters := []Filter{
		{},
		{GenreID: 4},
		{Text: "BWV 1007", KeyID: 2},
		{Text: "cello suite 1007", InstrumentID: 5},
		{Text: "kä", GenreID: 1, KeyID: 2, InstrumentID: 3},
		{Text: "10"},
		{Text: "-mass"},
	}

	for _, f := range filters {
		q := Compile(f)
		for _, facet := range []Facet{FacetNone, FacetGenre, FacetKey, FacetInstrument} {
			p := q.Where(facet)
			if n := strings.Count(p.SQL, "?"); n != len(p.Args) {
				t.Errorf("Compile(%+v).Where(%d): %d placeholders, %d args", f, facet, n, len(p.Args))
			}
		}

		expr, join, args := q.relevanceSQL()
		if n := strings.Count(expr+join, "?"); n != len(args) {
			t.Errorf("Compile(%+v).relevanceSQL: %d placeholders, %d args", f, n, len(args))
		}
	}
}

func TestSubstringPredicateEscapesWildcards(t *testing.T) {
	q := Compile(Filter{Text: "5_%"})
	if q.Mode != ModeSubstring {
		t.Fatalf("expected substring mode, got %s", q.Mode)
	}
	p := q.Where(FacetNone)
	if len(p.Args) == 0 || p.Args[len(p.Args)-1] != `%5\_\%%` {
		t.Errorf("unexpected LIKE pattern in %v", p.Args)
	}
}

func TestOrderByRelevanceNeedsFullText(t *testing.T) {
	if got := Compile(Filter{Text: "kä"}).orderBy(SortRelevance); strings.Contains(got, "relevance") {
		t.Errorf("substring query ordered by relevance: %s", got)
	}
	if got := Compile(Filter{Text: "mass"}).orderBy(SortRelevance); !strings.HasPrefix(got, "relevance DESC") {
		t.Errorf("full-text query not ordered by relevance: %s", got)
	}
	if got := Compile(Filter{}).orderBy(SortBWVDesc); !strings.HasPrefix(got, "(w.bwv_id IS NULL)") {
		t.Errorf("descending catalog order must keep unnumbered works last: %s", got)
	}
}
