package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/franz/bachpedia/internal/search"
)

func sampleResult() *search.Result {
	return &search.Result{
		Params: search.Params{Query: "suite", Page: 1, PageSize: 20},
		Items: []search.Item{
			{ID: 12, BWVFull: "BWV 1007", Title: "Cello Suite No. 1 in G major", Genre: "Suite", Key: "G major", DateComp: "1720"},
			{ID: 40, Title: "Suite in A minor"},
		},
		Total:  2,
		Pages:  1,
		Mode:   search.ModeFullText,
		Ranker: "sql",
		Facets: search.Facets{
			Genres: []search.FacetValue{
				{ID: 1, Name: "Suite", Count: 2},
				{ID: 2, Name: "Partita", Count: 1},
				{ID: 3, Name: "Sonata", Count: 1},
			},
		},
	}
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, sampleResult(), 200, 2)
	out := buf.String()

	for _, want := range []string{
		"2 result(s)",
		"mode fulltext, ranker sql",
		"    12  BWV 1007  Cello Suite No. 1 in G major  [Suite, G major, 1720]",
		"    40  -         Suite in A minor",
		"Page 1 of 1",
		"Genres:",
		"Suite (2)",
		"... 1 more",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Sonata") {
		t.Errorf("facet limit not applied:\n%s", out)
	}
	if strings.Contains(out, "Keys:") {
		t.Errorf("empty facet printed:\n%s", out)
	}
}

func TestPrintResult_Width(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, sampleResult(), 30, 0)

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.HasPrefix(line, " ") && len([]rune(line)) > 30 {
			t.Errorf("line wider than 30 columns: %q", line)
		}
	}
	if strings.Contains(buf.String(), "Genres:") {
		t.Error("facets should be hidden with a zero limit")
	}
}

func TestPrintResult_Empty(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, &search.Result{Params: search.Params{Page: 1}, Ranker: "legacy", Mode: search.ModeNone, Capped: true}, 80, 5)

	out := buf.String()
	if !strings.Contains(out, "No results found.") {
		t.Errorf("expected empty notice:\n%s", out)
	}
	if !strings.Contains(out, "Only the first 200 results") {
		t.Errorf("expected capped notice:\n%s", out)
	}
}
