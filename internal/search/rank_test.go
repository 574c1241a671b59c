package search

import (
	"testing"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		bwvNorm  string
		title    string
		key      string
		query    string
		expected int
	}{
		{"exact", "bwv1007", "Cello Suite No. 1", "1007", "BWV 1007", 100},
		{"exact bare key", "1007", "Cello Suite No. 1", "1007", "1007", 100},
		{"partial", "bwv1007a", "Cello Suite No. 1, early version", "1007", "BWV 1007", 60},
		{"title only", "", "Prelude from BWV 1007", "1007", "BWV 1007", 30},
		{"exact and title", "bwv1007", "Suite BWV 1007", "1007", "BWV 1007", 130},
		{"accent folded title", "", "Präludium in C", "", "praludium", 30},
		{"no match", "bwv232", "Mass in B minor", "1007", "BWV 1007", 0},
		{"no key", "bwv232", "Mass in B minor", "", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Score(tt.bwvNorm, tt.title, tt.key, tt.query)
			if got != tt.expected {
				t.Errorf("Score() = %d, expected %d", got, tt.expected)
			}
		})
	}
}

func TestScoreItemsOrdersNaturally(t *testing.T) {
	items := []Item{
		{ID: 1, Title: "Cello Suite No. 10"},
		{ID: 2, Title: "cello suite No. 2"},
		{ID: 3, Title: "Suite BWV 1007", bwvNorm: "bwv1007"},
		{ID: 4, Title: "Cello Suite No. 1"},
	}

	ScoreItems(items, "1007", "suite")

	expected := []int64{3, 4, 2, 1}
	for i, id := range expected {
		if items[i].ID != id {
			t.Fatalf("position %d: got work %d (%q), expected %d", i, items[i].ID, items[i].Title, id)
		}
	}
	if items[0].Relevance != 130 || items[1].Relevance != 30 {
		t.Errorf("unexpected relevance values: %v, %v", items[0].Relevance, items[1].Relevance)
	}
}

func TestNewRanker(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		wantErr  bool
	}{
		{"", "sql", false},
		{"sql", "sql", false},
		{"legacy", "legacy", false},
		{"bm25", "", true},
	}

	for _, tt := range tests {
		r, err := NewRanker(tt.name)
		if tt.wantErr {
			if err == nil {
				t.Errorf("NewRanker(%q) expected error", tt.name)
			}
			continue
		}
		if err != nil {
			t.Fatalf("NewRanker(%q) failed: %v", tt.name, err)
		}
		if r.Name() != tt.expected {
			t.Errorf("NewRanker(%q).Name() = %q", tt.name, r.Name())
		}
	}
}

func TestRowLimits(t *testing.T) {
	if (SQLRanker{}).RowLimit() != 0 {
		t.Error("sql ranker should page through every row")
	}
	if (LegacyRanker{}).RowLimit() != MaxLegacyRows {
		t.Errorf("legacy ranker limit = %d, expected %d", (LegacyRanker{}).RowLimit(), MaxLegacyRows)
	}
}
