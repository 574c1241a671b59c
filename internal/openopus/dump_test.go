package openopus

import (
	"errors"
	"strings"
	"testing"

	"github.com/franz/bachpedia/internal/util"
)

func TestParseDumpLayouts(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		works    int
		composer string
		skipped  int
	}{
		{
			name:     "works object",
			input:    `{"composer": {"complete_name": "Johann Sebastian Bach"}, "works": [{"title": "A"}, {"title": "B"}]}`,
			works:    2,
			composer: "Johann Sebastian Bach",
		},
		{
			name:     "data works object",
			input:    `{"data": {"composer": "J. S. Bach", "works": [{"title": "A"}]}}`,
			works:    1,
			composer: "J. S. Bach",
		},
		{
			name:    "bare list",
			input:   `[{"title": "A"}, "junk", {"title": "C"}]`,
			works:   2,
			skipped: 1,
		},
		{
			name:    "ndjson",
			input:   "{\"title\": \"A\"}\n\n{\"title\": \"B\"}\nnot json\n{\"title\": \"D\"}\n",
			works:   3,
			skipped: 1,
		},
		{
			name: "full dump",
			input: `{"status": {"success": "true"}, "composers": [
				{"id": 5, "name": "Vivaldi", "works": [{"title": "Spring"}]},
				{"id": 87, "complete_name": "Johann Sebastian Bach", "works": [{"title": "A"}, {"title": "B"}]}
			]}`,
			works:    2,
			composer: "Johann Sebastian Bach",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDump(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("ParseDump failed: %v", err)
			}
			if len(d.Works) != tt.works {
				t.Errorf("expected %d works, got %d", tt.works, len(d.Works))
			}
			if d.ComposerName != tt.composer {
				t.Errorf("expected composer %q, got %q", tt.composer, d.ComposerName)
			}
			if d.Skipped != tt.skipped {
				t.Errorf("expected %d skipped, got %d", tt.skipped, d.Skipped)
			}
		})
	}
}

func TestParseDumpRejectsUnknownLayout(t *testing.T) {
	for _, input := range []string{`{"status": {"success": "true"}, "rows": 3}`, `42`, ``, `[]`} {
		_, err := ParseDump(strings.NewReader(input))
		if !errors.Is(err, util.ErrUnsupported) {
			t.Errorf("ParseDump(%q): expected ErrUnsupported, got %v", input, err)
		}
	}
}

func TestRecordAccessors(t *testing.T) {
	d, err := ParseDump(strings.NewReader(`[{
		"id": "1234",
		"title": "  Cello Suite No. 1  ",
		"subtitle": "",
		"genre": {"name": "Chamber"},
		"key": "G major",
		"catalogue": "BWV",
		"catalogue_number": 1007,
		"year": 1720
	}]`))
	if err != nil {
		t.Fatalf("ParseDump failed: %v", err)
	}
	r := d.Works[0]

	if r.OpenOpusID() != 1234 {
		t.Errorf("OpenOpusID() = %d", r.OpenOpusID())
	}
	if r.Title() != "Cello Suite No. 1" {
		t.Errorf("Title() = %q", r.Title())
	}
	if r.Subtitle() != "" {
		t.Errorf("Subtitle() = %q", r.Subtitle())
	}
	if r.Genre() != "Chamber" {
		t.Errorf("Genre() = %q", r.Genre())
	}
	if r.Key() != "G major" {
		t.Errorf("Key() = %q", r.Key())
	}
	if r.CatalogLabel() != "BWV 1007" {
		t.Errorf("CatalogLabel() = %q", r.CatalogLabel())
	}
	if r.Year() != "1720" {
		t.Errorf("Year() = %q", r.Year())
	}
}

func TestCatalogLabelUsesOpus(t *testing.T) {
	r := Record{"catalogue": "BWV", "opus": "Anh. 10"}
	if got := r.CatalogLabel(); got != "BWV Anh. 10" {
		t.Errorf("CatalogLabel() = %q", got)
	}
	if got := (Record{"title": "Untitled"}).CatalogLabel(); got != "" {
		t.Errorf("CatalogLabel() = %q, expected empty", got)
	}
}

func TestIsBachName(t *testing.T) {
	tests := []struct {
		name     string
		expected bool
	}{
		{"Johann Sebastian Bach", true},
		{"Bach, Johann Sebastian", true},
		{"J. S. Bach", true},
		{"J.S. Bach", true},
		{"JS Bach", true},
		{"Carl Philipp Emanuel Bach", false},
		{"Bach", false},
		{"Johann Pachelbel", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := IsBachName(tt.name); got != tt.expected {
			t.Errorf("IsBachName(%q) = %v, expected %v", tt.name, got, tt.expected)
		}
	}
}

func TestRecordIsBach(t *testing.T) {
	tests := []struct {
		name     string
		record   Record
		assume   bool
		expected bool
	}{
		{"composer object", Record{"composer": map[string]any{"complete_name": "Johann Sebastian Bach"}}, false, true},
		{"composer string", Record{"composer": "J. S. Bach"}, false, true},
		{"composer_name field", Record{"composer_name": "Johann Sebastian Bach"}, false, true},
		{"numeric composer with BWV catalogue", Record{"composer": "87", "catalogue": "BWV"}, false, true},
		{"catalogue only", Record{"bwvFull": "BWV 565"}, false, true},
		{"other composer", Record{"composer": "Antonio Vivaldi", "catalogue": "RV"}, false, false},
		{"assumed", Record{"title": "Anything"}, true, true},
		{"nothing", Record{"title": "Anything"}, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.IsBach(tt.assume); got != tt.expected {
				t.Errorf("IsBach(%v) = %v, expected %v", tt.assume, got, tt.expected)
			}
		})
	}
}
