package catalog

import (
	"reflect"
	"testing"
	"unicode/utf8"
)

func TestParseDurationMinutes(t *testing.T) {
	tests := []struct {
		input    string
		expected int
		ok       bool
	}{
		{"25", 25, true},
		{"25 min", 25, true},
		{"25 minutes", 25, true},
		{"1:30:00", 90, true},
		{"42:10", 42, true},
		{"42:40", 43, true},
		{"1 h 45 m", 105, true},
		{"90m", 90, true},
		{"2h", 120, true},
		{"2H 5MIN", 125, true},
		{"", 0, false},
		{"about an hour", 0, false},
		{"h", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseDurationMinutes(tt.input)
			if ok != tt.ok || got != tt.expected {
				t.Errorf("ParseDurationMinutes(%q) = (%d, %v), expected (%d, %v)",
					tt.input, got, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		input    string
		max      int
		expected string
	}{
		{"Präludium", 3, "Prä"},
		{"Präludium", 20, "Präludium"},
		{"abc", 0, ""},
		{"", 5, ""},
	}

	for _, tt := range tests {
		got := Truncate(tt.input, tt.max)
		if got != tt.expected {
			t.Errorf("Truncate(%q, %d) = %q, expected %q", tt.input, tt.max, got, tt.expected)
		}
		if !utf8.ValidString(got) {
			t.Errorf("Truncate(%q, %d) produced invalid UTF-8", tt.input, tt.max)
		}
	}
}

func TestFold(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Präludium", "praludium"},
		{"ICH HABE GENUG", "ich habe genug"},
		{"Jesu, meine Freude", "jesu, meine freude"},
		{"Méditation", "meditation"},
	}

	for _, tt := range tests {
		if got := Fold(tt.input); got != tt.expected {
			t.Errorf("Fold(%q) = %q, expected %q", tt.input, got, tt.expected)
		}
	}
}

func TestCleanString(t *testing.T) {
	if got := CleanString("  Mass   in\tB minor "); got != "Mass in B minor" {
		t.Errorf("CleanString() = %q", got)
	}
}

func TestSplitInstrumentation(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"Cello", []string{"Cello"}},
		{"Soprano, oboe; strings and continuo", []string{"Soprano", "oboe", "strings", "continuo"}},
		{"violin / harpsichord", []string{"violin", "harpsichord"}},
		{"Organ, organ", []string{"Organ"}},
		{"", nil},
		{" , ", nil},
	}

	for _, tt := range tests {
		got := SplitInstrumentation(tt.input)
		if !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("SplitInstrumentation(%q) = %#v, expected %#v", tt.input, got, tt.expected)
		}
	}
}
