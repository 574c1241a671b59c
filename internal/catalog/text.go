package catalog

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Column limits of the work table
const (
	MaxTitleLen       = 191
	MaxGenreLen       = 100
	MaxKeyLen         = 25
	MaxInstrumentLen  = 191
	MaxCollectionLen  = 191
	MaxDateLen        = 25
	MaxNotesLen       = 512
	MaxSourcesLen     = 191
	MaxAltTitlesLen   = 191
	MaxCatalogNameLen = 191
)

var (
	whitespace = regexp.MustCompile(`\s+`)

	clockDuration = regexp.MustCompile(`^(\d{1,2}):(\d{2})(?::(\d{2}))?$`)
	unitDuration  = regexp.MustCompile(`(?i)^\s*(?:(\d+)\s*h)?\s*(?:(\d+)\s*m(?:in)?)?\s*$`)
	plainDuration = regexp.MustCompile(`(?i)^\s*(\d+)\s*(?:m|min|minutes?)?$`)

	instrumentSeparators = regexp.MustCompile(`\s*(?:[,;/+&]|\band\b)\s*`)
)

// CleanString applies NFC normalization, trims and collapses whitespace
func CleanString(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)
	return strings.TrimSpace(whitespace.ReplaceAllString(s, " "))
}

// Fold lowercases s and removes diacritics, for accent-insensitive matching.
// "Präludium" becomes "praludium".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// Truncate cuts s to at most max characters without splitting a UTF-8 sequence
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i]
		}
		count++
	}
	return s
}

// ParseDurationMinutes converts a duration to whole minutes.
// Accepts "25", "25 min", "1:30:00" (h:m:s), "42:10" (m:s), "1 h 45 m", "90m" and "2h".
func ParseDurationMinutes(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if m := clockDuration.FindStringSubmatch(s); m != nil {
		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])
		if m[3] != "" {
			sec, _ := strconv.Atoi(m[3])
			return a*60 + b + roundMinutes(sec), true
		}
		return a + roundMinutes(b), true
	}

	if m := unitDuration.FindStringSubmatch(s); m != nil && (m[1] != "" || m[2] != "") {
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		return h*60 + mi, true
	}

	if m := plainDuration.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, false
		}
		return n, true
	}

	return 0, false
}

func roundMinutes(seconds int) int {
	return int(math.Round(float64(seconds) / 60))
}

// SplitInstrumentation splits a free-text instrumentation line into instrument names.
// Duplicates (case-insensitive) are dropped; order is preserved.
func SplitInstrumentation(s string) []string {
	s = CleanString(s)
	if s == "" {
		return nil
	}

	seen := make(map[string]bool)
	var out []string
	for _, part := range instrumentSeparators.Split(s, -1) {
		part = Truncate(strings.TrimSpace(part), MaxInstrumentLen)
		if part == "" {
			continue
		}
		k := strings.ToLower(part)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, part)
	}
	return out
}
