// Package catalog recognizes BWV catalog references and normalizes the text
// fields of catalog records.
package catalog

import (
	"regexp"
	"strconv"
	"strings"
)

// FamilyPrefix is the catalog family label as it appears in normalized form
const FamilyPrefix = "bwv"

var (
	// Optional "BWV", optional "Anh." qualifier, digits, optional one-letter suffix
	refPattern = regexp.MustCompile(`(?i)\b(?:bwv\.?\s*)?(?:(anh)\.?\s*)?(\d+[a-z]?)\b`)

	// Same as refPattern with the "BWV" label required
	labelledRefPattern = regexp.MustCompile(`(?i)\bbwv\.?\s*(?:(anh)\.?\s*)?(\d+[a-z]?)\b`)

	// A labelled catalog number, "BWV 1041", "BWV.1046-1051", "bwv Anh. 10"
	labelPattern = regexp.MustCompile(`(?i)\bbwv\.?\s*(anh\.?\s*)?(\d+)`)

	nonAlnum = regexp.MustCompile(`[^0-9a-z]+`)
)

// Ref is a catalog reference recognized in free text
type Ref struct {
	// Key is the normalized reference: "1007", "1007a", or "anh10" for the appendix
	Key string
	// Appendix is set for Anh. references
	Appendix bool
}

// ExactKeys returns the normalized catalog values that count as an exact match
func (r Ref) ExactKeys() []string {
	return []string{r.Key, FamilyPrefix + r.Key}
}

// Recognize finds the catalog reference in q.
// "BWV 1007", "bwv1007" and "1007" all yield "1007"; "BWV  1007a" yields "1007a".
// A BWV-labelled number wins over an earlier bare one: "Suite No. 1 BWV 1007" yields "1007".
func Recognize(q string) (Ref, bool) {
	m := labelledRefPattern.FindStringSubmatch(q)
	if m == nil {
		m = refPattern.FindStringSubmatch(q)
	}
	if m == nil {
		return Ref{}, false
	}
	key := strings.ToLower(m[2])
	if m[1] != "" {
		return Ref{Key: "anh" + key, Appendix: true}, true
	}
	return Ref{Key: key}, true
}

// Normalize lowercases s and strips every character that is not a digit or a letter a-z.
// "BWV 1007a" becomes "bwv1007a".
func Normalize(s string) string {
	return nonAlnum.ReplaceAllString(strings.ToLower(s), "")
}

// ParseBWVID extracts the integer catalog number from a labelled reference.
// Appendix references ("BWV Anh. 10") have no integer number.
func ParseBWVID(s string) (int64, bool) {
	m := labelPattern.FindStringSubmatch(s)
	if m == nil || m[1] != "" {
		return 0, false
	}
	n, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// BuildLabel joins a catalog family and number into a full label ("BWV", "1007" -> "BWV 1007").
// Returns "" when both parts are empty.
func BuildLabel(family, number string) string {
	parts := make([]string, 0, 2)
	for _, p := range []string{family, number} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// IsWholeRef reports whether q consists of a single catalog reference and nothing else
func IsWholeRef(q string) bool {
	return wholeRefPattern.MatchString(q)
}

var wholeRefPattern = regexp.MustCompile(`(?i)^\s*(?:bwv\.?\s*)?(?:anh\.?\s*)?\d+[a-z]?\s*$`)

// LooksLikeBWV reports whether s carries the BWV family label
func LooksLikeBWV(s string) bool {
	return bwvWord.MatchString(s)
}

var bwvWord = regexp.MustCompile(`(?i)\bbwv\b`)
