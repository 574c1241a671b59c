package search

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/franz/bachpedia/internal/catalog"
)

// Mode is the text matching strategy chosen for a query
type Mode string

const (
	ModeNone      Mode = "none"
	ModeFullText  Mode = "fulltext"
	ModeSubstring Mode = "substring"
)

// A run of 3+ letters or 3+ digits is long enough for the token index
var indexableRun = regexp.MustCompile(`\p{L}{3,}|\p{Nd}{3,}`)

// DetectMode picks full-text matching when text has an indexable token
func DetectMode(text string) Mode {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return ModeNone
	case indexableRun.MatchString(text):
		return ModeFullText
	default:
		return ModeSubstring
	}
}

// term is one element of a boolean full-text query
type term struct {
	text     string
	phrase   bool
	prefix   bool
	excluded bool
}

// parseTerms splits boolean query syntax: +required, -excluded, prefix*, "quoted phrase".
// Bare terms are required.
func parseTerms(q string) []term {
	var terms []term
	r := []rune(q)
	i := 0
	for i < len(r) {
		for i < len(r) && unicode.IsSpace(r[i]) {
			i++
		}
		if i >= len(r) {
			break
		}

		t := term{}
		for i < len(r) && (r[i] == '+' || r[i] == '-') {
			t.excluded = r[i] == '-'
			i++
		}
		if i >= len(r) {
			break
		}

		if r[i] == '"' {
			i++
			start := i
			for i < len(r) && r[i] != '"' {
				i++
			}
			t.text = string(r[start:i])
			t.phrase = true
			if i < len(r) {
				i++ // closing quote
			}
		} else {
			start := i
			for i < len(r) && !unicode.IsSpace(r[i]) {
				i++
			}
			t.text = string(r[start:i])
			if strings.HasSuffix(t.text, "*") {
				t.prefix = true
				t.text = strings.TrimRight(t.text, "*")
			}
		}

		t.text = strings.TrimSpace(t.text)
		if !hasWordChar(t.text) {
			continue
		}
		terms = append(terms, t)
	}
	return terms
}

func hasWordChar(s string) bool {
	for _, c := range s {
		if unicode.IsLetter(c) || unicode.IsDigit(c) {
			return true
		}
	}
	return false
}

// quoteTerm renders a term as an FTS5 string so that no input character is
// read as query syntax
func quoteTerm(t term) string {
	s := `"` + strings.ReplaceAll(t.text, `"`, `""`) + `"`
	if t.prefix && !t.phrase {
		s += "*"
	}
	return s
}

// matchExpression translates boolean query syntax into an FTS5 MATCH expression.
// Returns "" when the query has no required term.
func matchExpression(terms []term) string {
	var required, excluded []string
	for _, t := range terms {
		if t.excluded {
			excluded = append(excluded, quoteTerm(t))
		} else {
			required = append(required, quoteTerm(t))
		}
	}
	if len(required) == 0 {
		return ""
	}

	expr := strings.Join(required, " AND ")
	if len(excluded) > 0 {
		expr = "(" + expr + ")"
		for _, e := range excluded {
			expr += " NOT " + e
		}
	}
	return expr
}

// positiveText joins the required terms back into plain text, for catalog
// reference recognition
func positiveText(terms []term) string {
	var parts []string
	for _, t := range terms {
		if !t.excluded {
			parts = append(parts, t.text)
		}
	}
	return strings.Join(parts, " ")
}

// catalogMatch describes how the query's catalog reference takes part in matching
type catalogMatch struct {
	key   string // Normalized catalog key used for scoring; "" when none
	ref   bool   // The query carries a recognized catalog reference
	whole bool   // The query is nothing but the reference
}

func analyzeCatalog(text string) catalogMatch {
	if ref, ok := catalog.Recognize(text); ok {
		return catalogMatch{
			key:   ref.Key,
			ref:   true,
			whole: catalog.IsWholeRef(text),
		}
	}
	return catalogMatch{key: catalog.Normalize(text)}
}
