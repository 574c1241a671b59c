package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/yuin/goldmark"
)

//go:embed templates/*.html
var templateFS embed.FS

// pageNames are the templates rendered inside the base layout
var pageNames = []string{"home", "search", "work", "error"}

var funcs = template.FuncMap{
	"highlight": highlight,
	"comma":     func(n int) string { return humanize.Comma(int64(n)) },
	"markdown":  renderMarkdown,
	"ms":        func(d time.Duration) int64 { return d.Milliseconds() },
	"orDash": func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "—"
		}
		return s
	},
	"year": func() int { return time.Now().Year() },
}

// parseTemplates builds one template set per page, each a clone of the layout
func parseTemplates() (map[string]*template.Template, error) {
	base, err := template.New("layout").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tp, err := base.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := tp.ParseFS(templateFS, "templates/"+name+".html"); err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		pages[name] = tp
	}
	return pages, nil
}

var (
	markdown = goldmark.New()

	// Quoted phrases or bare words, with full-text operators around them
	highlightToken = regexp.MustCompile(`"([^"]+)"|(\S+)`)
)

// highlightTerms picks the words of a query worth marking in a title:
// excluded terms, operators and one-letter words are left out
func highlightTerms(query string) []string {
	var terms []string
	for _, m := range highlightToken.FindAllStringSubmatch(query, -1) {
		t := m[1]
		if t == "" {
			t = m[2]
			if strings.HasPrefix(t, "-") {
				continue
			}
			t = strings.Trim(t, `+*"'()`)
		}
		t = strings.TrimSpace(t)
		if len([]rune(t)) < 2 || strings.EqualFold(t, "or") || strings.EqualFold(t, "and") {
			continue
		}
		terms = append(terms, t)
	}
	// Longest first so that overlapping terms mark the longer match
	sort.SliceStable(terms, func(i, j int) bool { return len(terms[i]) > len(terms[j]) })
	return terms
}

// highlight escapes text and wraps every case-insensitive occurrence of a
// query term in <mark>
func highlight(text, query string) template.HTML {
	terms := highlightTerms(query)
	if len(terms) == 0 {
		return template.HTML(template.HTMLEscapeString(text))
	}

	quoted := make([]string, len(terms))
	for i, t := range terms {
		quoted[i] = regexp.QuoteMeta(t)
	}
	re, err := regexp.Compile(`(?i)` + strings.Join(quoted, "|"))
	if err != nil {
		return template.HTML(template.HTMLEscapeString(text))
	}

	var b strings.Builder
	last := 0
	for _, loc := range re.FindAllStringIndex(text, -1) {
		b.WriteString(template.HTMLEscapeString(text[last:loc[0]]))
		b.WriteString("<mark>")
		b.WriteString(template.HTMLEscapeString(text[loc[0]:loc[1]]))
		b.WriteString("</mark>")
		last = loc[1]
	}
	b.WriteString(template.HTMLEscapeString(text[last:]))
	return template.HTML(b.String())
}

// renderMarkdown converts work notes to HTML. Raw HTML in the source is
// not passed through.
func renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return template.HTML("<p>" + template.HTMLEscapeString(src) + "</p>")
	}
	return template.HTML(buf.String())
}
