package openopus

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/franz/bachpedia/internal/catalog"
	"github.com/franz/bachpedia/internal/util"
)

// Record is one work object from a dump. Dumps from different Open Opus
// endpoints and scrapers disagree on field names and shapes, so records stay
// loosely typed and are read through the accessors below.
type Record map[string]any

// Dump is the work list found in a dump file
type Dump struct {
	// ComposerName is the composer named at the top of the dump, if any
	ComposerName string
	Works        []Record
	// Skipped counts entries that were not objects
	Skipped int
}

// ParseDump reads a dump in any of the known layouts: an object with
// "works", an object with "data.works", an object with "composers" (the
// full Open Opus dump, from which Bach is selected), a bare list, or one
// JSON object per line.
func ParseDump(r io.Reader) (*Dump, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read dump: %w", err)
	}

	var data any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&data); err == nil && !dec.More() {
		if d, ok := fromDocument(data); ok {
			return d, nil
		}
	}

	d, err := parseLines(raw)
	if err != nil {
		return nil, err
	}
	if len(d.Works) == 0 {
		return nil, fmt.Errorf("%w: no work list in dump (top-level keys: %s)", util.ErrUnsupported, describe(data))
	}
	return d, nil
}

func fromDocument(data any) (*Dump, bool) {
	switch v := data.(type) {
	case []any:
		if len(v) == 0 {
			return nil, false
		}
		return collect(v, ""), true
	case map[string]any:
		if works, ok := v["works"].([]any); ok {
			return collect(works, composerName(v["composer"])), true
		}
		if inner, ok := v["data"].(map[string]any); ok {
			if works, ok := inner["works"].([]any); ok {
				return collect(works, composerName(inner["composer"])), true
			}
		}
		if composers, ok := v["composers"].([]any); ok {
			for _, c := range composers {
				cm, ok := c.(map[string]any)
				if !ok || Record(cm).Int("id") != BachID {
					continue
				}
				works, _ := cm["works"].([]any)
				name := Record(cm).String("complete_name", "name")
				if name == "" {
					name = "Johann Sebastian Bach"
				}
				return collect(works, name), true
			}
		}
	}
	return nil, false
}

func collect(items []any, composer string) *Dump {
	d := &Dump{ComposerName: composer, Works: make([]Record, 0, len(items))}
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			d.Skipped++
			continue
		}
		d.Works = append(d.Works, Record(m))
	}
	return d
}

func parseLines(raw []byte) (*Dump, error) {
	d := &Dump{}
	scanner := bufio.NewScanner(bytes.NewReader(raw))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lines := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		lines++
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		var m map[string]any
		if err := dec.Decode(&m); err != nil || m == nil {
			d.Skipped++
			continue
		}
		d.Works = append(d.Works, Record(m))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read dump lines: %w", err)
	}
	if lines < 2 {
		d.Works = nil
	}
	return d, nil
}

func describe(data any) string {
	m, ok := data.(map[string]any)
	if !ok {
		if data == nil {
			return "none"
		}
		return fmt.Sprintf("%T", data)
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

// composerName reads a composer given as an object or a plain string
func composerName(v any) string {
	switch c := v.(type) {
	case map[string]any:
		return Record(c).String("complete_name", "name", "shortname")
	case string:
		return strings.TrimSpace(c)
	}
	return ""
}

// String returns the first non-empty value among keys, rendered as text
func (r Record) String(keys ...string) string {
	for _, k := range keys {
		switch v := r[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case json.Number:
			return v.String()
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		}
	}
	return ""
}

// Int returns the first numeric value among keys, 0 if none
func (r Record) Int(keys ...string) int64 {
	for _, k := range keys {
		if n, ok := toInt(r[k]); ok {
			return n
		}
	}
	return 0
}

func toInt(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case float64:
		return int64(n), n == float64(int64(n))
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		return i, err == nil
	}
	return 0, false
}

// Title is the work title
func (r Record) Title() string {
	return r.String("title")
}

// Subtitle is the alternative title, if any
func (r Record) Subtitle() string {
	return r.String("subtitle")
}

// Genre reads the genre given as an object or a plain string
func (r Record) Genre() string {
	if g, ok := r["genre"].(map[string]any); ok {
		return Record(g).String("name")
	}
	return r.String("genre")
}

// Key is the tonality, e.g. "A minor"
func (r Record) Key() string {
	return r.String("key")
}

// Catalogue is the catalogue field, used as the work's collection
func (r Record) Catalogue() string {
	return r.String("catalogue")
}

// Year is the composition date, if given
func (r Record) Year() string {
	return r.String("year")
}

// CatalogLabel joins catalogue and number, e.g. "BWV" and "1041" into "BWV 1041".
// Returns "" when neither is present.
func (r Record) CatalogLabel() string {
	var parts []string
	if c := r.Catalogue(); c != "" {
		parts = append(parts, c)
	}
	if n := r.String("catalogue_number", "opus"); n != "" {
		parts = append(parts, n)
	}
	return strings.Join(parts, " ")
}

// OpenOpusID is the work's Open Opus id, 0 if absent
func (r Record) OpenOpusID() int64 {
	return r.Int("id", "work_id", "workId")
}

// ComposerName is the composer named on the work itself
func (r Record) ComposerName() string {
	if name := composerName(r["composer"]); name != "" {
		if _, numeric := toInt(r["composer"]); !numeric {
			return name
		}
	}
	return r.String("composer_name")
}

var catalogFields = []string{
	"catalogue", "catalog", "cat", "work_catalog", "catalogue_number",
	"catalog_number", "opus", "bwv", "bwv_id", "bwvId", "bwvFull",
}

// LooksLikeBachCatalog reports whether any catalogue field mentions BWV
func (r Record) LooksLikeBachCatalog() bool {
	for _, k := range catalogFields {
		if catalog.LooksLikeBWV(r.String(k)) {
			return true
		}
	}
	return false
}

// IsBach decides whether a record is a Bach work: by the composer named on
// it, or else by a BWV catalogue. assumeBach accepts every record.
func (r Record) IsBach(assumeBach bool) bool {
	if assumeBach {
		return true
	}
	if IsBachName(r.ComposerName()) {
		return true
	}
	return r.LooksLikeBachCatalog()
}

var initialsPattern = regexp.MustCompile(`(?i)\bj\s*\.?\s*s\b\.?`)

// IsBachName reports whether name designates Johann Sebastian Bach:
// it must contain "bach" and either "johann" or the initials J. S.
func IsBachName(name string) bool {
	n := strings.ToLower(name)
	if !strings.Contains(n, "bach") {
		return false
	}
	if strings.Contains(n, "johann") {
		return true
	}
	if strings.Contains(n, "j. s.") || strings.Contains(n, "j.s.") {
		return true
	}
	return initialsPattern.MatchString(name)
}
