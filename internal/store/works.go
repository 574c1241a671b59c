package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/franz/bachpedia/internal/catalog"
	"github.com/franz/bachpedia/internal/util"
)

// ErrInvalidWork is returned when a work cannot be stored as given
var ErrInvalidWork = fmt.Errorf("%w: work", util.ErrInvalidInput)

// Work represents a single catalog entry.
// Zero values stand for NULL columns.
type Work struct {
	ID               int64
	BWVID            int64  // Numeric catalog number, 0 when unknown
	BWVFull          string // Full label, e.g. "BWV 1007"
	Title            string
	AltTitles        string
	GenreID          int64
	KeyID            int64
	OpusOrCollection string
	DurationEst      int // Minutes
	DateComp         string
	Notes            string
	Sources          string
	OpenOpusID       int64
	ComposerID       int64
}

// Lookup is an (id, name) row from one of the lookup tables
type Lookup struct {
	ID   int64
	Name string
}

// WorkDetail is a work with its lookup references resolved
type WorkDetail struct {
	Work
	Genre       string
	Key         string
	Composer    string
	Instruments []Lookup
}

// Writer performs catalog writes against a database or a transaction
type Writer struct {
	q DBTX
}

// NewWriter returns a writer bound to q (usually a *sql.Tx)
func NewWriter(q DBTX) *Writer {
	return &Writer{q: q}
}

// Writer returns a writer on the store's own connection
func (s *Store) Writer() *Writer {
	return &Writer{q: s.db}
}

// EnsureGenre returns the id of the named genre, inserting it if needed
func (w *Writer) EnsureGenre(ctx context.Context, name string) (int64, error) {
	return w.ensureName(ctx, "genre", name)
}

// EnsureKey returns the id of the named key, inserting it if needed
func (w *Writer) EnsureKey(ctx context.Context, name string) (int64, error) {
	return w.ensureName(ctx, "musical_key", name)
}

// EnsureInstrument returns the id of the named instrument, inserting it if needed
func (w *Writer) EnsureInstrument(ctx context.Context, name string) (int64, error) {
	return w.ensureName(ctx, "instrument", name)
}

// ensureName implements get-or-insert for the unique-name lookup tables.
// An empty name yields 0 (NULL reference).
func (w *Writer) ensureName(ctx context.Context, table, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, nil
	}

	_, err := w.q.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (name) VALUES (?) ON CONFLICT(name) DO NOTHING", table), name)
	if err != nil {
		return 0, fmt.Errorf("failed to insert %s %q: %w", table, name, err)
	}

	var id int64
	err = w.q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT id FROM %s WHERE name = ?", table), name).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to get %s id: %w", table, err)
	}
	return id, nil
}

// EnsurePerson returns the local id of the composer with the given Open Opus id,
// inserting it under name if absent
func (w *Writer) EnsurePerson(ctx context.Context, openOpusID int64, name string) (int64, error) {
	var id int64
	err := w.q.QueryRowContext(ctx, "SELECT id FROM person WHERE open_opus_id = ?", openOpusID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to get person: %w", err)
	}

	result, err := w.q.ExecContext(ctx,
		"INSERT INTO person (name, open_opus_id) VALUES (?, ?)", name, openOpusID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert person: %w", err)
	}
	return result.LastInsertId()
}

// UpsertWork inserts a work or updates the existing row that has the same
// full catalog label, or failing that the same Open Opus id.
// Returns true when a new row was inserted.
func (w *Writer) UpsertWork(ctx context.Context, work *Work) (bool, error) {
	work.Title = strings.TrimSpace(work.Title)
	if work.Title == "" {
		return false, fmt.Errorf("%w: title is required", ErrInvalidWork)
	}
	if len([]rune(work.Notes)) > catalog.MaxNotesLen {
		return false, fmt.Errorf("%w: notes exceed %d characters", ErrInvalidWork, catalog.MaxNotesLen)
	}

	existing, err := w.findExisting(ctx, work)
	if err != nil {
		return false, err
	}

	args := []any{
		nullInt(work.BWVID), nullString(work.BWVFull), nullString(catalog.Normalize(work.BWVFull)),
		work.Title, nullString(work.AltTitles), nullInt(work.GenreID), nullInt(work.KeyID),
		nullString(work.OpusOrCollection), nullInt(int64(work.DurationEst)), nullString(work.DateComp),
		nullString(work.Notes), nullString(work.Sources), nullInt(work.OpenOpusID), nullInt(work.ComposerID),
	}

	if existing == 0 {
		result, err := w.q.ExecContext(ctx, `
			INSERT INTO work (bwv_id, bwv_full, bwv_norm, title, alt_titles, genre_id, key_id,
			                  opus_or_collection, duration_est, date_comp, notes, sources,
			                  open_opus_id, composer_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, args...)
		if err != nil {
			return false, fmt.Errorf("failed to insert work: %w", err)
		}
		work.ID, err = result.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("failed to get work ID: %w", err)
		}
		return true, nil
	}

	// Fields the source did not provide keep their stored value
	_, err = w.q.ExecContext(ctx, `
		UPDATE work SET
			bwv_id = COALESCE(?, bwv_id),
			bwv_full = COALESCE(?, bwv_full),
			bwv_norm = COALESCE(?, bwv_norm),
			title = ?,
			alt_titles = COALESCE(?, alt_titles),
			genre_id = COALESCE(?, genre_id),
			key_id = COALESCE(?, key_id),
			opus_or_collection = COALESCE(?, opus_or_collection),
			duration_est = COALESCE(?, duration_est),
			date_comp = COALESCE(?, date_comp),
			notes = COALESCE(?, notes),
			sources = COALESCE(?, sources),
			open_opus_id = COALESCE(?, open_opus_id),
			composer_id = COALESCE(?, composer_id)
		WHERE id = ?
	`, append(args, existing)...)
	if err != nil {
		return false, fmt.Errorf("failed to update work: %w", err)
	}
	work.ID = existing
	return false, nil
}

// findExisting returns the id of the row an upsert should update, or 0
func (w *Writer) findExisting(ctx context.Context, work *Work) (int64, error) {
	var id int64
	if work.BWVFull != "" {
		err := w.q.QueryRowContext(ctx, "SELECT id FROM work WHERE bwv_full = ?", work.BWVFull).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("failed to look up work by catalog label: %w", err)
		}
	}
	if work.OpenOpusID != 0 {
		err := w.q.QueryRowContext(ctx, "SELECT id FROM work WHERE open_opus_id = ?", work.OpenOpusID).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("failed to look up work by Open Opus id: %w", err)
		}
	}
	return 0, nil
}

// SetWorkInstruments replaces the instrument set of a work
func (w *Writer) SetWorkInstruments(ctx context.Context, workID int64, names []string) error {
	if _, err := w.q.ExecContext(ctx, "DELETE FROM work_instrumentation WHERE work_id = ?", workID); err != nil {
		return fmt.Errorf("failed to clear instrumentation: %w", err)
	}

	for _, name := range names {
		instrumentID, err := w.EnsureInstrument(ctx, name)
		if err != nil {
			return err
		}
		if instrumentID == 0 {
			continue
		}
		_, err = w.q.ExecContext(ctx, `
			INSERT INTO work_instrumentation (work_id, instrument_id) VALUES (?, ?)
			ON CONFLICT DO NOTHING
		`, workID, instrumentID)
		if err != nil {
			return fmt.Errorf("failed to link instrument %q: %w", name, err)
		}
	}
	return nil
}

// Savepoint runs fn inside a savepoint of the enclosing transaction. When fn
// fails, its writes are rolled back and the transaction stays usable.
func (w *Writer) Savepoint(ctx context.Context, name string, fn func() error) error {
	if _, err := w.q.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to open savepoint: %w", err)
	}
	if err := fn(); err != nil {
		if _, rbErr := w.q.ExecContext(ctx, "ROLLBACK TO "+name); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		w.q.ExecContext(ctx, "RELEASE "+name)
		return err
	}
	if _, err := w.q.ExecContext(ctx, "RELEASE "+name); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

// SetWorkBWV sets the numeric catalog number of a work
func (w *Writer) SetWorkBWV(ctx context.Context, workID, bwvID int64) error {
	_, err := w.q.ExecContext(ctx, "UPDATE work SET bwv_id = ? WHERE id = ?", bwvID, workID)
	if err != nil {
		return fmt.Errorf("failed to update work %d: %w", workID, err)
	}
	return nil
}

// GetWork retrieves a work with resolved genre, key, composer and instruments.
// Returns nil, nil when no such work exists.
func (s *Store) GetWork(ctx context.Context, id int64) (*WorkDetail, error) {
	d := &WorkDetail{}
	err := s.db.QueryRowContext(ctx, `
		SELECT w.id, COALESCE(w.bwv_id, 0), COALESCE(w.bwv_full, ''), w.title,
		       COALESCE(w.alt_titles, ''), COALESCE(w.genre_id, 0), COALESCE(w.key_id, 0),
		       COALESCE(w.opus_or_collection, ''), COALESCE(w.duration_est, 0),
		       COALESCE(w.date_comp, ''), COALESCE(w.notes, ''), COALESCE(w.sources, ''),
		       COALESCE(w.open_opus_id, 0), COALESCE(w.composer_id, 0),
		       COALESCE(g.name, ''), COALESCE(k.name, ''), COALESCE(p.name, '')
		FROM work w
		LEFT JOIN genre g ON g.id = w.genre_id
		LEFT JOIN musical_key k ON k.id = w.key_id
		LEFT JOIN person p ON p.id = w.composer_id
		WHERE w.id = ?
	`, id).Scan(
		&d.ID, &d.BWVID, &d.BWVFull, &d.Title,
		&d.AltTitles, &d.GenreID, &d.KeyID,
		&d.OpusOrCollection, &d.DurationEst,
		&d.DateComp, &d.Notes, &d.Sources,
		&d.OpenOpusID, &d.ComposerID,
		&d.Genre, &d.Key, &d.Composer,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get work: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.name
		FROM work_instrumentation wi
		JOIN instrument i ON i.id = wi.instrument_id
		WHERE wi.work_id = ?
		ORDER BY i.name
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query instruments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var l Lookup
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, fmt.Errorf("failed to scan instrument: %w", err)
		}
		d.Instruments = append(d.Instruments, l)
	}

	return d, rows.Err()
}

// FindWorkByCatalog returns the id of the work whose catalog label normalizes
// to the same value as label ("BWV1007", "bwv 1007" and "1007" all match
// "BWV 1007"). Returns 0 when nothing matches.
func (s *Store) FindWorkByCatalog(ctx context.Context, label string) (int64, error) {
	norm := catalog.Normalize(label)
	if norm == "" {
		return 0, nil
	}
	bare := strings.TrimPrefix(norm, catalog.FamilyPrefix)

	var id int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id FROM work
		WHERE bwv_norm IN (?, ?)
		ORDER BY id
		LIMIT 1
	`, bare, catalog.FamilyPrefix+bare).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to find work by catalog label: %w", err)
	}
	return id, nil
}

// ListWorksMissingBWV returns works whose numeric catalog number is unset
func (s *Store) ListWorksMissingBWV(ctx context.Context) ([]*Work, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, COALESCE(bwv_full, ''), title
		FROM work WHERE bwv_id IS NULL
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query works: %w", err)
	}
	defer rows.Close()

	var works []*Work
	for rows.Next() {
		w := &Work{}
		if err := rows.Scan(&w.ID, &w.BWVFull, &w.Title); err != nil {
			return nil, fmt.Errorf("failed to scan work: %w", err)
		}
		works = append(works, w)
	}
	return works, rows.Err()
}

// ListGenres returns all genres ordered by name
func (s *Store) ListGenres(ctx context.Context) ([]Lookup, error) {
	return s.listNames(ctx, "genre")
}

// ListKeys returns all keys ordered by name
func (s *Store) ListKeys(ctx context.Context) ([]Lookup, error) {
	return s.listNames(ctx, "musical_key")
}

// ListInstruments returns all instruments ordered by name
func (s *Store) ListInstruments(ctx context.Context) ([]Lookup, error) {
	return s.listNames(ctx, "instrument")
}

func (s *Store) listNames(ctx context.Context, table string) ([]Lookup, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf("SELECT id, name FROM %s ORDER BY name", table))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	var out []Lookup
	for rows.Next() {
		var l Lookup
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, fmt.Errorf("failed to scan %s: %w", table, err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}
