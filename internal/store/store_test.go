package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/franz/bachpedia/internal/util"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test-store.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreOpenAndMigrate(t *testing.T) {
	store := openTestStore(t)

	// Verify schema version
	version, err := store.getSchemaVersion()
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}

	if version != currentSchemaVersion {
		t.Errorf("expected schema version %d, got %d", currentSchemaVersion, version)
	}

	// Verify tables exist
	tables := []string{"work", "genre", "musical_key", "instrument", "work_instrumentation", "person", "work_fts", "schema_version"}
	for _, table := range tables {
		var count int
		err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query table %s: %v", table, err)
		}
		if count != 1 {
			t.Errorf("expected table %s to exist", table)
		}
	}

	indexes := []string{
		"idx_work_bwv_id",
		"idx_work_bwv_norm",
		"idx_work_title",
		"idx_work_genre_id",
		"idx_work_key_id",
		"idx_work_instrumentation_instrument",
	}
	for _, index := range indexes {
		var count int
		err := store.db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?", index).Scan(&count)
		if err != nil {
			t.Fatalf("failed to query index %s: %v", index, err)
		}
		if count != 1 {
			t.Errorf("expected index %s to exist", index)
		}
	}
}

func TestStoreReopenKeepsVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	store, err := Open(path)
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	if _, err := store.Writer().UpsertWork(context.Background(), &Work{BWVFull: "BWV 1", Title: "Wie schön leuchtet der Morgenstern"}); err != nil {
		t.Fatalf("UpsertWork failed: %v", err)
	}
	store.Close()

	store, err = Open(path)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer store.Close()

	var rows int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&rows); err != nil {
		t.Fatalf("failed to count versions: %v", err)
	}
	if rows != currentSchemaVersion {
		t.Errorf("expected %d version rows after reopen, got %d", currentSchemaVersion, rows)
	}
}

func TestEnsureLookupIsIdempotent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	w := store.Writer()

	first, err := w.EnsureGenre(ctx, "Cantata")
	if err != nil {
		t.Fatalf("EnsureGenre failed: %v", err)
	}
	second, err := w.EnsureGenre(ctx, "  Cantata ")
	if err != nil {
		t.Fatalf("EnsureGenre failed: %v", err)
	}
	if first == 0 || first != second {
		t.Errorf("expected the same non-zero id, got %d and %d", first, second)
	}

	empty, err := w.EnsureKey(ctx, "")
	if err != nil {
		t.Fatalf("EnsureKey failed: %v", err)
	}
	if empty != 0 {
		t.Errorf("expected 0 for an empty name, got %d", empty)
	}

	genres, err := store.ListGenres(ctx)
	if err != nil {
		t.Fatalf("ListGenres failed: %v", err)
	}
	if len(genres) != 1 || genres[0].Name != "Cantata" {
		t.Errorf("unexpected genres: %+v", genres)
	}
}

func TestUpsertWorkInsertAndUpdate(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	w := store.Writer()

	genreID, _ := w.EnsureGenre(ctx, "Suite")
	work := &Work{
		BWVID:       1007,
		BWVFull:     "BWV 1007",
		Title:       "Cello Suite No. 1",
		GenreID:     genreID,
		DurationEst: 18,
		Notes:       "Prelude, Allemande, Courante, Sarabande, Menuets, Gigue",
	}

	inserted, err := w.UpsertWork(ctx, work)
	if err != nil {
		t.Fatalf("UpsertWork failed: %v", err)
	}
	if !inserted || work.ID == 0 {
		t.Fatalf("expected an insert with an id, got inserted=%v id=%d", inserted, work.ID)
	}

	// Same label, partial data: supplied fields change, the rest is kept
	update := &Work{BWVFull: "BWV 1007", Title: "Cello Suite No. 1 in G major", DateComp: "1717-1723"}
	inserted, err = w.UpsertWork(ctx, update)
	if err != nil {
		t.Fatalf("UpsertWork update failed: %v", err)
	}
	if inserted || update.ID != work.ID {
		t.Fatalf("expected update of work %d, got inserted=%v id=%d", work.ID, inserted, update.ID)
	}

	got, err := store.GetWork(ctx, work.ID)
	if err != nil {
		t.Fatalf("GetWork failed: %v", err)
	}
	if got.Title != "Cello Suite No. 1 in G major" {
		t.Errorf("title not updated: %q", got.Title)
	}
	if got.DateComp != "1717-1723" {
		t.Errorf("date not set: %q", got.DateComp)
	}
	if got.BWVID != 1007 || got.DurationEst != 18 || got.Genre != "Suite" {
		t.Errorf("stored fields lost on update: %+v", got)
	}
	if !strings.HasPrefix(got.Notes, "Prelude") {
		t.Errorf("notes lost on update: %q", got.Notes)
	}
}

func TestUpsertWorkMatchesOpenOpusID(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	w := store.Writer()

	work := &Work{Title: "Ich habe genug", OpenOpusID: 4242}
	if _, err := w.UpsertWork(ctx, work); err != nil {
		t.Fatalf("UpsertWork failed: %v", err)
	}

	again := &Work{Title: "Ich habe genug", BWVFull: "BWV 82", OpenOpusID: 4242}
	inserted, err := w.UpsertWork(ctx, again)
	if err != nil {
		t.Fatalf("UpsertWork failed: %v", err)
	}
	if inserted || again.ID != work.ID {
		t.Errorf("expected the Open Opus id to match work %d, got %d (inserted=%v)", work.ID, again.ID, inserted)
	}

	id, err := store.FindWorkByCatalog(ctx, "bwv82")
	if err != nil {
		t.Fatalf("FindWorkByCatalog failed: %v", err)
	}
	if id != work.ID {
		t.Errorf("catalog label not attached on update: got %d", id)
	}
}

func TestUpsertWorkRejectsInvalid(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	w := store.Writer()

	tests := []struct {
		name string
		work *Work
	}{
		{"empty title", &Work{BWVFull: "BWV 2", Title: "   "}},
		{"long notes", &Work{Title: "Ach Gott, vom Himmel sieh darein", Notes: strings.Repeat("x", 513)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := w.UpsertWork(ctx, tt.work)
			if !errors.Is(err, ErrInvalidWork) {
				t.Errorf("expected ErrInvalidWork, got %v", err)
			}
			if !errors.Is(err, util.ErrInvalidInput) {
				t.Errorf("expected error to wrap ErrInvalidInput, got %v", err)
			}
		})
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Works != 0 {
		t.Errorf("invalid works were stored: %d", stats.Works)
	}
}

func TestGetWorkDetail(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	w := store.Writer()

	composer, err := w.EnsurePerson(ctx, 87, "Johann Sebastian Bach")
	if err != nil {
		t.Fatalf("EnsurePerson failed: %v", err)
	}
	again, err := w.EnsurePerson(ctx, 87, "J. S. Bach")
	if err != nil || again != composer {
		t.Fatalf("EnsurePerson not idempotent: %d vs %d (%v)", composer, again, err)
	}

	keyID, _ := w.EnsureKey(ctx, "B minor")
	work := &Work{BWVID: 232, BWVFull: "BWV 232", Title: "Mass in B minor", KeyID: keyID, ComposerID: composer}
	if _, err := w.UpsertWork(ctx, work); err != nil {
		t.Fatalf("UpsertWork failed: %v", err)
	}
	if err := w.SetWorkInstruments(ctx, work.ID, []string{"Soprano", "Alto", "Orchestra", "Alto"}); err != nil {
		t.Fatalf("SetWorkInstruments failed: %v", err)
	}

	got, err := store.GetWork(ctx, work.ID)
	if err != nil {
		t.Fatalf("GetWork failed: %v", err)
	}
	if got.Key != "B minor" || got.Composer != "Johann Sebastian Bach" {
		t.Errorf("lookups not resolved: key=%q composer=%q", got.Key, got.Composer)
	}

	names := make([]string, len(got.Instruments))
	for i, in := range got.Instruments {
		names[i] = in.Name
	}
	if strings.Join(names, ",") != "Alto,Orchestra,Soprano" {
		t.Errorf("unexpected instruments: %v", names)
	}

	// Replacing the set drops old links
	if err := w.SetWorkInstruments(ctx, work.ID, []string{"Choir"}); err != nil {
		t.Fatalf("SetWorkInstruments failed: %v", err)
	}
	got, _ = store.GetWork(ctx, work.ID)
	if len(got.Instruments) != 1 || got.Instruments[0].Name != "Choir" {
		t.Errorf("instrument set not replaced: %+v", got.Instruments)
	}

	missing, err := store.GetWork(ctx, 9999)
	if err != nil {
		t.Fatalf("GetWork failed: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for an unknown work, got %+v", missing)
	}
}

func TestFindWorkByCatalog(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	w := store.Writer()

	work := &Work{BWVID: 1007, BWVFull: "BWV 1007", Title: "Cello Suite No. 1"}
	if _, err := w.UpsertWork(ctx, work); err != nil {
		t.Fatalf("UpsertWork failed: %v", err)
	}

	tests := []struct {
		label    string
		expected int64
	}{
		{"BWV 1007", work.ID},
		{"bwv1007", work.ID},
		{"1007", work.ID},
		{"BWV 1007a", 0},
		{"BWV 100", 0},
		{"", 0},
	}

	for _, tt := range tests {
		got, err := store.FindWorkByCatalog(ctx, tt.label)
		if err != nil {
			t.Fatalf("FindWorkByCatalog(%q) failed: %v", tt.label, err)
		}
		if got != tt.expected {
			t.Errorf("FindWorkByCatalog(%q) = %d, expected %d", tt.label, got, tt.expected)
		}
	}
}

func TestBackfillBWV(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	w := store.Writer()

	numbered := &Work{BWVID: 82, BWVFull: "BWV 82", Title: "Ich habe genug"}
	unnumbered := &Work{Title: "Toccata and Fugue in D minor, BWV 565"}
	for _, work := range []*Work{numbered, unnumbered} {
		if _, err := w.UpsertWork(ctx, work); err != nil {
			t.Fatalf("UpsertWork failed: %v", err)
		}
	}

	missing, err := store.ListWorksMissingBWV(ctx)
	if err != nil {
		t.Fatalf("ListWorksMissingBWV failed: %v", err)
	}
	if len(missing) != 1 || missing[0].ID != unnumbered.ID {
		t.Fatalf("unexpected works missing BWV: %+v", missing)
	}

	if err := w.SetWorkBWV(ctx, unnumbered.ID, 565); err != nil {
		t.Fatalf("SetWorkBWV failed: %v", err)
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Works != 2 || stats.WorksNoBWV != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestFullTextIndexFollowsWrites(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	w := store.Writer()

	work := &Work{BWVFull: "BWV 147", Title: "Herz und Mund und Tat und Leben"}
	if _, err := w.UpsertWork(ctx, work); err != nil {
		t.Fatalf("UpsertWork failed: %v", err)
	}

	match := func(expr string) int {
		var n int
		err := store.db.QueryRow("SELECT COUNT(*) FROM work_fts WHERE work_fts MATCH ?", expr).Scan(&n)
		if err != nil {
			t.Fatalf("MATCH %q failed: %v", expr, err)
		}
		return n
	}

	if match(`"herz"`) != 1 {
		t.Error("inserted title not indexed")
	}

	work.Title = "Jesu bleibet meine Freude"
	if _, err := w.UpsertWork(ctx, work); err != nil {
		t.Fatalf("UpsertWork failed: %v", err)
	}
	if match(`"herz"`) != 0 || match(`"freude"`) != 1 {
		t.Error("updated title not reindexed")
	}

	if err := store.CheckIntegrity(); err != nil {
		t.Errorf("CheckIntegrity failed: %v", err)
	}
	if err := store.RebuildFullText(); err != nil {
		t.Errorf("RebuildFullText failed: %v", err)
	}
}

func TestTransactionRollback(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.Transaction(func(tx *sql.Tx) error {
		if _, err := NewWriter(tx).UpsertWork(ctx, &Work{Title: "Matthäus-Passion", BWVFull: "BWV 244"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected the callback error, got %v", err)
	}

	id, err := store.FindWorkByCatalog(ctx, "BWV 244")
	if err != nil {
		t.Fatalf("FindWorkByCatalog failed: %v", err)
	}
	if id != 0 {
		t.Errorf("rolled back work is visible: %d", id)
	}
}

func TestFoldFunction(t *testing.T) {
	store := openTestStore(t)

	var got sql.NullString
	if err := store.db.QueryRow("SELECT fold('Präludium ÉTUDE')").Scan(&got); err != nil {
		t.Fatalf("fold query failed: %v", err)
	}
	if got.String != "praludium etude" {
		t.Errorf("fold() = %q, expected %q", got.String, "praludium etude")
	}

	if err := store.db.QueryRow("SELECT fold(NULL)").Scan(&got); err != nil {
		t.Fatalf("fold query failed: %v", err)
	}
	if got.Valid {
		t.Errorf("fold(NULL) = %q, expected NULL", got.String)
	}
}

func TestStoreDiagnostics(t *testing.T) {
	if SQLiteVersion() == "" {
		t.Error("expected an SQLite version")
	}
	if !FTS5Available() {
		t.Error("expected FTS5 support in the driver")
	}

	store := openTestStore(t)
	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestWriterSavepoint(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	errBoom := errors.New("boom")

	err := store.Transaction(func(tx *sql.Tx) error {
		w := NewWriter(tx)
		if err := w.Savepoint(ctx, "kept", func() error {
			_, err := w.UpsertWork(ctx, &Work{BWVFull: "BWV 1007", Title: "Cello Suite No. 1"})
			return err
		}); err != nil {
			t.Fatalf("savepoint failed: %v", err)
		}

		err := w.Savepoint(ctx, "dropped", func() error {
			if _, err := w.UpsertWork(ctx, &Work{BWVFull: "BWV 1008", Title: "Cello Suite No. 2"}); err != nil {
				return err
			}
			return errBoom
		})
		if !errors.Is(err, errBoom) {
			t.Errorf("expected the callback error, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}

	for label, want := range map[string]bool{"BWV 1007": true, "BWV 1008": false} {
		id, err := store.FindWorkByCatalog(ctx, label)
		if err != nil {
			t.Fatalf("FindWorkByCatalog(%q): %v", label, err)
		}
		if (id != 0) != want {
			t.Errorf("%s stored = %v, expected %v", label, id != 0, want)
		}
	}
}
