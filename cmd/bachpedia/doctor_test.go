package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/franz/bachpedia/internal/store"
	"github.com/franz/bachpedia/internal/util"
	"github.com/spf13/viper"
)

func TestCheckSQLite(t *testing.T) {
	result := checkSQLite()

	if result.error {
		t.Errorf("SQLite check failed: %s", result.message)
	}

	if result.message == "" {
		t.Error("expected version information in message")
	}
}

func TestCheckFTS5(t *testing.T) {
	if result := checkFTS5(); result.error {
		t.Errorf("FTS5 check failed: %s", result.message)
	}
}

func TestCheckDatabase_NonExistent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nonexistent.db")

	result := checkDatabase(dbPath)

	// Should not error - database will be created on first run
	if result.error {
		t.Errorf("non-existent database check should not error: %s", result.message)
	}

	if result.message == "" {
		t.Error("expected message about database creation")
	}
}

func TestCheckDatabase_Existing(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	w := db.Writer()
	if _, err := w.UpsertWork(context.Background(), &store.Work{BWVID: 1007, BWVFull: "BWV 1007", Title: "Cello Suite No. 1"}); err != nil {
		t.Fatalf("failed to insert test work: %v", err)
	}
	if _, err := w.UpsertWork(context.Background(), &store.Work{Title: "Untitled fragment"}); err != nil {
		t.Fatalf("failed to insert test work: %v", err)
	}
	db.Close()

	result := checkDatabase(dbPath)

	if result.error || result.warning {
		t.Errorf("database check failed: %s", result.message)
	}
	if !strings.Contains(result.message, "2 works") {
		t.Errorf("expected work count in message, got %q", result.message)
	}
	if !strings.Contains(result.message, "1 without BWV number") {
		t.Errorf("expected missing BWV count in message, got %q", result.message)
	}
}

func TestCheckDatabase_EmptyCatalog(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	db, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	db.Close()

	result := checkDatabase(dbPath)

	if !result.warning {
		t.Errorf("expected warning for empty catalog, got %+v", result)
	}
}

func TestCheckDatabase_Empty(t *testing.T) {
	result := checkDatabase("")

	if !result.warning {
		t.Error("expected warning for empty database path")
	}
}

func TestCheckDatabase_Directory(t *testing.T) {
	result := checkDatabase(t.TempDir())

	if !result.error {
		t.Error("expected error when the database path is a directory")
	}
}

func TestCheckRanker(t *testing.T) {
	t.Cleanup(func() { viper.Set("search.ranker", "") })

	viper.Set("search.ranker", "")
	if result := checkRanker(); result.error || result.message != "sql" {
		t.Errorf("unexpected result for unset ranker: %+v", result)
	}

	viper.Set("search.ranker", "legacy")
	if result := checkRanker(); result.error || result.message != "legacy" {
		t.Errorf("unexpected result for legacy ranker: %+v", result)
	}

	viper.Set("search.ranker", "bm25")
	if result := checkRanker(); !result.error || !strings.Contains(result.message, "bm25") {
		t.Errorf("expected error naming the unknown ranker, got %+v", result)
	}
}

func TestConfiguredRanker_InvalidConfig(t *testing.T) {
	t.Cleanup(func() { viper.Set("search.ranker", "") })

	viper.Set("search.ranker", "bm25")
	if _, err := configuredRanker(); !errors.Is(err, util.ErrInvalidConfig) {
		t.Errorf("configuredRanker() error = %v, expected ErrInvalidConfig", err)
	}
}

func TestCheckEventsDirectory_Valid(t *testing.T) {
	result := checkEventsDirectory(t.TempDir())

	if result.error || result.warning {
		t.Errorf("events directory check failed: %s", result.message)
	}
}

func TestCheckEventsDirectory_NonExistent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "artifacts")

	result := checkEventsDirectory(dir)

	if result.error {
		t.Errorf("missing events directory should not error: %s", result.message)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("check should not create the directory")
	}
}

func TestCheckEventsDirectory_File(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(filePath, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	result := checkEventsDirectory(filePath)

	if !result.error {
		t.Error("expected error when path is a file, not a directory")
	}
}

func TestCheckDiskSpace(t *testing.T) {
	result := checkDiskSpace(t.TempDir(), "test")

	if result.error {
		t.Errorf("disk space check failed: %s", result.message)
	}

	if result.message == "" {
		t.Error("expected message with disk space info")
	}
}

func TestCheckDiskSpace_NonExistent(t *testing.T) {
	result := checkDiskSpace("/nonexistent/path", "test")

	if !result.warning {
		t.Error("expected warning for non-existent path")
	}
}
