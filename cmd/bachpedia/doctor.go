package main

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/franz/bachpedia/internal/store"
	"github.com/franz/bachpedia/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the environment and configuration",
	Long: `Run diagnostic checks to ensure bachpedia can operate correctly.

This command checks:
- SQLite version and FTS5 support
- Database accessibility, integrity and contents
- Search ranker configuration
- Event log directory permissions
- Disk space next to the database

Use this command to troubleshoot issues before importing or serving.
--rebuild-index rebuilds the full-text index from the work table first.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().Bool("rebuild-index", false, "rebuild the full-text search index")
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== Bachpedia Doctor - System Diagnostics ===")
	util.InfoLog("")

	dbPath := viper.GetString("db")
	if rebuild, _ := cmd.Flags().GetBool("rebuild-index"); rebuild {
		if err := rebuildIndex(); err != nil {
			return err
		}
	}

	results := []checkResult{
		checkSQLite(),
		checkFTS5(),
		checkDatabase(dbPath),
		checkRanker(),
		checkEventsDirectory(GetConfigString("events_dir", "artifacts")),
	}
	if dbPath != "" {
		results = append(results, checkDiskSpace(filepath.Dir(dbPath), "database"))
	}

	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	util.InfoLog("")

	hasErrors := false
	hasWarnings := false

	for _, r := range results {
		symbol := "✓"
		if r.error {
			symbol = "✗"
			hasErrors = true
		} else if r.warning {
			symbol = "⚠"
			hasWarnings = true
		}

		line := fmt.Sprintf("[%s] %s", symbol, r.name)
		if r.message != "" {
			line += fmt.Sprintf(": %s", r.message)
		}

		if r.error {
			util.ErrorLog("%s", line)
		} else if r.warning {
			util.WarnLog("%s", line)
		} else {
			util.SuccessLog("%s", line)
		}
	}

	util.InfoLog("")
	if hasErrors {
		util.ErrorLog("❌ Some critical checks failed. Please resolve errors before running bachpedia.")
		return fmt.Errorf("system diagnostics failed")
	} else if hasWarnings {
		util.WarnLog("⚠️  Some checks produced warnings. Review them before proceeding.")
	} else {
		util.SuccessLog("✅ All checks passed!")
	}

	return nil
}

func rebuildIndex() error {
	db, err := openStore(nil)
	if err != nil {
		return err
	}
	defer db.Close()

	util.InfoLog("Rebuilding full-text index...")
	if err := db.RebuildFullText(); err != nil {
		return fmt.Errorf("failed to rebuild index: %w", err)
	}
	util.SuccessLog("Full-text index rebuilt")
	return nil
}

// checkSQLite verifies SQLite version
func checkSQLite() checkResult {
	version := store.SQLiteVersion()
	if version == "" {
		return checkResult{
			name:    "SQLite",
			error:   true,
			message: "unable to determine version",
		}
	}

	return checkResult{
		name:    "SQLite",
		message: fmt.Sprintf("version %s (built-in)", version),
	}
}

func checkFTS5() checkResult {
	if !store.FTS5Available() {
		return checkResult{
			name:    "Full-text search",
			error:   true,
			message: "FTS5 is not available in this SQLite build",
		}
	}
	return checkResult{name: "Full-text search", message: "FTS5 available"}
}

// checkDatabase verifies database file accessibility
func checkDatabase(dbPath string) checkResult {
	if dbPath == "" {
		return checkResult{
			name:    "Database",
			warning: true,
			message: "no database path specified (use --db flag or config)",
		}
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Database",
				message: fmt.Sprintf("%s (will be created on first run)", dbPath),
			}
		}
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", dbPath, err),
		}
	}

	if !info.Mode().IsRegular() {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("%s is not a regular file", dbPath),
		}
	}

	db, err := store.Open(dbPath)
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("cannot open %s: %v", dbPath, err),
		}
	}
	defer db.Close()

	if err := db.CheckIntegrity(); err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: fmt.Sprintf("integrity check failed: %v", err),
		}
	}

	stats, err := db.Stats()
	if err != nil {
		return checkResult{
			name:    "Database",
			error:   true,
			message: err.Error(),
		}
	}

	msg := fmt.Sprintf("%s (%s, %s works, %s genres, %s instruments)", dbPath,
		humanize.Bytes(uint64(info.Size())), humanize.Comma(int64(stats.Works)),
		humanize.Comma(int64(stats.Genres)), humanize.Comma(int64(stats.Instruments)))
	if stats.Works == 0 {
		return checkResult{
			name:    "Database",
			warning: true,
			message: msg + "; catalog is empty, run 'bachpedia import'",
		}
	}
	if stats.WorksNoBWV > 0 {
		msg += fmt.Sprintf("; %d without BWV number", stats.WorksNoBWV)
	}
	return checkResult{name: "Database", message: msg}
}

func checkRanker() checkResult {
	r, err := configuredRanker()
	if err != nil {
		return checkResult{name: "Search ranker", error: true, message: err.Error()}
	}
	return checkResult{name: "Search ranker", message: r.Name()}
}

// checkEventsDirectory verifies the event log directory is writable
func checkEventsDirectory(path string) checkResult {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return checkResult{
				name:    "Event log directory",
				message: fmt.Sprintf("%s (will be created on first import)", path),
			}
		}
		return checkResult{
			name:    "Event log directory",
			error:   true,
			message: fmt.Sprintf("cannot access %s: %v", path, err),
		}
	}

	if !info.IsDir() {
		return checkResult{
			name:    "Event log directory",
			error:   true,
			message: fmt.Sprintf("%s is not a directory", path),
		}
	}

	testFile := filepath.Join(path, ".bachpedia_write_test")
	f, err := os.Create(testFile)
	if err != nil {
		return checkResult{
			name:    "Event log directory",
			warning: true,
			message: fmt.Sprintf("cannot write to %s: %v (imports will run without an event log)", path, err),
		}
	}
	f.Close()
	os.Remove(testFile)

	return checkResult{
		name:    "Event log directory",
		message: fmt.Sprintf("%s (writable)", path),
	}
}

// checkDiskSpace verifies available disk space
func checkDiskSpace(path string, label string) checkResult {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return checkResult{
			name:    fmt.Sprintf("Disk space (%s)", label),
			warning: true,
			message: fmt.Sprintf("cannot determine disk space: %v", err),
		}
	}

	availBytes := stat.Bavail * uint64(stat.Bsize)

	// The catalog is small; warn below 100 MB
	warning := availBytes < 100*1000*1000
	msg := fmt.Sprintf("%s available", humanize.Bytes(availBytes))
	if warning {
		msg += " (low space!)"
	}

	return checkResult{
		name:    fmt.Sprintf("Disk space (%s)", label),
		warning: warning,
		message: msg,
	}
}
