package main

import (
	"fmt"
	"time"

	"github.com/franz/bachpedia/internal/report"
	"github.com/franz/bachpedia/internal/search"
	"github.com/franz/bachpedia/internal/store"
	"github.com/franz/bachpedia/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// GetConfigString retrieves a string config value with proper precedence:
// 1. Command-line flag (if set)
// 2. Environment variable (BACHPEDIA_*)
// 3. Config file
// 4. Default value
func GetConfigString(key string, defaultValue string) string {
	val := viper.GetString(key)
	if val == "" {
		return defaultValue
	}
	return val
}

// GetConfigInt retrieves an int config value with proper precedence
func GetConfigInt(key string, defaultValue int) int {
	val := viper.GetInt(key)
	if val == 0 {
		return defaultValue
	}
	return val
}

// GetConfigDuration retrieves a duration such as "1s" or "500ms"
func GetConfigDuration(key string, defaultValue time.Duration) time.Duration {
	if !viper.IsSet(key) {
		return defaultValue
	}
	return viper.GetDuration(key)
}

// openStore opens the catalog database named by the db setting
func openStore(opts *store.OpenOptions) (*store.Store, error) {
	dbPath := viper.GetString("db")
	if dbPath == "" {
		return nil, fmt.Errorf("%w: no database path (use --db or set db in config)", util.ErrInvalidConfig)
	}
	util.DebugLog("Opening database: %s", dbPath)

	db, err := store.OpenWithOptions(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// newEventLogger writes import events under events_dir, falling back to a
// null logger when the directory cannot be written
func newEventLogger() *report.EventLogger {
	level := report.LevelInfo
	if viper.GetBool("quiet") {
		level = report.LevelWarning
	} else if viper.GetBool("verbose") {
		level = report.LevelDebug
	}

	logger, err := report.NewEventLogger(GetConfigString("events_dir", "artifacts"), level)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		return report.NullLogger()
	}
	util.InfoLog("Event log: %s", logger.Path())
	return logger
}

// applyRankerFlag lets a command's --ranker flag override search.ranker
func applyRankerFlag(cmd *cobra.Command) {
	if f := cmd.Flags().Lookup("ranker"); f != nil && f.Changed {
		viper.Set("search.ranker", f.Value.String())
	}
}

// configuredRanker returns the ranker named by search.ranker, "sql" when unset
func configuredRanker() (search.Ranker, error) {
	r, err := search.NewRanker(viper.GetString("search.ranker"))
	if err != nil {
		return nil, fmt.Errorf("%w: search.ranker: %v", util.ErrInvalidConfig, err)
	}
	return r, nil
}
