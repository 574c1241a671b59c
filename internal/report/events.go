package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of event
type EventType string

const (
	EventRunStart EventType = "run_start"
	EventRunEnd   EventType = "run_end"
	EventInsert   EventType = "insert"
	EventUpdate   EventType = "update"
	EventSkip     EventType = "skip"
	EventBackfill EventType = "backfill"
	EventError    EventType = "error"
)

// EventLevel represents the severity level
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

// levelPriority maps event levels to numeric priorities for comparison
var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event represents a single event of an import run
type Event struct {
	Timestamp time.Time         `json:"ts"`
	Level     EventLevel        `json:"level"`
	Event     EventType         `json:"event"`
	RunID     string            `json:"run_id"`
	Source    string            `json:"source,omitempty"`
	Line      int               `json:"line,omitempty"` // 1-based record position in the input
	Label     string            `json:"bwv,omitempty"`
	Title     string            `json:"title,omitempty"`
	WorkID    int64             `json:"work_id,omitempty"`
	Reason    string            `json:"reason,omitempty"`
	Duration  int64             `json:"duration_ms,omitempty"` // in milliseconds
	Error     string            `json:"error,omitempty"`
	Extra     map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	runID    string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger with a minimum log level.
// Every logger gets a fresh run id that is stamped on each event.
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	// Create output directory if it doesn't exist
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	runID := uuid.NewString()
	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s-%s.jsonl", timestamp, runID[:8])
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		runID:    runID,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil // Silently ignore if logger not initialized
	}

	// Filter by minimum level
	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.RunID = l.runID

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogRunStart records the start of an import from path
func (l *EventLogger) LogRunStart(source, path string, dryRun bool) error {
	return l.Log(&Event{
		Level:  LevelInfo,
		Event:  EventRunStart,
		Source: source,
		Extra: map[string]string{
			"path":    path,
			"dry_run": fmt.Sprintf("%t", dryRun),
		},
	})
}

// LogRunEnd records the outcome of a run
func (l *EventLogger) LogRunEnd(s *ImportSummary) error {
	level := LevelInfo
	if s.Failed > 0 {
		level = LevelWarning
	}
	return l.Log(&Event{
		Level:    level,
		Event:    EventRunEnd,
		Source:   s.Source,
		Duration: s.Duration.Milliseconds(),
		Extra: map[string]string{
			"total":    fmt.Sprintf("%d", s.Total),
			"inserted": fmt.Sprintf("%d", s.Inserted),
			"updated":  fmt.Sprintf("%d", s.Updated),
			"skipped":  fmt.Sprintf("%d", s.Skipped),
			"failed":   fmt.Sprintf("%d", s.Failed),
		},
	})
}

// LogStored records an inserted or updated work
func (l *EventLogger) LogStored(source string, line int, label, title string, workID int64, inserted bool) error {
	event := EventUpdate
	if inserted {
		event = EventInsert
	}
	return l.Log(&Event{
		Level:  LevelDebug,
		Event:  event,
		Source: source,
		Line:   line,
		Label:  label,
		Title:  title,
		WorkID: workID,
	})
}

// LogSkip records a record left out of the import
func (l *EventLogger) LogSkip(source string, line int, label, title, reason string) error {
	return l.Log(&Event{
		Level:  LevelInfo,
		Event:  EventSkip,
		Source: source,
		Line:   line,
		Label:  label,
		Title:  title,
		Reason: reason,
	})
}

// LogBackfill records a catalog number taken from a work title
func (l *EventLogger) LogBackfill(workID int64, title string, bwvID int64) error {
	return l.Log(&Event{
		Level:  LevelInfo,
		Event:  EventBackfill,
		WorkID: workID,
		Title:  title,
		Extra: map[string]string{
			"bwv_id": fmt.Sprintf("%d", bwvID),
		},
	})
}

// LogError records a failed record
func (l *EventLogger) LogError(source string, line int, label string, err error) error {
	return l.Log(&Event{
		Level:  LevelError,
		Event:  EventError,
		Source: source,
		Line:   line,
		Label:  label,
		Error:  err.Error(),
	})
}

// Close closes the event log file
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// RunID returns the id stamped on this run's events
func (l *EventLogger) RunID() string {
	if l == nil {
		return ""
	}
	return l.runID
}

// NullLogger returns a no-op event logger
func NullLogger() *EventLogger {
	return nil
}
