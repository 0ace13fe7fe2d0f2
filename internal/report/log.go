// Package report writes the run artifacts: the per-record processing log
// and the per-batch summary report.
package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// LogTimestampLayout formats the timestamp column of the processing log.
const LogTimestampLayout = "2006-01-02 15:04:05"

// LogHeader is the first row of every processing log.
var LogHeader = []string{"timestamp", "lot_id", "status", "errors", "human_fixes_applied", "notes"}

// LogEntry is one row of the processing log.
type LogEntry struct {
	Timestamp  time.Time
	LotID      string
	Status     string
	Errors     string
	HumanFixes bool
	Notes      string
}

func (e LogEntry) row() []string {
	return []string{
		e.Timestamp.Format(LogTimestampLayout),
		e.LotID,
		e.Status,
		e.Errors,
		strconv.FormatBool(e.HumanFixes),
		e.Notes,
	}
}

// ProcessingLog appends rows to a CSV file shared by concurrent workers.
type ProcessingLog struct {
	path string
	mu   sync.Mutex
}

// OpenProcessingLog ensures the file exists and starts with the header.
func OpenProcessingLog(path string) (*ProcessingLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600) //nolint:gosec // configured log path
		if err != nil {
			return nil, fmt.Errorf("create processing log: %w", err)
		}
		w := csv.NewWriter(f)
		_ = w.Write(LogHeader)
		w.Flush()
		if err := errors.Join(w.Error(), f.Close()); err != nil {
			return nil, fmt.Errorf("write log header: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat processing log: %w", err)
	}
	return &ProcessingLog{path: path}, nil
}

// Path returns the log file location.
func (l *ProcessingLog) Path() string { return l.path }

// Append writes one row.
func (l *ProcessingLog) Append(e LogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open processing log: %w", err)
	}
	w := csv.NewWriter(f)
	_ = w.Write(e.row())
	w.Flush()
	if err := errors.Join(w.Error(), f.Close()); err != nil {
		return fmt.Errorf("append processing log: %w", err)
	}
	return nil
}

// ReadProcessingLog returns all data rows, without the header.
func ReadProcessingLog(path string) ([][]string, error) {
	f, err := os.Open(path) //nolint:gosec // configured log path
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse processing log: %w", err)
	}
	if len(rows) > 0 {
		rows = rows[1:]
	}
	return rows, nil
}
