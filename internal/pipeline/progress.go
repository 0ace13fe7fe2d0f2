package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"
)

// ProgressCallback receives batch progress. OnLot may be called from
// several workers at once.
type ProgressCallback interface {
	// OnStart is called once with the number of records in the batch.
	OnStart(total int)

	// OnLot is called after each committed record.
	OnLot(done, total int, out Outcome)

	// OnComplete is called when the batch has finished or stopped.
	OnComplete(res *BatchResult)
}

// NoOpProgressCallback ignores all progress.
type NoOpProgressCallback struct{}

func (NoOpProgressCallback) OnStart(int)             {}
func (NoOpProgressCallback) OnLot(int, int, Outcome) {}
func (NoOpProgressCallback) OnComplete(*BatchResult) {}

// ConsoleProgressCallback draws a progress bar with the last lot's status.
type ConsoleProgressCallback struct {
	writer    io.Writer
	prefix    string
	width     int
	mu        sync.Mutex
	startTime time.Time
}

// NewConsoleProgressCallback writes to writer, or stderr when nil.
func NewConsoleProgressCallback(writer io.Writer, prefix string) *ConsoleProgressCallback {
	if writer == nil {
		writer = os.Stderr
	}
	return &ConsoleProgressCallback{writer: writer, prefix: prefix, width: 30}
}

// WithWidth sets the bar width.
func (c *ConsoleProgressCallback) WithWidth(width int) *ConsoleProgressCallback {
	if width > 0 {
		c.width = width
	}
	return c
}

func (c *ConsoleProgressCallback) OnStart(total int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = time.Now()
	_, _ = fmt.Fprintf(c.writer, "%s0/%d lots\n", c.prefix, total)
}

func (c *ConsoleProgressCallback) OnLot(done, total int, out Outcome) {
	c.mu.Lock()
	defer c.mu.Unlock()

	filled := 0
	if total > 0 {
		filled = c.width * done / total
	}
	bar := strings.Repeat("#", filled) + strings.Repeat(".", c.width-filled)

	status := string(out.Status)
	if out.Duplicate {
		status = "DUPLICATE"
	}
	line := fmt.Sprintf("%s[%s] %d/%d %s %s", c.prefix, bar, done, total, out.LotID, status)
	if out.Reason != "" && !out.Succeeded() {
		line += " (" + out.Reason + ")"
	}
	_, _ = fmt.Fprintln(c.writer, line)
}

func (c *ConsoleProgressCallback) OnComplete(res *BatchResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elapsed := time.Since(c.startTime).Round(time.Millisecond)
	if res == nil {
		_, _ = fmt.Fprintf(c.writer, "%sCompleted in %v\n", c.prefix, elapsed)
		return
	}
	_, _ = fmt.Fprintf(c.writer, "%sCompleted in %v: %d succeeded, %d failed, health %s\n",
		c.prefix, elapsed, res.Succeeded(), res.Failed(), res.Health)
}

// LogProgressCallback reports progress through slog.
type LogProgressCallback struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogProgressCallback logs at level using logger, or the default logger.
func NewLogProgressCallback(logger *slog.Logger, level slog.Level) *LogProgressCallback {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogProgressCallback{logger: logger, level: level}
}

func (l *LogProgressCallback) OnStart(total int) {
	l.logger.Log(context.Background(), l.level, "batch progress started", "total", total)
}

func (l *LogProgressCallback) OnLot(done, total int, out Outcome) {
	level := l.level
	if !out.Succeeded() {
		level = slog.LevelWarn
	}
	l.logger.Log(context.Background(), level, "lot committed",
		"lot_id", out.LotID,
		"status", out.Status,
		"reason", out.Reason,
		"done", done,
		"total", total,
		"duration", out.Duration().Round(time.Millisecond))
}

func (l *LogProgressCallback) OnComplete(res *BatchResult) {
	if res == nil {
		return
	}
	l.logger.Log(context.Background(), l.level, "batch progress complete",
		"succeeded", res.Succeeded(),
		"failed", res.Failed(),
		"health", res.Health)
}

// MultiProgressCallback fans progress out to several callbacks.
type MultiProgressCallback struct {
	callbacks []ProgressCallback
}

// NewMultiProgressCallback combines callbacks.
func NewMultiProgressCallback(callbacks ...ProgressCallback) *MultiProgressCallback {
	return &MultiProgressCallback{callbacks: callbacks}
}

func (m *MultiProgressCallback) OnStart(total int) {
	for _, cb := range m.callbacks {
		cb.OnStart(total)
	}
}

func (m *MultiProgressCallback) OnLot(done, total int, out Outcome) {
	for _, cb := range m.callbacks {
		cb.OnLot(done, total, out)
	}
}

func (m *MultiProgressCallback) OnComplete(res *BatchResult) {
	for _, cb := range m.callbacks {
		cb.OnComplete(res)
	}
}
