package pipeline

import (
	"errors"
	"time"

	"github.com/MeKo-Tech/lotgate/internal/dedup"
	"github.com/MeKo-Tech/lotgate/internal/ocr"
	"github.com/MeKo-Tech/lotgate/internal/quality"
	"github.com/MeKo-Tech/lotgate/internal/report"
)

// Outcome reasons that callers may match on.
const (
	ReasonTimeout   = "timeout"
	ReasonDuplicate = "duplicate"
	ReasonCancelled = "cancelled"
)

var (
	// ErrTimeout marks a record abandoned after its processing deadline.
	ErrTimeout = errors.New("record processing timed out")
	// ErrStopped is returned when a batch was stopped before all records ran.
	ErrStopped = errors.New("processing stopped")
)

// Outcome is the result of one pipeline pass over a record.
type Outcome struct {
	LotID     string         `json:"lot_id"`
	InputFile string         `json:"input_file,omitempty"`
	Status    quality.Status `json:"status"`
	Reason    string         `json:"reason,omitempty"`
	Err       error          `json:"-"`

	Duplicate bool        `json:"duplicate,omitempty"`
	Warnings  []string    `json:"warnings,omitempty"`
	OCR       *ocr.Result `json:"ocr,omitempty"`
	Recovered []string    `json:"recovered_fields,omitempty"`

	ProjectPath string `json:"project_path,omitempty"`
	ReportPath  string `json:"report_path,omitempty"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	fingerprints dedup.Fingerprints
}

// Succeeded reports whether the record counts as a success.
func (o Outcome) Succeeded() bool { return o.Status == quality.StatusSuccess }

// Duration is the wall time spent on the record.
func (o Outcome) Duration() time.Duration {
	if o.EndTime.Before(o.StartTime) {
		return 0
	}
	return o.EndTime.Sub(o.StartTime)
}

// LotResult converts the outcome to a batch report line.
func (o Outcome) LotResult() report.LotResult {
	status := report.StatusFailed
	if o.Succeeded() {
		status = report.StatusSuccess
	}
	res := report.LotResult{
		LotID:           o.LotID,
		InputFile:       o.InputFile,
		Status:          status,
		StartTime:       o.StartTime,
		EndTime:         o.EndTime,
		DurationSeconds: o.Duration().Seconds(),
	}
	if !o.Succeeded() {
		res.Error = o.Reason
	}
	return res
}

func (o Outcome) fail(reason string, err error) Outcome {
	o.Status = quality.StatusFailed
	o.Reason = reason
	o.Err = err
	return o
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	Outcomes []Outcome     `json:"outcomes"`
	Total    int           `json:"total"`
	Duration time.Duration `json:"duration"`
	Workers  int           `json:"workers"`
	Parallel bool          `json:"parallel"`
	Stopped  bool          `json:"stopped"`
	Health   quality.Level `json:"system_health"`
}

// Succeeded counts successful records, duplicates included.
func (b *BatchResult) Succeeded() int {
	n := 0
	for _, o := range b.Outcomes {
		if o.Succeeded() {
			n++
		}
	}
	return n
}

// Failed counts failed records.
func (b *BatchResult) Failed() int { return len(b.Outcomes) - b.Succeeded() }

// LotResults converts all outcomes to report lines.
func (b *BatchResult) LotResults() []report.LotResult {
	out := make([]report.LotResult, 0, len(b.Outcomes))
	for _, o := range b.Outcomes {
		out = append(out, o.LotResult())
	}
	return out
}

// Report builds the archived batch report.
func (b *BatchResult) Report(now time.Time) *report.BatchReport {
	return report.NewBatchReport(b.LotResults(), b.Workers, now)
}
