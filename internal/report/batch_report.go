package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

// Lot statuses used in batch reports.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// LotResult is the per-record line of a batch report.
type LotResult struct {
	LotID           string    `json:"lot_id"`
	InputFile       string    `json:"input_file"`
	Status          string    `json:"status"`
	Error           string    `json:"error,omitempty"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// Succeeded reports whether the lot completed successfully.
func (r LotResult) Succeeded() bool { return r.Status == StatusSuccess }

// Summary aggregates a batch.
type Summary struct {
	RunID                string    `json:"run_id"`
	TotalLots            int       `json:"total_lots"`
	SuccessfulLots       int       `json:"successful_lots"`
	FailedLots           int       `json:"failed_lots"`
	SuccessRate          float64   `json:"success_rate"`
	TotalDurationSeconds float64   `json:"total_duration_seconds"`
	MaxWorkers           int       `json:"max_workers"`
	Timestamp            time.Time `json:"timestamp"`
}

// BatchReport is written once per batch run.
type BatchReport struct {
	Summary         Summary     `json:"summary"`
	DetailedResults []LotResult `json:"detailed_results"`
}

// NewBatchReport summarizes results. TotalDurationSeconds is the sum of
// per-lot durations; wall-clock time is reported separately by callers.
func NewBatchReport(results []LotResult, workers int, now time.Time) *BatchReport {
	s := Summary{
		RunID:      uuid.NewString(),
		TotalLots:  len(results),
		MaxWorkers: workers,
		Timestamp:  now,
	}
	for _, r := range results {
		if r.Succeeded() {
			s.SuccessfulLots++
		} else {
			s.FailedLots++
		}
		s.TotalDurationSeconds += r.DurationSeconds
	}
	if s.TotalLots > 0 {
		s.SuccessRate = float64(s.SuccessfulLots) / float64(s.TotalLots)
	}
	if results == nil {
		results = []LotResult{}
	}
	return &BatchReport{Summary: s, DetailedResults: results}
}

// FileName is the archive name of the report.
func (r *BatchReport) FileName() string {
	return fmt.Sprintf("batch_report_%s.json", r.Summary.Timestamp.Format("20060102_150405"))
}

// WriteJSON writes the report into dir and returns its path.
func (r *BatchReport) WriteJSON(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create report directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode batch report: %w", err)
	}
	path := filepath.Join(dir, r.FileName())
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write batch report: %w", err)
	}
	return path, nil
}

const xlsxSheet = "Lots"

// WriteXLSX writes the detailed results as a spreadsheet, with a summary
// sheet alongside.
func (r *BatchReport) WriteXLSX(path string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if _, err := f.NewSheet(xlsxSheet); err != nil {
		return err
	}
	if err := f.SetSheetName("Sheet1", "Summary"); err != nil {
		return err
	}
	idx, _ := f.GetSheetIndex(xlsxSheet)
	f.SetActiveSheet(idx)

	headers := []string{"Lot ID", "Input File", "Status", "Error", "Start Time", "End Time", "Duration (s)"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(xlsxSheet, cell, h)
	}
	for row, res := range r.DetailedResults {
		values := []any{
			res.LotID,
			res.InputFile,
			res.Status,
			res.Error,
			res.StartTime.Format(time.RFC3339),
			res.EndTime.Format(time.RFC3339),
			res.DurationSeconds,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			_ = f.SetCellValue(xlsxSheet, cell, v)
		}
	}
	_ = f.SetColWidth(xlsxSheet, "A", "A", 18)
	_ = f.SetColWidth(xlsxSheet, "B", "B", 48)
	_ = f.SetColWidth(xlsxSheet, "D", "D", 40)
	_ = f.SetColWidth(xlsxSheet, "E", "F", 24)

	summary := [][2]any{
		{"Run ID", r.Summary.RunID},
		{"Total Lots", r.Summary.TotalLots},
		{"Successful Lots", r.Summary.SuccessfulLots},
		{"Failed Lots", r.Summary.FailedLots},
		{"Success Rate", r.Summary.SuccessRate},
		{"Total Duration (s)", r.Summary.TotalDurationSeconds},
		{"Max Workers", r.Summary.MaxWorkers},
		{"Timestamp", r.Summary.Timestamp.Format(time.RFC3339)},
	}
	for i, kv := range summary {
		_ = f.SetCellValue("Summary", fmt.Sprintf("A%d", i+1), kv[0])
		_ = f.SetCellValue("Summary", fmt.Sprintf("B%d", i+1), kv[1])
	}
	_ = f.SetColWidth("Summary", "A", "A", 20)
	_ = f.SetColWidth("Summary", "B", "B", 40)

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}
