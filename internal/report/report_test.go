package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestProcessingLog_HeaderAndRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "archive", "processing_log.csv")
	log, err := OpenProcessingLog(path)
	require.NoError(t, err)

	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, log.Append(LogEntry{Timestamp: ts, LotID: "Lot1", Status: "SUCCESS", Notes: "ok"}))
	require.NoError(t, log.Append(LogEntry{Timestamp: ts, LotID: "Lot2", Status: "FAILED", Errors: "a, \"quoted\" error"}))

	data, err := os.ReadFile(path) //nolint:gosec // test file
	require.NoError(t, err)
	assert.Contains(t, string(data), "timestamp,lot_id,status,errors,human_fixes_applied,notes\n")

	rows, err := ReadProcessingLog(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"2026-01-02 03:04:05", "Lot1", "SUCCESS", "", "false", "ok"}, rows[0])
	assert.Equal(t, "a, \"quoted\" error", rows[1][3])
}

func TestProcessingLog_ReopenKeepsSingleHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processing_log.csv")
	first, err := OpenProcessingLog(path)
	require.NoError(t, err)
	require.NoError(t, first.Append(LogEntry{Timestamp: time.Now(), LotID: "Lot1", Status: "SUCCESS"}))

	second, err := OpenProcessingLog(path)
	require.NoError(t, err)
	require.NoError(t, second.Append(LogEntry{Timestamp: time.Now(), LotID: "Lot2", Status: "SUCCESS"}))

	rows, err := ReadProcessingLog(path)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestProcessingLog_ConcurrentAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processing_log.csv")
	log, err := OpenProcessingLog(path)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, log.Append(LogEntry{Timestamp: time.Now(), LotID: "Lot", Status: "SUCCESS"}))
		}()
	}
	wg.Wait()

	rows, err := ReadProcessingLog(path)
	require.NoError(t, err)
	assert.Len(t, rows, 25)
}

func sampleResults() []LotResult {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return []LotResult{
		{LotID: "Lot1", InputFile: "inputs/Lot1_inputs.json", Status: StatusSuccess, StartTime: start, EndTime: start.Add(2 * time.Second), DurationSeconds: 2},
		{LotID: "Lot2", InputFile: "inputs/Lot2_inputs.json", Status: StatusFailed, Error: "timeout", StartTime: start, EndTime: start.Add(3 * time.Second), DurationSeconds: 3},
	}
}

func TestNewBatchReport_Summary(t *testing.T) {
	now := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	r := NewBatchReport(sampleResults(), 3, now)

	assert.Equal(t, 2, r.Summary.TotalLots)
	assert.Equal(t, 1, r.Summary.SuccessfulLots)
	assert.Equal(t, 1, r.Summary.FailedLots)
	assert.InDelta(t, 0.5, r.Summary.SuccessRate, 1e-9)
	assert.InDelta(t, 5.0, r.Summary.TotalDurationSeconds, 1e-9)
	assert.Equal(t, 3, r.Summary.MaxWorkers)
	_, err := uuid.Parse(r.Summary.RunID)
	require.NoError(t, err)
	assert.Equal(t, "batch_report_20260506_070809.json", r.FileName())
}

func TestNewBatchReport_Empty(t *testing.T) {
	r := NewBatchReport(nil, 1, time.Now())
	assert.Zero(t, r.Summary.SuccessRate)
	assert.NotNil(t, r.DetailedResults)
}

func TestBatchReport_WriteJSON(t *testing.T) {
	dir := t.TempDir()
	r := NewBatchReport(sampleResults(), 3, time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC))

	path, err := r.WriteJSON(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "batch_report_20260506_070809.json"), path)

	data, err := os.ReadFile(path) //nolint:gosec // test file
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	summary := doc["summary"].(map[string]any)
	assert.InDelta(t, 2, summary["total_lots"], 0)
	details := doc["detailed_results"].([]any)
	require.Len(t, details, 2)
	assert.Equal(t, "timeout", details[1].(map[string]any)["error"])
	assert.NotContains(t, details[0].(map[string]any), "error")
}

func TestBatchReport_WriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.xlsx")
	r := NewBatchReport(sampleResults(), 3, time.Now())
	require.NoError(t, r.WriteXLSX(path))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Lot ID", rows[0][0])
	assert.Equal(t, "Lot2", rows[2][0])
	assert.Equal(t, "timeout", rows[2][3])

	total, err := f.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "2", total)
}
