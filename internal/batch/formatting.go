package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/lotgate/internal/pipeline"
)

// formatBatchResults formats the batch outcomes in the specified format.
func formatBatchResults(res *pipeline.BatchResult, format string) (string, error) {
	if res == nil {
		return "", fmt.Errorf("no batch result")
	}
	switch format {
	case "json":
		return formatJSON(res)
	case "csv":
		return formatCSV(res)
	default: // text
		return formatText(res)
	}
}

// formatJSON formats outcomes as JSON, with the batch summary.
func formatJSON(res *pipeline.BatchResult) (string, error) {
	doc := struct {
		Total     int                `json:"total"`
		Succeeded int                `json:"succeeded"`
		Failed    int                `json:"failed"`
		Health    string             `json:"system_health"`
		Stopped   bool               `json:"stopped"`
		Duration  float64            `json:"duration_seconds"`
		Lots      []pipeline.Outcome `json:"lots"`
	}{
		Total:     res.Total,
		Succeeded: res.Succeeded(),
		Failed:    res.Failed(),
		Health:    string(res.Health),
		Stopped:   res.Stopped,
		Duration:  res.Duration.Seconds(),
		Lots:      res.Outcomes,
	}
	if doc.Lots == nil {
		doc.Lots = []pipeline.Outcome{}
	}
	bts, err := json.MarshalIndent(doc, "", "  ")
	return string(bts), err
}

// formatCSV formats one row per lot.
func formatCSV(res *pipeline.BatchResult) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	_ = writer.Write([]string{
		"lot_id", "input_file", "status", "reason", "duplicate", "ocr_engine", "ocr_confidence", "recovered_fields", "duration_seconds",
	})

	for _, o := range res.Outcomes {
		engine, conf := "", ""
		if o.OCR != nil {
			engine = o.OCR.Engine
			conf = fmt.Sprintf("%.3f", o.OCR.Confidence)
		}
		if err := writer.Write([]string{
			o.LotID,
			o.InputFile,
			string(o.Status),
			o.Reason,
			fmt.Sprintf("%t", o.Duplicate),
			engine,
			conf,
			strings.Join(o.Recovered, ";"),
			fmt.Sprintf("%.3f", o.Duration().Seconds()),
		}); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

// formatText formats outcomes as a readable listing.
func formatText(res *pipeline.BatchResult) (string, error) {
	var output strings.Builder
	for _, o := range res.Outcomes {
		status := string(o.Status)
		if o.Duplicate {
			status += " (duplicate, skipped)"
		} else if o.Reason != "" && !o.Succeeded() {
			status += ": " + o.Reason
		}
		output.WriteString(fmt.Sprintf("# %s\n", o.LotID))
		output.WriteString(fmt.Sprintf("  status: %s\n", status))
		if o.InputFile != "" {
			output.WriteString(fmt.Sprintf("  input: %s\n", o.InputFile))
		}
		if o.OCR != nil {
			output.WriteString(fmt.Sprintf("  ocr: engine %s, confidence %.2f, accepted %t\n", o.OCR.Engine, o.OCR.Confidence, o.OCR.Accepted))
		}
		if len(o.Recovered) > 0 {
			output.WriteString(fmt.Sprintf("  recovered: %s\n", strings.Join(o.Recovered, ", ")))
		}
		for _, w := range o.Warnings {
			output.WriteString(fmt.Sprintf("  warning: %s\n", w))
		}
		if o.ProjectPath != "" {
			output.WriteString(fmt.Sprintf("  project: %s\n", o.ProjectPath))
		}
	}
	output.WriteString(fmt.Sprintf("\n%d succeeded, %d failed, system health %s\n", res.Succeeded(), res.Failed(), res.Health))
	return output.String(), nil
}
