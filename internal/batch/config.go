package batch

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/lotgate/internal/pipeline"
	"github.com/MeKo-Tech/lotgate/internal/report"
)

// Config holds all configuration for a batch run.
type Config struct {
	// Output settings
	Format     string
	OutputFile string

	// ReportDir receives batch_report_<ts>.json; empty disables it.
	ReportDir string

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Progress settings
	ShowProgress bool
	Quiet        bool
	ShowStats    bool
}

// DefaultIncludePatterns selects record files.
var DefaultIncludePatterns = []string{"*.json"}

// Result holds the result of a batch run.
type Result struct {
	Batch      *pipeline.BatchResult
	InputPaths []string
	Report     *report.BatchReport
	ReportPath string
}

// FormatResults formats the batch outcomes in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r.Batch, format)
}

// SaveResults writes the formatted results to outputFile, or stdout when
// empty. The xlsx format requires an output file.
func (r *Result) SaveResults(format, outputFile string, quiet bool) error {
	if format == "xlsx" {
		if outputFile == "" {
			return fmt.Errorf("xlsx output requires an output file")
		}
		if err := r.reportOrNew().WriteXLSX(outputFile); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(os.Stdout, "Results written to %s\n", outputFile)
		}
		return nil
	}

	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(os.Stdout, "Results written to %s\n", outputFile)
		}
	} else {
		_, _ = fmt.Fprint(os.Stdout, output)
	}

	return nil
}

func (r *Result) reportOrNew() *report.BatchReport {
	if r.Report != nil {
		return r.Report
	}
	return r.Batch.Report(time.Now())
}

// PrintStats prints processing statistics to w.
func (r *Result) PrintStats(w io.Writer, quiet bool) {
	if quiet || r.Batch == nil {
		return
	}
	b := r.Batch
	processed := len(b.Outcomes)
	duplicates := 0
	for _, o := range b.Outcomes {
		if o.Duplicate {
			duplicates++
		}
	}

	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total lots: %d\n", b.Total)
	_, _ = fmt.Fprintf(w, "  Processed: %d\n", processed)
	_, _ = fmt.Fprintf(w, "  Succeeded: %d\n", b.Succeeded())
	_, _ = fmt.Fprintf(w, "  Duplicates skipped: %d\n", duplicates)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", b.Failed())
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", b.Workers)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", b.Duration.Round(time.Millisecond))
	if processed > 0 {
		_, _ = fmt.Fprintf(w, "  Avg per lot: %v\n", (b.Duration / time.Duration(processed)).Round(time.Millisecond))
	}
	_, _ = fmt.Fprintf(w, "  System health: %s\n", b.Health)
	if b.Stopped {
		_, _ = fmt.Fprintf(w, "  Stopped early: %d of %d lots not submitted\n", b.Total-processed, b.Total)
	}
	if r.ReportPath != "" {
		_, _ = fmt.Fprintf(w, "  Report: %s\n", r.ReportPath)
	}
}
