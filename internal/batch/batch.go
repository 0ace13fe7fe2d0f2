// Package batch discovers record files and drives a batch run through
// the pipeline, reporting the results.
package batch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/MeKo-Tech/lotgate/internal/pipeline"
)

// ErrNoRecords is returned when discovery finds nothing to process.
var ErrNoRecords = errors.New("no record files found")

// ProcessBatch discovers the record files under inputs and runs them
// through orch. The batch report is archived when config.ReportDir is set.
func ProcessBatch(ctx context.Context, inputs []string, config *Config, orch *pipeline.Orchestrator) (*Result, error) {
	files, err := DiscoverRecordFiles(inputs, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover record files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoRecords
	}

	if config.ShowProgress && !config.Quiet {
		orch.SetProgress(pipeline.NewConsoleProgressCallback(os.Stderr, "Processing: "))
	}

	batchResult := orch.RunBatch(ctx, files)
	result := &Result{Batch: batchResult, InputPaths: files}

	if config.ReportDir != "" {
		result.Report = batchResult.Report(time.Now())
		path, err := result.Report.WriteJSON(config.ReportDir)
		if err != nil {
			return result, fmt.Errorf("failed to write batch report: %w", err)
		}
		result.ReportPath = path
	}

	return result, nil
}
