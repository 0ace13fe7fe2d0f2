package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/lotgate/internal/archive"
	"github.com/MeKo-Tech/lotgate/internal/config"
	"github.com/MeKo-Tech/lotgate/internal/dedup"
	"github.com/MeKo-Tech/lotgate/internal/downstream"
	"github.com/MeKo-Tech/lotgate/internal/ocr"
	"github.com/MeKo-Tech/lotgate/internal/pipeline"
	"github.com/MeKo-Tech/lotgate/internal/report"
)

// ProcessingLogName is the CSV log kept in the archive directory.
const ProcessingLogName = "processing_log.csv"

// app bundles the orchestrator with the resources it holds open.
type app struct {
	orch     *pipeline.Orchestrator
	detector *dedup.Detector
	log      *report.ProcessingLog
}

func (a *app) Close() error {
	return a.detector.Close()
}

// pipelineOptions maps config plus the shared pipeline flags.
func pipelineOptions(cfg *config.Config, cmd *cobra.Command) pipeline.Options {
	opts := cfg.ToPipelineOptions()

	if cmd.Flags().Changed("template") {
		opts.TemplateFile, _ = cmd.Flags().GetString("template")
	}
	if cmd.Flags().Changed("templates-dir") {
		opts.TemplatesDir, _ = cmd.Flags().GetString("templates-dir")
	}
	if cmd.Flags().Changed("outputs-dir") {
		opts.OutputsDir, _ = cmd.Flags().GetString("outputs-dir")
	}
	if cmd.Flags().Changed("timeout") {
		timeout, _ := cmd.Flags().GetDuration("timeout")
		opts.Timeout = timeout
		opts.SequentialTimeout = timeout
	}
	return opts
}

// addPipelineFlags registers the flags read by pipelineOptions and
// applyRuntimeFlags.
func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().String("template", "", "template file name inside the templates directory")
	cmd.Flags().String("templates-dir", "", "directory holding downstream templates")
	cmd.Flags().String("outputs-dir", "", "directory receiving saved projects and reports")
	cmd.Flags().Duration("timeout", 0, "per-record processing timeout (e.g. 90s)")
	cmd.Flags().Float64("confidence", 0, "OCR confidence threshold (0.0-1.0)")
	cmd.Flags().Bool("no-dedup", false, "disable duplicate detection")
	cmd.Flags().Bool("no-archive", false, "do not archive inputs and outputs")
	cmd.Flags().String("archive-dir", "", "directory for archives, the processing log and batch reports")
}

// applyRuntimeFlags folds the non-pipeline flags into cfg.
func applyRuntimeFlags(cfg *config.Config, cmd *cobra.Command) {
	if cmd.Flags().Changed("confidence") {
		cfg.OCR.ConfidenceThreshold, _ = cmd.Flags().GetFloat64("confidence")
	}
	if cmd.Flags().Changed("no-dedup") {
		noDedup, _ := cmd.Flags().GetBool("no-dedup")
		cfg.Dedup.Enabled = !noDedup
	}
	if cmd.Flags().Changed("no-archive") {
		noArchive, _ := cmd.Flags().GetBool("no-archive")
		cfg.Archive.Enabled = !noArchive
	}
	if cmd.Flags().Changed("archive-dir") {
		dir, _ := cmd.Flags().GetString("archive-dir")
		if cfg.Dedup.Path == filepath.Join(cfg.Archive.Dir, filepath.Base(cfg.Dedup.Path)) {
			cfg.Dedup.Path = filepath.Join(dir, filepath.Base(cfg.Dedup.Path))
		}
		cfg.Archive.Dir = dir
	}
}

// newApp wires config into an orchestrator.
func newApp(ctx context.Context, cfg *config.Config, opts pipeline.Options, logger *slog.Logger) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	detector := dedup.New(ctx, cfg.ToDedupOptions(), logger)

	procLog, err := report.OpenProcessingLog(filepath.Join(cfg.Archive.Dir, ProcessingLogName))
	if err != nil {
		return nil, errors.Join(err, detector.Close())
	}

	var archiver *archive.Manager
	if cfg.Archive.Enabled {
		archiver, err = archive.NewManager(cfg.Archive.Dir, logger)
		if err != nil {
			return nil, errors.Join(err, detector.Close())
		}
	}

	orch, err := pipeline.New(opts, pipeline.Deps{
		Extractor:  ocr.NewExtractor(cfg.ToOCRConfig(), logger),
		Detector:   detector,
		Downstream: downstream.SimulatorFactory(logger),
		Archive:    archiver,
		Log:        procLog,
		Logger:     logger,
	})
	if err != nil {
		return nil, errors.Join(err, detector.Close())
	}

	logger.Debug("pipeline ready",
		"parallel", opts.Parallel,
		"workers", opts.Workers,
		"template", opts.TemplatePath(),
		"dedup_enabled", detector.Enabled(),
		"dedup_persistent", detector.Persistent(),
		"archive", cfg.Archive.Enabled,
		"timeout", opts.Timeout.Round(time.Second))

	return &app{orch: orch, detector: detector, log: procLog}, nil
}
