package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/lotgate/internal/batch"
	"github.com/MeKo-Tech/lotgate/internal/config"
)

const (
	formatText = "text"
	formatJSON = "json"
)

// batchCmd represents the batch command.
var batchCmd = &cobra.Command{
	Use:   "batch [files or directories...]",
	Short: "Process many lot records sequentially or in parallel",
	Long: `Discover lot record files and run each through the pipeline. Without
arguments the configured inputs directory is scanned.

Sequential mode processes records one at a time in file order. With
--parallel a bounded pool of workers processes records concurrently and
outcomes are reported in completion order.

The first interrupt stops submitting new records and lets in-flight
records finish. A second interrupt cancels them.

Examples:
  lotgate batch
  lotgate batch inputs/ --recursive --parallel --workers 4
  lotgate batch a_inputs.json b_inputs.json --format json --output results.json
  lotgate batch inputs/ --format xlsx --output results.xlsx`,
	SilenceUsage: true,
	RunE:         runBatchCommand,
}

// configToBatchConfig maps centralized configuration to batch.Config.
func configToBatchConfig(cfg *config.Config, cmd *cobra.Command) *batch.Config {
	batchConfig := &batch.Config{}

	batchConfig.Format = cfg.Report.Format
	if cmd.Flags().Changed("format") {
		batchConfig.Format, _ = cmd.Flags().GetString("format")
	}

	batchConfig.OutputFile = cfg.Report.File
	if cmd.Flags().Changed("output") {
		batchConfig.OutputFile, _ = cmd.Flags().GetString("output")
	}

	batchConfig.ReportDir = cfg.Archive.Dir
	if noReport, _ := cmd.Flags().GetBool("no-report"); noReport {
		batchConfig.ReportDir = ""
	}

	batchConfig.Recursive, _ = cmd.Flags().GetBool("recursive")
	batchConfig.IncludePatterns, _ = cmd.Flags().GetStringSlice("include")
	batchConfig.ExcludePatterns, _ = cmd.Flags().GetStringSlice("exclude")

	batchConfig.ShowProgress, _ = cmd.Flags().GetBool("progress")
	batchConfig.Quiet, _ = cmd.Flags().GetBool("quiet")
	batchConfig.ShowStats, _ = cmd.Flags().GetBool("stats")

	return batchConfig
}

func runBatchCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	applyRuntimeFlags(cfg, cmd)

	opts := pipelineOptions(cfg, cmd)
	if cmd.Flags().Changed("parallel") {
		opts.Parallel, _ = cmd.Flags().GetBool("parallel")
	}
	if cmd.Flags().Changed("workers") {
		opts.Workers, _ = cmd.Flags().GetInt("workers")
	}

	bc := configToBatchConfig(cfg, cmd)
	inputs := args
	if len(inputs) == 0 {
		inputs = []string{cfg.Batch.InputsDir}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	a, err := newApp(ctx, cfg, opts, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	stopOnSignal(ctx, cancel, a.orch.Stop)

	if !bc.Quiet {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Processing records from %v...\n", inputs)
	}

	result, err := batch.ProcessBatch(ctx, inputs, bc, a.orch)
	if err != nil && result == nil {
		return fmt.Errorf("batch processing failed: %w", err)
	}
	if err != nil {
		slog.Error("batch report not written", "error", err)
	}

	if err := result.SaveResults(bc.Format, bc.OutputFile, bc.Quiet); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	if bc.ShowStats {
		result.PrintStats(cmd.ErrOrStderr(), bc.Quiet)
	}
	return nil
}

// stopOnSignal asks for a cooperative stop on the first interrupt and
// cancels in-flight work on the second.
func stopOnSignal(ctx context.Context, cancel context.CancelFunc, stop func()) {
	sigChan := make(chan os.Signal, 2)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			slog.Warn("Received signal, finishing in-flight records", "signal", sig.String())
			stop()
		case <-ctx.Done():
			return
		}
		select {
		case sig := <-sigChan:
			slog.Warn("Received second signal, cancelling", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()
}

func init() {
	rootCmd.AddCommand(batchCmd)

	addPipelineFlags(batchCmd)

	batchCmd.Flags().Bool("parallel", false, "process records with a bounded worker pool")
	batchCmd.Flags().IntP("workers", "w", 0, "number of parallel workers (default from config)")

	batchCmd.Flags().StringP("format", "f", formatText, "output format: text, json, csv, xlsx")
	batchCmd.Flags().StringP("output", "o", "", "output file (default: stdout)")
	batchCmd.Flags().Bool("no-report", false, "do not write batch_report_<timestamp>.json")

	batchCmd.Flags().BoolP("recursive", "r", false, "recursively scan directories")
	batchCmd.Flags().StringSlice("include", batch.DefaultIncludePatterns, "file patterns to include")
	batchCmd.Flags().StringSlice("exclude", []string{}, "file patterns to exclude")

	batchCmd.Flags().Bool("progress", false, "show progress bar")
	batchCmd.Flags().Bool("quiet", false, "suppress progress output")
	batchCmd.Flags().Bool("stats", false, "show processing statistics")
}
