package cmd

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/lotgate/internal/config"
	"github.com/MeKo-Tech/lotgate/internal/quality"
	"github.com/MeKo-Tech/lotgate/internal/record"
	"github.com/MeKo-Tech/lotgate/internal/report"
)

func newFlagCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	addPipelineFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestPipelineOptions_FlagOverrides(t *testing.T) {
	cfg := config.DefaultConfig()
	cmd := newFlagCommand(t, "--template", "Custom.egpj", "--outputs-dir", "out", "--timeout", "90s")

	opts := pipelineOptions(&cfg, cmd)
	assert.Equal(t, "Custom.egpj", opts.TemplateFile)
	assert.Equal(t, cfg.Downstream.TemplatesDir, opts.TemplatesDir)
	assert.Equal(t, "out", opts.OutputsDir)
	assert.Equal(t, 90*time.Second, opts.Timeout)
	assert.Equal(t, 90*time.Second, opts.SequentialTimeout)
}

func TestPipelineOptions_ConfigDefaults(t *testing.T) {
	cfg := config.DefaultConfig()
	opts := pipelineOptions(&cfg, newFlagCommand(t))

	assert.Equal(t, time.Duration(cfg.Batch.TimeoutSec)*time.Second, opts.Timeout)
	assert.Equal(t, time.Duration(cfg.Batch.SequentialTimeoutSec)*time.Second, opts.SequentialTimeout)
	assert.Equal(t, cfg.Downstream.TemplateFile, opts.TemplateFile)
}

func TestApplyRuntimeFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	cmd := newFlagCommand(t, "--no-dedup", "--no-archive", "--confidence", "0.8", "--archive-dir", "elsewhere")

	applyRuntimeFlags(&cfg, cmd)
	assert.False(t, cfg.Dedup.Enabled)
	assert.False(t, cfg.Archive.Enabled)
	assert.InDelta(t, 0.8, cfg.OCR.ConfidenceThreshold, 1e-9)
	assert.Equal(t, "elsewhere", cfg.Archive.Dir)
	assert.Equal(t, filepath.Join("elsewhere", "processed_hashes.json"), cfg.Dedup.Path)
}

func TestNewApp_ProcessesSample(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Archive.Dir = filepath.Join(dir, "archive")
	cfg.Dedup.Path = filepath.Join(cfg.Archive.Dir, "processed_hashes.json")
	cfg.Downstream.TemplatesDir = filepath.Join(dir, "templates")
	cfg.Downstream.OutputsDir = filepath.Join(dir, "outputs")
	cfg.OCR.RegionBackend = "none"

	_, err := ensureTemplate(filepath.Join(cfg.Downstream.TemplatesDir, cfg.Downstream.TemplateFile))
	require.NoError(t, err)

	// the sample's floor plan path does not resolve here, so extraction is skipped
	recPath, err := record.WriteSample(dir)
	require.NoError(t, err)

	a, err := newApp(context.Background(), &cfg, cfg.ToPipelineOptions(), slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	out := a.orch.ProcessFile(context.Background(), recPath)
	assert.Equal(t, quality.StatusSuccess, out.Status, out.Reason)
	assert.FileExists(t, out.ProjectPath)

	rows, err := report.ReadProcessingLog(filepath.Join(cfg.Archive.Dir, ProcessingLogName))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, record.SampleLotID, rows[0][1])

	again := a.orch.ProcessFile(context.Background(), recPath)
	assert.True(t, again.Duplicate)

	entries, err := os.ReadDir(cfg.Archive.Dir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}
