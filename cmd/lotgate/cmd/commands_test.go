package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/lotgate/internal/config"
	"github.com/MeKo-Tech/lotgate/internal/ocr"
	"github.com/MeKo-Tech/lotgate/internal/pipeline"
	"github.com/MeKo-Tech/lotgate/internal/quality"
)

func TestWriteConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	t.Run("yaml", func(t *testing.T) {
		buf := new(bytes.Buffer)
		cmd := &cobra.Command{}
		cmd.SetOut(buf)
		require.NoError(t, writeConfig(cmd, &cfg, "yaml"))

		var decoded config.Config
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, cfg.Server.Port, decoded.Server.Port)
		assert.Equal(t, cfg.Batch.Workers, decoded.Batch.Workers)
		assert.Contains(t, buf.String(), "confidence_threshold: 0.6")
	})

	t.Run("json", func(t *testing.T) {
		buf := new(bytes.Buffer)
		cmd := &cobra.Command{}
		cmd.SetOut(buf)
		require.NoError(t, writeConfig(cmd, &cfg, "json"))

		var decoded config.Config
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, cfg.Dedup.Path, decoded.Dedup.Path)
	})

	t.Run("unsupported", func(t *testing.T) {
		assert.Error(t, writeConfig(&cobra.Command{}, &cfg, "toml"))
	})
}

func TestEnsureTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "templates", "YourTemplate.egpj")

	created, err := ensureTemplate(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.FileExists(t, path)

	require.NoError(t, os.WriteFile(path, []byte("real template"), 0o600))
	created, err = ensureTemplate(path)
	require.NoError(t, err)
	assert.False(t, created)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "real template", string(data))
}

func TestWriteOutcomeText(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	out := pipeline.Outcome{
		LotID:       "Lot5",
		Status:      quality.StatusSuccess,
		Warnings:    []string{"Using default for missing 'hvac'"},
		OCR:         &ocr.Result{Engine: ocr.EngineA, Confidence: 0.82, Accepted: true},
		Recovered:   []string{"building_data.conditioned_floor_area"},
		ProjectPath: "outputs/Lot5/Lot5.egpj",
		StartTime:   start,
		EndTime:     start.Add(1500 * time.Millisecond),
	}
	snap := quality.Snapshot{
		DataQuality:         quality.Yellow,
		DataQualityMessage:  "Lot5: Using defaults for missing data",
		SystemHealth:        quality.Green,
		SystemHealthMessage: "Lot5: Processing complete",
	}

	buf := new(bytes.Buffer)
	writeOutcomeText(buf, out, snap)
	text := buf.String()

	assert.Contains(t, text, "Lot: Lot5")
	assert.Contains(t, text, "Status: SUCCESS")
	assert.Contains(t, text, "Default: Using default for missing 'hvac'")
	assert.Contains(t, text, "OCR: engine A, confidence 0.82, accepted")
	assert.Contains(t, text, "Recovered: building_data.conditioned_floor_area")
	assert.Contains(t, text, "Data quality: YELLOW")
	assert.Contains(t, text, "Duration: 1.5s")
}

func TestWriteOutcomeText_Duplicate(t *testing.T) {
	buf := new(bytes.Buffer)
	writeOutcomeText(buf, pipeline.Outcome{
		LotID:     "Lot6",
		Status:    quality.StatusSuccess,
		Reason:    pipeline.ReasonDuplicate,
		Duplicate: true,
	}, quality.Snapshot{})

	assert.Contains(t, buf.String(), "Status: SUCCESS (duplicate, skipped)")
	assert.NotContains(t, buf.String(), "Reason:")
}

func TestWriteOutcomeJSON(t *testing.T) {
	buf := new(bytes.Buffer)
	out := pipeline.Outcome{LotID: "Lot8", Status: quality.StatusFailed, Reason: pipeline.ReasonTimeout}
	require.NoError(t, writeOutcomeJSON(buf, out, quality.Snapshot{SystemHealth: quality.Red}))

	var decoded struct {
		Outcome pipeline.Outcome `json:"outcome"`
		Quality quality.Snapshot `json:"quality"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "Lot8", decoded.Outcome.LotID)
	assert.Equal(t, pipeline.ReasonTimeout, decoded.Outcome.Reason)
	assert.Equal(t, quality.Red, decoded.Quality.SystemHealth)
}

func TestConfigToBatchConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Report.Format = "csv"

	cmd := &cobra.Command{Use: "batch"}
	cmd.Flags().StringP("format", "f", formatText, "")
	cmd.Flags().StringP("output", "o", "", "")
	cmd.Flags().Bool("no-report", false, "")
	cmd.Flags().BoolP("recursive", "r", false, "")
	cmd.Flags().StringSlice("include", []string{"*.json"}, "")
	cmd.Flags().StringSlice("exclude", nil, "")
	cmd.Flags().Bool("progress", false, "")
	cmd.Flags().Bool("quiet", false, "")
	cmd.Flags().Bool("stats", false, "")
	require.NoError(t, cmd.ParseFlags([]string{"-o", "out.csv", "-r", "--stats"}))

	bc := configToBatchConfig(&cfg, cmd)
	assert.Equal(t, "csv", bc.Format)
	assert.Equal(t, "out.csv", bc.OutputFile)
	assert.Equal(t, cfg.Archive.Dir, bc.ReportDir)
	assert.True(t, bc.Recursive)
	assert.True(t, bc.ShowStats)
	assert.Equal(t, []string{"*.json"}, bc.IncludePatterns)

	require.NoError(t, cmd.ParseFlags([]string{"--no-report"}))
	assert.Empty(t, configToBatchConfig(&cfg, cmd).ReportDir)
}
