package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/lotgate/internal/pipeline"
	"github.com/MeKo-Tech/lotgate/internal/quality"
)

// processCmd runs one record file through the pipeline.
var processCmd = &cobra.Command{
	Use:   "process <record.json>",
	Short: "Process a single lot record",
	Long: `Run one lot record through duplicate detection, default fill, floor-plan
extraction and downstream delivery, then print the committed outcome.

The command exits non-zero when the record fails.

Examples:
  lotgate process inputs/Lot101_Sample_inputs.json
  lotgate process inputs/Lot7_inputs.json --format json --timeout 2m`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runProcessCommand,
}

func runProcessCommand(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	applyRuntimeFlags(cfg, cmd)
	opts := pipelineOptions(cfg, cmd)

	format, _ := cmd.Flags().GetString("format")
	if format != formatText && format != formatJSON {
		return fmt.Errorf("unsupported format: %s", format)
	}

	a, err := newApp(cmd.Context(), cfg, opts, slog.Default())
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	out := a.orch.ProcessFile(cmd.Context(), args[0])
	snap := a.orch.Quality().Snapshot()

	if format == formatJSON {
		if err := writeOutcomeJSON(cmd.OutOrStdout(), out, snap); err != nil {
			return err
		}
	} else {
		writeOutcomeText(cmd.OutOrStdout(), out, snap)
	}

	if !out.Succeeded() {
		return fmt.Errorf("lot %s failed: %s", out.LotID, out.Reason)
	}
	return nil
}

func writeOutcomeJSON(w io.Writer, out pipeline.Outcome, snap quality.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Outcome pipeline.Outcome `json:"outcome"`
		Quality quality.Snapshot `json:"quality"`
	}{out, snap})
}

func writeOutcomeText(w io.Writer, out pipeline.Outcome, snap quality.Snapshot) {
	status := string(out.Status)
	if out.Duplicate {
		status += " (duplicate, skipped)"
	}
	_, _ = fmt.Fprintf(w, "Lot: %s\n", out.LotID)
	_, _ = fmt.Fprintf(w, "Status: %s\n", status)
	if out.Reason != "" && !out.Duplicate {
		_, _ = fmt.Fprintf(w, "Reason: %s\n", out.Reason)
	}
	for _, warning := range out.Warnings {
		_, _ = fmt.Fprintf(w, "Default: %s\n", warning)
	}
	if out.OCR != nil {
		verdict := "rejected"
		if out.OCR.Accepted {
			verdict = "accepted"
		}
		_, _ = fmt.Fprintf(w, "OCR: engine %s, confidence %.2f, %s\n", out.OCR.Engine, out.OCR.Confidence, verdict)
	}
	if len(out.Recovered) > 0 {
		_, _ = fmt.Fprintf(w, "Recovered: %s\n", strings.Join(out.Recovered, ", "))
	}
	if out.ProjectPath != "" {
		_, _ = fmt.Fprintf(w, "Project: %s\n", out.ProjectPath)
	}
	if out.ReportPath != "" {
		_, _ = fmt.Fprintf(w, "Report: %s\n", out.ReportPath)
	}
	_, _ = fmt.Fprintf(w, "Data quality: %s %s\n", snap.DataQuality, snap.DataQualityMessage)
	_, _ = fmt.Fprintf(w, "System health: %s %s\n", snap.SystemHealth, snap.SystemHealthMessage)
	_, _ = fmt.Fprintf(w, "Duration: %v\n", out.Duration().Round(time.Millisecond))
}

func init() {
	rootCmd.AddCommand(processCmd)

	addPipelineFlags(processCmd)
	processCmd.Flags().StringP("format", "f", formatText, "output format: text, json")
}
