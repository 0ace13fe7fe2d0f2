package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/lotgate/internal/record"
)

// sampleCmd writes the bundled example record.
var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write a sample lot record",
	Long: `Write the bundled sample record to <dir>/Lot101_Sample_inputs.json.

With --with-template a placeholder downstream template is created as well,
so the sample can be processed right away with the simulated collaborator.

Examples:
  lotgate sample
  lotgate sample --dir work/inputs --with-template`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		dir := cfg.Batch.InputsDir
		if cmd.Flags().Changed("dir") {
			dir, _ = cmd.Flags().GetString("dir")
		}

		path, err := record.WriteSample(dir)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Sample record written to %s\n", path)

		withTemplate, _ := cmd.Flags().GetBool("with-template")
		if !withTemplate {
			return nil
		}
		tpl := filepath.Join(cfg.Downstream.TemplatesDir, cfg.Downstream.TemplateFile)
		created, err := ensureTemplate(tpl)
		if err != nil {
			return err
		}
		if created {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Template placeholder written to %s\n", tpl)
		}
		return nil
	},
}

// ensureTemplate creates a placeholder template unless one exists.
func ensureTemplate(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return false, fmt.Errorf("stat template: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return false, fmt.Errorf("create templates directory: %w", err)
	}
	body := fmt.Sprintf("# EnergyGauge template placeholder created %s\n", time.Now().Format(time.RFC3339))
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		return false, fmt.Errorf("write template: %w", err)
	}
	return true, nil
}

func init() {
	rootCmd.AddCommand(sampleCmd)
	sampleCmd.Flags().String("dir", "", "directory for the sample record (default from config batch.inputs_dir)")
	sampleCmd.Flags().Bool("with-template", false, "also create a placeholder downstream template")
}
