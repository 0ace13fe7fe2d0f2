package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/lotgate/internal/dedup"
	"github.com/MeKo-Tech/lotgate/internal/ocr"
	"github.com/MeKo-Tech/lotgate/internal/pipeline"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	ocrDefaults := ocr.DefaultConfig()
	pipelineDefaults := pipeline.DefaultOptions()

	return Config{
		LogLevel: "info",
		Verbose:  false,
		OCR: OCRConfig{
			ConfidenceThreshold: ocrDefaults.Threshold,
			TesseractPath:       ocrDefaults.TesseractPath,
			Language:            ocrDefaults.Language,
			PSM:                 ocrDefaults.PSM,
			Preprocess:          ocrDefaults.Preprocess,
			RegionBackend:       ocrDefaults.RegionBackend,
			RegionTimeoutSec:    int(ocrDefaults.RegionTimeout / time.Second),
		},
		Dedup: DedupConfig{
			Enabled: true,
			Store:   dedup.StoreJSON,
			Path:    filepath.Join("archive", "processed_hashes.json"),
		},
		Batch: BatchConfig{
			InputsDir:            "inputs",
			Parallel:             false,
			Workers:              pipelineDefaults.Workers,
			TimeoutSec:           int(pipelineDefaults.Timeout / time.Second),
			SequentialTimeoutSec: int(pipelineDefaults.SequentialTimeout / time.Second),
			MaxRetries:           pipelineDefaults.MaxRetries,
		},
		Downstream: DownstreamConfig{
			TemplateFile: pipelineDefaults.TemplateFile,
			TemplatesDir: pipelineDefaults.TemplatesDir,
			OutputsDir:   pipelineDefaults.OutputsDir,
		},
		Archive: ArchiveConfig{
			Enabled: true,
			Dir:     "archive",
		},
		Report: ReportConfig{
			Format: "text",
		},
		Server: ServerConfig{
			Host:              "localhost",
			Port:              8080,
			CORSOrigin:        "*",
			PollIntervalMs:    1000,
			RequestsPerSecond: 5,
			Burst:             10,
			MaxUploadMB:       10,
			ShutdownTimeout:   10,
		},
	}
}

// Validate checks the configuration for values the pipeline cannot run with.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if err := validateThreshold(c.OCR.ConfidenceThreshold, "ocr.confidence_threshold"); err != nil {
		return err
	}

	validBackends := []string{ocr.BackendAuto, ocr.BackendGosseract, ocr.BackendHTTP, ocr.BackendNone}
	if !contains(validBackends, c.OCR.RegionBackend) {
		return fmt.Errorf("invalid region backend: %s (must be one of: %s)", c.OCR.RegionBackend, strings.Join(validBackends, ", "))
	}
	if c.OCR.RegionBackend == ocr.BackendHTTP && c.OCR.RegionURL == "" {
		return fmt.Errorf("ocr.region_url is required when region backend is %q", ocr.BackendHTTP)
	}
	if c.OCR.RegionTimeoutSec < 0 {
		return fmt.Errorf("invalid region timeout: %d (must not be negative)", c.OCR.RegionTimeoutSec)
	}

	validStores := []string{dedup.StoreJSON, dedup.StoreSQLite}
	if !contains(validStores, c.Dedup.Store) {
		return fmt.Errorf("invalid dedup store: %s (must be one of: %s)", c.Dedup.Store, strings.Join(validStores, ", "))
	}
	if c.Dedup.Enabled && c.Dedup.Path == "" {
		return fmt.Errorf("dedup.path is required when duplicate detection is enabled")
	}

	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	if c.Batch.TimeoutSec <= 0 {
		return fmt.Errorf("invalid batch timeout: %d (must be positive)", c.Batch.TimeoutSec)
	}
	if c.Batch.SequentialTimeoutSec <= 0 {
		return fmt.Errorf("invalid sequential timeout: %d (must be positive)", c.Batch.SequentialTimeoutSec)
	}
	if c.Batch.MaxRetries < 0 {
		return fmt.Errorf("invalid max retries: %d (must not be negative)", c.Batch.MaxRetries)
	}

	validFormats := []string{"text", "json", "csv", "xlsx"}
	if c.Report.Format != "" && !contains(validFormats, c.Report.Format) {
		return fmt.Errorf("invalid report format: %s (must be one of: %s)", c.Report.Format, strings.Join(validFormats, ", "))
	}
	if c.Report.Format == "xlsx" && c.Report.File == "" {
		return fmt.Errorf("report.file is required for xlsx output")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.PollIntervalMs <= 0 {
		return fmt.Errorf("invalid poll interval: %d (must be positive)", c.Server.PollIntervalMs)
	}
	if c.Server.RequestsPerSecond < 0 {
		return fmt.Errorf("invalid requests per second: %.2f (must not be negative)", c.Server.RequestsPerSecond)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}

	return nil
}

// ToOCRConfig converts to ocr.Config.
func (c *Config) ToOCRConfig() ocr.Config {
	cfg := ocr.DefaultConfig()
	cfg.Threshold = c.OCR.ConfidenceThreshold
	cfg.TesseractPath = c.OCR.TesseractPath
	cfg.TessdataDir = c.OCR.TessdataDir
	cfg.Language = c.OCR.Language
	cfg.PSM = c.OCR.PSM
	cfg.Preprocess = c.OCR.Preprocess
	cfg.RegionBackend = c.OCR.RegionBackend
	cfg.RegionURL = c.OCR.RegionURL
	if c.OCR.RegionTimeoutSec > 0 {
		cfg.RegionTimeout = time.Duration(c.OCR.RegionTimeoutSec) * time.Second
	}
	return cfg
}

// ToDedupOptions converts to dedup.Options.
func (c *Config) ToDedupOptions() dedup.Options {
	return dedup.Options{
		Enabled: c.Dedup.Enabled,
		Store:   c.Dedup.Store,
		Path:    c.Dedup.Path,
	}
}

// ToPipelineOptions converts to pipeline.Options.
func (c *Config) ToPipelineOptions() pipeline.Options {
	opts := pipeline.DefaultOptions()
	opts.Parallel = c.Batch.Parallel
	opts.Workers = c.Batch.Workers
	opts.Timeout = time.Duration(c.Batch.TimeoutSec) * time.Second
	opts.SequentialTimeout = time.Duration(c.Batch.SequentialTimeoutSec) * time.Second
	opts.MaxRetries = c.Batch.MaxRetries
	opts.TemplateFile = c.Downstream.TemplateFile
	opts.TemplatesDir = c.Downstream.TemplatesDir
	opts.OutputsDir = c.Downstream.OutputsDir
	return opts
}

// Helper functions

// contains checks if a slice contains a string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// validateThreshold validates that a value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %.2f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}
