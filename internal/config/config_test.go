package config

import (
	"testing"
	"time"

	"github.com/MeKo-Tech/lotgate/internal/dedup"
	"github.com/MeKo-Tech/lotgate/internal/ocr"
)

const (
	infoLevel  = "info"
	debugLevel = "debug"
)

// TestDefaultConfig verifies that DefaultConfig returns expected values.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected log_level '%s', got %s", infoLevel, cfg.LogLevel)
	}
	if cfg.OCR.ConfidenceThreshold != 0.6 {
		t.Errorf("Expected confidence_threshold 0.6, got %.2f", cfg.OCR.ConfidenceThreshold)
	}
	if !cfg.Dedup.Enabled {
		t.Error("Expected duplicate detection to be enabled by default")
	}
	if cfg.Dedup.Store != dedup.StoreJSON {
		t.Errorf("Expected dedup store %s, got %s", dedup.StoreJSON, cfg.Dedup.Store)
	}
	if cfg.Batch.Workers != 3 {
		t.Errorf("Expected batch workers 3, got %d", cfg.Batch.Workers)
	}
	if cfg.Batch.TimeoutSec != 600 {
		t.Errorf("Expected batch timeout 600, got %d", cfg.Batch.TimeoutSec)
	}
	if cfg.Batch.SequentialTimeoutSec != 300 {
		t.Errorf("Expected sequential timeout 300, got %d", cfg.Batch.SequentialTimeoutSec)
	}
	if cfg.Batch.MaxRetries != 3 {
		t.Errorf("Expected max_retries 3, got %d", cfg.Batch.MaxRetries)
	}
	if cfg.Downstream.TemplateFile != "YourTemplate.egpj" {
		t.Errorf("Expected template file YourTemplate.egpj, got %s", cfg.Downstream.TemplateFile)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected server port 8080, got %d", cfg.Server.Port)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("DefaultConfig() should be valid, got: %v", err)
	}
}

// TestValidate exercises the validation rules.
func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"debug level", func(c *Config) { c.LogLevel = debugLevel }, false},
		{"invalid log level", func(c *Config) { c.LogLevel = "trace" }, true},
		{"threshold above one", func(c *Config) { c.OCR.ConfidenceThreshold = 1.5 }, true},
		{"negative threshold", func(c *Config) { c.OCR.ConfidenceThreshold = -0.1 }, true},
		{"threshold zero", func(c *Config) { c.OCR.ConfidenceThreshold = 0 }, false},
		{"unknown region backend", func(c *Config) { c.OCR.RegionBackend = "cloud" }, true},
		{"http backend without url", func(c *Config) { c.OCR.RegionBackend = ocr.BackendHTTP }, true},
		{"http backend with url", func(c *Config) {
			c.OCR.RegionBackend = ocr.BackendHTTP
			c.OCR.RegionURL = "http://localhost:9000/regions"
		}, false},
		{"unknown dedup store", func(c *Config) { c.Dedup.Store = "redis" }, true},
		{"sqlite dedup store", func(c *Config) { c.Dedup.Store = dedup.StoreSQLite }, false},
		{"enabled dedup without path", func(c *Config) { c.Dedup.Path = "" }, true},
		{"disabled dedup without path", func(c *Config) {
			c.Dedup.Enabled = false
			c.Dedup.Path = ""
		}, false},
		{"zero workers", func(c *Config) { c.Batch.Workers = 0 }, true},
		{"zero timeout", func(c *Config) { c.Batch.TimeoutSec = 0 }, true},
		{"negative retries", func(c *Config) { c.Batch.MaxRetries = -1 }, true},
		{"invalid report format", func(c *Config) { c.Report.Format = "html" }, true},
		{"xlsx without file", func(c *Config) { c.Report.Format = "xlsx" }, true},
		{"xlsx with file", func(c *Config) {
			c.Report.Format = "xlsx"
			c.Report.File = "report.xlsx"
		}, false},
		{"port out of range", func(c *Config) { c.Server.Port = 70000 }, true},
		{"zero poll interval", func(c *Config) { c.Server.PollIntervalMs = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

// TestToOCRConfig verifies the conversion into extractor settings.
func TestToOCRConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.OCR.ConfidenceThreshold = 0.75
	cfg.OCR.TesseractPath = "/opt/tesseract/bin/tesseract"
	cfg.OCR.RegionBackend = ocr.BackendNone
	cfg.OCR.RegionTimeoutSec = 5

	oc := cfg.ToOCRConfig()
	if oc.Threshold != 0.75 {
		t.Errorf("Expected threshold 0.75, got %.2f", oc.Threshold)
	}
	if oc.TesseractPath != "/opt/tesseract/bin/tesseract" {
		t.Errorf("Unexpected tesseract path %s", oc.TesseractPath)
	}
	if oc.RegionBackend != ocr.BackendNone {
		t.Errorf("Expected region backend none, got %s", oc.RegionBackend)
	}
	if oc.RegionTimeout != 5*time.Second {
		t.Errorf("Expected region timeout 5s, got %v", oc.RegionTimeout)
	}
}

// TestToPipelineOptions verifies batch and downstream settings are carried over.
func TestToPipelineOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Batch.Parallel = true
	cfg.Batch.Workers = 5
	cfg.Batch.TimeoutSec = 42
	cfg.Downstream.OutputsDir = "/tmp/out"

	opts := cfg.ToPipelineOptions()
	if !opts.Parallel {
		t.Error("Expected parallel mode")
	}
	if opts.Workers != 5 {
		t.Errorf("Expected 5 workers, got %d", opts.Workers)
	}
	if opts.Timeout != 42*time.Second {
		t.Errorf("Expected timeout 42s, got %v", opts.Timeout)
	}
	if opts.OutputsDir != "/tmp/out" {
		t.Errorf("Expected outputs dir /tmp/out, got %s", opts.OutputsDir)
	}
}

// TestToDedupOptions verifies dedup settings are carried over.
func TestToDedupOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Dedup.Enabled = false
	cfg.Dedup.Store = dedup.StoreSQLite
	cfg.Dedup.Path = "hashes.db"

	opts := cfg.ToDedupOptions()
	if opts.Enabled {
		t.Error("Expected dedup disabled")
	}
	if opts.Store != dedup.StoreSQLite || opts.Path != "hashes.db" {
		t.Errorf("Unexpected dedup options: %+v", opts)
	}
}
