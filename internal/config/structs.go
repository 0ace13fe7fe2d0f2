//nolint:lll
package config

// Config represents the complete configuration for the lotgate application.
// It includes settings for all commands (process, batch, serve) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Text extraction
	OCR OCRConfig `mapstructure:"ocr" yaml:"ocr" json:"ocr"`

	// Duplicate detection
	Dedup DedupConfig `mapstructure:"dedup" yaml:"dedup" json:"dedup"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`

	// Downstream compliance tool
	Downstream DownstreamConfig `mapstructure:"downstream" yaml:"downstream" json:"downstream"`

	// Input/output archiving
	Archive ArchiveConfig `mapstructure:"archive" yaml:"archive" json:"archive"`

	// Report output
	Report ReportConfig `mapstructure:"report" yaml:"report" json:"report"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// OCRConfig contains floor-plan text extraction settings.
type OCRConfig struct {
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold" yaml:"confidence_threshold" json:"confidence_threshold"`
	TesseractPath       string  `mapstructure:"tesseract_path" yaml:"tesseract_path" json:"tesseract_path"`
	TessdataDir         string  `mapstructure:"tessdata_dir" yaml:"tessdata_dir" json:"tessdata_dir"`
	Language            string  `mapstructure:"language" yaml:"language" json:"language"`
	PSM                 int     `mapstructure:"psm" yaml:"psm" json:"psm"`
	Preprocess          bool    `mapstructure:"preprocess" yaml:"preprocess" json:"preprocess"`
	RegionBackend       string  `mapstructure:"region_backend" yaml:"region_backend" json:"region_backend"`
	RegionURL           string  `mapstructure:"region_url" yaml:"region_url" json:"region_url"`
	RegionTimeoutSec    int     `mapstructure:"region_timeout_sec" yaml:"region_timeout_sec" json:"region_timeout_sec"`
}

// DedupConfig contains duplicate detection settings.
type DedupConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Store   string `mapstructure:"store" yaml:"store" json:"store"`
	Path    string `mapstructure:"path" yaml:"path" json:"path"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	InputsDir            string `mapstructure:"inputs_dir" yaml:"inputs_dir" json:"inputs_dir"`
	Parallel             bool   `mapstructure:"parallel" yaml:"parallel" json:"parallel"`
	Workers              int    `mapstructure:"workers" yaml:"workers" json:"workers"`
	TimeoutSec           int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	SequentialTimeoutSec int    `mapstructure:"sequential_timeout_sec" yaml:"sequential_timeout_sec" json:"sequential_timeout_sec"`
	MaxRetries           int    `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries"`
}

// DownstreamConfig contains settings for the compliance tool collaborator.
type DownstreamConfig struct {
	TemplateFile string `mapstructure:"template_file" yaml:"template_file" json:"template_file"`
	TemplatesDir string `mapstructure:"templates_dir" yaml:"templates_dir" json:"templates_dir"`
	OutputsDir   string `mapstructure:"outputs_dir" yaml:"outputs_dir" json:"outputs_dir"`
}

// ArchiveConfig contains archiving settings.
type ArchiveConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Dir     string `mapstructure:"dir" yaml:"dir" json:"dir"`
}

// ReportConfig contains batch report output settings.
type ReportConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host              string  `mapstructure:"host" yaml:"host" json:"host"`
	Port              int     `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin        string  `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	PollIntervalMs    int     `mapstructure:"poll_interval_ms" yaml:"poll_interval_ms" json:"poll_interval_ms"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `mapstructure:"burst" yaml:"burst" json:"burst"`
	MaxUploadMB       int     `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	ShutdownTimeout   int     `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
}
