package pipeline

import (
	"path/filepath"
	"time"
)

// Options controls how records are processed.
type Options struct {
	// Parallel selects the bounded worker pool for batches.
	Parallel bool
	// Workers is the pool width in parallel mode.
	Workers int
	// Timeout bounds one record in parallel mode.
	Timeout time.Duration
	// SequentialTimeout bounds one record in sequential mode and for
	// single-record submissions.
	SequentialTimeout time.Duration
	// MaxRetries is advisory; records are not retried.
	MaxRetries int

	TemplateFile string
	TemplatesDir string
	OutputsDir   string
}

// DefaultOptions returns the stock processing options.
func DefaultOptions() Options {
	return Options{
		Parallel:          false,
		Workers:           3,
		Timeout:           600 * time.Second,
		SequentialTimeout: 300 * time.Second,
		MaxRetries:        3,
		TemplateFile:      "YourTemplate.egpj",
		TemplatesDir:      "templates",
		OutputsDir:        "outputs",
	}
}

// TemplatePath is the full path of the downstream template.
func (o Options) TemplatePath() string {
	return filepath.Join(o.TemplatesDir, o.TemplateFile)
}
