// Package ocr extracts text from floor-plan images with two independent
// engines and recovers numeric building fields from the result.
package ocr

import (
	"context"
	"errors"
	"time"
)

// Engine identifiers reported in a Result.
const (
	EngineA    = "A"
	EngineB    = "B"
	EngineNone = "none"
)

// Region backends for engine B.
const (
	BackendAuto      = "auto"
	BackendGosseract = "gosseract"
	BackendHTTP      = "http"
	BackendNone      = "none"
)

// DefaultThreshold is the confidence an engine must reach to be trusted.
const DefaultThreshold = 0.6

// ErrEngineUnavailable is returned when a backend is not compiled in or not configured.
var ErrEngineUnavailable = errors.New("ocr engine unavailable")

// Config configures both engines and the selection threshold.
type Config struct {
	Threshold float64

	// Engine A: tesseract command line
	TesseractPath string
	TessdataDir   string
	Language      string
	PSM           int
	Preprocess    bool

	// Engine B: region detector
	RegionBackend string
	RegionURL     string
	RegionTimeout time.Duration
}

// DefaultConfig returns the default extraction settings.
func DefaultConfig() Config {
	return Config{
		Threshold:     DefaultThreshold,
		TesseractPath: "tesseract",
		Language:      "eng",
		Preprocess:    true,
		RegionBackend: BackendAuto,
		RegionTimeout: 30 * time.Second,
	}
}

// Engine wraps one OCR backend. Extract never fails: any problem yields
// empty text and zero confidence.
type Engine interface {
	Name() string
	Extract(ctx context.Context, imagePath string) (text string, confidence float64)
}

// Result is the outcome of one multi-engine extraction attempt.
type Result struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Engine     string  `json:"engine"`
	Accepted   bool    `json:"accepted"`
}
