package ocr

import (
	"context"
	"log/slog"

	"github.com/MeKo-Tech/lotgate/internal/utils"
)

// MultiEngine runs engine A and falls back to engine B when A is not
// trusted, keeping the better of the two when neither is.
type MultiEngine struct {
	a, b      Engine
	threshold float64
	logger    *slog.Logger
}

// NewMultiEngine combines two engines under a confidence threshold.
func NewMultiEngine(a, b Engine, threshold float64, logger *slog.Logger) *MultiEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiEngine{a: a, b: b, threshold: threshold, logger: logger}
}

// NewExtractor builds the production extractor: tesseract as engine A and
// the configured region backend as engine B.
func NewExtractor(cfg Config, logger *slog.Logger) *MultiEngine {
	if logger == nil {
		logger = slog.Default()
	}
	a := NewTesseractEngine(cfg, nil, logger)
	regions := NewRegionEngine(ResolveRegionDetector(cfg, logger), logger)
	logger.Debug("ocr engines resolved",
		"engine_a", cfg.TesseractPath,
		"engine_b", regions.Backend(),
		"threshold", cfg.Threshold)
	return NewMultiEngine(a, regions, cfg.Threshold, logger)
}

// Threshold returns the acceptance threshold.
func (m *MultiEngine) Threshold() float64 { return m.threshold }

// Extract runs the engines on the image at path. A missing file yields
// engine "none". PDF floor plans are reduced to their first-page image.
func (m *MultiEngine) Extract(ctx context.Context, path string) Result {
	if !utils.FileExists(path) {
		m.logger.Warn("floor plan image not found", "path", path)
		return Result{Engine: EngineNone}
	}

	if utils.IsPDF(path) {
		img, cleanup, err := ImageFromPDF(path)
		if err != nil {
			m.logger.Warn("pdf floor plan has no usable image", "path", path, "error", err)
			return Result{Engine: EngineNone}
		}
		defer cleanup()
		path = img
	}

	textA, confA := m.a.Extract(ctx, path)
	if accepted(textA, confA, m.threshold) {
		m.logger.Info("ocr accepted", "engine", EngineA, "confidence", confA)
		return Result{Text: textA, Confidence: confA, Engine: EngineA, Accepted: true}
	}

	m.logger.Info("engine A below threshold, trying engine B", "confidence", confA, "threshold", m.threshold)
	textB, confB := m.b.Extract(ctx, path)

	res := Select(textA, confA, textB, confB, m.threshold)
	if res.Accepted {
		m.logger.Info("ocr accepted", "engine", res.Engine, "confidence", res.Confidence)
	} else {
		m.logger.Warn("ocr confidence below threshold",
			"engine", res.Engine, "confidence", res.Confidence, "threshold", m.threshold)
	}
	return res
}

// Select applies the selection rule to both engine outputs: A if trusted,
// else B if trusted, else the higher confidence with ties going to A.
func Select(textA string, confA float64, textB string, confB float64, threshold float64) Result {
	if accepted(textA, confA, threshold) {
		return Result{Text: textA, Confidence: confA, Engine: EngineA, Accepted: true}
	}
	if accepted(textB, confB, threshold) {
		return Result{Text: textB, Confidence: confB, Engine: EngineB, Accepted: true}
	}
	if confA >= confB {
		return Result{Text: textA, Confidence: confA, Engine: EngineA, Accepted: confA >= threshold}
	}
	return Result{Text: textB, Confidence: confB, Engine: EngineB, Accepted: confB >= threshold}
}

func accepted(text string, conf, threshold float64) bool {
	return conf >= threshold && text != ""
}
