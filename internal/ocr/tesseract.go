package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/lotgate/internal/utils"
)

// TesseractEngine is engine A: the tesseract command line in TSV mode,
// run on a binarized copy of the image.
type TesseractEngine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

// NewTesseractEngine creates engine A. A nil runner executes real commands.
func NewTesseractEngine(cfg Config, runner Runner, logger *slog.Logger) *TesseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = execRunner{}
	}
	if cfg.TesseractPath == "" {
		cfg.TesseractPath = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	return &TesseractEngine{cfg: cfg, runner: runner, logger: logger}
}

// Name implements Engine.
func (e *TesseractEngine) Name() string { return EngineA }

// Extract implements Engine.
func (e *TesseractEngine) Extract(ctx context.Context, imagePath string) (string, float64) {
	input := imagePath
	if e.cfg.Preprocess {
		processed, cleanup := utils.PreprocessForOCR(imagePath)
		defer cleanup()
		input = processed
	}

	out, _, err := e.runner.Run(ctx, e.cfg.TesseractPath, e.args(input)...)
	if err != nil {
		e.logger.Warn("tesseract extraction failed", "path", imagePath, "error", err)
		return "", 0
	}

	text, conf := parseTSV(string(out))
	e.logger.Debug("tesseract extraction done", "path", imagePath, "confidence", conf, "chars", len(text))
	return text, conf
}

// args builds: <img> stdout -l <lang> [--psm N] [--tessdata-dir D] tsv
func (e *TesseractEngine) args(input string) []string {
	args := []string{input, "stdout", "-l", e.cfg.Language}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	return append(args, "tsv")
}

const (
	tsvColumns  = 12
	tsvColPage  = 1
	tsvColBlock = 2
	tsvColPar   = 3
	tsvColLine  = 4
	tsvColConf  = 10
	tsvColText  = 11
)

// parseTSV rebuilds line-ordered text from tesseract TSV output and returns
// the mean word confidence in [0,1]. Rows with confidence <= 0 are left out
// of the mean.
func parseTSV(out string) (string, float64) {
	var (
		sum, n   float64
		lines    []string
		current  []string
		lineKey  string
		haveLine bool
	)

	flush := func() {
		if len(current) > 0 {
			lines = append(lines, strings.Join(current, " "))
		}
		current = current[:0]
	}

	for i, ln := range strings.Split(out, "\n") {
		if i == 0 || ln == "" {
			continue
		}
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) < tsvColumns {
			continue
		}

		conf, err := strconv.ParseFloat(strings.TrimSpace(cols[tsvColConf]), 64)
		if err == nil && conf > 0 {
			sum += conf
			n++
		}

		word := strings.TrimSpace(cols[tsvColText])
		if word == "" {
			continue
		}
		key := fmt.Sprintf("%s/%s/%s/%s", cols[tsvColPage], cols[tsvColBlock], cols[tsvColPar], cols[tsvColLine])
		if !haveLine || key != lineKey {
			flush()
			lineKey = key
			haveLine = true
		}
		current = append(current, word)
	}
	flush()

	text := strings.TrimSpace(strings.Join(lines, "\n"))
	if n == 0 {
		return text, 0
	}
	return text, sum / n / 100.0
}
