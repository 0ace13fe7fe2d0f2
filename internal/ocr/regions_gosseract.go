//go:build cgo && ocr

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// gosseractDetector runs libtesseract in-process and reports word boxes.
type gosseractDetector struct {
	languages []string
	tessdata  string
}

func newGosseractDetector(cfg Config) (RegionDetector, error) {
	langs := strings.Split(cfg.Language, "+")
	if cfg.Language == "" {
		langs = []string{"eng"}
	}
	return &gosseractDetector{languages: langs, tessdata: cfg.TessdataDir}, nil
}

func (d *gosseractDetector) Name() string { return BackendGosseract }

func (d *gosseractDetector) DetectRegions(ctx context.Context, imagePath string) ([]Region, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close() //nolint:errcheck

	if d.tessdata != "" {
		if err := client.SetTessdataPrefix(d.tessdata); err != nil {
			return nil, fmt.Errorf("gosseract: set tessdata: %w", err)
		}
	}
	if err := client.SetLanguage(d.languages...); err != nil {
		return nil, fmt.Errorf("gosseract: set language: %w", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return nil, fmt.Errorf("gosseract: set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("gosseract: bounding boxes: %w", err)
	}

	regions := make([]Region, 0, len(boxes))
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" {
			continue
		}
		regions = append(regions, Region{Text: b.Word, Confidence: clamp01(b.Confidence / 100.0)})
	}
	return regions, nil
}
