package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ImageSize represents image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

var (
	SmallSize  = ImageSize{320, 240}
	MediumSize = ImageSize{640, 480}
)

// FloorPlanConfig controls a synthetic floor plan scan.
type FloorPlanConfig struct {
	// Lines are drawn top to bottom, one per row.
	Lines      []string
	Size       ImageSize
	Background color.Color
	Foreground color.Color
	FontFace   font.Face
	Rotation   float64 // degrees
}

// DefaultFloorPlanConfig returns a plan sheet carrying the annotations the
// OCR field patterns look for.
func DefaultFloorPlanConfig() FloorPlanConfig {
	return FloorPlanConfig{
		Lines: []string{
			"FLOOR PLAN - LOT 101",
			"Conditioned Floor Area: 2,402 sq ft",
			"Window Area: 218.8 sq ft",
			"Wall R-Value: R-19",
		},
		Size:       MediumSize,
		Background: color.White,
		Foreground: color.Black,
		FontFace:   basicfont.Face7x13,
	}
}

// GenerateFloorPlanImage renders the configured text lines.
func GenerateFloorPlanImage(cfg FloorPlanConfig) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, cfg.Size.Width, cfg.Size.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{cfg.Background}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{cfg.Foreground},
		Face: cfg.FontFace,
	}
	lineHeight := cfg.FontFace.Metrics().Height.Ceil() + 8
	y := 40
	for _, line := range cfg.Lines {
		line = strings.TrimSpace(line)
		if line == "" {
			y += lineHeight
			continue
		}
		drawer.Dot = fixed.Point26_6{X: fixed.I(20), Y: fixed.I(y)}
		drawer.DrawString(line)
		y += lineHeight
	}

	if cfg.Rotation != 0 {
		return imaging.Rotate(img, cfg.Rotation, cfg.Background)
	}
	return img
}

// WriteFloorPlanImage renders cfg and saves it under dir as name. The
// format follows the file extension.
func WriteFloorPlanImage(t *testing.T, dir, name string, cfg FloorPlanConfig) string {
	t.Helper()

	require.NoError(t, EnsureDir(dir))
	path := filepath.Join(dir, name)
	require.NoError(t, imaging.Save(GenerateFloorPlanImage(cfg), path))
	return path
}
