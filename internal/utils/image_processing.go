package utils

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error {
	return e.Err
}

// ToGray converts any image to an 8-bit grayscale image.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	// imaging.Grayscale keeps NRGBA layout; copy the luminance channel out.
	nrgba := imaging.Grayscale(img)
	b := nrgba.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			off := nrgba.PixOffset(x+b.Min.X, y+b.Min.Y)
			gray.Pix[y*gray.Stride+x] = nrgba.Pix[off]
		}
	}
	return gray
}

// OtsuThreshold picks the gray level that maximizes between-class variance.
func OtsuThreshold(gray *image.Gray) uint8 {
	var hist [256]int
	b := gray.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := gray.Pix[(y-b.Min.Y)*gray.Stride : (y-b.Min.Y)*gray.Stride+b.Dx()]
		for _, v := range row {
			hist[v]++
		}
	}

	total := b.Dx() * b.Dy()
	if total == 0 {
		return 0
	}

	var sumAll float64
	for i, c := range hist {
		sumAll += float64(i * c)
	}

	var (
		sumB     float64
		weightB  int
		best     float64
		bestT    uint8
		foundAny bool
	)
	for t := 0; t < 256; t++ {
		weightB += hist[t]
		if weightB == 0 {
			continue
		}
		weightF := total - weightB
		if weightF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		meanB := sumB / float64(weightB)
		meanF := (sumAll - sumB) / float64(weightF)
		between := float64(weightB) * float64(weightF) * (meanB - meanF) * (meanB - meanF)
		if !foundAny || between > best {
			best = between
			bestT = uint8(t) //nolint:gosec // t is within [0,255]
			foundAny = true
		}
	}
	return bestT
}

// Binarize maps pixels above threshold to white and the rest to black.
func Binarize(gray *image.Gray, threshold uint8) *image.Gray {
	b := gray.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			if gray.GrayAt(x+b.Min.X, y+b.Min.Y).Y > threshold {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

// OtsuBinarize converts img to grayscale and binarizes it with Otsu's threshold.
func OtsuBinarize(img image.Image) (*image.Gray, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "binarize", Err: errors.New("input image is nil")}
	}
	gray := ToGray(img)
	return Binarize(gray, OtsuThreshold(gray)), nil
}
