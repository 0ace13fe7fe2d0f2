package utils

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// PreprocessForOCR writes a grayscale, Otsu-binarized copy of the image at
// path to a temporary PNG and returns its path together with a cleanup
// function. On any failure the original path is returned with a no-op
// cleanup and a warning is logged.
func PreprocessForOCR(path string) (string, func()) {
	noop := func() {}

	out, err := preprocessToTemp(path)
	if err != nil {
		slog.Warn("image preprocessing failed, using original image", "path", path, "error", err)
		return path, noop
	}

	return out, func() {
		if err := os.Remove(out); err != nil && !os.IsNotExist(err) {
			slog.Debug("removing preprocessed image failed", "path", out, "error", err)
		}
	}
}

func preprocessToTemp(path string) (string, error) {
	img, _, err := LoadImage(path)
	if err != nil {
		return "", err
	}

	bin, err := OtsuBinarize(img)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp("", "lotgate-ocr-*.png")
	if err != nil {
		return "", &ImageProcessingError{Operation: "preprocess", Err: err}
	}
	name := tmp.Name()
	if err := imaging.Encode(tmp, bin, imaging.PNG); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return "", &ImageProcessingError{Operation: "encode", Err: err}
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return "", &ImageProcessingError{Operation: "encode", Err: fmt.Errorf("close %s: %w", filepath.Base(name), err)}
	}
	return name, nil
}
