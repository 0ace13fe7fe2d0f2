package ocr

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/MeKo-Tech/lotgate/internal/utils"
)

// ErrNoEmbeddedImage is returned when a PDF floor plan has no raster image.
var ErrNoEmbeddedImage = errors.New("pdf contains no embedded image")

// ImageFromPDF extracts the embedded images of the first page of a PDF
// floor plan and returns the path of the largest one. The caller must run
// cleanup when done with the file.
func ImageFromPDF(pdfPath string) (string, func(), error) {
	tempDir, err := os.MkdirTemp("", "lotgate-pdf-*")
	if err != nil {
		return "", nil, fmt.Errorf("create temp directory: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(tempDir) }

	if err := api.ExtractImagesFile(pdfPath, tempDir, []string{"1"}, nil); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("extract images from %s: %w", filepath.Base(pdfPath), err)
	}

	best, err := largestImage(tempDir)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	return best, cleanup, nil
}

// largestImage picks the biggest decodable-format file in dir; ties go to
// the lexically first name.
func largestImage(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read extracted images: %w", err)
	}

	type candidate struct {
		path string
		size int64
	}
	var candidates []candidate
	for _, e := range entries {
		if e.IsDir() || !utils.IsSupportedImage(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		candidates = append(candidates, candidate{path: filepath.Join(dir, e.Name()), size: info.Size()})
	}
	if len(candidates) == 0 {
		return "", ErrNoEmbeddedImage
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].size != candidates[j].size {
			return candidates[i].size > candidates[j].size
		}
		return candidates[i].path < candidates[j].path
	})
	return candidates[0].path, nil
}
