//go:build !cgo || !ocr

package ocr

import "fmt"

func newGosseractDetector(Config) (RegionDetector, error) {
	return nil, fmt.Errorf("%w: built without gosseract support (requires cgo and the ocr build tag)", ErrEngineUnavailable)
}
