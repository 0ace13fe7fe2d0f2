package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Region is one detected text region with its confidence in [0,1].
type Region struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// RegionDetector finds text regions in an image.
type RegionDetector interface {
	Name() string
	DetectRegions(ctx context.Context, imagePath string) ([]Region, error)
}

// RegionEngine is engine B: the mean confidence over detected regions.
type RegionEngine struct {
	detector RegionDetector
	logger   *slog.Logger
}

// NewRegionEngine creates engine B. A nil detector makes the engine
// permanently unavailable.
func NewRegionEngine(detector RegionDetector, logger *slog.Logger) *RegionEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &RegionEngine{detector: detector, logger: logger}
}

// Name implements Engine.
func (e *RegionEngine) Name() string { return EngineB }

// Available reports whether a region backend was resolved.
func (e *RegionEngine) Available() bool { return e.detector != nil }

// Backend returns the resolved backend name.
func (e *RegionEngine) Backend() string {
	if e.detector == nil {
		return BackendNone
	}
	return e.detector.Name()
}

// Extract implements Engine.
func (e *RegionEngine) Extract(ctx context.Context, imagePath string) (string, float64) {
	if e.detector == nil {
		return "", 0
	}

	regions, err := e.detector.DetectRegions(ctx, imagePath)
	if err != nil {
		e.logger.Warn("region extraction failed", "path", imagePath, "backend", e.detector.Name(), "error", err)
		return "", 0
	}
	if len(regions) == 0 {
		return "", 0
	}

	texts := make([]string, 0, len(regions))
	var sum float64
	for _, r := range regions {
		if t := strings.TrimSpace(r.Text); t != "" {
			texts = append(texts, t)
		}
		sum += r.Confidence
	}
	conf := sum / float64(len(regions))
	return strings.TrimSpace(strings.Join(texts, " ")), conf
}

// HTTPRegionDetector posts the image to a region-detection service.
//
// Request:  {"filename": "...", "image": "<base64>"}
// Response: {"regions": [{"text": "...", "confidence": 0.93}, ...]}
type HTTPRegionDetector struct {
	endpoint string
	client   *http.Client
}

// NewHTTPRegionDetector creates a detector for the given endpoint.
func NewHTTPRegionDetector(endpoint string, timeout time.Duration) *HTTPRegionDetector {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPRegionDetector{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

// Name implements RegionDetector.
func (d *HTTPRegionDetector) Name() string { return BackendHTTP }

type regionRequest struct {
	Filename string `json:"filename"`
	Image    string `json:"image"`
}

type regionResponse struct {
	Regions []Region `json:"regions"`
}

// DetectRegions implements RegionDetector.
func (d *HTTPRegionDetector) DetectRegions(ctx context.Context, imagePath string) ([]Region, error) {
	data, err := os.ReadFile(imagePath) //nolint:gosec // floor-plan path from input record
	if err != nil {
		return nil, fmt.Errorf("regions: read image %s: %w", imagePath, err)
	}

	body, err := json.Marshal(regionRequest{
		Filename: filepath.Base(imagePath),
		Image:    base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return nil, fmt.Errorf("regions: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("regions: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("regions: call %s: %w", d.endpoint, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("regions: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("regions: service returned %d: %s", resp.StatusCode, truncate(string(respBody), 512))
	}

	var out regionResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("regions: unmarshal response: %w", err)
	}
	for i := range out.Regions {
		out.Regions[i].Confidence = clamp01(out.Regions[i].Confidence)
	}
	return out.Regions, nil
}

// ResolveRegionDetector picks the engine B backend once at construction.
// A nil detector means engine B is unavailable.
func ResolveRegionDetector(cfg Config, logger *slog.Logger) RegionDetector {
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.RegionBackend {
	case BackendNone:
		return nil
	case BackendGosseract:
		d, err := newGosseractDetector(cfg)
		if err != nil {
			logger.Warn("gosseract region backend unavailable", "error", err)
			return nil
		}
		return d
	case BackendHTTP:
		if cfg.RegionURL == "" {
			logger.Warn("http region backend has no url configured")
			return nil
		}
		return NewHTTPRegionDetector(cfg.RegionURL, cfg.RegionTimeout)
	default:
		if d, err := newGosseractDetector(cfg); err == nil {
			return d
		}
		if cfg.RegionURL != "" {
			return NewHTTPRegionDetector(cfg.RegionURL, cfg.RegionTimeout)
		}
		logger.Info("no region backend available, engine B disabled")
		return nil
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
