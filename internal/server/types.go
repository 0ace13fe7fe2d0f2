// Package server exposes the quality state and outcome log over HTTP and
// accepts single records for processing.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/MeKo-Tech/lotgate/internal/pipeline"
	"github.com/MeKo-Tech/lotgate/internal/quality"
	"github.com/MeKo-Tech/lotgate/internal/record"
)

// processor is the part of the orchestrator the server needs.
type processor interface {
	ProcessRecord(ctx context.Context, rec record.Record) pipeline.Outcome
	RejectRecord(ctx context.Context, lotID string, err error) pipeline.Outcome
	Quality() *quality.Indicator
	Stats() pipeline.RuntimeStats
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	orch         processor
	corsOrigin   string
	maxUploadMB  int64
	pollInterval time.Duration
	rateLimiter  *RateLimiter
	version      string
}

// Config holds server configuration.
type Config struct {
	Host         string
	Port         int
	CORSOrigin   string
	MaxUploadMB  int64
	PollInterval time.Duration
	// RequestsPerSecond limits record submissions per client; zero disables it.
	RequestsPerSecond float64
	Burst             int
	Version           string
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status       string                `json:"status"`
	Version      string                `json:"version,omitempty"`
	Time         string                `json:"time"`
	SystemHealth quality.Level         `json:"system_health"`
	Runtime      pipeline.RuntimeStats `json:"runtime"`
}

// OutcomesResponse is returned by /outcomes.
type OutcomesResponse struct {
	Outcomes []quality.Outcome `json:"outcomes"`
	Count    int               `json:"count"`
}

// SubmitResponse is returned by POST /records.
type SubmitResponse struct {
	Success bool              `json:"success"`
	Outcome *pipeline.Outcome `json:"outcome,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// NewServer creates a server backed by orch.
func NewServer(orch processor, config Config) *Server {
	poll := config.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	maxUpload := config.MaxUploadMB
	if maxUpload <= 0 {
		maxUpload = 10
	}
	s := &Server{
		orch:         orch,
		corsOrigin:   config.CORSOrigin,
		maxUploadMB:  maxUpload,
		pollInterval: poll,
		version:      config.Version,
	}
	if config.RequestsPerSecond > 0 {
		s.rateLimiter = NewRateLimiter(config.RequestsPerSecond, config.Burst)
	}
	return s
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/status", s.corsMiddleware(s.statusHandler))
	mux.HandleFunc("/outcomes", s.corsMiddleware(s.outcomesHandler))
	mux.HandleFunc("/records", s.corsMiddleware(s.rateLimitMiddleware(s.submitRecordHandler)))
	mux.HandleFunc("/ws", s.corsMiddleware(s.statusWebSocketHandler))
	mux.Handle("/metrics", metricsHandler())
}

// Handler returns a mux with all routes installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}
