package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/MeKo-Tech/lotgate/internal/record"
)

const unknownLotID = "unknown"

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap := s.orch.Quality().Snapshot()
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:       "healthy",
		Version:      s.version,
		Time:         time.Now().UTC().Format(time.RFC3339),
		SystemHealth: snap.SystemHealth,
		Runtime:      s.orch.Stats(),
	})
}

// statusHandler returns the current quality snapshot.
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, http.StatusOK, s.orch.Quality().Snapshot())
}

// outcomesHandler returns the outcome log in commit order.
func (s *Server) outcomesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	outcomes := s.orch.Quality().Outcomes()
	s.writeJSON(w, http.StatusOK, OutcomesResponse{Outcomes: outcomes, Count: len(outcomes)})
}

// submitRecordHandler validates a JSON record and runs it through the
// pipeline. The response carries the committed outcome.
func (s *Server) submitRecordHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeErrorResponse(w, "Record too large", http.StatusRequestEntityTooLarge)
			return
		}
		s.writeErrorResponse(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	submissionSizeBytes.Observe(float64(len(data)))

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		s.reject(w, r, nil, "Invalid JSON", err)
		return
	}
	rec, err := record.FromValue(doc)
	if err != nil {
		s.reject(w, r, doc, "Invalid record", err)
		return
	}

	out := s.orch.ProcessRecord(r.Context(), rec)
	submissionsTotal.WithLabelValues(string(out.Status)).Inc()

	status := http.StatusOK
	if !out.Succeeded() {
		status = http.StatusUnprocessableEntity
	}
	resp := SubmitResponse{Success: out.Succeeded(), Outcome: &out}
	if out.Err != nil {
		resp.Error = out.Err.Error()
	}
	s.writeJSON(w, status, resp)
}

// reject commits a FAILED outcome for a submission that is not a valid
// record and answers 400.
func (s *Server) reject(w http.ResponseWriter, r *http.Request, doc any, message string, err error) {
	out := s.orch.RejectRecord(r.Context(), submittedLotID(doc), err)
	submissionsTotal.WithLabelValues(string(out.Status)).Inc()
	s.writeJSON(w, http.StatusBadRequest, SubmitResponse{
		Success: false,
		Outcome: &out,
		Error:   fmt.Sprintf("%s: %v", message, err),
	})
}

// submittedLotID names a rejected submission in the outcome log.
func submittedLotID(doc any) string {
	if m, ok := doc.(map[string]any); ok {
		if id, ok := m[record.KeyLotID].(string); ok && id != "" {
			return id
		}
	}
	return unknownLotID
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	s.writeJSON(w, statusCode, SubmitResponse{Success: false, Error: message})
}
