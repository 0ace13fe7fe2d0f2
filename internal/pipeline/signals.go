package pipeline

import (
	"sync"

	"github.com/MeKo-Tech/lotgate/internal/quality"
)

// lotSignals forwards one record's quality writes to the shared indicator
// until the record is released. Writes after release are dropped.
type lotSignals struct {
	q *quality.Indicator

	mu       sync.Mutex
	released bool
}

func newLotSignals(q *quality.Indicator) *lotSignals {
	return &lotSignals{q: q}
}

func (s *lotSignals) dataQuality(level quality.Level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.released {
		s.q.SetDataQuality(level, message)
	}
}

func (s *lotSignals) systemHealth(level quality.Level, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.released {
		s.q.SetSystemHealth(level, message)
	}
}

func (s *lotSignals) currentLot(lotID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.released {
		s.q.SetCurrentLot(lotID)
	}
}

// active reports whether the record still owns its writes.
func (s *lotSignals) active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.released
}

// release drops every later write. Once it returns no write from the
// record is in progress.
func (s *lotSignals) release() {
	s.mu.Lock()
	s.released = true
	s.mu.Unlock()
}
