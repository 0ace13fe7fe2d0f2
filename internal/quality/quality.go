// Package quality holds the tri-state data-quality and system-health
// signals and the per-record outcome log.
package quality

import (
	"sync"
	"time"
)

// Level is a tri-state quality signal.
type Level string

const (
	Green  Level = "GREEN"
	Yellow Level = "YELLOW"
	Red    Level = "RED"
)

// Status is a committed record outcome.
type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Outcome is one entry of the outcome log.
type Outcome struct {
	LotID     string    `json:"lot_id"`
	Status    Status    `json:"status"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Snapshot is a consistent copy of the indicator state.
type Snapshot struct {
	DataQuality         Level     `json:"data_quality"`
	DataQualityMessage  string    `json:"data_quality_message"`
	SystemHealth        Level     `json:"system_health"`
	SystemHealthMessage string    `json:"system_health_message"`
	StatusMessage       string    `json:"status_message"`
	CurrentLot          string    `json:"current_lot"`
	Processed           int       `json:"processed"`
	Succeeded           int       `json:"succeeded"`
	Failed              int       `json:"failed"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// Indicator is the shared quality state. The pipeline writes it; any
// number of observers read it through Snapshot and Outcomes.
type Indicator struct {
	mu sync.RWMutex

	dataQuality   Level
	dataMessage   string
	systemHealth  Level
	healthMessage string
	statusMessage string
	currentLot    string
	outcomes      []Outcome
	updatedAt     time.Time

	now func() time.Time
}

// New returns an indicator with both signals GREEN.
func New() *Indicator {
	ind := &Indicator{now: time.Now}
	ind.Reset()
	return ind
}

// Reset returns both signals to GREEN and clears the outcome log.
func (q *Indicator) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dataQuality = Green
	q.systemHealth = Green
	q.dataMessage = ""
	q.healthMessage = ""
	q.statusMessage = "Ready"
	q.currentLot = ""
	q.outcomes = nil
	q.updatedAt = q.now()
}

// SetDataQuality sets the data-quality signal.
func (q *Indicator) SetDataQuality(level Level, message string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dataQuality = level
	q.dataMessage = message
	q.statusMessage = message
	q.updatedAt = q.now()
}

// SetSystemHealth sets the system-health signal.
func (q *Indicator) SetSystemHealth(level Level, message string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.systemHealth = level
	q.healthMessage = message
	q.statusMessage = message
	q.updatedAt = q.now()
}

// SetCurrentLot records the lot being worked on.
func (q *Indicator) SetCurrentLot(lotID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.currentLot = lotID
	q.updatedAt = q.now()
}

// AddProcessedLot appends an outcome and returns it.
func (q *Indicator) AddProcessedLot(lotID string, status Status, reason string) Outcome {
	q.mu.Lock()
	defer q.mu.Unlock()
	o := Outcome{LotID: lotID, Status: status, Reason: reason, Timestamp: q.now()}
	q.outcomes = append(q.outcomes, o)
	q.updatedAt = o.Timestamp
	return o
}

// Snapshot returns a copy of the current state.
func (q *Indicator) Snapshot() Snapshot {
	q.mu.RLock()
	defer q.mu.RUnlock()
	s := Snapshot{
		DataQuality:         q.dataQuality,
		DataQualityMessage:  q.dataMessage,
		SystemHealth:        q.systemHealth,
		SystemHealthMessage: q.healthMessage,
		StatusMessage:       q.statusMessage,
		CurrentLot:          q.currentLot,
		Processed:           len(q.outcomes),
		UpdatedAt:           q.updatedAt,
	}
	for _, o := range q.outcomes {
		if o.Status == StatusFailed {
			s.Failed++
		} else {
			s.Succeeded++
		}
	}
	return s
}

// Outcomes returns a copy of the outcome log in append order.
func (q *Indicator) Outcomes() []Outcome {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return append([]Outcome(nil), q.outcomes...)
}

// BatchHealth maps a batch result to a level: GREEN with no failures, RED
// when every record failed, YELLOW otherwise. An empty batch is GREEN.
func BatchHealth(total, failed int) Level {
	switch {
	case failed <= 0:
		return Green
	case failed >= total:
		return Red
	default:
		return Yellow
	}
}
