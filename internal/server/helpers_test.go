package server

import (
	"context"
	"errors"
	"sync"

	"github.com/MeKo-Tech/lotgate/internal/pipeline"
	"github.com/MeKo-Tech/lotgate/internal/quality"
	"github.com/MeKo-Tech/lotgate/internal/record"
)

// stubProcessor commits every record as SUCCESS unless its lot id is listed
// in fail.
type stubProcessor struct {
	mu       sync.Mutex
	quality  *quality.Indicator
	fail     map[string]bool
	received []record.Record
	rejected []string
}

func newStubProcessor(fail ...string) *stubProcessor {
	p := &stubProcessor{quality: quality.New(), fail: map[string]bool{}}
	for _, l := range fail {
		p.fail[l] = true
	}
	return p
}

func (p *stubProcessor) ProcessRecord(_ context.Context, rec record.Record) pipeline.Outcome {
	p.mu.Lock()
	p.received = append(p.received, rec)
	p.mu.Unlock()

	out := pipeline.Outcome{LotID: rec.LotID(), Status: quality.StatusSuccess}
	if p.fail[rec.LotID()] {
		out.Status = quality.StatusFailed
		out.Reason = "save project"
		out.Err = errors.New("save project: disk full")
	}
	p.quality.AddProcessedLot(out.LotID, out.Status, out.Reason)
	return out
}

func (p *stubProcessor) RejectRecord(_ context.Context, lotID string, err error) pipeline.Outcome {
	p.mu.Lock()
	p.rejected = append(p.rejected, lotID)
	p.mu.Unlock()

	out := pipeline.Outcome{LotID: lotID, Status: quality.StatusFailed, Reason: err.Error(), Err: err}
	p.quality.AddProcessedLot(out.LotID, out.Status, out.Reason)
	return out
}

func (p *stubProcessor) Quality() *quality.Indicator { return p.quality }

func (p *stubProcessor) Stats() pipeline.RuntimeStats {
	return pipeline.RuntimeStats{Goroutines: 1}
}

func (p *stubProcessor) rejections() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.rejected...)
}

func (p *stubProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.received)
}

const validRecord = `{"lot_id": "Lot7", "building_data": {"conditioned_floor_area": 1800}}`
