package quality

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_StartsGreen(t *testing.T) {
	q := New()
	s := q.Snapshot()
	assert.Equal(t, Green, s.DataQuality)
	assert.Equal(t, Green, s.SystemHealth)
	assert.Equal(t, "Ready", s.StatusMessage)
	assert.Empty(t, q.Outcomes())
}

func TestSetters(t *testing.T) {
	q := New()
	q.SetCurrentLot("Lot7")
	q.SetDataQuality(Yellow, "Lot7: Using defaults for missing data")
	q.SetSystemHealth(Red, "Lot7: Failed to open template")

	s := q.Snapshot()
	assert.Equal(t, "Lot7", s.CurrentLot)
	assert.Equal(t, Yellow, s.DataQuality)
	assert.Equal(t, "Lot7: Using defaults for missing data", s.DataQualityMessage)
	assert.Equal(t, Red, s.SystemHealth)
	assert.Equal(t, "Lot7: Failed to open template", s.StatusMessage)

	// no transition restrictions
	q.SetSystemHealth(Green, "recovered")
	assert.Equal(t, Green, q.Snapshot().SystemHealth)
}

func TestAddProcessedLot(t *testing.T) {
	q := New()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	q.now = func() time.Time { return fixed }

	o := q.AddProcessedLot("Lot1", StatusSuccess, "")
	assert.Equal(t, fixed, o.Timestamp)
	q.AddProcessedLot("Lot2", StatusFailed, "timeout")

	outcomes := q.Outcomes()
	require.Len(t, outcomes, 2)
	assert.Equal(t, "Lot1", outcomes[0].LotID)
	assert.Equal(t, "timeout", outcomes[1].Reason)

	s := q.Snapshot()
	assert.Equal(t, 2, s.Processed)
	assert.Equal(t, 1, s.Succeeded)
	assert.Equal(t, 1, s.Failed)

	// returned slice is a copy
	outcomes[0].LotID = "changed"
	assert.Equal(t, "Lot1", q.Outcomes()[0].LotID)
}

func TestConcurrentAppends(t *testing.T) {
	q := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q.AddProcessedLot(fmt.Sprintf("Lot%d", i), StatusSuccess, "")
			_ = q.Snapshot()
		}(i)
	}
	wg.Wait()
	assert.Len(t, q.Outcomes(), 50)
}

func TestBatchHealth(t *testing.T) {
	assert.Equal(t, Green, BatchHealth(5, 0))
	assert.Equal(t, Yellow, BatchHealth(5, 2))
	assert.Equal(t, Yellow, BatchHealth(5, 4))
	assert.Equal(t, Red, BatchHealth(5, 5))
	assert.Equal(t, Green, BatchHealth(0, 0))
}

func TestReset(t *testing.T) {
	q := New()
	q.SetDataQuality(Red, "x")
	q.AddProcessedLot("Lot1", StatusFailed, "x")
	q.Reset()

	s := q.Snapshot()
	assert.Equal(t, Green, s.DataQuality)
	assert.Zero(t, s.Processed)
}
