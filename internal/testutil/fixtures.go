package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/lotgate/internal/record"
)

// RecordFixture describes one generated input record.
type RecordFixture struct {
	LotID     string
	FloorArea float64
	// FloorPlan is stored as floor_plan_image when set.
	FloorPlan string
	// Mutate runs on the record before it is written.
	Mutate func(record.Record)
}

// NewRecord builds a sample-based record for the fixture. The sample's
// floor plan reference is dropped unless the fixture names one.
func NewRecord(f RecordFixture) record.Record {
	rec := record.Sample()
	rec[record.KeyLotID] = f.LotID
	delete(rec, record.KeyFloorPlanImage)
	if f.FloorPlan != "" {
		rec[record.KeyFloorPlanImage] = f.FloorPlan
	}
	if f.FloorArea > 0 {
		rec.Section(record.KeyBuildingData)["conditioned_floor_area"] = f.FloorArea
	}
	if f.Mutate != nil {
		f.Mutate(rec)
	}
	return rec
}

// WriteRecord writes the fixture as <lot>_inputs.json into dir.
func WriteRecord(t *testing.T, dir string, f RecordFixture) string {
	t.Helper()

	require.NoError(t, EnsureDir(dir))
	data, err := json.MarshalIndent(NewRecord(f), "", "  ")
	require.NoError(t, err)

	path := filepath.Join(dir, f.LotID+"_inputs.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// WriteRecordFixtures writes n distinct valid records Lot1..Lotn into dir
// and returns their paths in order. Each record gets its own floor area so
// no two share a content fingerprint.
func WriteRecordFixtures(t *testing.T, dir string, n int) []string {
	t.Helper()

	paths := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		paths = append(paths, WriteRecord(t, dir, RecordFixture{
			LotID:     fmt.Sprintf("Lot%d", i),
			FloorArea: float64(1500 + 100*i),
		}))
	}
	return paths
}

// WriteRawFile writes content verbatim, for malformed inputs.
func WriteRawFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	require.NoError(t, EnsureDir(dir))
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
