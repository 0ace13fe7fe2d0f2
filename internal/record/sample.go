package record

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// SampleLotID is the identifier of the bundled sample record.
const SampleLotID = "Lot101_Sample"

// Sample returns a complete example record.
func Sample() Record {
	return Record{
		KeyLotID: SampleLotID,
		KeyProjectInfo: map[string]any{
			"name":    "Sample Project",
			"address": "123 Main St",
			"city":    "Orlando",
			"state":   "FL",
			"zip":     "32801",
		},
		KeyBuildingData: map[string]any{
			"conditioned_floor_area": 2402.0,
			"windows": map[string]any{
				"NE": map[string]any{"area": 120.5, "u_factor": 0.32, "shgc": 0.25},
				"SW": map[string]any{"area": 98.3, "u_factor": 0.32, "shgc": 0.25},
			},
			"walls": map[string]any{
				"WoodFrameExt": map[string]any{"area": 1650.0, "r_value": 19.0},
			},
			"infiltration": map[string]any{"ach50": 7.0},
		},
		KeyHVAC: map[string]any{
			"system1": map[string]any{"tonnage": 3.0, "seer2": 15.0},
		},
		KeyDuct:           map[string]any{"location": "Interior"},
		KeyFloorPlanImage: "floorplans/Lot101_plan.png",
	}
}

// WriteSample writes the sample record into dir as <lot>_inputs.json and
// returns the written path.
func WriteSample(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create inputs directory: %w", err)
	}
	data, err := json.MarshalIndent(Sample(), "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode sample record: %w", err)
	}
	path := filepath.Join(dir, SampleLotID+"_inputs.json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("write sample record: %w", err)
	}
	return path, nil
}
