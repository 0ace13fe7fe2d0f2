package ocr

import (
	"log/slog"
	"sort"

	"github.com/MeKo-Tech/lotgate/internal/record"
)

// Enrich fills building and HVAC numbers that are absent or falsy in rec
// from OCR text. Explicit values are never overwritten. It returns the
// dotted paths of the fields it filled.
func Enrich(rec record.Record, text string, logger *slog.Logger) []string {
	if logger == nil {
		logger = slog.Default()
	}
	var filled []string

	fill := func(section map[string]any, key, field, path string) {
		if record.Truthy(section[key]) {
			return
		}
		v, ok := ExtractFieldValue(text, field)
		if !ok {
			return
		}
		section[key] = v
		filled = append(filled, path)
		logger.Info("ocr filled field", "lot_id", rec.LotID(), "field", path, "value", v)
	}

	if building := rec.Section(record.KeyBuildingData); building != nil {
		fill(building, "conditioned_floor_area", FieldFloorArea, "building_data.conditioned_floor_area")

		if windows, ok := building["windows"].(map[string]any); ok {
			for _, id := range sortedKeys(windows) {
				w, ok := windows[id].(map[string]any)
				if !ok {
					continue
				}
				fill(w, "u_factor", FieldUFactor, "building_data.windows."+id+".u_factor")
				fill(w, "shgc", FieldSHGC, "building_data.windows."+id+".shgc")
			}
		}
	}

	if hvac := rec.Section(record.KeyHVAC); hvac != nil {
		for _, id := range sortedKeys(hvac) {
			sys, ok := hvac[id].(map[string]any)
			if !ok {
				continue
			}
			fill(sys, "tonnage", FieldTonnage, "hvac."+id+".tonnage")
			fill(sys, "seer2", FieldSEER, "hvac."+id+".seer2")
		}
	}

	return filled
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
