package record

import "fmt"

// DefaultFloorArea is used when a record carries no conditioned floor area.
const DefaultFloorArea = 2000.0

var projectInfoFields = []string{"name", "address", "city", "state", "zip"}

// defaultSections builds fresh default values for each top-level section.
func defaultSections() []struct {
	key   string
	value map[string]any
} {
	return []struct {
		key   string
		value map[string]any
	}{
		{KeyProjectInfo, map[string]any{}},
		{KeyBuildingData, map[string]any{
			"conditioned_floor_area": DefaultFloorArea,
			"windows":                map[string]any{},
			"walls":                  map[string]any{},
			"infiltration":           map[string]any{"ach50": 7.0},
		}},
		{KeyHVAC, map[string]any{
			"system1": map[string]any{"tonnage": 2.5, "seer2": 14.0},
		}},
		{KeyDuct, map[string]any{"location": "Interior"}},
	}
}

// FillDefaults fills missing sections and required fields in place and
// returns one warning per filled value. Existing keys are never replaced.
func FillDefaults(r Record) []string {
	var warnings []string

	for _, section := range defaultSections() {
		if _, ok := r[section.key]; !ok {
			r[section.key] = section.value
			warnings = append(warnings, fmt.Sprintf("Missing %s section, using defaults", section.key))
		}
	}

	if info := r.Section(KeyProjectInfo); info != nil {
		for _, field := range projectInfoFields {
			if _, ok := info[field]; !ok {
				info[field] = "Default_" + field
				warnings = append(warnings, fmt.Sprintf("Missing project_info.%s, using default", field))
			}
		}
	}

	if building := r.Section(KeyBuildingData); building != nil {
		if _, ok := building["conditioned_floor_area"]; !ok {
			building["conditioned_floor_area"] = DefaultFloorArea
			warnings = append(warnings, "Missing conditioned_floor_area, using default 2000 sqft")
		}
	}

	return warnings
}
