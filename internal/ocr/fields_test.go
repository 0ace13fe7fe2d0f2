package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractField(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		field  string
		want   string
		wantOK bool
	}{
		{"floor area label", "Floor Area: 2,402 sq ft", FieldFloorArea, "2402.0", true},
		{"area with unit", "Total area 1850.5 sq ft", FieldFloorArea, "1850.5", true},
		{"bare square feet", "Living: 1,200 SQ FT", FieldFloorArea, "1200.0", true},
		{"tonnage with unit", "AC unit 3.5 Ton", FieldTonnage, "3.5", true},
		{"tonnage label", "Tonnage: 4", FieldTonnage, "4.0", true},
		{"seer label", "SEER: 16", FieldSEER, "16.0", true},
		{"seer suffix", "rated 15.2 seer", FieldSEER, "15.2", true},
		{"u factor", "U: 0.32", FieldUFactor, "0.32", true},
		{"shgc", "SHGC 0.25", FieldSHGC, "0.25", true},
		{"solar heat gain", "solar heat gain: 0.4", FieldSHGC, "0.4", true},
		{"case-insensitive field", "SEER 14", "SEER", "14.0", true},
		{"fullwidth digits", "Floor Area: ２４０２", FieldFloorArea, "2402.0", true},
		{"no match", "no numbers in here", FieldFloorArea, "", false},
		{"no tonnage", "Floor Area: 2,402 sq ft", FieldTonnage, "", false},
		{"unknown field", "ach50: 7", "ach50", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractField(tt.text, tt.field)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractField_SkipsUnparseableMatch(t *testing.T) {
	// first pattern captures ",,," which is not a number; the bare
	// square-feet pattern then finds the real value
	got, ok := ExtractField("floor area ,,, 900 sq ft", FieldFloorArea)
	assert.True(t, ok)
	assert.Equal(t, "900.0", got)
}

func TestFields(t *testing.T) {
	for _, f := range Fields() {
		assert.NotEmpty(t, fieldPatterns[f], f)
	}
}
