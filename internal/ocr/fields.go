package ocr

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Field names recognized by ExtractField.
const (
	FieldFloorArea = "conditioned_floor_area"
	FieldTonnage   = "tonnage"
	FieldSEER      = "seer"
	FieldUFactor   = "u_factor"
	FieldSHGC      = "shgc"
)

// fieldPatterns lists, per field, the patterns tried in order. More
// specific phrasings come before bare-number heuristics; the first capture
// group holds the number.
var fieldPatterns = map[string][]*regexp.Regexp{
	FieldFloorArea: {
		regexp.MustCompile(`floor\s*area[:\s]*([0-9,]+\.?[0-9]*)`),
		regexp.MustCompile(`area[:\s]*([0-9,]+\.?[0-9]*)\s*sq\s*ft`),
		regexp.MustCompile(`([0-9,]+\.?[0-9]*)\s*sq\s*ft`),
	},
	FieldTonnage: {
		regexp.MustCompile(`([0-9]+\.?[0-9]*)\s*ton`),
		regexp.MustCompile(`tonnage[:\s]*([0-9]+\.?[0-9]*)`),
	},
	FieldSEER: {
		regexp.MustCompile(`seer[:\s]*([0-9]+\.?[0-9]*)`),
		regexp.MustCompile(`([0-9]+\.?[0-9]*)\s*seer`),
	},
	FieldUFactor: {
		regexp.MustCompile(`u[:\s]*([0-9]+\.?[0-9]*)`),
		regexp.MustCompile(`u-factor[:\s]*([0-9]+\.?[0-9]*)`),
	},
	FieldSHGC: {
		regexp.MustCompile(`shgc[:\s]*([0-9]+\.?[0-9]*)`),
		regexp.MustCompile(`solar\s*heat\s*gain[:\s]*([0-9]+\.?[0-9]*)`),
	},
}

// Fields returns the recognized field names.
func Fields() []string {
	return []string{FieldFloorArea, FieldTonnage, FieldSEER, FieldUFactor, FieldSHGC}
}

// ExtractField returns the first number found for field in text, formatted
// as a decimal with at least one fractional digit ("2402.0"). Unknown
// fields and texts without a parseable match report false.
func ExtractField(text, field string) (string, bool) {
	v, ok := ExtractFieldValue(text, field)
	if !ok {
		return "", false
	}
	return formatDecimal(v), true
}

// ExtractFieldValue is ExtractField returning the parsed number.
func ExtractFieldValue(text, field string) (float64, bool) {
	patterns := fieldPatterns[strings.ToLower(field)]
	if len(patterns) == 0 {
		return 0, false
	}

	haystack := strings.ToLower(norm.NFKC.String(text))
	for _, re := range patterns {
		m := re.FindStringSubmatch(haystack)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		return v, true
	}
	return 0, false
}

func formatDecimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
