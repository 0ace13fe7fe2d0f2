// Package record loads, validates and completes lot input records.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Top-level record keys.
const (
	KeyLotID          = "lot_id"
	KeyProjectInfo    = "project_info"
	KeyBuildingData   = "building_data"
	KeyHVAC           = "hvac"
	KeyDuct           = "duct"
	KeyFloorPlanImage = "floor_plan_image"
)

var (
	// ErrNotObject is returned when the record document is not a JSON object.
	ErrNotObject = errors.New("record is not a JSON object")
	// ErrMissingLotID is returned when the record has no lot_id.
	ErrMissingLotID = errors.New("record is missing lot_id")
)

// ValidationError reports a schema violation in a record.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("invalid record: %v", e.Err)
	}
	return fmt.Sprintf("invalid record %s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Record is one lot's input document. Nested sections are plain maps so
// unknown keys survive a round trip to the downstream tool.
type Record map[string]any

// Parse decodes and validates a record document.
func Parse(data []byte) (Record, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	return FromValue(doc)
}

// FromValue validates an already decoded JSON value as a record.
func FromValue(doc any) (Record, error) {
	m, ok := doc.(map[string]any)
	if !ok {
		return nil, ErrNotObject
	}
	if _, ok := m[KeyLotID]; !ok {
		return nil, ErrMissingLotID
	}
	if err := Validate(m); err != nil {
		return nil, err
	}
	return Record(m), nil
}

// LoadFile reads and validates the record stored at path.
func LoadFile(path string) (Record, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from input discovery
	if err != nil {
		return nil, fmt.Errorf("read record %s: %w", path, err)
	}
	rec, err := Parse(data)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Path = path
			return nil, verr
		}
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rec, nil
}

// LotID returns the record identifier.
func (r Record) LotID() string {
	switch v := r[KeyLotID].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// FloorPlanImage returns the floor-plan image path, or "" when none is set.
func (r Record) FloorPlanImage() string {
	s, _ := r[KeyFloorPlanImage].(string)
	return s
}

// Section returns the named top-level object, or nil if absent or not an object.
func (r Record) Section(name string) map[string]any {
	m, _ := r[name].(map[string]any)
	return m
}

// Clone returns a deep copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	return Record(deepCopyMap(r))
}

// Content returns the canonical serialization used for content
// fingerprints: the record without lot_id and floor_plan_image, with
// object keys sorted.
func (r Record) Content() ([]byte, error) {
	trimmed := make(map[string]any, len(r))
	for k, v := range r {
		if isContentExcluded(k) {
			continue
		}
		trimmed[k] = v
	}
	// encoding/json writes map keys in sorted order at every depth.
	b, err := json.Marshal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("canonicalize record: %w", err)
	}
	return b, nil
}

// ContentExcludedKeys lists the keys left out of the content fingerprint.
var ContentExcludedKeys = []string{KeyLotID, KeyFloorPlanImage}

func isContentExcluded(key string) bool {
	for _, k := range ContentExcludedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// LotIDFromFilename derives a lot id from an input file name by dropping
// the extension and a trailing "_inputs" or "_input".
func LotIDFromFilename(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	for _, suffix := range []string{"_inputs", "_input"} {
		if strings.HasSuffix(stem, suffix) && len(stem) > len(suffix) {
			return strings.TrimSuffix(stem, suffix)
		}
	}
	return stem
}

// Truthy reports whether v counts as a present value: non-nil, non-zero
// numbers, non-empty strings and collections, and true.
func Truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case int:
		return t != 0
	case string:
		return t != ""
	case map[string]any:
		return len(t) > 0
	case []any:
		return len(t) > 0
	default:
		return true
	}
}

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopyMap(t)
	case Record:
		return deepCopyMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
