package ocr

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	name  string
	text  string
	conf  float64
	calls int
}

func (s *stubEngine) Name() string { return s.name }

func (s *stubEngine) Extract(context.Context, string) (string, float64) {
	s.calls++
	return s.text, s.conf
}

var confidenceGrid = []float64{0, 0.1, 0.3, 0.59, 0.6, 0.61, 0.75, 0.9, 1}

func TestSelect_AcceptsAWhenTrusted(t *testing.T) {
	const th = 0.6
	for _, a := range confidenceGrid {
		for _, b := range confidenceGrid {
			if a < th {
				continue
			}
			res := Select("a text", a, "b text", b, th)
			assert.Equal(t, EngineA, res.Engine, "a=%v b=%v", a, b)
			assert.True(t, res.Accepted)
			assert.Equal(t, "a text", res.Text)
		}
	}
}

func TestSelect_FallsBackToTrustedB(t *testing.T) {
	const th = 0.6
	for _, a := range confidenceGrid {
		for _, b := range confidenceGrid {
			if a >= th || b < th {
				continue
			}
			res := Select("a text", a, "b text", b, th)
			assert.Equal(t, EngineB, res.Engine, "a=%v b=%v", a, b)
			assert.True(t, res.Accepted)
			assert.InDelta(t, b, res.Confidence, 1e-12)
		}
	}
}

func TestSelect_BestEffortBelowThreshold(t *testing.T) {
	const th = 0.6
	for _, a := range confidenceGrid {
		for _, b := range confidenceGrid {
			if a >= th || b >= th {
				continue
			}
			res := Select("a text", a, "b text", b, th)
			assert.False(t, res.Accepted, "a=%v b=%v", a, b)
			if a >= b {
				assert.Equal(t, EngineA, res.Engine, "a=%v b=%v", a, b)
			} else {
				assert.Equal(t, EngineB, res.Engine, "a=%v b=%v", a, b)
			}
		}
	}
}

func TestSelect_EmptyTextIsNotTrusted(t *testing.T) {
	res := Select("", 0.95, "b text", 0.7, 0.6)
	assert.Equal(t, EngineB, res.Engine)
	assert.True(t, res.Accepted)

	res = Select("", 0.95, "", 0.7, 0.6)
	assert.Equal(t, EngineA, res.Engine)
}

func writeFile(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte("image"), 0o600))
	return p
}

func TestMultiEngine_SkipsBWhenATrusted(t *testing.T) {
	a := &stubEngine{name: EngineA, text: "floor area: 2402", conf: 0.8}
	b := &stubEngine{name: EngineB, text: "other", conf: 0.99}
	m := NewMultiEngine(a, b, 0.6, nil)

	res := m.Extract(context.Background(), writeFile(t, "plan.png"))
	assert.Equal(t, Result{Text: "floor area: 2402", Confidence: 0.8, Engine: EngineA, Accepted: true}, res)
	assert.Equal(t, 1, a.calls)
	assert.Zero(t, b.calls)
}

func TestMultiEngine_UsesBWhenALow(t *testing.T) {
	a := &stubEngine{name: EngineA, text: "fl00r", conf: 0.3}
	b := &stubEngine{name: EngineB, text: "floor", conf: 0.7}
	m := NewMultiEngine(a, b, 0.6, nil)

	res := m.Extract(context.Background(), writeFile(t, "plan.png"))
	assert.Equal(t, EngineB, res.Engine)
	assert.True(t, res.Accepted)
	assert.Equal(t, 1, b.calls)
}

func TestMultiEngine_MissingImage(t *testing.T) {
	a := &stubEngine{name: EngineA, conf: 1, text: "x"}
	b := &stubEngine{name: EngineB}
	m := NewMultiEngine(a, b, 0.6, nil)

	res := m.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	assert.Equal(t, Result{Engine: EngineNone}, res)
	assert.Zero(t, a.calls)
	assert.Zero(t, b.calls)
}

func TestMultiEngine_UnreadablePDF(t *testing.T) {
	a := &stubEngine{name: EngineA, conf: 1, text: "x"}
	m := NewMultiEngine(a, &stubEngine{name: EngineB}, 0.6, nil)

	res := m.Extract(context.Background(), writeFile(t, "plan.pdf"))
	assert.Equal(t, EngineNone, res.Engine)
	assert.Zero(t, a.calls)
}

func TestNewExtractor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RegionBackend = BackendNone
	m := NewExtractor(cfg, nil)
	assert.InDelta(t, DefaultThreshold, m.Threshold(), 1e-12)
}
