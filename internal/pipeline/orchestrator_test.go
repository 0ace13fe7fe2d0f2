package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/lotgate/internal/archive"
	"github.com/MeKo-Tech/lotgate/internal/dedup"
	"github.com/MeKo-Tech/lotgate/internal/downstream"
	"github.com/MeKo-Tech/lotgate/internal/ocr"
	"github.com/MeKo-Tech/lotgate/internal/quality"
	"github.com/MeKo-Tech/lotgate/internal/record"
	"github.com/MeKo-Tech/lotgate/internal/report"
)

// stubExtractor returns a fixed result, optionally blocking until the
// record's context ends.
type stubExtractor struct {
	result ocr.Result
	block  bool
	calls  atomic.Int32
}

func (s *stubExtractor) Extract(ctx context.Context, _ string) ocr.Result {
	s.calls.Add(1)
	if s.block {
		select {
		case <-ctx.Done():
		case <-time.After(10 * time.Second):
		}
		return ocr.Result{Engine: ocr.EngineNone}
	}
	return s.result
}

// scriptedSession wraps the simulator and fails selected operations.
type scriptedSession struct {
	*downstream.Simulator
	failConnect bool
	failSet     bool
	failSave    map[string]bool
}

func (s *scriptedSession) Connect(ctx context.Context) error {
	if s.failConnect {
		return errors.New("tool not installed")
	}
	return s.Simulator.Connect(ctx)
}

func (s *scriptedSession) SetProjectInfo(ctx context.Context, info map[string]any) error {
	if s.failSet {
		return errors.New("field rejected")
	}
	return s.Simulator.SetProjectInfo(ctx, info)
}

func (s *scriptedSession) SaveProject(ctx context.Context, path string) error {
	if s.failSave[strings.TrimSuffix(filepath.Base(path), ".egpj")] {
		return errors.New("disk full")
	}
	return s.Simulator.SaveProject(ctx, path)
}

type harness struct {
	dir      string
	inputs   string
	orch     *Orchestrator
	quality  *quality.Indicator
	detector *dedup.Detector
	log      *report.ProcessingLog
	archive  *archive.Manager
}

func newHarness(t testing.TB, opts Options, ext Extractor, factory downstream.Factory) *harness {
	t.Helper()
	dir := t.TempDir()

	opts.TemplatesDir = filepath.Join(dir, "templates")
	opts.OutputsDir = filepath.Join(dir, "outputs")
	require.NoError(t, os.MkdirAll(opts.TemplatesDir, 0o750))
	require.NoError(t, os.WriteFile(opts.TemplatePath(), []byte("template"), 0o600))

	ctx := context.Background()
	det := dedup.New(ctx, dedup.Options{Enabled: true, Store: dedup.StoreJSON, Path: filepath.Join(dir, "archive", "processed_hashes.json")}, nil)
	log, err := report.OpenProcessingLog(filepath.Join(dir, "archive", "processing_log.csv"))
	require.NoError(t, err)
	arch, err := archive.NewManager(filepath.Join(dir, "archive"), nil)
	require.NoError(t, err)

	if ext == nil {
		ext = &stubExtractor{}
	}
	if factory == nil {
		factory = downstream.SimulatorFactory(nil)
	}
	q := quality.New()
	orch, err := New(opts, Deps{
		Extractor:  ext,
		Detector:   det,
		Quality:    q,
		Downstream: factory,
		Archive:    arch,
		Log:        log,
	})
	require.NoError(t, err)

	inputs := filepath.Join(dir, "inputs")
	require.NoError(t, os.MkdirAll(inputs, 0o750))
	return &harness{dir: dir, inputs: inputs, orch: orch, quality: q, detector: det, log: log, archive: arch}
}

// writeRecord stores a complete record for lotID whose content differs by
// floor area, so distinct lots never collide on fingerprints.
func (h *harness) writeRecord(t testing.TB, lotID string, area float64, mutate func(record.Record)) string {
	t.Helper()
	rec := record.Sample()
	rec[record.KeyLotID] = lotID
	delete(rec, record.KeyFloorPlanImage)
	rec.Section(record.KeyBuildingData)["conditioned_floor_area"] = area
	if mutate != nil {
		mutate(rec)
	}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	path := filepath.Join(h.inputs, lotID+"_inputs.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func (h *harness) writeRaw(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.inputs, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func (h *harness) logRows(t *testing.T) [][]string {
	t.Helper()
	rows, err := report.ReadProcessingLog(h.log.Path())
	require.NoError(t, err)
	return rows
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(DefaultOptions(), Deps{Downstream: downstream.SimulatorFactory(nil)})
	require.Error(t, err)
	_, err = New(DefaultOptions(), Deps{Extractor: &stubExtractor{}})
	require.Error(t, err)

	o, err := New(DefaultOptions(), Deps{Extractor: &stubExtractor{}, Downstream: downstream.SimulatorFactory(nil)})
	require.NoError(t, err)
	assert.NotNil(t, o.Quality())
}

func TestProcessFile_NoImageFreshRun(t *testing.T) {
	ext := &stubExtractor{}
	h := newHarness(t, DefaultOptions(), ext, nil)
	path := h.writeRecord(t, "Lot101", 2402, nil)

	out := h.orch.ProcessFile(context.Background(), path)

	assert.Equal(t, quality.StatusSuccess, out.Status, out.Reason)
	assert.Equal(t, "Lot101", out.LotID)
	assert.False(t, out.Duplicate)
	assert.Nil(t, out.OCR)
	assert.Zero(t, ext.calls.Load())
	assert.Empty(t, out.Warnings)

	snap := h.quality.Snapshot()
	assert.Equal(t, quality.Green, snap.DataQuality)
	assert.Equal(t, "Processing Lot101", snap.DataQualityMessage)
	assert.Equal(t, 1, snap.Succeeded)

	assert.FileExists(t, out.ProjectPath)
	assert.FileExists(t, out.ReportPath)
	assert.Equal(t, filepath.Join(h.dir, "outputs", "Lot101", "Lot101.egpj"), out.ProjectPath)
	assert.Equal(t, 1, h.detector.Len())

	rows := h.logRows(t)
	require.Len(t, rows, 1)
	assert.Equal(t, "Lot101", rows[0][1])
	assert.Equal(t, "SUCCESS", rows[0][2])

	archived, err := filepath.Glob(filepath.Join(h.archive.Dir, "Lot101_*_input.json"))
	require.NoError(t, err)
	assert.Len(t, archived, 1)
	zips, err := filepath.Glob(filepath.Join(h.archive.Dir, "Lot101_*_output.zip"))
	require.NoError(t, err)
	assert.Len(t, zips, 1)
}

func TestProcessFile_SameRecordTwice(t *testing.T) {
	h := newHarness(t, DefaultOptions(), nil, nil)
	path := h.writeRecord(t, "Lot7", 1800, nil)

	first := h.orch.ProcessFile(context.Background(), path)
	require.Equal(t, quality.StatusSuccess, first.Status)
	require.False(t, first.Duplicate)
	marked := h.detector.Len()

	second := h.orch.ProcessFile(context.Background(), path)
	assert.Equal(t, quality.StatusSuccess, second.Status)
	assert.True(t, second.Duplicate)
	assert.Equal(t, ReasonDuplicate, second.Reason)
	assert.Empty(t, second.ProjectPath)

	snap := h.quality.Snapshot()
	assert.Equal(t, quality.Yellow, snap.DataQuality)
	assert.Equal(t, "Lot7: Duplicate detected, skipping", snap.DataQualityMessage)
	assert.Equal(t, 2, snap.Succeeded)
	assert.Equal(t, marked, h.detector.Len())
	assert.Len(t, h.logRows(t), 2)
}

func TestProcessFile_RenamedLotIsDuplicate(t *testing.T) {
	h := newHarness(t, DefaultOptions(), nil, nil)
	require.True(t, h.orch.ProcessFile(context.Background(), h.writeRecord(t, "LotA", 1500, nil)).Succeeded())

	out := h.orch.ProcessFile(context.Background(), h.writeRecord(t, "LotB", 1500, nil))
	assert.True(t, out.Duplicate)
}

func TestProcessFile_DefaultsRaiseDataQuality(t *testing.T) {
	h := newHarness(t, DefaultOptions(), nil, nil)
	path := h.writeRaw(t, "Lot5_inputs.json", `{"lot_id": "Lot5"}`)

	out := h.orch.ProcessFile(context.Background(), path)
	require.Equal(t, quality.StatusSuccess, out.Status, out.Reason)
	assert.Len(t, out.Warnings, 9)

	snap := h.quality.Snapshot()
	assert.Equal(t, quality.Yellow, snap.DataQuality)
	assert.Equal(t, "Lot5: Using defaults for missing data", snap.DataQualityMessage)
}

func TestProcessFile_InvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantLot string
		wantErr error
	}{
		{name: "not an object", file: "Lot8_inputs.json", content: `[1, 2]`, wantLot: "Lot8", wantErr: record.ErrNotObject},
		{name: "missing lot id", file: "Lot9_input.json", content: `{"hvac": {}}`, wantLot: "Lot9", wantErr: record.ErrMissingLotID},
		{name: "malformed json", file: "broken.json", content: `{"lot_id":`, wantLot: "broken"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, DefaultOptions(), nil, nil)
			out := h.orch.ProcessFile(context.Background(), h.writeRaw(t, tt.file, tt.content))

			assert.Equal(t, quality.StatusFailed, out.Status)
			assert.Equal(t, tt.wantLot, out.LotID)
			require.Error(t, out.Err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, out.Err, tt.wantErr)
			}
			assert.Equal(t, quality.Red, h.quality.Snapshot().DataQuality)
			assert.Zero(t, h.detector.Len())
			assert.Len(t, h.logRows(t), 1)
		})
	}
}

func TestProcessFile_OCRFillsMissingFields(t *testing.T) {
	ext := &stubExtractor{result: ocr.Result{
		Text:       "Floor Area: 2,402 sq ft\nAC 3.5 ton",
		Confidence: 0.9,
		Engine:     ocr.EngineA,
		Accepted:   true,
	}}
	h := newHarness(t, DefaultOptions(), ext, nil)
	plan := filepath.Join(h.dir, "plan.png")
	require.NoError(t, os.WriteFile(plan, []byte("not really a png"), 0o600))

	path := h.writeRecord(t, "Lot11", 0, func(r record.Record) {
		r[record.KeyFloorPlanImage] = plan
		r.Section(record.KeyHVAC)["system1"] = map[string]any{"tonnage": nil, "seer2": 15.0}
	})

	out := h.orch.ProcessFile(context.Background(), path)
	require.Equal(t, quality.StatusSuccess, out.Status, out.Reason)
	require.NotNil(t, out.OCR)
	assert.Equal(t, int32(1), ext.calls.Load())
	assert.Contains(t, out.Recovered, "building_data.conditioned_floor_area")
	assert.Contains(t, out.Recovered, "hvac.system1.tonnage")
	assert.Equal(t, quality.Green, h.quality.Snapshot().DataQuality)

	plans, err := filepath.Glob(filepath.Join(h.archive.Dir, "Lot11_*_floorplan.png"))
	require.NoError(t, err)
	assert.Len(t, plans, 1)

	archived, err := filepath.Glob(filepath.Join(h.archive.Dir, "Lot11_*_input.json"))
	require.NoError(t, err)
	require.Len(t, archived, 1)
	data, err := os.ReadFile(archived[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "2402")
}

func TestProcessFile_LowConfidenceOCR(t *testing.T) {
	ext := &stubExtractor{result: ocr.Result{Text: "smudge", Confidence: 0.2, Engine: ocr.EngineB}}
	h := newHarness(t, DefaultOptions(), ext, nil)
	plan := filepath.Join(h.dir, "plan.png")
	require.NoError(t, os.WriteFile(plan, []byte("png"), 0o600))

	path := h.writeRecord(t, "Lot12", 0, func(r record.Record) { r[record.KeyFloorPlanImage] = plan })
	out := h.orch.ProcessFile(context.Background(), path)

	assert.Equal(t, quality.StatusSuccess, out.Status)
	assert.Empty(t, out.Recovered)
	snap := h.quality.Snapshot()
	assert.Equal(t, quality.Yellow, snap.DataQuality)
	assert.Equal(t, "Lot12: OCR failed or low confidence", snap.DataQualityMessage)
}

func TestProcessFile_DownstreamSeverity(t *testing.T) {
	tests := []struct {
		name        string
		session     func() *scriptedSession
		wantStatus  quality.Status
		wantHealth  quality.Level
		wantMessage string
		wantMarked  bool
	}{
		{
			name:        "connect failure",
			session:     func() *scriptedSession { return &scriptedSession{failConnect: true} },
			wantStatus:  quality.StatusFailed,
			wantHealth:  quality.Red,
			wantMessage: "Lot20: Failed to connect to EnergyGauge",
		},
		{
			name:        "set data failure",
			session:     func() *scriptedSession { return &scriptedSession{failSet: true} },
			wantStatus:  quality.StatusSuccess,
			wantHealth:  quality.Yellow,
			wantMessage: "Lot20: Some data could not be set",
			wantMarked:  true,
		},
		{
			name:        "save failure",
			session:     func() *scriptedSession { return &scriptedSession{failSave: map[string]bool{"Lot20": true}} },
			wantStatus:  quality.StatusFailed,
			wantHealth:  quality.Red,
			wantMessage: "Lot20: Failed to save project",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			factory := func() downstream.Collaborator {
				s := tt.session()
				s.Simulator = downstream.NewSimulator(nil)
				return s
			}
			h := newHarness(t, DefaultOptions(), nil, factory)
			out := h.orch.ProcessFile(context.Background(), h.writeRecord(t, "Lot20", 2100, nil))

			assert.Equal(t, tt.wantStatus, out.Status)
			snap := h.quality.Snapshot()
			assert.Equal(t, tt.wantHealth, snap.SystemHealth)
			assert.Equal(t, tt.wantMessage, snap.SystemHealthMessage)
			assert.Equal(t, tt.wantMarked, h.detector.Len() > 0)
		})
	}
}

func TestProcessFile_MissingTemplateFails(t *testing.T) {
	h := newHarness(t, DefaultOptions(), nil, nil)
	require.NoError(t, os.Remove(h.orch.Options().TemplatePath()))

	out := h.orch.ProcessFile(context.Background(), h.writeRecord(t, "Lot21", 2100, nil))
	assert.Equal(t, quality.StatusFailed, out.Status)
	assert.Equal(t, "Lot21: Failed to open template", h.quality.Snapshot().SystemHealthMessage)
}

func TestProcessRecord_SequentialTimeout(t *testing.T) {
	opts := DefaultOptions()
	opts.SequentialTimeout = 50 * time.Millisecond
	h := newHarness(t, opts, &stubExtractor{block: true}, nil)
	plan := filepath.Join(h.dir, "plan.png")
	require.NoError(t, os.WriteFile(plan, []byte("png"), 0o600))

	rec := record.Sample()
	rec[record.KeyLotID] = "Slow1"
	rec[record.KeyFloorPlanImage] = plan

	out := h.orch.ProcessRecord(context.Background(), rec)
	assert.Equal(t, quality.StatusFailed, out.Status)
	assert.Equal(t, ReasonTimeout, out.Reason)
	assert.ErrorIs(t, out.Err, ErrTimeout)
	assert.Equal(t, "Slow1", out.LotID)
	assert.Zero(t, h.detector.Len())

	outcomes := h.quality.Outcomes()
	require.Len(t, outcomes, 1)
	assert.Equal(t, ReasonTimeout, outcomes[0].Reason)
}

func TestRejectRecord_CommitsFailedOutcome(t *testing.T) {
	h := newHarness(t, DefaultOptions(), nil, nil)

	out := h.orch.RejectRecord(context.Background(), "unknown", record.ErrMissingLotID)
	assert.Equal(t, quality.StatusFailed, out.Status)
	assert.ErrorIs(t, out.Err, record.ErrMissingLotID)
	assert.False(t, out.EndTime.IsZero())

	snap := h.quality.Snapshot()
	assert.Equal(t, quality.Red, snap.DataQuality)
	assert.Equal(t, "unknown: Invalid input record", snap.DataQualityMessage)
	require.Len(t, h.quality.Outcomes(), 1)
	assert.Equal(t, quality.StatusFailed, h.quality.Outcomes()[0].Status)
	assert.Zero(t, h.detector.Len())
	require.Len(t, h.logRows(t), 1)
}

func TestSafeName(t *testing.T) {
	assert.Equal(t, "Lot1", safeName("Lot1"))
	assert.Equal(t, "a_b_c", safeName("a/b\\c"))
	assert.Equal(t, "_", safeName(".."))
	assert.Equal(t, "_", safeName(""))
}
