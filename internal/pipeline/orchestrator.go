// Package pipeline sequences duplicate detection, default fill, floor-plan
// extraction and downstream delivery for each record, alone or in batches.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/lotgate/internal/archive"
	"github.com/MeKo-Tech/lotgate/internal/dedup"
	"github.com/MeKo-Tech/lotgate/internal/downstream"
	"github.com/MeKo-Tech/lotgate/internal/ocr"
	"github.com/MeKo-Tech/lotgate/internal/quality"
	"github.com/MeKo-Tech/lotgate/internal/record"
	"github.com/MeKo-Tech/lotgate/internal/report"
	"github.com/MeKo-Tech/lotgate/internal/utils"
)

// Extractor turns a floor-plan image into text with a confidence verdict.
type Extractor interface {
	Extract(ctx context.Context, path string) ocr.Result
}

// Deps are the collaborators an Orchestrator works with. Archive, Log and
// Progress are optional.
type Deps struct {
	Extractor  Extractor
	Detector   *dedup.Detector
	Quality    *quality.Indicator
	Downstream downstream.Factory
	Archive    *archive.Manager
	Log        *report.ProcessingLog
	Progress   ProgressCallback
	Logger     *slog.Logger
}

// Orchestrator runs records through the pipeline. It is safe for
// concurrent use; each record gets its own downstream session.
type Orchestrator struct {
	opts      Options
	extractor Extractor
	detector  *dedup.Detector
	quality   *quality.Indicator
	sessions  downstream.Factory
	archive   *archive.Manager
	log       *report.ProcessingLog
	progress  ProgressCallback
	logger    *slog.Logger

	running       atomic.Bool
	stopRequested atomic.Bool
	inFlight      atomic.Int64
	now      func() time.Time
}

// New validates deps and builds an orchestrator.
func New(opts Options, deps Deps) (*Orchestrator, error) {
	if deps.Extractor == nil {
		return nil, errors.New("pipeline: extractor is required")
	}
	if deps.Downstream == nil {
		return nil, errors.New("pipeline: downstream factory is required")
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	detector := deps.Detector
	if detector == nil {
		detector = dedup.NewWithStore(context.Background(), false, nil, logger)
	}
	q := deps.Quality
	if q == nil {
		q = quality.New()
	}
	progress := deps.Progress
	if progress == nil {
		progress = NoOpProgressCallback{}
	}

	return &Orchestrator{
		opts:      opts,
		extractor: deps.Extractor,
		detector:  detector,
		quality:   q,
		sessions:  deps.Downstream,
		archive:   deps.Archive,
		log:       deps.Log,
		progress:  progress,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Options returns the processing options in effect.
func (o *Orchestrator) Options() Options { return o.opts }

// Quality returns the indicator the orchestrator writes to.
func (o *Orchestrator) Quality() *quality.Indicator { return o.quality }

// SetProgress replaces the batch progress callback.
func (o *Orchestrator) SetProgress(cb ProgressCallback) {
	if cb == nil {
		cb = NoOpProgressCallback{}
	}
	o.progress = cb
}

// Stop asks a running batch to submit no further records. In-flight
// records are not interrupted. A stop requested while no batch runs
// applies to the next RunBatch, which then submits nothing.
func (o *Orchestrator) Stop() {
	o.stopRequested.Store(true)
	if o.running.CompareAndSwap(true, false) {
		o.logger.Info("stop requested, finishing in-flight records")
		return
	}
	o.logger.Info("stop requested before batch start")
}

// Running reports whether a batch is in progress.
func (o *Orchestrator) Running() bool { return o.running.Load() }

// InFlight returns the number of records currently being processed.
func (o *Orchestrator) InFlight() int { return int(o.inFlight.Load()) }

// source is one unit of work: a record file, or an already parsed record.
type source struct {
	path string
	rec  record.Record
}

func (s source) lotHint() string {
	if s.rec != nil {
		return s.rec.LotID()
	}
	return record.LotIDFromFilename(s.path)
}

// ProcessFile runs one record file through the pipeline under the
// sequential timeout.
func (o *Orchestrator) ProcessFile(ctx context.Context, path string) Outcome {
	return o.process(ctx, source{path: path}, o.opts.SequentialTimeout)
}

// ProcessRecord runs an already validated record through the pipeline
// under the sequential timeout. The orchestrator takes ownership of rec.
func (o *Orchestrator) ProcessRecord(ctx context.Context, rec record.Record) Outcome {
	return o.process(ctx, source{rec: rec}, o.opts.SequentialTimeout)
}

// RejectRecord commits a FAILED outcome for input that never became a
// valid record, such as a submitted document without a lot id.
func (o *Orchestrator) RejectRecord(ctx context.Context, lotID string, err error) Outcome {
	out := Outcome{LotID: lotID, StartTime: o.now()}.fail(err.Error(), err)
	o.quality.SetDataQuality(quality.Red, fmt.Sprintf("%s: Invalid input record", lotID))
	o.logger.Error("record rejected", "lot_id", lotID, "error", err)
	return o.commit(ctx, out)
}

// process runs src with a deadline and commits exactly one outcome. Work
// still running after the deadline is abandoned: its result is discarded
// and its quality writes are dropped.
func (o *Orchestrator) process(ctx context.Context, src source, timeout time.Duration) Outcome {
	o.inFlight.Add(1)
	recordsInFlight.Inc()
	defer func() {
		o.inFlight.Add(-1)
		recordsInFlight.Dec()
	}()

	sig := newLotSignals(o.quality)
	defer sig.release()

	if timeout <= 0 {
		return o.commit(ctx, o.run(ctx, src, sig))
	}

	start := o.now()
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan Outcome, 1)
	go func() { done <- o.run(rctx, src, sig) }()

	select {
	case out := <-done:
		return o.commit(ctx, out)
	case <-rctx.Done():
		sig.release()
		out := Outcome{LotID: src.lotHint(), InputFile: src.path, StartTime: start}
		if ctx.Err() != nil && !errors.Is(rctx.Err(), context.DeadlineExceeded) {
			out = out.fail(ReasonCancelled, ctx.Err())
		} else {
			timeoutsTotal.Inc()
			out = out.fail(ReasonTimeout, ErrTimeout)
			o.quality.SetSystemHealth(quality.Red, fmt.Sprintf("%s: Processing timed out after %s", out.LotID, timeout))
		}
		o.logger.Error("record abandoned", "lot_id", out.LotID, "reason", out.Reason, "timeout", timeout)
		return o.commit(ctx, out)
	}
}

// run performs the pipeline steps up to delivery. It never commits.
func (o *Orchestrator) run(ctx context.Context, src source, sig *lotSignals) Outcome {
	out := Outcome{InputFile: src.path, StartTime: o.now()}

	rec := src.rec
	if rec == nil {
		loaded, err := record.LoadFile(src.path)
		if err != nil {
			out.LotID = record.LotIDFromFilename(src.path)
			sig.dataQuality(quality.Red, fmt.Sprintf("%s: Invalid input record", out.LotID))
			o.logger.Error("record rejected", "lot_id", out.LotID, "path", src.path, "error", err)
			return out.fail(err.Error(), err)
		}
		rec = loaded
	}

	lotID := rec.LotID()
	out.LotID = lotID
	sig.currentLot(lotID)
	sig.dataQuality(quality.Green, "Processing "+lotID)
	o.logger.Info("processing record", "lot_id", lotID)

	fp, err := dedup.Compute(rec)
	if err != nil {
		o.logger.Warn("fingerprint incomplete", "lot_id", lotID, "error", err)
	}
	out.fingerprints = fp
	if o.detector.Check(fp) {
		sig.dataQuality(quality.Yellow, lotID+": Duplicate detected, skipping")
		o.logger.Info("duplicate record skipped", "lot_id", lotID)
		out.Duplicate = true
		out.Status = quality.StatusSuccess
		out.Reason = ReasonDuplicate
		return out
	}

	if warnings := record.FillDefaults(rec); len(warnings) > 0 {
		sig.dataQuality(quality.Yellow, lotID+": Using defaults for missing data")
		for _, w := range warnings {
			o.logger.Warn(w, "lot_id", lotID)
		}
		out.Warnings = append(out.Warnings, warnings...)
	}

	floorPlan := rec.FloorPlanImage()
	if floorPlan != "" && utils.FileExists(floorPlan) {
		res := o.extractor.Extract(ctx, floorPlan)
		out.OCR = &res
		ocrConfidence.WithLabelValues(res.Engine).Observe(res.Confidence)
		if res.Accepted {
			out.Recovered = ocr.Enrich(rec, res.Text, o.logger)
		} else {
			sig.dataQuality(quality.Yellow, lotID+": OCR failed or low confidence")
		}
	} else if floorPlan != "" {
		o.logger.Warn("floor plan image not found", "lot_id", lotID, "path", floorPlan)
	}

	if err := ctx.Err(); err != nil {
		return out.fail(err.Error(), err)
	}
	return o.deliver(ctx, rec, floorPlan, out, sig)
}

// deliver hands the completed record to a fresh downstream session.
func (o *Orchestrator) deliver(ctx context.Context, rec record.Record, floorPlan string, out Outcome, sig *lotSignals) Outcome {
	lotID := out.LotID
	session := o.sessions()
	defer func() {
		if err := session.Disconnect(); err != nil {
			o.logger.Warn("downstream disconnect failed", "lot_id", lotID, "error", err)
		}
	}()

	if err := session.Connect(ctx); err != nil {
		sig.systemHealth(quality.Red, lotID+": Failed to connect to EnergyGauge")
		return out.fail(fmt.Sprintf("connect: %v", err), err)
	}

	template := o.opts.TemplatePath()
	if err := session.OpenTemplate(ctx, template); err != nil {
		sig.systemHealth(quality.Red, lotID+": Failed to open template")
		return out.fail(fmt.Sprintf("open template %s: %v", template, err), err)
	}

	if errs := setData(ctx, session, rec); len(errs) > 0 {
		sig.systemHealth(quality.Yellow, lotID+": Some data could not be set")
		for _, err := range errs {
			o.logger.Warn("downstream field update failed", "lot_id", lotID, "error", err)
			out.Warnings = append(out.Warnings, err.Error())
		}
	}

	if err := session.Calculate(ctx); err != nil {
		sig.systemHealth(quality.Yellow, lotID+": Calculation may have failed")
		o.logger.Warn("downstream calculation failed", "lot_id", lotID, "error", err)
		out.Warnings = append(out.Warnings, "calculate: "+err.Error())
	}

	outputDir := filepath.Join(o.opts.OutputsDir, safeName(lotID))
	projectPath := filepath.Join(outputDir, safeName(lotID)+".egpj")
	reportPath := filepath.Join(outputDir, safeName(lotID)+"_report.txt")

	if err := session.SaveProject(ctx, projectPath); err != nil {
		sig.systemHealth(quality.Red, lotID+": Failed to save project")
		return out.fail(fmt.Sprintf("save project: %v", err), err)
	}
	out.ProjectPath = projectPath

	if err := session.ExportReport(ctx, reportPath); err != nil {
		sig.systemHealth(quality.Yellow, lotID+": Report export failed")
		o.logger.Warn("downstream report export failed", "lot_id", lotID, "error", err)
		out.Warnings = append(out.Warnings, "export report: "+err.Error())
	} else {
		out.ReportPath = reportPath
	}

	if o.archive != nil && sig.active() {
		if _, err := o.archive.ArchiveInput(lotID, rec, floorPlan); err != nil {
			o.logger.Error("archiving input failed", "lot_id", lotID, "error", err)
		}
		if _, err := o.archive.ArchiveOutput(lotID, outputDir); err != nil {
			o.logger.Error("archiving output failed", "lot_id", lotID, "error", err)
		}
	}

	out.Status = quality.StatusSuccess
	o.logger.Info("record processed", "lot_id", lotID, "project", projectPath)
	return out
}

// setData pushes each present section; windows only when non-empty.
func setData(ctx context.Context, session downstream.Collaborator, rec record.Record) []error {
	var errs []error
	if _, ok := rec[record.KeyProjectInfo]; ok {
		if err := session.SetProjectInfo(ctx, rec.Section(record.KeyProjectInfo)); err != nil {
			errs = append(errs, fmt.Errorf("set project info: %w", err))
		}
	}
	if _, ok := rec[record.KeyBuildingData]; ok {
		building := rec.Section(record.KeyBuildingData)
		if err := session.SetBuildingData(ctx, building); err != nil {
			errs = append(errs, fmt.Errorf("set building data: %w", err))
		}
		if windows, _ := building["windows"].(map[string]any); len(windows) > 0 {
			if err := session.SetWindows(ctx, windows); err != nil {
				errs = append(errs, fmt.Errorf("set windows: %w", err))
			}
		}
	}
	if _, ok := rec[record.KeyHVAC]; ok {
		if err := session.SetHVACSystem(ctx, rec.Section(record.KeyHVAC)); err != nil {
			errs = append(errs, fmt.Errorf("set hvac system: %w", err))
		}
	}
	return errs
}

// commit records the final outcome exactly once: fingerprints for fresh
// successes, the outcome log, the processing log and metrics.
func (o *Orchestrator) commit(ctx context.Context, out Outcome) Outcome {
	out.EndTime = o.now()
	if out.StartTime.IsZero() {
		out.StartTime = out.EndTime
	}

	if out.Succeeded() && !out.Duplicate {
		o.detector.Mark(context.WithoutCancel(ctx), out.fingerprints)
	}
	o.quality.AddProcessedLot(out.LotID, out.Status, out.Reason)

	if o.log != nil {
		entry := report.LogEntry{
			Timestamp: out.EndTime,
			LotID:     out.LotID,
			Status:    string(out.Status),
			Notes:     strings.Join(out.Warnings, "; "),
		}
		if out.Duplicate {
			entry.Notes = "Duplicate detected, skipping"
		}
		if !out.Succeeded() {
			entry.Errors = out.Reason
		}
		if err := o.log.Append(entry); err != nil {
			o.logger.Error("writing processing log failed", "lot_id", out.LotID, "error", err)
		}
	}

	recordsTotal.WithLabelValues(string(out.Status)).Inc()
	recordDuration.Observe(out.Duration().Seconds())
	if out.Duplicate {
		duplicatesTotal.Inc()
	}
	if !out.Succeeded() {
		o.logger.Error("record failed", "lot_id", out.LotID, "reason", out.Reason)
	}
	return out
}

// safeName keeps a lot id usable as a single path element.
func safeName(lotID string) string {
	name := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', 0:
			return '_'
		}
		return r
	}, lotID)
	if name == "" || name == "." || name == ".." {
		return "_"
	}
	return name
}
