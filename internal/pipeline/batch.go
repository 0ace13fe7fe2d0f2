package pipeline

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/lotgate/internal/quality"
)

// RunBatch processes the record files in paths, sequentially or on the
// bounded pool depending on Options.Parallel. Individual failures never
// stop the batch; Stop and ctx cancellation prevent further submissions.
// The end-of-batch health is written to the quality indicator.
func (o *Orchestrator) RunBatch(ctx context.Context, paths []string) *BatchResult {
	o.running.Store(true)
	if o.stopRequested.Load() {
		o.running.Store(false)
	}
	defer func() {
		o.running.Store(false)
		o.stopRequested.Store(false)
	}()

	res := &BatchResult{
		Total:    len(paths),
		Workers:  1,
		Parallel: o.opts.Parallel,
	}
	if o.opts.Parallel {
		res.Workers = o.opts.Workers
	}

	o.logger.Info("batch started", "records", len(paths), "parallel", res.Parallel, "workers", res.Workers)
	o.progress.OnStart(len(paths))
	start := o.now()

	if o.opts.Parallel {
		res.Outcomes, res.Stopped = o.runParallel(ctx, paths)
	} else {
		res.Outcomes, res.Stopped = o.runSequential(ctx, paths)
	}
	res.Duration = o.now().Sub(start)

	res.Health = o.finishBatch(res)
	o.progress.OnComplete(res)
	o.logger.Info("batch finished",
		"processed", len(res.Outcomes),
		"succeeded", res.Succeeded(),
		"failed", res.Failed(),
		"stopped", res.Stopped,
		"duration", res.Duration)
	return res
}

func (o *Orchestrator) runSequential(ctx context.Context, paths []string) ([]Outcome, bool) {
	outcomes := make([]Outcome, 0, len(paths))
	for _, p := range paths {
		if !o.running.Load() || ctx.Err() != nil {
			return outcomes, true
		}
		out := o.process(ctx, source{path: p}, o.opts.SequentialTimeout)
		outcomes = append(outcomes, out)
		o.progress.OnLot(len(outcomes), len(paths), out)
	}
	return outcomes, false
}

// runParallel keeps at most Workers records in flight. Outcomes are
// collected in completion order.
func (o *Orchestrator) runParallel(ctx context.Context, paths []string) ([]Outcome, bool) {
	var (
		mu       sync.Mutex
		outcomes = make([]Outcome, 0, len(paths))
		stopped  bool
		g        errgroup.Group
	)
	g.SetLimit(o.opts.Workers)

	for _, p := range paths {
		if !o.running.Load() || ctx.Err() != nil {
			stopped = true
			break
		}
		g.Go(func() error {
			out := o.process(ctx, source{path: p}, o.opts.Timeout)
			mu.Lock()
			outcomes = append(outcomes, out)
			done := len(outcomes)
			mu.Unlock()
			o.progress.OnLot(done, len(paths), out)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes, stopped
}

// finishBatch leaves system health in a terminal state for the batch.
func (o *Orchestrator) finishBatch(res *BatchResult) quality.Level {
	failed := res.Failed()
	level := quality.BatchHealth(len(res.Outcomes), failed)

	var msg string
	switch {
	case len(res.Outcomes) == 0 && res.Stopped:
		msg = "Processing stopped before any lot ran"
	case len(res.Outcomes) == 0:
		msg = "No lots to process"
	case level == quality.Green:
		msg = "All lots processed successfully"
	case level == quality.Red:
		msg = "All lots failed processing"
	default:
		msg = fmt.Sprintf("%d lots failed processing", failed)
	}
	if res.Stopped {
		o.logger.Warn("batch stopped early", "processed", len(res.Outcomes), "total", res.Total, "error", ErrStopped)
	}

	o.quality.SetSystemHealth(level, msg)
	o.quality.SetCurrentLot("")
	return level
}
