// Package dedup decides whether a record has already been processed, using
// a persisted set of image and content fingerprints.
package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/MeKo-Tech/lotgate/internal/record"
	"github.com/MeKo-Tech/lotgate/internal/utils"
)

// Store kinds accepted in Options.
const (
	StoreJSON   = "json"
	StoreSQLite = "sqlite"
)

// Options configures a Detector.
type Options struct {
	Enabled bool
	Store   string
	Path    string
}

// Fingerprints are the digests computed for one record. Image is empty when
// the record has no resolvable floor-plan image.
type Fingerprints struct {
	Image   string
	Content string
}

// Hashes returns the non-empty fingerprints.
func (f Fingerprints) Hashes() []string {
	out := make([]string, 0, 2)
	if f.Image != "" {
		out = append(out, f.Image)
	}
	if f.Content != "" {
		out = append(out, f.Content)
	}
	return out
}

// hashFile is replaced in tests.
var hashFile = utils.HashFile

// Compute fingerprints a record: the SHA-256 of its floor-plan file when
// that file exists, and the SHA-256 of its canonical content. A floor-plan
// file that cannot be read leaves Image empty and is reported in the error;
// Content is filled either way.
func Compute(rec record.Record) (Fingerprints, error) {
	var (
		fp     Fingerprints
		imgErr error
	)

	if img := rec.FloorPlanImage(); utils.FileExists(img) {
		h, err := hashFile(img)
		if err != nil {
			imgErr = fmt.Errorf("image fingerprint: %w", err)
		} else {
			fp.Image = h
		}
	}

	content, err := rec.Content()
	if err != nil {
		return fp, errors.Join(imgErr, fmt.Errorf("content fingerprint: %w", err))
	}
	sum := sha256.Sum256(content)
	fp.Content = hex.EncodeToString(sum[:])
	return fp, imgErr
}

// Detector owns the fingerprint set and its backing store.
type Detector struct {
	enabled bool
	logger  *slog.Logger

	mu     sync.RWMutex
	hashes map[string]struct{}
	store  Store
}

// New opens the configured store and loads the persisted set. Store
// failures are logged and leave the detector running in memory only.
func New(ctx context.Context, opts Options, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	if !opts.Enabled {
		return NewWithStore(ctx, false, nil, logger)
	}

	var (
		store Store
		err   error
	)
	switch opts.Store {
	case StoreSQLite:
		store, err = NewSQLiteStore(ctx, opts.Path)
	default:
		store = NewJSONStore(opts.Path)
	}
	if err != nil {
		logger.Error("opening fingerprint store failed, continuing in memory", "store", opts.Store, "path", opts.Path, "error", err)
		store = nil
	}
	return NewWithStore(ctx, true, store, logger)
}

// NewWithStore creates a detector over an explicit store, which may be nil.
func NewWithStore(ctx context.Context, enabled bool, store Store, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Detector{
		enabled: enabled,
		logger:  logger,
		hashes:  make(map[string]struct{}),
		store:   store,
	}
	if !enabled || store == nil {
		return d
	}

	loaded, err := store.Load(ctx)
	if err != nil {
		logger.Error("loading fingerprints failed, starting with an empty set", "error", err)
		return d
	}
	for _, h := range loaded {
		d.hashes[h] = struct{}{}
	}
	logger.Debug("fingerprints loaded", "count", len(loaded))
	return d
}

// Enabled reports whether duplicate detection is active.
func (d *Detector) Enabled() bool { return d.enabled }

// Len returns the number of known fingerprints.
func (d *Detector) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.hashes)
}

// Check reports whether any of the fingerprints is already known.
func (d *Detector) Check(fp Fingerprints) bool {
	if !d.enabled {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, h := range fp.Hashes() {
		if _, ok := d.hashes[h]; ok {
			return true
		}
	}
	return false
}

// Mark adds the fingerprints and persists the set before returning.
// Persistence failures switch the detector to memory-only mode.
func (d *Detector) Mark(ctx context.Context, fp Fingerprints) {
	if !d.enabled {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	var added []string
	for _, h := range fp.Hashes() {
		if _, ok := d.hashes[h]; ok {
			continue
		}
		d.hashes[h] = struct{}{}
		added = append(added, h)
	}
	if len(added) == 0 || d.store == nil {
		return
	}

	all := make([]string, 0, len(d.hashes))
	for h := range d.hashes {
		all = append(all, h)
	}
	if err := d.store.Persist(ctx, added, all); err != nil {
		d.logger.Error("persisting fingerprints failed, continuing in memory", "error", err)
		_ = d.store.Close()
		d.store = nil
	}
}

// IsDuplicate fingerprints rec and checks it against the set.
func (d *Detector) IsDuplicate(rec record.Record) (bool, error) {
	if !d.enabled {
		return false, nil
	}
	fp, err := d.compute(rec)
	if err != nil {
		return false, err
	}
	return d.Check(fp), nil
}

// MarkAsProcessed fingerprints rec and marks it.
func (d *Detector) MarkAsProcessed(ctx context.Context, rec record.Record) error {
	if !d.enabled {
		return nil
	}
	fp, err := d.compute(rec)
	if err != nil {
		return err
	}
	d.Mark(ctx, fp)
	return nil
}

// compute fails only when no fingerprint could be produced.
func (d *Detector) compute(rec record.Record) (Fingerprints, error) {
	fp, err := Compute(rec)
	if err == nil {
		return fp, nil
	}
	if len(fp.Hashes()) == 0 {
		return fp, fmt.Errorf("fingerprint %s: %w", rec.LotID(), err)
	}
	d.logger.Warn("fingerprint incomplete", "lot_id", rec.LotID(), "error", err)
	return fp, nil
}

// Persistent reports whether marks are still written to a store.
func (d *Detector) Persistent() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.store != nil
}

// Close releases the backing store.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.store == nil {
		return nil
	}
	err := d.store.Close()
	d.store = nil
	return err
}
