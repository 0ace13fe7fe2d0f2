package dedup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Store persists the fingerprint set.
type Store interface {
	// Load returns every persisted fingerprint.
	Load(ctx context.Context) ([]string, error)
	// Persist records a mark. added holds the new fingerprints, all the
	// complete in-memory set after the mark.
	Persist(ctx context.Context, added, all []string) error
	Close() error
}

// JSONStore keeps the set in a JSON document {"hashes": [...]} that is
// rewritten wholesale on every mark.
type JSONStore struct {
	path string
}

// NewJSONStore creates a store backed by the file at path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

type hashFile struct {
	Hashes []string `json:"hashes"`
}

// Load implements Store. A missing file is an empty set.
func (s *JSONStore) Load(context.Context) ([]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("dedup: read %s: %w", s.path, err)
	}
	var doc hashFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("dedup: decode %s: %w", s.path, err)
	}
	return doc.Hashes, nil
}

// Persist implements Store by atomically replacing the file.
func (s *JSONStore) Persist(_ context.Context, _, all []string) error {
	sorted := append([]string(nil), all...)
	sort.Strings(sorted)

	data, err := json.MarshalIndent(hashFile{Hashes: sorted}, "", "  ")
	if err != nil {
		return fmt.Errorf("dedup: encode hashes: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("dedup: create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".hashes-*.json")
	if err != nil {
		return fmt.Errorf("dedup: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("dedup: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("dedup: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("dedup: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("dedup: replace %s: %w", s.path, err)
	}
	return nil
}

// Close implements Store.
func (s *JSONStore) Close() error { return nil }
