// Package archive keeps copies of processed inputs and outputs under a
// single directory for later regression checks.
package archive

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// TimestampLayout is used in archived file names.
const TimestampLayout = "2006-01-02_15-04-05"

// Manager writes archive copies into Dir.
type Manager struct {
	Dir    string
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates the archive directory if needed.
func NewManager(dir string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create archive directory: %w", err)
	}
	return &Manager{Dir: dir, logger: logger, now: time.Now}, nil
}

// ArchiveInput stores the record as indented JSON and, when the floor plan
// exists, a copy of it. It returns the paths written.
func (m *Manager) ArchiveInput(lotID string, data any, floorPlan string) ([]string, error) {
	stamp := m.now().Format(TimestampLayout)
	base := filepath.Join(m.Dir, fmt.Sprintf("%s_%s", lotID, stamp))

	body, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode input for %s: %w", lotID, err)
	}
	inputPath := base + "_input.json"
	if err := os.WriteFile(inputPath, body, 0o600); err != nil {
		return nil, fmt.Errorf("archive input for %s: %w", lotID, err)
	}
	written := []string{inputPath}

	if floorPlan != "" {
		if fi, err := os.Stat(floorPlan); err == nil && !fi.IsDir() {
			dst := base + "_floorplan" + filepath.Ext(floorPlan)
			if err := copyFile(floorPlan, dst); err != nil {
				return written, fmt.Errorf("archive floor plan for %s: %w", lotID, err)
			}
			written = append(written, dst)
		}
	}

	m.logger.Info("archived input", "lot_id", lotID, "files", len(written))
	return written, nil
}

// ArchiveOutput copies a single output file, or zips an output directory.
func (m *Manager) ArchiveOutput(lotID, outputPath string) (string, error) {
	fi, err := os.Stat(outputPath)
	if err != nil {
		return "", fmt.Errorf("archive output for %s: %w", lotID, err)
	}
	base := filepath.Join(m.Dir, fmt.Sprintf("%s_%s_output", lotID, m.now().Format(TimestampLayout)))

	var dst string
	if fi.IsDir() {
		dst = base + ".zip"
		err = zipDir(outputPath, dst)
	} else {
		dst = base + filepath.Ext(outputPath)
		err = copyFile(outputPath, dst)
	}
	if err != nil {
		return "", fmt.Errorf("archive output for %s: %w", lotID, err)
	}

	m.logger.Info("archived output", "lot_id", lotID, "path", dst)
	return dst, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // archive source chosen by the pipeline
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // archive destination
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// zipDir writes every regular file below dir into a zip at dst, with
// slash-separated names relative to dir.
func zipDir(dir, dst string) error {
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // archive destination
	if err != nil {
		return err
	}
	zw := zip.NewWriter(out)

	walkErr := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		w, err := zw.Create(strings.ReplaceAll(rel, string(filepath.Separator), "/"))
		if err != nil {
			return err
		}
		f, err := os.Open(path) //nolint:gosec // walking our own output directory
		if err != nil {
			return err
		}
		_, err = io.Copy(w, f)
		_ = f.Close()
		return err
	})

	if err := zw.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	if err := out.Close(); err != nil && walkErr == nil {
		walkErr = err
	}
	return walkErr
}
