package downstream

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Simulator stands in for the compliance tool. It checks the call
// protocol and writes placeholder project and report files.
type Simulator struct {
	logger    *slog.Logger
	now       func() time.Time
	connected bool
	template  string
}

// NewSimulator creates a simulator session.
func NewSimulator(logger *slog.Logger) *Simulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{logger: logger, now: time.Now}
}

// SimulatorFactory returns a Factory producing simulator sessions.
func SimulatorFactory(logger *slog.Logger) Factory {
	return func() Collaborator { return NewSimulator(logger) }
}

// Connect implements Collaborator.
func (s *Simulator) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.connected = true
	s.logger.Debug("compliance tool connected", "mode", "simulated")
	return nil
}

// OpenTemplate implements Collaborator. The template file must exist.
func (s *Simulator) OpenTemplate(ctx context.Context, path string) error {
	if err := s.ready(ctx, false); err != nil {
		return err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("template file not found: %w", err)
	}
	if fi.IsDir() {
		return fmt.Errorf("template path %s is a directory", path)
	}
	s.template = path
	s.logger.Info("opened template", "template", path)
	return nil
}

// SetProjectInfo implements Collaborator.
func (s *Simulator) SetProjectInfo(ctx context.Context, info map[string]any) error {
	return s.set(ctx, "project_info", info)
}

// SetBuildingData implements Collaborator.
func (s *Simulator) SetBuildingData(ctx context.Context, data map[string]any) error {
	return s.set(ctx, "building_data", data)
}

// SetWindows implements Collaborator.
func (s *Simulator) SetWindows(ctx context.Context, windows map[string]any) error {
	return s.set(ctx, "windows", windows)
}

// SetHVACSystem implements Collaborator.
func (s *Simulator) SetHVACSystem(ctx context.Context, hvac map[string]any) error {
	return s.set(ctx, "hvac", hvac)
}

func (s *Simulator) set(ctx context.Context, section string, data map[string]any) error {
	if err := s.ready(ctx, true); err != nil {
		return err
	}
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	s.logger.Debug("section set", "section", section, "keys", keys)
	return nil
}

// Calculate implements Collaborator.
func (s *Simulator) Calculate(ctx context.Context) error {
	if err := s.ready(ctx, true); err != nil {
		return err
	}
	s.logger.Debug("calculation run", "template", s.template)
	return nil
}

// SaveProject implements Collaborator by writing a placeholder project file.
func (s *Simulator) SaveProject(ctx context.Context, path string) error {
	if err := s.ready(ctx, true); err != nil {
		return err
	}
	content := fmt.Sprintf("# EnergyGauge project saved at %s\n", s.now().Format(time.RFC3339))
	return writeFile(path, content)
}

// ExportReport implements Collaborator by writing a placeholder report.
func (s *Simulator) ExportReport(ctx context.Context, path string) error {
	if err := s.ready(ctx, true); err != nil {
		return err
	}
	content := fmt.Sprintf("EnergyGauge Results Report\nGenerated: %s\n", s.now().Format(time.RFC3339))
	return writeFile(path, content)
}

// Disconnect implements Collaborator.
func (s *Simulator) Disconnect() error {
	s.connected = false
	s.template = ""
	return nil
}

func (s *Simulator) ready(ctx context.Context, needProject bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !s.connected {
		return ErrNotConnected
	}
	if needProject && s.template == "" {
		return ErrNoProject
	}
	return nil
}

func writeFile(path, content string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}
