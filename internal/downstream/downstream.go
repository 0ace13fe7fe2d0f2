// Package downstream defines the contract of the compliance-calculation
// tool that receives completed records, plus a file-writing simulator.
package downstream

import (
	"context"
	"errors"
)

// ErrNotConnected is returned by operations that need a live connection.
var ErrNotConnected = errors.New("not connected to compliance tool")

// ErrNoProject is returned by operations that need an opened template.
var ErrNoProject = errors.New("no project loaded")

// Collaborator is one session with the compliance tool. Every operation is
// independently fallible; no atomicity across calls is assumed.
type Collaborator interface {
	Connect(ctx context.Context) error
	OpenTemplate(ctx context.Context, path string) error
	SetProjectInfo(ctx context.Context, info map[string]any) error
	SetBuildingData(ctx context.Context, data map[string]any) error
	SetWindows(ctx context.Context, windows map[string]any) error
	SetHVACSystem(ctx context.Context, hvac map[string]any) error
	Calculate(ctx context.Context) error
	SaveProject(ctx context.Context, path string) error
	ExportReport(ctx context.Context, path string) error
	Disconnect() error
}

// Factory opens a fresh session for one record. Sessions are never shared
// between concurrently processed records.
type Factory func() Collaborator
