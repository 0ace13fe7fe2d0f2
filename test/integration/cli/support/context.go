package support

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// BinaryEnvVar names the variable that points at the built CLI.
const BinaryEnvVar = "LOTGATE_BIN"

// TestContext holds the state for integration tests. Every scenario gets
// its own workspace directory; commands run inside it so the relative
// inputs, templates, outputs and archive directories stay isolated.
type TestContext struct {
	// Command execution state
	LastCommand  string
	LastOutput   string
	LastError    error
	LastExitCode int
	LastDuration time.Duration

	// Test environment
	Binary    string
	Workspace string
	EnvVars   []string

	// Server management
	ServerProcess *os.Process
	ServerPort    int
	ServerHost    string
	serverLog     *os.File

	// HTTP response state
	LastHTTPStatusCode int
	LastHTTPResponse   string
	LastHTTPHeaders    map[string]string
}

// NewTestContext creates a new test context with a fresh workspace.
func NewTestContext() (*TestContext, error) {
	binary := os.Getenv(BinaryEnvVar)
	if binary == "" {
		binary = "lotgate"
	}

	workspace, err := os.MkdirTemp("", "lotgate-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	return &TestContext{
		Binary:     binary,
		Workspace:  workspace,
		EnvVars:    []string{},
		ServerHost: "127.0.0.1",
	}, nil
}

// Cleanup stops the server and removes the workspace.
func (testCtx *TestContext) Cleanup() error {
	var errs []error

	if err := testCtx.StopServer(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop server: %w", err))
	}

	if err := os.RemoveAll(testCtx.Workspace); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to remove workspace %s: %w", testCtx.Workspace, err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

// AddEnvVar adds an environment variable for command execution.
func (testCtx *TestContext) AddEnvVar(name, value string) {
	testCtx.EnvVars = append(testCtx.EnvVars, fmt.Sprintf("%s=%s", name, value))
}

// Path resolves name inside the workspace.
func (testCtx *TestContext) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.Workspace, filepath.FromSlash(name))
}

func (testCtx *TestContext) environ() []string {
	return append(os.Environ(), testCtx.EnvVars...)
}
