package support

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"
)

const serverReadyTimeout = 15 * time.Second

// freePort asks the kernel for an unused TCP port.
func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// StartServer runs the serve command on a free port with extra flags
// and waits until /health answers.
func (testCtx *TestContext) StartServer(extraArgs string) error {
	if testCtx.ServerProcess != nil {
		return errors.New("server already running")
	}

	port, err := freePort()
	if err != nil {
		return fmt.Errorf("failed to find a free port: %w", err)
	}
	testCtx.ServerPort = port

	command := fmt.Sprintf("lotgate serve --host %s --port {port} %s", testCtx.ServerHost, extraArgs)
	parts, err := testCtx.commandArgs(command)
	if err != nil {
		return err
	}

	logFile, err := os.Create(filepath.Join(testCtx.Workspace, "server.log"))
	if err != nil {
		return fmt.Errorf("failed to create server log: %w", err)
	}
	testCtx.serverLog = logFile

	cmd := exec.Command(parts[0], parts[1:]...) //nolint:gosec // test binary
	cmd.Dir = testCtx.Workspace
	cmd.Env = testCtx.environ()
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	testCtx.ServerProcess = cmd.Process

	if err := testCtx.waitForServerReady(); err != nil {
		log, _ := os.ReadFile(logFile.Name())
		if stopErr := testCtx.StopServer(); stopErr != nil {
			return fmt.Errorf("server failed to start and also failed to stop: %w; stop error: %w", err, stopErr)
		}
		return fmt.Errorf("server failed to start: %w\n%s", err, log)
	}
	return nil
}

// StopServer sends SIGTERM and waits for the process to exit.
func (testCtx *TestContext) StopServer() error {
	if testCtx.ServerProcess == nil {
		return nil
	}
	defer func() {
		if testCtx.serverLog != nil {
			_ = testCtx.serverLog.Close()
			testCtx.serverLog = nil
		}
	}()

	if err := testCtx.ServerProcess.Signal(syscall.SIGTERM); err != nil {
		if killErr := testCtx.ServerProcess.Kill(); killErr != nil {
			return fmt.Errorf("failed to kill server process: %w", killErr)
		}
	}

	done := make(chan error, 1)
	go func() {
		_, err := testCtx.ServerProcess.Wait()
		done <- err
	}()

	var err error
	select {
	case err = <-done:
	case <-time.After(10 * time.Second):
		_ = testCtx.ServerProcess.Kill()
		err = errors.New("server did not stop within timeout")
	}
	testCtx.ServerProcess = nil
	return err
}

func (testCtx *TestContext) waitForServerReady() error {
	deadline := time.Now().Add(serverReadyTimeout)
	for time.Now().Before(deadline) {
		if testCtx.isServerHealthy() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return errors.New("server did not become ready within timeout")
}

func (testCtx *TestContext) isServerHealthy() bool {
	client := &http.Client{Timeout: time.Second}
	resp, err := client.Get(testCtx.GetServerURL() + "/health")
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// GetServerURL returns the base URL for the running server.
func (testCtx *TestContext) GetServerURL() string {
	return fmt.Sprintf("http://%s:%d", testCtx.ServerHost, testCtx.ServerPort)
}
