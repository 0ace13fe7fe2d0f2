package support

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

const commandTimeout = 60 * time.Second

// substituteCommandVariables expands {workspace} and {port} placeholders.
func (testCtx *TestContext) substituteCommandVariables(command string) string {
	command = strings.ReplaceAll(command, "{workspace}", testCtx.Workspace)
	if testCtx.ServerPort != 0 {
		command = strings.ReplaceAll(command, "{port}", strconv.Itoa(testCtx.ServerPort))
	}
	return command
}

// commandArgs splits a command line and resolves the CLI name to the
// built binary.
func (testCtx *TestContext) commandArgs(command string) ([]string, error) {
	parts := strings.Fields(testCtx.substituteCommandVariables(command))
	if len(parts) == 0 {
		return nil, errors.New("empty command")
	}
	if parts[0] == "lotgate" {
		parts[0] = testCtx.Binary
	}
	return parts, nil
}

// iRunCommand executes a CLI command inside the workspace.
func (testCtx *TestContext) iRunCommand(command string) error {
	parts, err := testCtx.commandArgs(command)
	if err != nil {
		return err
	}
	testCtx.LastCommand = command

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = testCtx.Workspace
	cmd.Env = testCtx.environ()

	start := time.Now()
	output, err := cmd.CombinedOutput()
	testCtx.LastDuration = time.Since(start)
	testCtx.LastOutput = string(output)
	testCtx.LastError = err

	if err != nil {
		exitError := &exec.ExitError{}
		if errors.As(err, &exitError) {
			testCtx.LastExitCode = exitError.ExitCode()
		} else {
			testCtx.LastExitCode = -1
		}
	} else {
		testCtx.LastExitCode = 0
	}

	return nil
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastExitCode != 0 {
		return fmt.Errorf("command failed with exit code %d: %w\nOutput: %s",
			testCtx.LastExitCode, testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastExitCode == 0 {
		return fmt.Errorf("command succeeded when it should have failed\nOutput: %s", testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	if !strings.Contains(testCtx.LastOutput, expectedText) {
		return fmt.Errorf("output does not contain '%s'\nActual output: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldNotContain(text string) error {
	if strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output unexpectedly contains '%s'\nActual output: %s", text, testCtx.LastOutput)
	}
	return nil
}

// extractJSON returns the JSON document embedded in output, skipping any
// progress lines written before it. The document starts on its own line.
func extractJSON(output string) (string, error) {
	lines := strings.Split(output, "\n")
	for i, line := range lines {
		if line == "{" || line == "[" || strings.HasPrefix(line, "{\"") {
			return strings.Join(lines[i:], "\n"), nil
		}
	}
	return "", fmt.Errorf("no JSON found in output: %s", output)
}

func (testCtx *TestContext) decodeOutputJSON() (map[string]any, error) {
	doc, err := extractJSON(testCtx.LastOutput)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.NewDecoder(strings.NewReader(doc)).Decode(&data); err != nil {
		return nil, fmt.Errorf("output is not valid JSON: %w\nOutput: %s", err, testCtx.LastOutput)
	}
	return data, nil
}

func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	_, err := testCtx.decodeOutputJSON()
	return err
}

// lookupField walks a dotted path through decoded JSON.
func lookupField(data map[string]any, field string) (any, error) {
	var current any = data
	for _, part := range strings.Split(field, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("field %q: %q is not an object", field, part)
		}
		current, ok = obj[part]
		if !ok {
			return nil, fmt.Errorf("field %q not found", field)
		}
	}
	return current, nil
}

func (testCtx *TestContext) theJSONFieldShouldBe(field, expected string) error {
	data, err := testCtx.decodeOutputJSON()
	if err != nil {
		return err
	}
	value, err := lookupField(data, field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(value); got != expected {
		return fmt.Errorf("field %q is %q, expected %q", field, got, expected)
	}
	return nil
}

func (testCtx *TestContext) theJSONShouldContain(field string) error {
	data, err := testCtx.decodeOutputJSON()
	if err != nil {
		return err
	}
	_, err = lookupField(data, field)
	return err
}

func (testCtx *TestContext) theOutputShouldBeValidCSVWithHeader(column string) error {
	reader := csv.NewReader(strings.NewReader(strings.TrimSpace(testCtx.LastOutput)))
	rows, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("output is not valid CSV: %w", err)
	}
	if len(rows) == 0 {
		return errors.New("CSV output is empty")
	}
	for _, h := range rows[0] {
		if h == column {
			return nil
		}
	}
	return fmt.Errorf("CSV header %v has no column %q", rows[0], column)
}

func (testCtx *TestContext) theOutputShouldHaveCSVRows(n int) error {
	reader := csv.NewReader(strings.NewReader(strings.TrimSpace(testCtx.LastOutput)))
	rows, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("output is not valid CSV: %w", err)
	}
	if got := len(rows) - 1; got != n {
		return fmt.Errorf("expected %d CSV data rows, got %d", n, got)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldExist(name string) error {
	if _, err := os.Stat(testCtx.Path(name)); err != nil {
		return fmt.Errorf("file %s does not exist: %w", name, err)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldNotExist(name string) error {
	if _, err := os.Stat(testCtx.Path(name)); err == nil {
		return fmt.Errorf("file %s exists", name)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldContain(name, expected string) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if !strings.Contains(string(data), expected) {
		return fmt.Errorf("file %s does not contain '%s'\nContent: %s", name, expected, data)
	}
	return nil
}

// aFileMatchingShouldExist checks a glob inside the workspace.
func (testCtx *TestContext) aFileMatchingShouldExist(pattern string) error {
	matches, err := filepath.Glob(testCtx.Path(pattern))
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("no file matches %s", pattern)
	}
	return nil
}

func (testCtx *TestContext) noFileMatchingShouldExist(pattern string) error {
	matches, err := filepath.Glob(testCtx.Path(pattern))
	if err != nil {
		return err
	}
	if len(matches) > 0 {
		return fmt.Errorf("unexpected files match %s: %v", pattern, matches)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldHaveLines(name string, n int) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != n {
		return fmt.Errorf("file %s has %d lines, expected %d", name, len(lines), n)
	}
	return nil
}

func (testCtx *TestContext) theEnvironmentVariableIsSetTo(name, value string) error {
	testCtx.AddEnvVar(name, value)
	return nil
}

// RegisterCommonSteps registers command, output and file steps.
func (testCtx *TestContext) RegisterCommonSteps(sc *godog.ScenarioContext) {
	testCtx.registerCommandSteps(sc)
	testCtx.registerOutputSteps(sc)
	testCtx.registerFileSteps(sc)
}

func (testCtx *TestContext) registerCommandSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRunCommand)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the environment variable "([^"]*)" is set to "([^"]*)"$`, testCtx.theEnvironmentVariableIsSetTo)
}

func (testCtx *TestContext) registerOutputSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should not contain "([^"]*)"$`, testCtx.theOutputShouldNotContain)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
	sc.Step(`^the JSON should contain "([^"]*)"$`, testCtx.theJSONShouldContain)
	sc.Step(`^the JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONFieldShouldBe)
	sc.Step(`^the output should be valid CSV with column "([^"]*)"$`, testCtx.theOutputShouldBeValidCSVWithHeader)
	sc.Step(`^the CSV output should have (\d+) data rows?$`, testCtx.theOutputShouldHaveCSVRows)
}

func (testCtx *TestContext) registerFileSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the file "([^"]*)" should exist$`, testCtx.theFileShouldExist)
	sc.Step(`^the file "([^"]*)" should not exist$`, testCtx.theFileShouldNotExist)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
	sc.Step(`^the file "([^"]*)" should have (\d+) lines$`, testCtx.theFileShouldHaveLines)
	sc.Step(`^a file matching "([^"]*)" should exist$`, testCtx.aFileMatchingShouldExist)
	sc.Step(`^a file matching "([^"]*)" should not exist$`, testCtx.noFileMatchingShouldExist)
}
