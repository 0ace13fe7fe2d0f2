package support

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/gorilla/websocket"
)

func (testCtx *TestContext) theServerIsRunning() error {
	return testCtx.StartServer("")
}

func (testCtx *TestContext) theServerIsRunningWith(args string) error {
	return testCtx.StartServer(args)
}

func (testCtx *TestContext) do(req *http.Request) error {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s %s failed: %w", req.Method, req.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(body)
	testCtx.LastHTTPHeaders = make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) iGET(endpoint string) error {
	req, err := http.NewRequest(http.MethodGet, testCtx.GetServerURL()+endpoint, nil)
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

func (testCtx *TestContext) post(endpoint, body string) error {
	req, err := http.NewRequest(http.MethodPost, testCtx.GetServerURL()+endpoint, strings.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return testCtx.do(req)
}

// iPOSTTheRecordFileTo submits a workspace file as the request body.
func (testCtx *TestContext) iPOSTTheRecordFileTo(name, endpoint string) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	return testCtx.post(endpoint, string(data))
}

func (testCtx *TestContext) iPOSTTo(body, endpoint string) error {
	return testCtx.post(endpoint, body)
}

func (testCtx *TestContext) iMakeAnOPTIONSRequestTo(endpoint string) error {
	req, err := http.NewRequest(http.MethodOptions, testCtx.GetServerURL()+endpoint, nil)
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

func (testCtx *TestContext) theResponseStatusShouldBe(expected int) error {
	if testCtx.LastHTTPStatusCode != expected {
		return fmt.Errorf("expected status %d, got %d\nBody: %s",
			expected, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, text) {
		return fmt.Errorf("response does not contain '%s'\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(field, expected string) error {
	var data map[string]any
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &data); err != nil {
		return fmt.Errorf("response is not valid JSON: %w\nBody: %s", err, testCtx.LastHTTPResponse)
	}
	value, err := lookupField(data, field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(value); got != expected {
		return fmt.Errorf("response field %q is %q, expected %q", field, got, expected)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(header, expected string) error {
	if got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(header)]; got != expected {
		return fmt.Errorf("header %s is %q, expected %q", header, got, expected)
	}
	return nil
}

// theStatusStreamShouldReportSystemHealth reads pushed snapshots until
// one carries the expected system health.
func (testCtx *TestContext) theStatusStreamShouldReportSystemHealth(level string) error {
	url := fmt.Sprintf("ws://%s:%d/ws", testCtx.ServerHost, testCtx.ServerPort)
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", url, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	defer func() { _ = conn.Close() }()

	_ = conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	var last string
	for range 50 {
		var msg struct {
			Type    string `json:"type"`
			Payload struct {
				SystemHealth string `json:"system_health"`
			} `json:"payload"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("failed to read status message: %w", err)
		}
		last = msg.Payload.SystemHealth
		if msg.Type == "status" && last == level {
			return nil
		}
	}
	return fmt.Errorf("status stream never reported %s, last was %s", level, last)
}

func (testCtx *TestContext) iStopTheServer() error {
	return testCtx.StopServer()
}

func (testCtx *TestContext) theServerShouldNoLongerAnswer() error {
	if testCtx.isServerHealthy() {
		return fmt.Errorf("server still answers on port %d", testCtx.ServerPort)
	}
	return nil
}

// RegisterServerSteps registers server lifecycle and HTTP steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the server is running$`, testCtx.theServerIsRunning)
	sc.Step(`^the server is running with "([^"]*)"$`, testCtx.theServerIsRunningWith)
	sc.Step(`^I stop the server$`, testCtx.iStopTheServer)
	sc.Step(`^the server should no longer answer$`, testCtx.theServerShouldNoLongerAnswer)

	sc.Step(`^I GET "([^"]*)"$`, testCtx.iGET)
	sc.Step(`^I POST the record file "([^"]*)" to "([^"]*)"$`, testCtx.iPOSTTheRecordFileTo)
	sc.Step(`^I POST '([^']*)' to "([^"]*)"$`, testCtx.iPOSTTo)
	sc.Step(`^I make an OPTIONS request to "([^"]*)"$`, testCtx.iMakeAnOPTIONSRequestTo)

	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the status stream should report system health "([^"]*)"$`, testCtx.theStatusStreamShouldReportSystemHealth)
}
