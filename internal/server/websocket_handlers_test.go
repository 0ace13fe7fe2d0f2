package server

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/lotgate/internal/quality"
)

type mockWebSocketConn struct {
	sentMessages [][]byte
	err          error
}

func (m *mockWebSocketConn) WriteMessage(messageType int, data []byte) error {
	if m.err != nil {
		return m.err
	}
	if messageType == websocket.TextMessage {
		m.sentMessages = append(m.sentMessages, data)
	}
	return nil
}

func TestServer_SendSnapshot(t *testing.T) {
	srv := NewServer(newStubProcessor(), Config{})
	conn := &mockWebSocketConn{}

	snap := quality.Snapshot{SystemHealth: quality.Red, SystemHealthMessage: "Lot1: Failed to open template"}
	require.NoError(t, srv.sendSnapshot(conn, snap))
	require.Len(t, conn.sentMessages, 1)

	var msg struct {
		Type    string           `json:"type"`
		Payload quality.Snapshot `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(conn.sentMessages[0], &msg))
	assert.Equal(t, "status", msg.Type)
	assert.Equal(t, quality.Red, msg.Payload.SystemHealth)

	conn.err = errors.New("broken pipe")
	assert.Error(t, srv.sendSnapshot(conn, snap))
}

func TestServer_StatusWebSocketPushesSnapshots(t *testing.T) {
	proc := newStubProcessor()
	srv := NewServer(proc, Config{PollInterval: 20 * time.Millisecond})
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer func() { _ = conn.Close() }()
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	readSnapshot := func() quality.Snapshot {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg struct {
			Type    string           `json:"type"`
			Payload quality.Snapshot `json:"payload"`
		}
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, "status", msg.Type)
		return msg.Payload
	}

	first := readSnapshot()
	assert.Equal(t, quality.Green, first.SystemHealth)

	proc.quality.SetSystemHealth(quality.Yellow, "Lot9: Calculation may have failed")
	var latest quality.Snapshot
	for range 50 {
		if latest = readSnapshot(); latest.SystemHealth == quality.Yellow {
			break
		}
	}
	assert.Equal(t, quality.Yellow, latest.SystemHealth)
	assert.Equal(t, "Lot9: Calculation may have failed", latest.SystemHealthMessage)
}
