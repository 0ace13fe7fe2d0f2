package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/MeKo-Tech/lotgate/internal/quality"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

const (
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second
	wsWriteWait  = 10 * time.Second
)

// WebSocketMessage represents a message sent over WebSocket.
type WebSocketMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// WebSocketConnWriter is an interface for writing WebSocket messages.
type WebSocketConnWriter interface {
	WriteMessage(messageType int, data []byte) error
}

// statusWebSocketHandler pushes the quality snapshot once per poll
// interval until the client goes away.
func (s *Server) statusWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade connection to WebSocket", "error", err)
		return
	}
	defer func() {
		_ = conn.Close()
	}()

	websocketConnections.Inc()
	defer websocketConnections.Dec()

	slog.Info("WebSocket connection established", "remote_addr", r.RemoteAddr)

	closed := make(chan struct{})
	go s.readWebSocket(conn, closed)
	s.pushSnapshots(conn, closed)
}

// readWebSocket drains client frames so pongs and close frames are seen.
func (s *Server) readWebSocket(conn *websocket.Conn, closed chan<- struct{}) {
	defer close(closed)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Error("WebSocket error", "error", err)
			}
			return
		}
		websocketMessagesTotal.WithLabelValues("received").Inc()
	}
}

func (s *Server) pushSnapshots(conn *websocket.Conn, closed <-chan struct{}) {
	poll := time.NewTicker(s.pollInterval)
	defer poll.Stop()
	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	if err := s.sendSnapshot(conn, s.orch.Quality().Snapshot()); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-poll.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.sendSnapshot(conn, s.orch.Quality().Snapshot()); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait)); err != nil {
				return
			}
		}
	}
}

// sendSnapshot writes one status message.
func (s *Server) sendSnapshot(conn WebSocketConnWriter, snap quality.Snapshot) error {
	data, err := json.Marshal(WebSocketMessage{Type: "status", Payload: snap})
	if err != nil {
		slog.Error("Failed to marshal WebSocket message", "error", err)
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		slog.Debug("Failed to send WebSocket message", "error", err)
		return err
	}
	websocketMessagesTotal.WithLabelValues("sent").Inc()
	return nil
}
