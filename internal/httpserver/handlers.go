package httpserver

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"qiandao/internal/runner"
)

const (
	defaultHistoryLimit = 20
	wsWriteWait         = 10 * time.Second
	wsPingPeriod        = 30 * time.Second
)

// handleHealth handles GET /health
func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: s.version,
	})
}

func (s *HTTPServer) status() *StatusResponse {
	st := &StatusResponse{Status: s.deps.Runner.Status()}
	if s.deps.Schedule != nil {
		st.Schedule = s.deps.Schedule()
	}
	return st
}

// handleStatus handles GET /api/status
func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	respondJSON(w, http.StatusOK, s.status())
}

// handleRun handles POST /api/run. The run proceeds in the background; its
// progress is on /ws/events and its result in /api/status.
func (s *HTTPServer) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	id, err := s.deps.Runner.Submit(runner.SourceHTTP)
	switch {
	case errors.Is(err, runner.ErrBusy):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, runner.ErrStopped):
		respondError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		respondError(w, http.StatusInternalServerError, err.Error())
	default:
		respondJSON(w, http.StatusAccepted, RunResponse{RunID: id, Status: "accepted"})
	}
}

// handleHistory handles GET /api/history?limit=N
func (s *HTTPServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := s.deps.History.List(limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, HistoryResponse{Entries: entries})
}

// upgrader configures the WebSocket handshake.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     loopbackOrigin,
}

// handleEvents handles GET /ws/events: a status frame, then one frame per
// progress event until the client goes away.
func (s *HTTPServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[HTTP] websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	events, cancel := s.deps.Feed.Subscribe(64)
	defer cancel()

	if err := writeFrame(conn, wsMessage{Type: "status", Status: s.status()}); err != nil {
		return
	}

	// The read side only notices the close handshake.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Printf("[HTTP] ws read error: %v", err)
				}
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-gone:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if err := writeFrame(conn, wsMessage{Type: "event", Event: e}); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeFrame(conn *websocket.Conn, msg wsMessage) error {
	conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return conn.WriteJSON(msg)
}
