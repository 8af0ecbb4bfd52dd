package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/soyeahso/collig/internal/hooks"
)

// maxChatBody caps the /api/chat request body.
const maxChatBody = 1 << 20

const (
	eventBuffer = 64
	writeWait   = 10 * time.Second
)

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /api/chat", s.handleChat)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	// Catch-all for unknown routes
	mux.HandleFunc("/", handleNotFound)
}

// HealthResponse is returned by the health endpoint.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
}

// ChatRequest is the /api/chat body. SessionID is optional; a new session
// is created when it is empty.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ChatResponse is the /api/chat reply. Action is null when the turn
// produced no client action.
type ChatResponse struct {
	Response  string         `json:"response"`
	Action    *string        `json:"action"`
	SessionID string         `json:"session_id"`
	Data      map[string]any `json:"data,omitempty"`
}

// EventFrame is one hook event pushed over /ws.
type EventFrame struct {
	Type    string         `json:"type"`
	Event   string         `json:"event"`
	Seq     int64          `json:"seq"`
	Payload map[string]any `json:"payload,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Welcome to Collig Co-worker AI API"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Version: s.version})
}

// handleNotFound returns a 404 for unknown routes.
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "not found",
		"path":  r.URL.Path,
	})
}

// handleChat runs one agent turn.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxChatBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), chatTimeout)
	defer cancel()

	sessionID := strings.TrimSpace(req.SessionID)
	if sessionID == "" {
		id, err := s.chat.NewSession(ctx)
		if err != nil {
			s.log.Error().Err(err).Msg("creating session")
			writeError(w, http.StatusInternalServerError, "could not create session")
			return
		}
		sessionID = id
	}

	res := s.chat.Process(ctx, req.Message, sessionID)
	resp := ChatResponse{Response: res.Response, SessionID: sessionID, Data: res.Data}
	if res.Action != "" {
		action := res.Action
		resp.Action = &action
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleWebSocket streams tool_call events. ?session=<id> limits the feed
// to one session.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.hooks == nil {
		writeError(w, http.StatusServiceUnavailable, "event stream not available")
		return
	}
	filter := r.URL.Query().Get("session")

	// Subscribe before the upgrade completes so no event emitted after the
	// client sees the handshake is missed.
	events := make(chan EventFrame, eventBuffer)
	var seq atomic.Int64
	name := "ws-" + uuid.New().String()
	s.hooks.On(hooks.EventToolCall, name, func(_ context.Context, p hooks.Payload) error {
		if filter != "" && p.String("sessionId") != filter {
			return nil
		}
		frame := EventFrame{Type: "event", Event: p.Event, Seq: seq.Add(1), Payload: p.Data}
		select {
		case events <- frame:
			return nil
		default:
			return errors.New("event buffer full; dropping event")
		}
	})
	defer s.hooks.Off(hooks.EventToolCall, name)

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	log := s.log.With("client", name)
	log.Info().Str("remote", r.RemoteAddr).Str("session", filter).Msg("event client connected")
	defer log.Info().Msg("event client disconnected")

	// The read loop only notices the peer going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return
		case <-closed:
			return
		case frame := <-events:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(frame); err != nil {
				log.Debug().Err(err).Msg("writing event")
				return
			}
		}
	}
}
