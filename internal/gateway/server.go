// Package gateway serves the agent over HTTP: a JSON chat endpoint for
// front ends and a WebSocket feed of tool-call events.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/soyeahso/collig/internal/hooks"
	"github.com/soyeahso/collig/internal/logging"
	"github.com/soyeahso/collig/internal/skill"
	"github.com/soyeahso/collig/internal/version"
)

// DefaultAddr is where `collig serve` listens unless told otherwise.
const DefaultAddr = "127.0.0.1:8000"

// chatTimeout bounds one /api/chat turn, tool loop included.
const chatTimeout = 5 * time.Minute

// Chatter is the slice of the agent the gateway drives.
type Chatter interface {
	Process(ctx context.Context, message, sessionID string) skill.Result
	NewSession(ctx context.Context) (string, error)
}

// Server is the Collig HTTP + WebSocket server.
type Server struct {
	chat     Chatter
	hooks    *hooks.Manager
	log      *logging.Logger
	addr     string
	origins  []string
	version  string
	upgrader websocket.Upgrader

	httpServer *http.Server
}

// ServerOption configures the gateway server.
type ServerOption func(*Server)

// WithHooks sets the hook manager that feeds /ws.
func WithHooks(hm *hooks.Manager) ServerOption {
	return func(s *Server) {
		s.hooks = hm
	}
}

// WithAddr sets the listen address used by Start.
func WithAddr(addr string) ServerOption {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithAllowedOrigins sets the browser origins allowed for CORS and
// WebSocket upgrades. "*" allows any origin.
func WithAllowedOrigins(origins []string) ServerOption {
	return func(s *Server) {
		s.origins = origins
	}
}

// New creates a gateway server around chat.
func New(chat Chatter, log *logging.Logger, opts ...ServerOption) *Server {
	s := &Server{
		chat:    chat,
		log:     log.Sub("gateway"),
		addr:    DefaultAddr,
		version: version.Version,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     checkWebSocketOrigin(s.origins),
	}
	return s
}

// checkWebSocketOrigin returns a function that validates WebSocket Origin headers.
// Requests without an Origin (non-browser clients) are always allowed.
func checkWebSocketOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		return isOriginAllowed(origin, allowed)
	}
}

// Handler returns the routed handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerHTTPRoutes(mux)
	return withMiddleware(mux, s.log, s.origins)
}

// Start listens on the configured address and serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
// It takes ownership of ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		// Chat turns can run long; upgraded sockets clear this deadline.
		WriteTimeout: chatTimeout + 10*time.Second,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Strs("origins", s.origins).
		Msg("gateway server ready")

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.log.Error().Err(err).Msg("gateway shutdown error")
		}
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("gateway server error: %w", err)
	}
	return nil
}
