package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"tunebridge-go/core/channel"
	"tunebridge-go/core/dispatch"
	"tunebridge-go/infrastructure/logging"
)

const (
	maxFrameBytes   = 1 << 20
	outboundBuffer  = 256
	writeTimeout    = 5 * time.Second
	handshakeWindow = 10 * time.Second
	healthTimeout   = 2 * time.Second
)

// ServerConfig holds configuration for Server.
type ServerConfig struct {
	Dispatcher *dispatch.Dispatcher
	// Path is the WebSocket endpoint. Defaults to /ipc.
	Path string
	// AllowedOrigins are host patterns for cross-origin upgrades.
	AllowedOrigins []string
	// Version is reported by /healthz.
	Version string
	// HealthChecks are run by /healthz. Any failure reports the backend as degraded.
	HealthChecks map[string]HealthCheck
	Logger       *slog.Logger
}

// HealthCheck reports whether a dependency of the backend is reachable.
type HealthCheck func(ctx context.Context) error

// Server exposes a dispatcher to UI processes over WebSocket.
type Server struct {
	dispatcher     *dispatch.Dispatcher
	path           string
	allowedOrigins []string
	version        string
	checks         map[string]HealthCheck
	logger         *slog.Logger

	connsMu sync.Mutex
	conns   map[*serverConn]struct{}

	httpServer *http.Server
}

// NewServer creates a new transport server.
func NewServer(cfg *ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Path == "" {
		cfg.Path = "/ipc"
	}

	return &Server{
		dispatcher:     cfg.Dispatcher,
		path:           cfg.Path,
		allowedOrigins: cfg.AllowedOrigins,
		version:        cfg.Version,
		checks:         cfg.HealthChecks,
		logger:         cfg.Logger,
		conns:          make(map[*serverConn]struct{}),
	}
}

// Routes returns the HTTP handler serving the WebSocket endpoint and the
// diagnostic routes.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get(s.path, s.handleWebSocket)
	r.Get("/healthz", s.handleHealth)
	r.Get("/channels", s.handleChannels)

	return r
}

// Start serves on listen until ctx is cancelled (blocking).
func (s *Server) Start(ctx context.Context, listen string, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:              listen,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("Transport server starting", "listen", listen, "path", s.path)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Transport server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.closeConnections()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// ConnectionCount returns the number of live UI connections.
func (s *Server) ConnectionCount() int {
	s.connsMu.Lock()
	defer s.connsMu.Unlock()
	return len(s.conns)
}

func (s *Server) closeConnections() {
	s.connsMu.Lock()
	conns := make([]*serverConn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.connsMu.Unlock()

	for _, c := range conns {
		c.ws.Close(websocket.StatusGoingAway, "backend shutting down")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		err := check(ctx)
		cancel()
		if err != nil {
			s.logger.Warn("Health check failed", "check", name, "error", err)
			checks[name] = err.Error()
			status, code = "degraded", http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	body := map[string]any{
		"status":      status,
		"version":     s.version,
		"phase":       s.dispatcher.Phase().String(),
		"connections": s.ConnectionCount(),
		"fingerprint": s.dispatcher.Registry().Fingerprint(),
	}
	if len(checks) > 0 {
		body["checks"] = checks
	}
	writeJSON(w, code, body)
}

func (s *Server) handleChannels(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dispatcher.Catalog())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.allowedOrigins,
	})
	if err != nil {
		s.logger.Warn("WebSocket accept failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	ws.SetReadLimit(maxFrameBytes)

	connID := uuid.NewString()
	logger := s.logger.With(logging.KeyConnID, connID, "remote", r.RemoteAddr)
	ctx, cancel := context.WithCancel(logging.With(context.Background(), logger))

	c := &serverConn{
		server: s,
		ws:     ws,
		ctx:    ctx,
		cancel: cancel,
		out:    make(chan []byte, outboundBuffer),
		subs:   make(map[channel.Channel]subscriptionRef),
	}

	s.connsMu.Lock()
	s.conns[c] = struct{}{}
	s.connsMu.Unlock()

	logger.Info("UI connection opened")
	c.serve()

	s.connsMu.Lock()
	delete(s.conns, c)
	s.connsMu.Unlock()
	logger.Info("UI connection closed")
}
