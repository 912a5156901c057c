// Package httpserver hosts the HTTP surface around the WebSocket channel:
// health, roster, client log ingestion, and metrics.
package httpserver

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/parleyhq/parley/internal/config"
	"github.com/parleyhq/parley/internal/gate"
	"github.com/parleyhq/parley/internal/metrics"
	"github.com/parleyhq/parley/internal/room"
)

var ErrServerClosed = http.ErrServerClosed

// maxClientLogBytes caps one POST /logs body.
const maxClientLogBytes = 64 << 10

type Server struct {
	log      *slog.Logger
	cfg      config.Config
	registry *room.Registry

	mux *http.ServeMux
	srv *http.Server
}

// New wires the routes. wsHandler serves the WebSocket endpoint and runs its
// own gate; g gates the remaining non-public routes.
func New(cfg config.Config, logger *slog.Logger, m *metrics.Metrics, g *gate.Gate, registry *room.Registry, wsHandler http.Handler) *Server {
	s := &Server{
		log:      logger,
		cfg:      cfg,
		registry: registry,
		mux:      http.NewServeMux(),
	}

	s.registerRoutes(m, g)

	apiHandler := chain(s.mux,
		recoverMiddleware(s.log),
		requestIDMiddleware(),
		requestLoggerMiddleware(s.log),
	)

	// The request logger wraps the ResponseWriter, which hides the Hijacker
	// the WebSocket upgrade needs, so /ws bypasses everything but recover.
	root := http.NewServeMux()
	root.Handle("GET /ws", recoverMiddleware(s.log)(wsHandler))
	root.Handle("/", apiHandler)

	s.srv = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           root,
		ReadHeaderTimeout: 5 * time.Second,
		// No global read/write timeouts: /ws connections are long-lived.
	}

	return s
}

// Handler exposes the root handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

func (s *Server) Serve(l net.Listener) error {
	s.log.Info("http server serving", "addr", l.Addr().String())
	return s.srv.Serve(l)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.srv.Close()
}

func (s *Server) registerRoutes(m *metrics.Metrics, g *gate.Gate) {
	s.mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	s.mux.Handle("GET /participants", g.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, s.registry.List())
	})))

	s.mux.Handle("POST /logs", g.Middleware(http.HandlerFunc(s.handleClientLogs)))

	s.mux.Handle("GET /metrics", metrics.PrometheusHandler(m))
}

// handleClientLogs forwards opaque client telemetry into the server's own
// log stream, where the regular shipping pipeline picks it up. Bodies are
// not interpreted beyond a JSON well-formedness check.
func (s *Server) handleClientLogs(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxClientLogBytes+1))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) > maxClientLogBytes {
		http.Error(w, "body too large", http.StatusRequestEntityTooLarge)
		return
	}
	if !json.Valid(body) {
		http.Error(w, "body must be JSON", http.StatusBadRequest)
		return
	}

	s.log.Info("client_log",
		"remote_addr", r.RemoteAddr,
		"payload", json.RawMessage(body),
	)
	w.WriteHeader(http.StatusAccepted)
}

// WriteJSON writes a JSON response body and sets the Content-Type header.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}
