// Package admin serves the HTTP surface used to inspect and monitor a
// running tgrelay process: health, Prometheus metrics, and a snapshot of
// active sessions. It is off unless an admin address is configured, and it
// listens on exactly that address.
package admin

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tgrelay/tgrelay/internal/dispatcher"
	"github.com/tgrelay/tgrelay/internal/telegram"
)

// SessionSource is the slice of Dispatcher the admin server depends on.
// Satisfied by *dispatcher.Dispatcher.
type SessionSource interface {
	Len() int
	Sessions() []dispatcher.SessionInfo
}

// Config configures a Server.
type Config struct {
	Addr     string
	Sessions SessionSource
}

// Server is the admin HTTP surface. Zero value is not usable; build one
// with New.
type Server struct {
	cfg       Config
	server    *http.Server
	startedAt time.Time
}

// New builds a Server that isn't listening yet. Call Start to bind and
// serve.
func New(cfg Config) *Server {
	s := &Server{cfg: cfg, startedAt: time.Now()}

	r := chi.NewRouter()
	r.Get("/health", s.handleHealth())
	r.Get("/api/sessions", s.handleSessions())
	r.Handle("/metrics", promhttp.Handler())

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

// Start binds the configured address and serves until Stop is called. It
// returns once the listener is open; serve errors are logged, not
// returned, matching the fire-and-forget lifecycle a background HTTP
// server gets everywhere else in this codebase.
func (s *Server) Start() error {
	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", s.cfg.Addr)
	if err != nil {
		return errors.New("admin: listen failed: " + err.Error())
	}

	go func() {
		slog.Info("admin: listening", "component", "admin", "operation", "start", "addr", s.cfg.Addr)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("admin: serve error", "component", "admin", "operation", "start", "error", err)
		}
	}()
	return nil
}

// Stop gracefully shuts down the server, waiting up to the context's
// deadline for in-flight requests to finish.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// healthResponse is the JSON body of GET /health.
type healthResponse struct {
	Status       string `json:"status"`
	Sessions     int    `json:"sessions"`
	UptimeSecond int64  `json:"uptime_seconds"`
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		resp := healthResponse{
			Status:       "ok",
			UptimeSecond: int64(time.Since(s.startedAt).Seconds()),
		}
		if s.cfg.Sessions != nil {
			resp.Sessions = s.cfg.Sessions.Len()
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// sessionJSON is a serializable session snapshot for GET /api/sessions.
type sessionJSON struct {
	ChatID    telegram.ChatID `json:"chat_id"`
	StartedAt time.Time       `json:"started_at"`
	UptimeS   int64           `json:"uptime_seconds"`
}

func (s *Server) handleSessions() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		var out []sessionJSON
		if s.cfg.Sessions != nil {
			for _, info := range s.cfg.Sessions.Sessions() {
				out = append(out, sessionJSON{
					ChatID:    info.ChatID,
					StartedAt: info.StartedAt,
					UptimeS:   int64(time.Since(info.StartedAt).Seconds()),
				})
			}
		}
		if out == nil {
			out = []sessionJSON{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}
