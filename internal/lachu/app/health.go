package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sajadtroy/lachu/common/version"
)

// HealthServer exposes /health and /status. It is optional; the bot runs
// without it when HTTPAddr is empty.
type HealthServer struct {
	addr      string
	store     statusProvider
	info      StatusInfo
	startedAt time.Time
	router    chi.Router
	server    *http.Server
	stopOnce  sync.Once
}

// statusProvider is the part of the store the status page reads.
type statusProvider interface {
	Ping(ctx context.Context) error
	HistoryMessageCount(ctx context.Context) (int, error)
}

// StatusInfo is static configuration echoed on /status.
type StatusInfo struct {
	Model          string
	HistoryEnabled bool
	BotUserID      string
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
}

type statusResponse struct {
	Status          string    `json:"status"`
	Version         string    `json:"version"`
	Commit          string    `json:"commit"`
	BuildTime       string    `json:"build_time"`
	StartedAt       time.Time `json:"started_at"`
	UptimeSecs      float64   `json:"uptime_seconds"`
	BotUserID       string    `json:"bot_user_id"`
	Model           string    `json:"model"`
	HistoryEnabled  bool      `json:"history_enabled"`
	HistoryMessages int       `json:"history_messages"`
	Database        string    `json:"database"`
}

// NewHealthServer configures the HTTP routes (does not start listening).
func NewHealthServer(addr string, sp statusProvider, info StatusInfo) *HealthServer {
	hs := &HealthServer{
		addr:      addr,
		store:     sp,
		info:      info,
		startedAt: time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/health", hs.handleHealth)
	r.Get("/status", hs.handleStatus)
	hs.router = r
	return hs
}

// ServeHTTP lets tests drive the routes with httptest.NewRecorder.
func (h *HealthServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// Start listens in the background. It returns once the listener is open and
// shuts the server down when ctx is cancelled.
func (h *HealthServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", h.addr)
	if err != nil {
		return fmt.Errorf("health server: listen %s: %w", h.addr, err)
	}

	h.server = &http.Server{
		Handler:      h,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("health server listening", "addr", ln.Addr().String())
		if err := h.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("health server stopped", "err", err)
		}
	}()
	go func() {
		<-ctx.Done()
		h.Stop()
	}()
	return nil
}

// Stop shuts down the HTTP server.
func (h *HealthServer) Stop() {
	if h.server == nil {
		return
	}
	h.stopOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := h.server.Shutdown(ctx); err != nil {
			slog.Warn("health server shutdown error", "err", err)
		}
	})
}

func (h *HealthServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:  "ok",
		Version: version.Version,
		Commit:  version.GitCommit,
	})
}

// handleStatus reports runtime details. A database that fails its ping
// turns the response into 503 "degraded".
func (h *HealthServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{
		Status:         "ok",
		Version:        version.Version,
		Commit:         version.GitCommit,
		BuildTime:      version.BuildTime,
		StartedAt:      h.startedAt,
		UptimeSecs:     time.Since(h.startedAt).Seconds(),
		BotUserID:      h.info.BotUserID,
		Model:          h.info.Model,
		HistoryEnabled: h.info.HistoryEnabled,
		Database:       "ok",
	}
	code := http.StatusOK

	if h.store != nil {
		if err := h.store.Ping(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Database = err.Error()
			code = http.StatusServiceUnavailable
		} else if n, err := h.store.HistoryMessageCount(r.Context()); err == nil {
			resp.HistoryMessages = n
		}
	}
	writeJSON(w, code, resp)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("health: failed to encode JSON response", "err", err)
	}
}
