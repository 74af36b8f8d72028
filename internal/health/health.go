// Package health serves a small liveness endpoint for process supervisors.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// SessionCounter reports how many users have a link awaiting a choice.
type SessionCounter interface {
	Len() int
}

// Response is the JSON body of GET /health.
type Response struct {
	Status          string `json:"status"`
	Timestamp       string `json:"timestamp"`
	Platform        string `json:"platform"`
	Transcoder      bool   `json:"transcoder"`
	PendingSessions int    `json:"pending_sessions"`
}

// Handler answers health checks.
type Handler struct {
	platform   string
	transcoder bool
	sessions   SessionCounter
	logger     zerolog.Logger
	now        func() time.Time
}

func NewHandler(platform string, transcoder bool, sessions SessionCounter, logger zerolog.Logger) *Handler {
	return &Handler{
		platform:   platform,
		transcoder: transcoder,
		sessions:   sessions,
		logger:     logger.With().Str("component", "health").Logger(),
		now:        time.Now,
	}
}

// Live handles GET /health.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	resp := Response{
		Status:     "ok",
		Timestamp:  h.now().UTC().Format(time.RFC3339),
		Platform:   h.platform,
		Transcoder: h.transcoder,
	}
	if h.sessions != nil {
		resp.PendingSessions = h.sessions.Len()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Warn().Err(err).Msg("failed to write health response")
	}
}

// NewRouter mounts the health routes.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.CleanPath)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.Live)

	return r
}

// Server runs the health router until shut down.
type Server struct {
	srv    *http.Server
	logger zerolog.Logger
}

func NewServer(addr string, h *Handler, logger zerolog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(h),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger.With().Str("component", "health").Logger(),
	}
}

// Start listens in the background. Listen errors other than a clean shutdown
// are logged.
func (s *Server) Start() {
	go func() {
		s.logger.Info().Str("addr", s.srv.Addr).Msg("health endpoint listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error().Err(err).Msg("health endpoint failed")
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
