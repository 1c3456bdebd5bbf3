package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/warehouse-desktop/internal/history"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.loopbackOnlyMiddleware)

	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.instrument("/api/v1/health", s.handleHealth))
		r.Get("/status", s.instrument("/api/v1/status", s.handleStatus))
		r.Get("/history", s.instrument("/api/v1/history", s.handleHistory))
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// handleHealth reports that the shell itself is alive.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        s.version,
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	})
}

// handleStatus returns the coordinator snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Status())
}

// handleHistory lists recent runs, newest first.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "launch history is disabled")
		return
	}

	limit := history.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	launches, err := s.history.List(r.Context(), limit)
	if err != nil {
		if errors.Is(err, r.Context().Err()) {
			return
		}
		s.logger.Error("listing launch history", "error", err)
		writeInternalError(w, "failed to list launch history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"launches": launches,
		"count":    len(launches),
	})
}
