package api

import (
	"context"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// healthCheckTimeout bounds each component check in /health.
const healthCheckTimeout = 3 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/stats", s.handleStats)
		r.Get("/runs", s.handleListRuns)
		r.Get("/ws", s.handleWebSocket)
	})

	return r
}

// ComponentHealth is one entry of the health response.
type ComponentHealth struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HealthResponse is returned by GET /api/v1/health.
type HealthResponse struct {
	Status     string            `json:"status"`
	Version    string            `json:"version"`
	Components []ComponentHealth `json:"components"`
}

// handleHealth reports 200 when every component is healthy and 503 otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{
		Status:     "ok",
		Version:    s.version,
		Components: make([]ComponentHealth, 0, len(names)),
	}
	for _, name := range names {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		err := s.checks[name].HealthCheck(ctx)
		cancel()

		c := ComponentHealth{Name: name, Status: "ok"}
		if err != nil {
			c.Status = "down"
			c.Error = err.Error()
			resp.Status = "degraded"
		}
		resp.Components = append(resp.Components, c)
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// handleStats returns the live statistics snapshot.
func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

// handleListRuns returns the newest journal entries. ?limit is optional.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.runs == nil {
		writeError(w, http.StatusNotFound, ErrCodeNotFound, "run journal is disabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	runs, err := s.runs.ListRecent(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing task runs", "error", err)
		writeInternalError(w, "failed to list task runs")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}
