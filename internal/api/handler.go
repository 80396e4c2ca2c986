// Package api provides the daemon's HTTP surface: stats and readiness.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/npcsociety/npcd/internal/store"
	"github.com/npcsociety/npcd/internal/transport"
)

// Handler serves the operational endpoints next to the WebSocket ingress.
type Handler struct {
	repo store.Repository
	mgr  *transport.Manager
}

// NewHandler creates a new Handler.
func NewHandler(repo store.Repository, mgr *transport.Manager) *Handler {
	return &Handler{repo: repo, mgr: mgr}
}

// RegisterRoutes mounts the API endpoints on the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/stats", h.Stats)
	r.Get("/readyz", h.Ready)
}

// Stats reports journal counters plus the live connection count.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.repo.Stats(r.Context())
	if err != nil {
		Error(w, http.StatusInternalServerError, "failed to aggregate stats")
		return
	}

	JSON(w, http.StatusOK, struct {
		*store.Stats
		ActiveConnections int `json:"active_connections"`
	}{stats, h.mgr.Count()})
}

// Ready reports readiness based on database connectivity.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if err := h.repo.Ping(r.Context()); err != nil {
		Error(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
