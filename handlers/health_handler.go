package handlers

import (
	"context"
	"net/http"
	"time"

	"nfl-pickem-live/interfaces"
)

// HealthHandler reports store reachability. A nil checker means the in-memory store.
type HealthHandler struct {
	responder
	store interfaces.HealthChecker
}

func NewHealthHandler(store interfaces.HealthChecker) *HealthHandler {
	return &HealthHandler{responder: newResponder("Health", false), store: store}
}

// Health handles GET /healthz
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "store": "memory"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warnf("Store ping failed: %v", err)
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "store": "mongodb"})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "store": "mongodb"})
}
