package handler

import (
	"net/http"
	"time"
)

// handleHealth handles GET /health.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady handles GET /ready. A runtime is ready once it has a view and
// its synchronization state allows serving.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	ready, state := true, "ready"
	if h.cfg.Ready != nil {
		ready, state = h.cfg.Ready()
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, r, status, map[string]any{
		"ready": ready,
		"state": state,
		"time":  time.Now().UTC().Format(time.RFC3339),
	})
}
