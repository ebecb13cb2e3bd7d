package handlers

import (
	"context"
	"net/http"
	"time"

	"deckconv/internal/httpkit"
)

// Health is liveness: the process is up and serving.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	httpkit.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "deckconv"})
}

// Ready is readiness: the backing object store answers a probe.
func (h *Handlers) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.store.Check(ctx); err != nil {
		h.log.Warn("readiness probe failed", "error", err.Error())
		httpkit.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unavailable",
			"reason": "object store unreachable",
		})
		return
	}

	httpkit.WriteJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"provider":     h.store.Provider(),
		"queue_depth":  h.sched.QueueDepth(),
		"running_jobs": h.reg.RunningCount(),
	})
}
