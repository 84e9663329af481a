package handlers

import (
	"net/http"
	"time"
)

// HealthHandler reports liveness of the tick loop. The simulator is
// unhealthy once no tick has completed within MaxTickAge.
type HealthHandler struct {
	Fleet      SnapshotSource
	MaxTickAge time.Duration
	Now        func() time.Time
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}

	latest := h.Fleet.Latest()
	switch {
	case latest.At.IsZero():
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "starting"})
	case h.MaxTickAge > 0 && now().Sub(latest.At) > h.MaxTickAge:
		writeJSON(w, r, http.StatusServiceUnavailable, map[string]string{"status": "stale", "tick_id": latest.TickID})
	default:
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok", "tick_id": latest.TickID})
	}
}
