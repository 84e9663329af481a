package api

import (
	"delivery-fleet-sim/internal/api/handlers"
	"net/http"
	"time"
)

// NewRouter wires the status endpoints and returns an http.Handler.
// A tick older than maxTickAge marks the process unhealthy.
func NewRouter(fleet handlers.SnapshotSource, maxTickAge time.Duration) http.Handler {
	mux := http.NewServeMux()

	healthHandler := &handlers.HealthHandler{Fleet: fleet, MaxTickAge: maxTickAge}
	driverHandler := &handlers.DriverHandler{Fleet: fleet}

	mux.HandleFunc("/health", healthHandler.Check)
	mux.HandleFunc("/drivers", driverHandler.List)

	return loggingMiddleware(mux)
}
