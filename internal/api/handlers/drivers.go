package handlers

import (
	"delivery-fleet-sim/internal/api/dto"
	"delivery-fleet-sim/internal/services"
	"net/http"
	"strings"
)

// SnapshotSource exposes the last snapshot pushed by the tick driver.
type SnapshotSource interface {
	Latest() services.TickReport
}

// DriverHandler exposes the read-only fleet snapshot.
type DriverHandler struct {
	Fleet SnapshotSource
}

// List returns the drivers of the latest tick, optionally filtered by
// ?status=IDLE (case-insensitive).
func (h *DriverHandler) List(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	filter := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))

	latest := h.Fleet.Latest()
	res := dto.ListDriversResponse{
		TickID:  latest.TickID,
		Drivers: make([]dto.DriverResponse, 0, len(latest.Drivers)),
	}
	if !latest.At.IsZero() {
		at := latest.At
		res.At = &at
	}

	for _, d := range latest.Drivers {
		if filter != "" && string(d.Status) != filter {
			continue
		}
		res.Drivers = append(res.Drivers, dto.DriverResponse{
			ID:     d.ID,
			Lat:    d.Lat,
			Lng:    d.Lng,
			Status: string(d.Status),
		})
	}

	writeJSON(w, r, http.StatusOK, res)
}
