package reporting

import (
	"bytes"
	"context"
	"delivery-fleet-sim/internal/domain"
	"delivery-fleet-sim/internal/platform/obs"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Backend endpoints, relative to the base URL.
const (
	LocationsPath  = "/api/driver-locations"
	RoutePath      = "/api/driver-route"
	CompletionPath = "/api/orders/finish"
)

// HTTPReporter pushes fleet state to the display backend. Calls are not
// retried: a missed snapshot is superseded by the next tick.
type HTTPReporter struct {
	session *http.Client
	baseURL string
	timeout time.Duration
}

// StatusError is a non-2xx answer from the backend.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

func NewHTTPReporter(baseURL string, timeout time.Duration) (*HTTPReporter, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("backend url is empty")
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	return &HTTPReporter{
		session: &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
	}, nil
}

type driverLocation struct {
	ID     string  `json:"id"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Status string  `json:"status"`
}

type locationsRequest struct {
	Drivers []driverLocation `json:"drivers"`
}

type routeRequest struct {
	DriverID  string       `json:"driverId"`
	RoutePath [][2]float64 `json:"routePath"`
	Type      string       `json:"type"`
	OrderID   string       `json:"orderId"`
}

type completionRequest struct {
	OrderID  string `json:"orderId"`
	DriverID string `json:"driverId"`
}

// ReportLocations sends the whole fleet every time; the backend overwrites
// its driver records with it.
func (h *HTTPReporter) ReportLocations(ctx context.Context, drivers []domain.AgentSnapshot) (err error) {
	defer obs.Time(ctx, "report.Locations")(&err)

	body := locationsRequest{Drivers: make([]driverLocation, 0, len(drivers))}
	for _, d := range drivers {
		body.Drivers = append(body.Drivers, driverLocation{
			ID:     d.ID,
			Lat:    d.Lat,
			Lng:    d.Lng,
			Status: string(d.Status),
		})
	}

	if err := h.post(ctx, LocationsPath, body); err != nil {
		return fmt.Errorf("report locations (%d drivers): %w", len(drivers), err)
	}
	return nil
}

func (h *HTTPReporter) ReportRoute(ctx context.Context, ev domain.RouteEvent) (err error) {
	defer obs.Time(ctx, "report.Route")(&err)

	body := routeRequest{
		DriverID:  ev.DriverID,
		RoutePath: ev.Route.Path(),
		Type:      string(ev.Type),
		OrderID:   ev.OrderID,
	}

	if err := h.post(ctx, RoutePath, body); err != nil {
		return fmt.Errorf("report %s route for %q: %w", ev.Type, ev.DriverID, err)
	}
	return nil
}

func (h *HTTPReporter) ReportCompletion(ctx context.Context, ev domain.CompletionEvent) (err error) {
	defer obs.Time(ctx, "report.Completion")(&err)

	body := completionRequest{OrderID: ev.OrderID, DriverID: ev.DriverID}

	if err := h.post(ctx, CompletionPath, body); err != nil {
		return fmt.Errorf("report completion of order %s: %w", ev.OrderID, err)
	}
	return nil
}

func (h *HTTPReporter) post(ctx context.Context, path string, v any) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := h.session.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
