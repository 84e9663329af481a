package routing

import (
	"context"
	"delivery-fleet-sim/internal/domain"
	"delivery-fleet-sim/internal/platform/obs"
	"delivery-fleet-sim/internal/ports"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// OSRMRouteProvider implements RouteProvider using an OSRM-compatible
// /route/v1 endpoint with GeoJSON geometries.
//
// Every call is bounded by the configured timeout, retries included.
// The provider is safe for concurrent use.
type OSRMRouteProvider struct {
	session     *http.Client
	baseURL     string
	profile     string
	timeout     time.Duration
	maxAttempts int
	backoff     time.Duration
}

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Geometry *geojson.Geometry `json:"geometry"`
	} `json:"routes"`
}

func NewOSRMRouteProvider(baseURL string, timeout time.Duration) (*OSRMRouteProvider, error) {
	if baseURL == "" {
		return nil, errors.New("OSRM base url is empty")
	}
	if timeout <= 0 {
		timeout = 2 * time.Second
	}

	provider := &OSRMRouteProvider{
		session:     &http.Client{Timeout: timeout},
		baseURL:     baseURL,
		profile:     "driving",
		timeout:     timeout,
		maxAttempts: 2,
		backoff:     100 * time.Millisecond,
	}

	return provider, nil
}

// Route fetches the full-overview geometry from origin to destination.
func (o *OSRMRouteProvider) Route(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (_ domain.Route, err error) {
	defer obs.Time(ctx, "osrm.Route")(&err)

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	// OSRM takes lng,lat pairs.
	endpoint := fmt.Sprintf(
		"%s/route/v1/%s/%f,%f;%f,%f",
		o.baseURL, o.profile,
		origin.Lng, origin.Lat, destination.Lng, destination.Lat,
	)

	resp, err := o.doWithRetry(ctx, func() (*http.Request, error) {
		req, err := o.newRequest(ctx, endpoint)
		if err != nil {
			return nil, err
		}
		q := req.URL.Query()
		q.Set("overview", "full")
		q.Set("geometries", "geojson")
		req.URL.RawQuery = q.Encode()
		return req, nil
	})
	if err != nil {
		return nil, fmt.Errorf("osrm route %s -> %s: %w", origin, destination, err)
	}
	defer resp.Body.Close()

	var decoded osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode osrm response: %w", err)
	}

	if decoded.Code != "Ok" || len(decoded.Routes) == 0 || decoded.Routes[0].Geometry == nil {
		return nil, fmt.Errorf("osrm route %s -> %s: code=%q: %w", origin, destination, decoded.Code, ports.ErrNoRoute)
	}

	line, ok := decoded.Routes[0].Geometry.Geometry().(orb.LineString)
	if !ok || len(line) == 0 {
		return nil, fmt.Errorf("osrm route %s -> %s: geometry is not a line string: %w", origin, destination, ports.ErrNoRoute)
	}

	route := make(domain.Route, 0, len(line))
	for _, p := range line {
		route = append(route, domain.FromPoint(p))
	}

	return route, nil
}
