package routing

import (
	"context"
	"delivery-fleet-sim/internal/domain"
	"delivery-fleet-sim/internal/ports"
	"fmt"
)

type MockLeg struct {
	From, To domain.Coordinates
	Route    domain.Route
}

// MockRouteProvider answers from a fixed table of legs. Unknown legs fail
// with ErrNoRoute.
type MockRouteProvider struct {
	m map[string]domain.Route
}

func NewMockRouteProvider(legs []MockLeg) *MockRouteProvider {
	m := make(map[string]domain.Route, len(legs))
	for _, l := range legs {
		m[l.From.String()+"|"+l.To.String()] = l.Route
	}
	return &MockRouteProvider{m: m}
}

func (p *MockRouteProvider) Route(ctx context.Context, origin, destination domain.Coordinates) (domain.Route, error) {
	r, ok := p.m[origin.String()+"|"+destination.String()]
	if !ok {
		return nil, fmt.Errorf("missing leg %s -> %s: %w", origin, destination, ports.ErrNoRoute)
	}

	return r, nil
}
