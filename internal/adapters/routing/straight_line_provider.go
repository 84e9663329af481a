package routing

import (
	"context"
	"delivery-fleet-sim/internal/domain"
)

// StraightLineProvider is the fixed-step direct movement profile: waypoints
// are interpolated along the straight line, stepSize degrees apart.
// It never fails.
type StraightLineProvider struct {
	stepSize float64
}

func NewStraightLineProvider(stepSize float64) *StraightLineProvider {
	return &StraightLineProvider{stepSize: stepSize}
}

func (s *StraightLineProvider) Route(
	_ context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (domain.Route, error) {
	return domain.StraightLine(origin, destination, s.stepSize), nil
}
