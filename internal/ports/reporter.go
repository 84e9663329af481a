package ports

import (
	"context"
	"delivery-fleet-sim/internal/domain"
)

// Port: the backend that displays the fleet. All calls are best-effort;
// callers log returned errors and carry on.
type Reporter interface {
	// Push the full fleet snapshot; overwrites backend-side driver state.
	ReportLocations(ctx context.Context, drivers []domain.AgentSnapshot) error
	ReportRoute(ctx context.Context, ev domain.RouteEvent) error
	ReportCompletion(ctx context.Context, ev domain.CompletionEvent) error
}
