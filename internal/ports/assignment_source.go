package ports

import (
	"context"
	"delivery-fleet-sim/internal/domain"
)

// Port: the external store holding at most one pending mission per driver.
type AssignmentSource interface {
	// Return the pending mission for agentID, or nil when none exists.
	// Unparseable records yield an error wrapping ErrMalformedMission.
	Pending(ctx context.Context, agentID string) (*domain.Mission, error)
	// Remove the pending mission for agentID. Safe to call when absent.
	Consume(ctx context.Context, agentID string) error
}
