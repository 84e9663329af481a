package ports

import "errors"

var (
	// ErrNoRoute is returned by route providers that produced no waypoints.
	ErrNoRoute = errors.New("no route")
	// ErrMalformedMission marks a mission record that could not be parsed.
	ErrMalformedMission = errors.New("malformed mission record")
	// ErrInvariant marks an agent found in an impossible state.
	ErrInvariant = errors.New("agent invariant violated")
)
