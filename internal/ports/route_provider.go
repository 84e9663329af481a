package ports

import (
	"context"
	"delivery-fleet-sim/internal/domain"
)

// Contract for computing path geometry between two coordinates.
//
// An error and an empty route both mean "no route"; the caller owns the
// fallback. Implementations must bound their own latency.
type RouteProvider interface {
	Route(ctx context.Context, origin, destination domain.Coordinates) (domain.Route, error)
}

// Persistent store for previously computed routes.
type RouteCache interface {
	// Return the cached route and true, or false on a miss.
	Get(ctx context.Context, origin, destination domain.Coordinates) (domain.Route, bool, error)
	Put(ctx context.Context, origin, destination domain.Coordinates, route domain.Route) error
}

type noRouteCacheKey struct{}

// WithoutRouteCache marks lookups made with ctx as throwaway: caches must
// neither read nor store them. Idle wander legs use it.
func WithoutRouteCache(ctx context.Context) context.Context {
	return context.WithValue(ctx, noRouteCacheKey{}, true)
}

// RouteCacheDisabled reports whether ctx was marked by WithoutRouteCache.
func RouteCacheDisabled(ctx context.Context) bool {
	off, _ := ctx.Value(noRouteCacheKey{}).(bool)
	return off
}
