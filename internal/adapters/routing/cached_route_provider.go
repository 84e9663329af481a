package routing

import (
	"context"
	"delivery-fleet-sim/internal/domain"
	"delivery-fleet-sim/internal/ports"
	"time"

	log "github.com/sirupsen/logrus"
)

// CachedRouteProvider checks a persistent cache before calling the wrapped
// provider. Cache failures and slow cache calls degrade to a live lookup.
// Lookups marked with ports.WithoutRouteCache bypass the cache entirely.
type CachedRouteProvider struct {
	next    ports.RouteProvider
	cache   ports.RouteCache
	timeout time.Duration
}

func NewCachedRouteProvider(next ports.RouteProvider, cache ports.RouteCache, timeout time.Duration) *CachedRouteProvider {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &CachedRouteProvider{next: next, cache: cache, timeout: timeout}
}

func (c *CachedRouteProvider) Route(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (domain.Route, error) {
	if ports.RouteCacheDisabled(ctx) {
		return c.next.Route(ctx, origin, destination)
	}

	if cached, ok := c.get(ctx, origin, destination); ok {
		return cached, nil
	}

	route, err := c.next.Route(ctx, origin, destination)
	if err != nil || len(route) == 0 {
		return route, err
	}

	c.put(ctx, origin, destination, route)

	return route, nil
}

func (c *CachedRouteProvider) get(ctx context.Context, origin, destination domain.Coordinates) (domain.Route, bool) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cached, ok, err := c.cache.Get(ctx, origin, destination)
	if err != nil {
		log.WithError(err).Warn("route cache read failed")
		return nil, false
	}
	return cached, ok
}

func (c *CachedRouteProvider) put(ctx context.Context, origin, destination domain.Coordinates, route domain.Route) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.cache.Put(ctx, origin, destination, route); err != nil {
		log.WithError(err).Warn("route cache write failed")
	}
}
