package cache

import (
	"context"
	"database/sql"
	"delivery-fleet-sim/internal/domain"
	"delivery-fleet-sim/internal/platform/obs"
	"encoding/json"
	"errors"
	"fmt"
)

// SQLRouteCache is a Postgres-backed cache of origin->destination routes.
// Endpoints are rounded to KeyPrecision decimals, so nearby requests share
// an entry; route endpoints are approximate anyway.
type SQLRouteCache struct {
	DB *sql.DB
}

// KeyPrecision is the number of decimals kept in cache keys (~11 m).
const KeyPrecision = 4

func NewSQLRouteCache(db *sql.DB) *SQLRouteCache {
	return &SQLRouteCache{DB: db}
}

// Key renders c as the rounded cache key.
func Key(c domain.Coordinates) string {
	return fmt.Sprintf("%.*f,%.*f", KeyPrecision, c.Lat, KeyPrecision, c.Lng)
}

// Fetch the cached route for one origin and destination.
func (s *SQLRouteCache) Get(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
) (_ domain.Route, _ bool, err error) {
	defer obs.Time(ctx, "route.cache.Get")(&err)

	if s.DB == nil {
		return nil, false, errors.New("route cache: db is nil")
	}

	q := `
	SELECT path
    FROM route_cache
    WHERE origin = $1
        AND destination = $2;
	`

	var raw []byte
	err = s.DB.QueryRowContext(ctx, q, Key(origin), Key(destination)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get route cache: query route_cache table: %w", err)
	}

	var path [][2]float64
	if err := json.Unmarshal(raw, &path); err != nil {
		return nil, false, fmt.Errorf("get route cache: decode path: %w", err)
	}
	if len(path) == 0 {
		return nil, false, nil
	}

	route := make(domain.Route, 0, len(path))
	for _, p := range path {
		route = append(route, domain.Coordinates{Lat: p[0], Lng: p[1]})
	}

	return route, true, nil
}

// Store a route. Empty routes are never cached.
func (s *SQLRouteCache) Put(
	ctx context.Context,
	origin domain.Coordinates,
	destination domain.Coordinates,
	route domain.Route,
) error {
	if s.DB == nil {
		return errors.New("route cache: db is nil")
	}

	if len(route) == 0 {
		return nil
	}

	payload, err := json.Marshal(route.Path())
	if err != nil {
		return fmt.Errorf("insert route cache: encode path: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
	INSERT INTO route_cache (origin, destination, path)
    VALUES ($1, $2, $3)
	ON CONFLICT (origin, destination) DO UPDATE
	SET path = EXCLUDED.path,
		updated_at = now();
	`, Key(origin), Key(destination), payload)
	if err != nil {
		return fmt.Errorf("insert route cache origin=%q destination=%q: %w", Key(origin), Key(destination), err)
	}

	return nil
}
