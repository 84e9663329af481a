package domain

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// Route is an ordered sequence of waypoints approximating one leg.
// A route of length 1 means "jump directly to that waypoint".
type Route []Coordinates

// LineString converts the route for orb geometry helpers.
func (r Route) LineString() orb.LineString {
	ls := make(orb.LineString, 0, len(r))
	for _, c := range r {
		ls = append(ls, c.Point())
	}
	return ls
}

// LengthMeters is the geodesic length of the route, used for logging only.
func (r Route) LengthMeters() float64 {
	if len(r) < 2 {
		return 0
	}
	return geo.Length(r.LineString())
}

// Path returns the route as [[lat, lng], ...].
func (r Route) Path() [][2]float64 {
	out := make([][2]float64, 0, len(r))
	for _, c := range r {
		out = append(out, c.LatLng())
	}
	return out
}

// Last returns the final waypoint; ok is false for an empty route.
func (r Route) Last() (Coordinates, bool) {
	if len(r) == 0 {
		return Coordinates{}, false
	}
	return r[len(r)-1], true
}
