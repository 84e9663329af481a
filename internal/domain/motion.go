package domain

import (
	"math"

	"github.com/paulmach/orb/planar"
)

// Distance is the planar (Euclidean) distance in degrees between a and b.
// Good enough at city scale; not geodesic.
func Distance(a, b Coordinates) float64 {
	return planar.Distance(a.Point(), b.Point())
}

// AdvanceToward moves current by step along the straight line to target.
// When the remaining distance is at most step it returns target and
// arrived=true. It never overshoots, and current == target counts as arrived.
func AdvanceToward(current, target Coordinates, step float64) (Coordinates, bool) {
	d := Distance(current, target)
	if d <= step || d == 0 {
		return target, true
	}

	ratio := step / d
	return Coordinates{
		Lat: current.Lat + (target.Lat-current.Lat)*ratio,
		Lng: current.Lng + (target.Lng-current.Lng)*ratio,
	}, false
}

// AdvanceAlongPath moves the cursor forward by steps waypoints, clamped to
// the last index, and returns the waypoint under the new cursor. Speed is
// modelled as waypoints per tick, not metric distance.
//
// An empty path has nothing to consume and reports arrived with a zero position;
// callers substitute a single-waypoint fallback before advancing.
func AdvanceAlongPath(path Route, cursor, steps int) (Coordinates, int, bool) {
	if len(path) == 0 {
		return Coordinates{}, cursor, true
	}
	if steps < 1 {
		steps = 1
	}
	if cursor < 0 {
		cursor = 0
	}

	last := len(path) - 1
	next := cursor + steps
	if next > last {
		next = last
	}

	return path[next], next, next == last
}

// StraightLine interpolates waypoints from origin to destination spaced step
// apart. The first waypoint is origin and the last is destination.
func StraightLine(origin, destination Coordinates, step float64) Route {
	if step <= 0 || math.IsNaN(step) {
		return Route{destination}
	}

	n := int(math.Ceil(Distance(origin, destination)/step)) + 1
	route := make(Route, 0, n)
	route = append(route, origin)

	cur := origin
	for {
		next, arrived := AdvanceToward(cur, destination, step)
		route = append(route, next)
		if arrived {
			return route
		}
		cur = next
	}
}
