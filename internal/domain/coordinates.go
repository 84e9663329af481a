package domain

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Immutable geographic coordinates (latitude, longitude) in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Point returns the coordinates as an orb point (x=lng, y=lat).
func (c Coordinates) Point() orb.Point { return orb.Point{c.Lng, c.Lat} }

// Return coordinates as [lat, lng] for the backend route payload.
func (c Coordinates) LatLng() [2]float64 { return [2]float64{c.Lat, c.Lng} }

func (c Coordinates) String() string { return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lng) }

func FromPoint(p orb.Point) Coordinates { return Coordinates{Lat: p.Lat(), Lng: p.Lon()} }
