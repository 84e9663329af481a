package domain

// AgentSnapshot is one entry of the per-tick fleet batch.
type AgentSnapshot struct {
	ID     string
	Lat    float64
	Lng    float64
	Status Status
}

// LegType distinguishes the two job legs that emit route geometry.
type LegType string

const (
	LegPickup   LegType = "pickup"
	LegDelivery LegType = "delivery"
)

// RouteEvent is broadcast once when a job leg starts. Wander routes never emit one.
type RouteEvent struct {
	DriverID string
	OrderID  string
	Type     LegType
	Route    Route
}

// CompletionEvent is broadcast once when a delivery leg ends.
type CompletionEvent struct {
	OrderID  string
	DriverID string
}
