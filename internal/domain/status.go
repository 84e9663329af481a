package domain

// Status is the mission phase of a driver.
type Status string

const (
	StatusIdle        Status = "IDLE"
	StatusToWarehouse Status = "TO_WAREHOUSE"
	StatusPickup      Status = "PICKUP"
	StatusToCustomer  Status = "TO_CUSTOMER"
)

// Valid reports whether s is one of the defined states.
func (s Status) Valid() bool {
	switch s {
	case StatusIdle, StatusToWarehouse, StatusPickup, StatusToCustomer:
		return true
	default:
		return false
	}
}

// OnMission reports whether a mission reference must be held in this state.
func (s Status) OnMission() bool {
	return s == StatusToWarehouse || s == StatusPickup || s == StatusToCustomer
}

// Next returns the successor in the mission cycle
// IDLE -> TO_WAREHOUSE -> PICKUP -> TO_CUSTOMER -> IDLE.
func (s Status) Next() Status {
	switch s {
	case StatusIdle:
		return StatusToWarehouse
	case StatusToWarehouse:
		return StatusPickup
	case StatusPickup:
		return StatusToCustomer
	default:
		return StatusIdle
	}
}
