package domain

// Represents one pickup/dropoff assignment for a single driver.
// Mission records are owned by the assignment store until consumed,
// after which the agent holding them treats them as immutable.
type Mission struct {
	ID        string
	DriverID  string
	Warehouse Warehouse
	Pickup    Coordinates
	Dropoff   Coordinates
}

// Warehouse metadata carried by mission records. Only the coordinates
// are required; id and name are informational.
type Warehouse struct {
	ID   int
	Name string
}
