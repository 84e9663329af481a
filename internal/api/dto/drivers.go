package dto

import "time"

type DriverResponse struct {
	ID     string  `json:"id"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Status string  `json:"status"`
}

type ListDriversResponse struct {
	TickID  string           `json:"tick_id"`
	At      *time.Time       `json:"at"`
	Drivers []DriverResponse `json:"drivers"`
}
