package drivers

import (
	"time"

	"ridehail/internal/geo"
)

// Driver is a registered driver account with its last reported position
// and matching eligibility.
type Driver struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Phone        string         `json:"phone,omitempty"`
	VehicleType  string         `json:"vehicle_type"`
	LicensePlate string         `json:"license_plate,omitempty"`
	Location     geo.Coordinate `json:"location"`
	Available    bool           `json:"available"`
	CreatedAt    time.Time      `json:"created_at"`

	// seq is the registration order, used as the deterministic
	// tie-breaker during dispatch. Assigned by the registry.
	seq int64
}

// RegisterRequest is the body for POST /drivers.
type RegisterRequest struct {
	Name         string  `json:"name"`
	Phone        string  `json:"phone"`
	VehicleType  string  `json:"vehicle_type"`
	LicensePlate string  `json:"license_plate"`
	Lat          float64 `json:"lat"`
	Lng          float64 `json:"lng"`
}

// LocationUpdate is the body for PATCH /drivers/location.
type LocationUpdate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// AvailabilityUpdate is the body for PATCH /drivers/availability.
type AvailabilityUpdate struct {
	Available bool `json:"available"`
}
