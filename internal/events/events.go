// Package events defines the typed payloads pushed to passengers and
// drivers over their real-time channels, and the Bus contract used to
// address them. Payload shapes mirror the corresponding ride and driver
// fields; transport is someone else's problem.
package events

import "time"

// Type tags an envelope so clients can switch on it.
type Type string

const (
	TypeNewRideRequest        Type = "new-ride-request"
	TypeRideAssigned          Type = "ride-assigned"
	TypeRideStatusUpdated     Type = "ride-status-updated"
	TypeDriverLocationUpdated Type = "driver-location-updated"
)

// Envelope is the wire unit delivered to a single logical target.
type Envelope struct {
	Type    Type `json:"type"`
	Payload any  `json:"payload"`
}

// Bus fans an envelope out to every live connection registered under
// targetID. Delivery is best-effort and at-most-once per connected
// session; envelopes for targets with no connection are dropped.
type Bus interface {
	Publish(targetID string, e Envelope)
}

// NopBus discards everything. Useful as a default and in tests.
type NopBus struct{}

func (NopBus) Publish(string, Envelope) {}

// LatLng is a coordinate pair used in event payloads.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Stop is an address with its coordinate, as shown to clients.
type Stop struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// RideSummary is the ride projection embedded in ride events.
type RideSummary struct {
	ID          string    `json:"id"`
	PassengerID string    `json:"passenger_id"`
	DriverID    string    `json:"driver_id,omitempty"`
	Pickup      Stop      `json:"pickup"`
	Drop        Stop      `json:"drop"`
	Status      string    `json:"status"`
	FareRupees  int       `json:"fare"`
	DistanceKm  float64   `json:"distance"`
	EtaMinutes  int       `json:"estimated_time"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewRideRequest is sent to the selected driver when a ride is assigned
// to them.
type NewRideRequest struct {
	Ride RideSummary `json:"ride"`
}

// RideAssigned is sent to the passenger when a driver has been reserved
// for their ride.
type RideAssigned struct {
	Ride           RideSummary `json:"ride"`
	DriverID       string      `json:"driver_id"`
	DriverLocation LatLng      `json:"driver_location"`
}

// RideStatusUpdated is sent to the passenger on every committed status
// transition.
type RideStatusUpdated struct {
	RideID string `json:"ride_id"`
	Status string `json:"status"`
}

// DriverLocationUpdated is sent to the passenger of the driver's active
// ride when the driver reports a new position.
type DriverLocationUpdated struct {
	RideID   string `json:"ride_id"`
	DriverID string `json:"driver_id"`
	Location LatLng `json:"location"`
}
