package rides

import (
	"time"

	"ridehail/internal/events"
	"ridehail/internal/geo"
)

// Status enumerates the ride lifecycle states.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAssigned  Status = "assigned"
	StatusEnRoute   Status = "en_route"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// allowedTransitions is the ride state flow as code. completed and
// cancelled are terminal.
var allowedTransitions = map[Status][]Status{
	StatusPending:  {StatusAssigned, StatusCancelled},
	StatusAssigned: {StatusEnRoute, StatusCancelled},
	StatusEnRoute:  {StatusCompleted},
}

// CanTransition reports whether to is a legal successor of from.
func CanTransition(from, to Status) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAssigned, StatusEnRoute, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether s has no outgoing transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Stop is one endpoint of a ride: a display address plus the coordinate
// the dispatcher actually matches on.
type Stop struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

// Coordinate returns the stop's position for distance math.
func (s Stop) Coordinate() geo.Coordinate {
	return geo.Coordinate{Lat: s.Lat, Lng: s.Lng}
}

// Ride is a ride record. Everything except DriverID, Status and
// UpdatedAt is immutable after creation; rides are never deleted.
type Ride struct {
	ID          string    `json:"id"`
	PassengerID string    `json:"passenger_id"`
	Pickup      Stop      `json:"pickup"`
	Drop        Stop      `json:"drop"`
	DriverID    *string   `json:"driver_id,omitempty"`
	Status      Status    `json:"status"`
	FareRupees  int       `json:"fare"`
	DistanceKm  float64   `json:"distance"`
	EtaMinutes  int       `json:"estimated_time"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Summary projects the ride into its event payload shape.
func (r *Ride) Summary() events.RideSummary {
	s := events.RideSummary{
		ID:          r.ID,
		PassengerID: r.PassengerID,
		Pickup:      events.Stop{Address: r.Pickup.Address, Lat: r.Pickup.Lat, Lng: r.Pickup.Lng},
		Drop:        events.Stop{Address: r.Drop.Address, Lat: r.Drop.Lat, Lng: r.Drop.Lng},
		Status:      string(r.Status),
		FareRupees:  r.FareRupees,
		DistanceKm:  r.DistanceKm,
		EtaMinutes:  r.EtaMinutes,
		Notes:       r.Notes,
		CreatedAt:   r.CreatedAt,
	}
	if r.DriverID != nil {
		s.DriverID = *r.DriverID
	}
	return s
}

// BookRequest is the body for POST /rides/book.
type BookRequest struct {
	Pickup Stop   `json:"pickup"`
	Drop   Stop   `json:"drop"`
	Notes  string `json:"notes"`
}

// StatusUpdateRequest is the body for PATCH /rides/{id}/status.
type StatusUpdateRequest struct {
	Status Status `json:"status"`
}
