package rides

import (
	"context"
	"errors"
)

var (
	// ErrNotFound means the ride id does not resolve to a ride.
	ErrNotFound = errors.New("ride not found")
	// ErrConflict means a compare-and-set lost: the ride's status moved
	// between the read and the write.
	ErrConflict = errors.New("ride state conflict")
	// ErrInvalidTransition means the requested status is not a legal
	// successor of the ride's current status.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrStoreUnavailable wraps persistence faults; no mutation is
	// applied when it is returned.
	ErrStoreUnavailable = errors.New("ride store unavailable")
)

// Store is the single owner of ride records. Assign and UpdateStatus are
// conditional writes, so concurrent transition attempts on the same ride
// serialize: exactly one wins, the rest see ErrConflict.
type Store interface {
	// Create persists a new ride.
	Create(ctx context.Context, r *Ride) error

	// Get returns the ride or ErrNotFound.
	Get(ctx context.Context, id string) (*Ride, error)

	// Assign sets the driver and moves pending→assigned in one step.
	// Fails with ErrConflict if the ride is no longer pending.
	Assign(ctx context.Context, rideID, driverID string) (*Ride, error)

	// UpdateStatus moves from→to only if the ride is still in from.
	// Cancellation clears the driver reference; completion keeps it for
	// history.
	UpdateStatus(ctx context.Context, rideID string, from, to Status) (*Ride, error)

	// ListByPassenger returns the passenger's rides, newest first.
	ListByPassenger(ctx context.Context, passengerID string) ([]Ride, error)

	// ListByDriver returns the driver's rides, newest first.
	ListByDriver(ctx context.Context, driverID string) ([]Ride, error)

	// ActiveByDriver returns the driver's ride in assigned or en_route
	// state, or ErrNotFound when there is none.
	ActiveByDriver(ctx context.Context, driverID string) (*Ride, error)
}
