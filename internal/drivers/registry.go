package drivers

import (
	"context"
	"errors"

	"ridehail/internal/geo"
)

var (
	// ErrNotFound means the driver id does not resolve to a registered
	// driver.
	ErrNotFound = errors.New("driver not found")
	// ErrAlreadyReserved means a Reserve call lost the race: the driver
	// was not available immediately before the call.
	ErrAlreadyReserved = errors.New("driver already reserved")
	// ErrStoreUnavailable wraps persistence faults. No mutation is
	// applied when it is returned.
	ErrStoreUnavailable = errors.New("driver store unavailable")
)

// Registry is the single owner of driver records. All mutation goes
// through its operations; Reserve is linearizable per driver, so
// concurrent reservations of the same driver yield exactly one success.
type Registry interface {
	// Register stores a new driver and stamps its registration order.
	Register(ctx context.Context, d *Driver) error

	// Get returns the driver or ErrNotFound.
	Get(ctx context.Context, id string) (*Driver, error)

	// FindAvailable returns a point-in-time snapshot of every driver
	// with Available == true, ordered by registration. The snapshot may
	// be stale by the time a reservation is attempted.
	FindAvailable(ctx context.Context) ([]Driver, error)

	// SetAvailability flips the matching-eligibility flag.
	SetAvailability(ctx context.Context, id string, available bool) (*Driver, error)

	// UpdateLocation records the driver's latest position.
	UpdateLocation(ctx context.Context, id string, loc geo.Coordinate) (*Driver, error)

	// Reserve atomically flips Available true→false. It fails with
	// ErrAlreadyReserved if the driver was not available, preventing two
	// concurrent dispatch attempts from double-booking the same driver.
	Reserve(ctx context.Context, id string) (*Driver, error)

	// Release marks the driver available again after their ride reaches
	// a terminal state.
	Release(ctx context.Context, id string) error
}
