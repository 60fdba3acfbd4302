package drivers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"ridehail/internal/events"
	"ridehail/internal/geo"
	"ridehail/internal/observability"
)

// GeoIndex is the optional fast nearby-lookup index (Redis GEO). It is a
// read accelerator only; the Registry stays authoritative.
type GeoIndex interface {
	SetDriverLocation(ctx context.Context, driverID string, lat, lng float64) error
	RemoveDriver(ctx context.Context, driverID string) error
	NearbyDrivers(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]string, error)
}

// RideLookup resolves a driver's active ride so location updates can be
// addressed to the right passenger.
type RideLookup interface {
	// ActiveByDriver returns the ride id and passenger id of the
	// driver's ride in an active (assigned or en_route) state, or
	// ok=false when the driver has none.
	ActiveByDriver(ctx context.Context, driverID string) (rideID, passengerID string, ok bool, err error)
}

// Service owns driver-facing operations. It keeps the registry, the geo
// index, and the real-time channel consistent with each other.
type Service struct {
	registry Registry
	geoIndex GeoIndex // may be nil
	rides    RideLookup
	bus      events.Bus
	log      *slog.Logger
}

func NewService(registry Registry, geoIndex GeoIndex, rides RideLookup, bus events.Bus, log *slog.Logger) *Service {
	if bus == nil {
		bus = events.NopBus{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{registry: registry, geoIndex: geoIndex, rides: rides, bus: bus, log: log}
}

// Register creates a driver account. New drivers start unavailable and
// opt in to matching explicitly, mirroring how driver clients behave.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Driver, error) {
	d := &Driver{
		ID:           uuid.New().String(),
		Name:         req.Name,
		Phone:        req.Phone,
		VehicleType:  req.VehicleType,
		LicensePlate: req.LicensePlate,
		Location:     geo.Coordinate{Lat: req.Lat, Lng: req.Lng},
		Available:    false,
	}
	if d.VehicleType == "" {
		d.VehicleType = "sedan"
	}
	if err := s.registry.Register(ctx, d); err != nil {
		return nil, err
	}
	s.log.Info("driver registered", "driver_id", d.ID)
	return d, nil
}

func (s *Service) Get(ctx context.Context, id string) (*Driver, error) {
	return s.registry.Get(ctx, id)
}

func (s *Service) FindAvailable(ctx context.Context) ([]Driver, error) {
	return s.registry.FindAvailable(ctx)
}

// SetAvailability toggles matching eligibility and keeps the geo index
// in step: only available drivers are indexed. The gauge moves only when
// the flag actually flips, so repeated identical calls don't drift it.
func (s *Service) SetAvailability(ctx context.Context, id string, available bool) (*Driver, error) {
	prev, err := s.registry.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d, err := s.registry.SetAvailability(ctx, id, available)
	if err != nil {
		return nil, err
	}
	s.syncGeoIndex(ctx, d)
	if d.Available != prev.Available {
		if d.Available {
			observability.DriversAvailable.Inc()
		} else {
			observability.DriversAvailable.Dec()
		}
	}
	return d, nil
}

// UpdateLocation records the driver's position, refreshes the geo index,
// and pushes driver-location-updated to the passenger of the driver's
// active ride, if any.
func (s *Service) UpdateLocation(ctx context.Context, id string, loc geo.Coordinate) (*Driver, error) {
	d, err := s.registry.UpdateLocation(ctx, id, loc)
	if err != nil {
		return nil, err
	}
	s.syncGeoIndex(ctx, d)

	if s.rides != nil {
		rideID, passengerID, ok, err := s.rides.ActiveByDriver(ctx, id)
		if err != nil {
			s.log.Warn("active ride lookup failed", "driver_id", id, "error", err)
		} else if ok {
			s.bus.Publish(passengerID, events.Envelope{
				Type: events.TypeDriverLocationUpdated,
				Payload: events.DriverLocationUpdated{
					RideID:   rideID,
					DriverID: id,
					Location: events.LatLng{Lat: loc.Lat, Lng: loc.Lng},
				},
			})
			observability.EventsPublished.WithLabelValues(string(events.TypeDriverLocationUpdated)).Inc()
		}
	}
	return d, nil
}

// Reserve flips the driver unavailable via the registry's compare-and-set
// and drops them from the geo index so nearby lookups stop offering them.
func (s *Service) Reserve(ctx context.Context, id string) (*Driver, error) {
	d, err := s.registry.Reserve(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAlreadyReserved) {
			observability.ReservationConflicts.Inc()
		}
		return nil, err
	}
	if s.geoIndex != nil {
		if err := s.geoIndex.RemoveDriver(ctx, id); err != nil {
			s.log.Warn("geo index remove failed", "driver_id", id, "error", err)
		}
	}
	observability.DriversAvailable.Dec()
	return d, nil
}

// Release makes the driver matchable again after their ride reached a
// terminal state.
func (s *Service) Release(ctx context.Context, id string) error {
	if err := s.registry.Release(ctx, id); err != nil {
		return err
	}
	if s.geoIndex != nil {
		if d, err := s.registry.Get(ctx, id); err == nil {
			s.syncGeoIndex(ctx, d)
		}
	}
	observability.DriversAvailable.Inc()
	return nil
}

// Nearby returns ids of indexed drivers within radiusKm of the point.
func (s *Service) Nearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]string, error) {
	if s.geoIndex == nil {
		return nil, nil
	}
	return s.geoIndex.NearbyDrivers(ctx, lat, lng, radiusKm, limit)
}

func (s *Service) syncGeoIndex(ctx context.Context, d *Driver) {
	if s.geoIndex == nil {
		return
	}
	var err error
	if d.Available {
		err = s.geoIndex.SetDriverLocation(ctx, d.ID, d.Location.Lat, d.Location.Lng)
	} else {
		err = s.geoIndex.RemoveDriver(ctx, d.ID)
	}
	if err != nil {
		s.log.Warn("geo index sync failed", "driver_id", d.ID, "error", err)
	}
}
