// Package dispatch implements the matching engine: given a new ride
// request it selects the nearest available driver, reserves them through
// the registry's compare-and-set, and persists the assignment.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"

	"ridehail/internal/drivers"
	"ridehail/internal/events"
	"ridehail/internal/fare"
	"ridehail/internal/geo"
	"ridehail/internal/observability"
	"ridehail/internal/rides"
	"ridehail/pkg/kafka"
)

// DriverPool is the slice of the driver registry dispatch needs:
// snapshot, reserve, and rollback.
type DriverPool interface {
	FindAvailable(ctx context.Context) ([]drivers.Driver, error)
	Reserve(ctx context.Context, id string) (*drivers.Driver, error)
	Release(ctx context.Context, id string) error
}

// Journal records dispatch events durably (Kafka); best-effort.
type Journal interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

// Service is the dispatcher. Policy: first-available-nearest, winner
// take all, no re-ranking after reservation.
type Service struct {
	store   rides.Store
	pool    DriverPool
	bus     events.Bus
	journal Journal // may be nil
	log     *slog.Logger
}

func NewService(store rides.Store, pool DriverPool, bus events.Bus, journal Journal, log *slog.Logger) *Service {
	if bus == nil {
		bus = events.NopBus{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Service{store: store, pool: pool, bus: bus, journal: journal, log: log}
}

// BookRide creates the ride, then tries to assign the nearest available
// driver. When no driver can be reserved the ride stays persisted in
// pending and ErrNoDriversAvailable is returned alongside it, so the
// caller can resubmit a fresh dispatch attempt later.
func (s *Service) BookRide(ctx context.Context, passengerID string, pickup, drop rides.Stop, notes string) (*rides.Ride, error) {
	distance := geo.DistanceKm(pickup.Coordinate(), drop.Coordinate())
	fareRupees, etaMinutes := fare.Estimate(distance)

	ride := &rides.Ride{
		ID:          uuid.New().String(),
		PassengerID: passengerID,
		Pickup:      pickup,
		Drop:        drop,
		Status:      rides.StatusPending,
		FareRupees:  fareRupees,
		DistanceKm:  math.Round(distance*100) / 100,
		EtaMinutes:  etaMinutes,
		Notes:       notes,
		CreatedAt:   time.Now(),
	}
	if err := s.store.Create(ctx, ride); err != nil {
		return nil, err
	}
	s.journalAsync(kafka.TopicRideRequested, ride.ID, ride.Summary())

	candidates, err := s.pool.FindAvailable(ctx)
	if err != nil {
		return nil, err
	}

	driver, err := s.reserveNearest(ctx, pickup.Coordinate(), candidates)
	if errors.Is(err, rides.ErrNoDriversAvailable) {
		observability.DispatchNoDrivers.Inc()
		s.log.Info("no drivers available", "ride_id", ride.ID, "passenger_id", passengerID)
		return ride, err
	}
	if err != nil {
		return nil, err
	}

	assigned, err := s.store.Assign(ctx, ride.ID, driver.ID)
	if err != nil {
		// The driver is reserved but the assignment did not commit.
		// Roll the reservation back rather than strand them unavailable.
		if relErr := s.pool.Release(ctx, driver.ID); relErr != nil {
			s.log.Error("reservation rollback failed",
				"ride_id", ride.ID, "driver_id", driver.ID, "error", relErr)
		}
		return nil, fmt.Errorf("assign ride %s: %w", ride.ID, err)
	}

	observability.RidesBooked.Inc()
	s.log.Info("ride dispatched",
		"ride_id", assigned.ID, "driver_id", driver.ID, "distance_km", assigned.DistanceKm)

	s.bus.Publish(driver.ID, events.Envelope{
		Type:    events.TypeNewRideRequest,
		Payload: events.NewRideRequest{Ride: assigned.Summary()},
	})
	observability.EventsPublished.WithLabelValues(string(events.TypeNewRideRequest)).Inc()

	s.bus.Publish(passengerID, events.Envelope{
		Type: events.TypeRideAssigned,
		Payload: events.RideAssigned{
			Ride:           assigned.Summary(),
			DriverID:       driver.ID,
			DriverLocation: events.LatLng{Lat: driver.Location.Lat, Lng: driver.Location.Lng},
		},
	})
	observability.EventsPublished.WithLabelValues(string(events.TypeRideAssigned)).Inc()

	s.journalAsync(kafka.TopicDriverAssigned, assigned.ID, assigned.Summary())

	return assigned, nil
}

// reserveNearest walks the availability snapshot from the nearest
// candidate outward until a reservation sticks. A candidate lost to a
// concurrent dispatch is dropped and selection retries among the rest.
func (s *Service) reserveNearest(ctx context.Context, pickup geo.Coordinate, candidates []drivers.Driver) (*drivers.Driver, error) {
	remaining := append([]drivers.Driver(nil), candidates...)
	for len(remaining) > 0 {
		idx := nearest(pickup, remaining)
		candidate := remaining[idx]

		driver, err := s.pool.Reserve(ctx, candidate.ID)
		if err == nil {
			return driver, nil
		}
		if errors.Is(err, drivers.ErrAlreadyReserved) || errors.Is(err, drivers.ErrNotFound) {
			remaining = append(remaining[:idx], remaining[idx+1:]...)
			continue
		}
		return nil, err
	}
	return nil, rides.ErrNoDriversAvailable
}

// nearest returns the index of the candidate closest to pickup. The
// snapshot arrives in registration order and comparison is strict, so
// distance ties resolve to the earliest-registered driver.
func nearest(pickup geo.Coordinate, candidates []drivers.Driver) int {
	best := 0
	bestDist := geo.DistanceKm(pickup, candidates[0].Location)
	for i := 1; i < len(candidates); i++ {
		if d := geo.DistanceKm(pickup, candidates[i].Location); d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

func (s *Service) journalAsync(topic, key string, value any) {
	if s.journal == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.journal.Publish(ctx, topic, key, value); err != nil {
			s.log.Warn("journal publish failed", "topic", topic, "key", key, "error", err)
		}
	}()
}
