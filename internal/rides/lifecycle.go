package rides

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"ridehail/internal/events"
	"ridehail/internal/observability"
	"ridehail/pkg/kafka"
)

// DriverReleaser puts a driver back into the matchable pool once their
// ride reaches a terminal state.
type DriverReleaser interface {
	Release(ctx context.Context, driverID string) error
}

// Journal records lifecycle events durably (Kafka). Best-effort; it is
// never part of the store transaction.
type Journal interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

// Lifecycle enforces the ride status state machine and the side effects
// transitions trigger. Store commit comes first; driver release is part
// of the same logical operation; event emission follows and never rolls
// back committed state.
type Lifecycle struct {
	store   Store
	drivers DriverReleaser
	bus     events.Bus
	journal Journal // may be nil
	log     *slog.Logger
}

func NewLifecycle(store Store, drivers DriverReleaser, bus events.Bus, journal Journal, log *slog.Logger) *Lifecycle {
	if bus == nil {
		bus = events.NopBus{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Lifecycle{store: store, drivers: drivers, bus: bus, journal: journal, log: log}
}

// RequestTransition moves the ride to target if target is a legal
// successor of the ride's current status. A transition computed against
// a stale status fails with ErrInvalidTransition rather than silently
// overwriting the last committed one.
func (l *Lifecycle) RequestTransition(ctx context.Context, rideID string, target Status) (*Ride, error) {
	if !target.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, target)
	}

	current, err := l.store.Get(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, target)
	}

	updated, err := l.store.UpdateStatus(ctx, rideID, current.Status, target)
	if errors.Is(err, ErrConflict) {
		// Lost the race: the observed status is stale now.
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, target)
	}
	if err != nil {
		return nil, err
	}

	// Cancellation clears the ride's driver reference, so release by the
	// driver observed before the write.
	if target.Terminal() && current.DriverID != nil {
		if err := l.drivers.Release(ctx, *current.DriverID); err != nil {
			// The ride is committed but the driver is stranded
			// unavailable; surface it so the caller can reconcile.
			l.log.Error("driver release failed after terminal transition",
				"ride_id", rideID, "driver_id", *current.DriverID, "error", err)
			return updated, fmt.Errorf("release driver %s: %w", *current.DriverID, err)
		}
	}

	observability.RideTransitions.WithLabelValues(string(current.Status), string(target)).Inc()
	l.log.Info("ride transitioned",
		"ride_id", rideID, "from", current.Status, "to", target)

	l.bus.Publish(updated.PassengerID, events.Envelope{
		Type: events.TypeRideStatusUpdated,
		Payload: events.RideStatusUpdated{
			RideID: updated.ID,
			Status: string(updated.Status),
		},
	})
	observability.EventsPublished.WithLabelValues(string(events.TypeRideStatusUpdated)).Inc()

	if l.journal != nil && target == StatusCompleted {
		ride := *updated
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := l.journal.Publish(ctx, kafka.TopicRideCompleted, ride.ID, ride.Summary()); err != nil {
				l.log.Warn("journal publish failed", "topic", kafka.TopicRideCompleted, "ride_id", ride.ID, "error", err)
			}
		}()
	}

	return updated, nil
}
