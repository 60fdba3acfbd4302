package rides

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func newTestRide(id, passengerID string) *Ride {
	return &Ride{
		ID:          id,
		PassengerID: passengerID,
		Pickup:      Stop{Address: "Connaught Place", Lat: 28.6315, Lng: 77.2167},
		Drop:        Stop{Address: "Saket", Lat: 28.5245, Lng: 77.2066},
		Status:      StatusPending,
	}
}

func TestMemoryStoreCreateGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if err := store.Create(ctx, newTestRide("r1", "p1")); err != nil {
		t.Fatalf("create: %v", err)
	}

	r, err := store.Get(ctx, "r1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if r.Status != StatusPending {
		t.Fatalf("expected pending, got %s", r.Status)
	}
	if r.UpdatedAt.IsZero() {
		t.Fatal("expected updated_at to be set")
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreAssign(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Create(ctx, newTestRide("r1", "p1"))

	r, err := store.Assign(ctx, "r1", "d1")
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if r.Status != StatusAssigned || r.DriverID == nil || *r.DriverID != "d1" {
		t.Fatalf("unexpected ride after assign: %+v", r)
	}

	if _, err := store.Assign(ctx, "r1", "d2"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on double assign, got %v", err)
	}
	if _, err := store.Assign(ctx, "missing", "d1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStoreConcurrentAssign(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Create(ctx, newTestRide("r1", "p1"))

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := store.Assign(ctx, "r1", "d1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 successful assign, got %d", success)
	}
}

func TestMemoryStoreUpdateStatus(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Create(ctx, newTestRide("r1", "p1"))
	store.Assign(ctx, "r1", "d1")

	r, err := store.UpdateStatus(ctx, "r1", StatusAssigned, StatusEnRoute)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if r.Status != StatusEnRoute {
		t.Fatalf("expected en_route, got %s", r.Status)
	}

	// Stale expectation loses.
	if _, err := store.UpdateStatus(ctx, "r1", StatusAssigned, StatusCancelled); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestMemoryStoreCancelClearsDriver(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Create(ctx, newTestRide("r1", "p1"))
	store.Assign(ctx, "r1", "d1")

	r, err := store.UpdateStatus(ctx, "r1", StatusAssigned, StatusCancelled)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if r.DriverID != nil {
		t.Fatalf("cancelled ride must not reference a driver, got %q", *r.DriverID)
	}
	stored, _ := store.Get(ctx, "r1")
	if stored.DriverID != nil {
		t.Fatalf("stored cancelled ride retains driver %q", *stored.DriverID)
	}
}

func TestMemoryStoreCompleteKeepsDriver(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Create(ctx, newTestRide("r1", "p1"))
	store.Assign(ctx, "r1", "d1")
	store.UpdateStatus(ctx, "r1", StatusAssigned, StatusEnRoute)

	r, err := store.UpdateStatus(ctx, "r1", StatusEnRoute, StatusCompleted)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if r.DriverID == nil || *r.DriverID != "d1" {
		t.Fatalf("completed ride must keep its driver for history, got %v", r.DriverID)
	}
}

func TestMemoryStoreLists(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first := newTestRide("r1", "p1")
	first.CreatedAt = time.Now().Add(-time.Hour)
	store.Create(ctx, first)
	store.Create(ctx, newTestRide("r2", "p1"))
	store.Create(ctx, newTestRide("r3", "p2"))
	store.Assign(ctx, "r2", "d1")

	byPassenger, err := store.ListByPassenger(ctx, "p1")
	if err != nil {
		t.Fatalf("list by passenger: %v", err)
	}
	if len(byPassenger) != 2 {
		t.Fatalf("expected 2 rides, got %d", len(byPassenger))
	}
	if byPassenger[0].ID != "r2" {
		t.Fatalf("expected newest first, got %s", byPassenger[0].ID)
	}

	byDriver, err := store.ListByDriver(ctx, "d1")
	if err != nil {
		t.Fatalf("list by driver: %v", err)
	}
	if len(byDriver) != 1 || byDriver[0].ID != "r2" {
		t.Fatalf("unexpected driver list: %+v", byDriver)
	}
}

func TestMemoryStoreActiveByDriver(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Create(ctx, newTestRide("r1", "p1"))

	if _, err := store.ActiveByDriver(ctx, "d1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound before assignment, got %v", err)
	}

	store.Assign(ctx, "r1", "d1")
	r, err := store.ActiveByDriver(ctx, "d1")
	if err != nil {
		t.Fatalf("active by driver: %v", err)
	}
	if r.ID != "r1" {
		t.Fatalf("expected r1, got %s", r.ID)
	}

	store.UpdateStatus(ctx, "r1", StatusAssigned, StatusEnRoute)
	if _, err := store.ActiveByDriver(ctx, "d1"); err != nil {
		t.Fatalf("en_route ride should still be active: %v", err)
	}

	store.UpdateStatus(ctx, "r1", StatusEnRoute, StatusCompleted)
	if _, err := store.ActiveByDriver(ctx, "d1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("completed ride should not be active, got %v", err)
	}
}
