package drivers

import (
	"context"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"ridehail/internal/events"
	"ridehail/internal/geo"
	"ridehail/internal/observability"
)

type fakeGeoIndex struct {
	mu      sync.Mutex
	indexed map[string]geo.Coordinate
}

func newFakeGeoIndex() *fakeGeoIndex {
	return &fakeGeoIndex{indexed: make(map[string]geo.Coordinate)}
}

func (f *fakeGeoIndex) SetDriverLocation(ctx context.Context, driverID string, lat, lng float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.indexed[driverID] = geo.Coordinate{Lat: lat, Lng: lng}
	return nil
}

func (f *fakeGeoIndex) RemoveDriver(ctx context.Context, driverID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.indexed, driverID)
	return nil
}

func (f *fakeGeoIndex) NearbyDrivers(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for id := range f.indexed {
		out = append(out, id)
	}
	return out, nil
}

func (f *fakeGeoIndex) has(driverID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.indexed[driverID]
	return ok
}

type fakeRideLookup struct {
	rideID      string
	passengerID string
	active      bool
}

func (f *fakeRideLookup) ActiveByDriver(ctx context.Context, driverID string) (string, string, bool, error) {
	return f.rideID, f.passengerID, f.active, nil
}

type captureBus struct {
	mu     sync.Mutex
	events []events.Envelope
	target []string
}

func (b *captureBus) Publish(targetID string, e events.Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.target = append(b.target, targetID)
	b.events = append(b.events, e)
}

func TestServiceRegisterDefaults(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRegistry(), nil, nil, nil, nil)

	d, err := svc.Register(ctx, RegisterRequest{Name: "Asha", Phone: "+919876543210", Lat: 28.61, Lng: 77.21})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if d.ID == "" {
		t.Fatal("expected generated id")
	}
	if d.Available {
		t.Fatal("new drivers must start unavailable")
	}
	if d.VehicleType != "sedan" {
		t.Fatalf("expected default vehicle type, got %q", d.VehicleType)
	}
}

func TestServiceAvailabilitySyncsGeoIndex(t *testing.T) {
	ctx := context.Background()
	geoIdx := newFakeGeoIndex()
	svc := NewService(NewMemoryRegistry(), geoIdx, nil, nil, nil)

	d, _ := svc.Register(ctx, RegisterRequest{Name: "Asha", Phone: "+919876543210", Lat: 28.61, Lng: 77.21})

	if _, err := svc.SetAvailability(ctx, d.ID, true); err != nil {
		t.Fatalf("set available: %v", err)
	}
	if !geoIdx.has(d.ID) {
		t.Fatal("available driver should be indexed")
	}

	if _, err := svc.SetAvailability(ctx, d.ID, false); err != nil {
		t.Fatalf("set unavailable: %v", err)
	}
	if geoIdx.has(d.ID) {
		t.Fatal("unavailable driver should be dropped from the index")
	}
}

func TestServiceAvailabilityGaugeOnlyMovesOnFlip(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryRegistry(), nil, nil, nil, nil)

	d, _ := svc.Register(ctx, RegisterRequest{Name: "Asha", Phone: "+919876543210", Lat: 28.61, Lng: 77.21})

	before := testutil.ToFloat64(observability.DriversAvailable)

	svc.SetAvailability(ctx, d.ID, true)
	svc.SetAvailability(ctx, d.ID, true)
	if got := testutil.ToFloat64(observability.DriversAvailable) - before; got != 1 {
		t.Fatalf("repeated available=true drifted the gauge by %v, want 1", got)
	}

	svc.SetAvailability(ctx, d.ID, false)
	svc.SetAvailability(ctx, d.ID, false)
	if got := testutil.ToFloat64(observability.DriversAvailable) - before; got != 0 {
		t.Fatalf("repeated available=false drifted the gauge by %v, want 0", got)
	}
}

func TestServiceReserveDropsFromGeoIndex(t *testing.T) {
	ctx := context.Background()
	geoIdx := newFakeGeoIndex()
	svc := NewService(NewMemoryRegistry(), geoIdx, nil, nil, nil)

	d, _ := svc.Register(ctx, RegisterRequest{Name: "Asha", Phone: "+919876543210", Lat: 28.61, Lng: 77.21})
	svc.SetAvailability(ctx, d.ID, true)

	if _, err := svc.Reserve(ctx, d.ID); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if geoIdx.has(d.ID) {
		t.Fatal("reserved driver must leave the geo index")
	}

	if err := svc.Release(ctx, d.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	if !geoIdx.has(d.ID) {
		t.Fatal("released driver should be re-indexed")
	}
}

func TestServiceLocationFanOut(t *testing.T) {
	ctx := context.Background()
	bus := &captureBus{}
	lookup := &fakeRideLookup{rideID: "r1", passengerID: "p1", active: true}
	svc := NewService(NewMemoryRegistry(), nil, lookup, bus, nil)

	d, _ := svc.Register(ctx, RegisterRequest{Name: "Asha", Phone: "+919876543210", Lat: 28.61, Lng: 77.21})

	if _, err := svc.UpdateLocation(ctx, d.ID, geo.Coordinate{Lat: 28.62, Lng: 77.22}); err != nil {
		t.Fatalf("update location: %v", err)
	}

	if len(bus.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(bus.events))
	}
	if bus.target[0] != "p1" {
		t.Fatalf("event addressed to %s, want p1", bus.target[0])
	}
	if bus.events[0].Type != events.TypeDriverLocationUpdated {
		t.Fatalf("unexpected type %s", bus.events[0].Type)
	}
	payload, ok := bus.events[0].Payload.(events.DriverLocationUpdated)
	if !ok {
		t.Fatalf("unexpected payload %T", bus.events[0].Payload)
	}
	if payload.RideID != "r1" || payload.DriverID != d.ID || payload.Location.Lat != 28.62 {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestServiceLocationNoActiveRide(t *testing.T) {
	ctx := context.Background()
	bus := &captureBus{}
	svc := NewService(NewMemoryRegistry(), nil, &fakeRideLookup{}, bus, nil)

	d, _ := svc.Register(ctx, RegisterRequest{Name: "Asha", Phone: "+919876543210", Lat: 28.61, Lng: 77.21})
	svc.UpdateLocation(ctx, d.ID, geo.Coordinate{Lat: 28.62, Lng: 77.22})

	if len(bus.events) != 0 {
		t.Fatalf("expected no events without an active ride, got %d", len(bus.events))
	}
}
