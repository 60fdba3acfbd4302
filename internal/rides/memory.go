package rides

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded in-process Store for tests and
// single-node deployments without Postgres.
type MemoryStore struct {
	mu    sync.RWMutex
	rides map[string]*Ride
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{rides: make(map[string]*Ride)}
}

func (m *MemoryStore) Create(ctx context.Context, r *Ride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now
	cp := *r
	m.rides[r.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (*Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rides[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) Assign(ctx context.Context, rideID, driverID string) (*Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[rideID]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status != StatusPending || r.DriverID != nil {
		return nil, ErrConflict
	}
	d := driverID
	r.DriverID = &d
	r.Status = StatusAssigned
	r.UpdatedAt = time.Now()
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) UpdateStatus(ctx context.Context, rideID string, from, to Status) (*Ride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rides[rideID]
	if !ok {
		return nil, ErrNotFound
	}
	if r.Status != from {
		return nil, ErrConflict
	}
	r.Status = to
	if to == StatusCancelled {
		r.DriverID = nil
	}
	r.UpdatedAt = time.Now()
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) ListByPassenger(ctx context.Context, passengerID string) ([]Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Ride
	for _, r := range m.rides {
		if r.PassengerID == passengerID {
			out = append(out, *r)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) ListByDriver(ctx context.Context, driverID string) ([]Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Ride
	for _, r := range m.rides {
		if r.DriverID != nil && *r.DriverID == driverID {
			out = append(out, *r)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (m *MemoryStore) ActiveByDriver(ctx context.Context, driverID string) (*Ride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.rides {
		if r.DriverID != nil && *r.DriverID == driverID &&
			(r.Status == StatusAssigned || r.Status == StatusEnRoute) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func sortNewestFirst(rs []Ride) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].CreatedAt.After(rs[j].CreatedAt) })
}
