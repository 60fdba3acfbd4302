package drivers

import (
	"context"
	"sort"
	"sync"
	"time"

	"ridehail/internal/geo"
)

// MemoryRegistry is a mutex-guarded in-process Registry. It backs tests
// and single-node deployments without Postgres.
type MemoryRegistry struct {
	mu      sync.RWMutex
	drivers map[string]*Driver
	nextSeq int64
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{drivers: make(map[string]*Driver)}
}

func (m *MemoryRegistry) Register(ctx context.Context, d *Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextSeq++
	d.seq = m.nextSeq
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	cp := *d
	m.drivers[d.ID] = &cp
	return nil
}

func (m *MemoryRegistry) Get(ctx context.Context, id string) (*Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.drivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryRegistry) FindAvailable(ctx context.Context) ([]Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Driver, 0, len(m.drivers))
	for _, d := range m.drivers {
		if d.Available {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out, nil
}

func (m *MemoryRegistry) SetAvailability(ctx context.Context, id string, available bool) (*Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	d.Available = available
	cp := *d
	return &cp, nil
}

func (m *MemoryRegistry) UpdateLocation(ctx context.Context, id string, loc geo.Coordinate) (*Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	d.Location = loc
	cp := *d
	return &cp, nil
}

func (m *MemoryRegistry) Reserve(ctx context.Context, id string) (*Driver, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !d.Available {
		return nil, ErrAlreadyReserved
	}
	d.Available = false
	cp := *d
	return &cp, nil
}

func (m *MemoryRegistry) Release(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drivers[id]
	if !ok {
		return ErrNotFound
	}
	d.Available = true
	return nil
}
