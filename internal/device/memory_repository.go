package device

import (
	"context"
	"sort"
	"sync"
)

// InMemoryRepository is an in-memory implementation of Repository.
// Devices do not survive a restart.
type InMemoryRepository struct {
	mu      sync.RWMutex
	devices map[int]*Device
}

// NewInMemoryRepository creates a new in-memory device repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		devices: make(map[int]*Device),
	}
}

// Get retrieves a device by unit.
func (r *InMemoryRepository) Get(_ context.Context, unit int) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[unit]
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return copyDevice(d), nil
}

// List retrieves all devices ordered by unit.
func (r *InMemoryRepository) List(_ context.Context) ([]*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := make([]*Device, 0, len(r.devices))
	for _, d := range r.devices {
		items = append(items, copyDevice(d))
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Unit < items[j].Unit })

	return items, nil
}

// Create creates a new device.
func (r *InMemoryRepository) Create(_ context.Context, d *Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[d.Unit]; ok {
		return ErrDeviceExists
	}
	r.devices[d.Unit] = copyDevice(d)
	return nil
}

// Update overwrites an existing device.
func (r *InMemoryRepository) Update(_ context.Context, d *Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[d.Unit]; !ok {
		return ErrDeviceNotFound
	}
	r.devices[d.Unit] = copyDevice(d)
	return nil
}

// Delete removes a device.
func (r *InMemoryRepository) Delete(_ context.Context, unit int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[unit]; !ok {
		return ErrDeviceNotFound
	}
	delete(r.devices, unit)
	return nil
}

// copyDevice creates a copy so callers never share repository state.
func copyDevice(d *Device) *Device {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

var _ Repository = (*InMemoryRepository)(nil)
