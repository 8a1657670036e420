package directory

import (
	"context"
	"sync"

	"dispatch/internal/types"
)

// Memory is an in-process directory for single-node runs and tests.
type Memory struct {
	mu       sync.RWMutex
	clients  map[types.ID]struct{}
	drivers  map[types.ID]struct{}
	vehicles map[types.ID]types.ID // driver -> ambulance
}

func NewMemory() *Memory {
	return &Memory{
		clients:  make(map[types.ID]struct{}),
		drivers:  make(map[types.ID]struct{}),
		vehicles: make(map[types.ID]types.ID),
	}
}

func (m *Memory) AddClient(id types.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clients[id] = struct{}{}
}

// AddDriver registers a driver; an empty vehicleID leaves the driver without an ambulance.
func (m *Memory) AddDriver(id, vehicleID types.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drivers[id] = struct{}{}
	if vehicleID != "" {
		m.vehicles[id] = vehicleID
	}
}

func (m *Memory) ClientExists(_ context.Context, id types.ID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.clients[id]
	return ok, nil
}

func (m *Memory) DriverExists(_ context.Context, id types.ID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.drivers[id]
	return ok, nil
}

func (m *Memory) VehicleOf(_ context.Context, driverID types.ID) (*types.ID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vehicles[driverID]
	if !ok {
		return nil, nil
	}
	return &v, nil
}
