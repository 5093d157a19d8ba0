package repository

import (
	"context"
	"sync"
	"time"

	"fleetbook/internal/models"
)

type MemoryVehicleCache struct {
	vehicles sync.Map
	ttl      time.Duration
}

type memoryEntry struct {
	vehicle   models.Vehicle
	expiresAt time.Time
}

func NewMemoryVehicleCache(ttl time.Duration) *MemoryVehicleCache {
	return &MemoryVehicleCache{ttl: ttl}
}

func (r *MemoryVehicleCache) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	val, ok := r.vehicles.Load(id)
	if !ok {
		return nil, nil
	}
	entry := val.(*memoryEntry)
	if time.Now().After(entry.expiresAt) {
		r.vehicles.Delete(id)
		return nil, nil
	}
	v := entry.vehicle
	return &v, nil
}

func (r *MemoryVehicleCache) SetVehicle(ctx context.Context, v *models.Vehicle) error {
	r.vehicles.Store(v.ID, &memoryEntry{
		vehicle:   *v,
		expiresAt: time.Now().Add(r.ttl),
	})
	return nil
}

func (r *MemoryVehicleCache) InvalidateVehicle(ctx context.Context, id string) error {
	r.vehicles.Delete(id)
	return nil
}
