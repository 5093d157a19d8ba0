package repository

import (
	"context"
	"sync/atomic"
	"time"

	"fleetbook/internal/domain"
	"fleetbook/internal/models"

	"github.com/rs/zerolog"
)

// FailoverVehicleCache serves from the primary (redis) cache and falls back
// to the in-memory cache when the primary is unreachable, retrying the
// primary after a cooldown.
type FailoverVehicleCache struct {
	primary   domain.VehicleCache
	fallback  domain.VehicleCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck time.Time
}

func NewFailoverVehicleCache(primary, fallback domain.VehicleCache, logger *zerolog.Logger) *FailoverVehicleCache {
	return &FailoverVehicleCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverVehicleCache) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	if !r.isDown.Load() {
		v, err := r.primary.GetVehicle(ctx, id)
		if err == nil {
			return v, nil
		}
		r.logger.Error().Err(err).Msg("Primary vehicle cache failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	// Try to recover after 1 minute
	if r.isDown.Load() && time.Since(r.lastCheck) > time.Minute {
		v, err := r.primary.GetVehicle(ctx, id)
		if err == nil {
			r.isDown.Store(false)
			return v, nil
		}
		r.lastCheck = time.Now()
	}

	return r.fallback.GetVehicle(ctx, id)
}

func (r *FailoverVehicleCache) SetVehicle(ctx context.Context, v *models.Vehicle) error {
	if !r.isDown.Load() {
		err := r.primary.SetVehicle(ctx, v)
		if err == nil {
			return r.fallback.SetVehicle(ctx, v)
		}
		r.logger.Error().Err(err).Msg("Primary vehicle cache failed, falling back to memory")
		r.isDown.Store(true)
		r.lastCheck = time.Now()
	}

	return r.fallback.SetVehicle(ctx, v)
}

func (r *FailoverVehicleCache) InvalidateVehicle(ctx context.Context, id string) error {
	// Invalidation must reach both layers or a stale record could survive
	// a failover switch.
	ferr := r.fallback.InvalidateVehicle(ctx, id)

	if !r.isDown.Load() {
		if err := r.primary.InvalidateVehicle(ctx, id); err != nil {
			r.logger.Error().Err(err).Msg("Primary vehicle cache failed, falling back to memory")
			r.isDown.Store(true)
			r.lastCheck = time.Now()
			return ferr
		}
	}
	return ferr
}
