package service

import (
	"context"
	"errors"

	"fleetbook/internal/apperr"
	"fleetbook/internal/database"
	"fleetbook/internal/domain"
	"fleetbook/internal/metrics"
	"fleetbook/internal/models"
	"fleetbook/internal/query"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// updateRetryLimit bounds retries when an optimistic vehicle update loses
// the version race.
const updateRetryLimit = 3

// CatalogService owns vehicle records: validation, creation, merge-patch
// updates and catalog queries. It never touches bookings.
type CatalogService struct {
	repo   domain.Repository
	cache  domain.VehicleCache
	logger *zerolog.Logger
}

func NewCatalogService(repo domain.Repository, cache domain.VehicleCache, logger *zerolog.Logger) *CatalogService {
	svcLogger := logger.With().Str("component", "catalog").Logger()
	return &CatalogService{
		repo:   repo,
		cache:  cache,
		logger: &svcLogger,
	}
}

func (s *CatalogService) Create(ctx context.Context, spec models.VehicleSpec) (*models.Vehicle, error) {
	vehicle := spec.ToVehicle()
	if err := vehicle.Validate(); err != nil {
		return nil, apperr.InvalidArgument("%s", err.Error())
	}

	vehicle.ID = uuid.NewString()
	if err := s.repo.CreateVehicle(ctx, &vehicle); err != nil {
		return nil, apperr.Internal(err, "failed to create vehicle")
	}

	s.cacheVehicle(ctx, &vehicle)
	s.logger.Info().Str("vehicle_id", vehicle.ID).Str("category", vehicle.Category).Msg("vehicle created")
	return &vehicle, nil
}

// Update applies a partial patch and re-validates every invariant on the
// merged record. A version CAS guards against concurrent updates of the
// same vehicle; losing the race re-reads and reapplies the patch.
func (s *CatalogService) Update(ctx context.Context, id string, patch models.VehiclePatch) (*models.Vehicle, error) {
	for attempt := 0; attempt < updateRetryLimit; attempt++ {
		vehicle, err := s.getFromStore(ctx, id)
		if err != nil {
			return nil, err
		}

		if err := patch.ApplyTo(vehicle); err != nil {
			return nil, apperr.InvalidArgument("%s", err.Error())
		}
		if err := vehicle.Validate(); err != nil {
			return nil, apperr.InvalidArgument("%s", err.Error())
		}

		err = s.repo.UpdateVehicleWithVersion(ctx, vehicle, vehicle.Version)
		if errors.Is(err, database.ErrConcurrentModification) {
			s.logger.Warn().Str("vehicle_id", id).Int("attempt", attempt+1).Msg("vehicle update version race, retrying")
			continue
		}
		if err != nil {
			return nil, apperr.Internal(err, "failed to update vehicle")
		}

		s.invalidateVehicle(ctx, id)
		s.cacheVehicle(ctx, vehicle)
		s.logger.Info().Str("vehicle_id", id).Int64("version", vehicle.Version).Msg("vehicle updated")
		return vehicle, nil
	}

	return nil, apperr.Conflict("vehicle %s is being modified concurrently, try again", id)
}

func (s *CatalogService) List(ctx context.Context, desc query.Descriptor) ([]models.Vehicle, int, error) {
	vehicles, total, err := s.repo.ListVehicles(ctx, desc)
	if err != nil {
		return nil, 0, apperr.Internal(err, "failed to list vehicles")
	}
	return vehicles, total, nil
}

func (s *CatalogService) Get(ctx context.Context, id string) (*models.Vehicle, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetVehicle(ctx, id); err == nil && cached != nil {
			metrics.IncCacheLookup("hit")
			return cached, nil
		}
		metrics.IncCacheLookup("miss")
	}

	vehicle, err := s.getFromStore(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cacheVehicle(ctx, vehicle)
	return vehicle, nil
}

func (s *CatalogService) getFromStore(ctx context.Context, id string) (*models.Vehicle, error) {
	vehicle, err := s.repo.GetVehicle(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.NotFound("vehicle %s not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to get vehicle")
	}
	return vehicle, nil
}

func (s *CatalogService) cacheVehicle(ctx context.Context, v *models.Vehicle) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SetVehicle(ctx, v); err != nil {
		s.logger.Warn().Err(err).Str("vehicle_id", v.ID).Msg("failed to cache vehicle")
	}
}

func (s *CatalogService) invalidateVehicle(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateVehicle(ctx, id); err != nil {
		s.logger.Warn().Err(err).Str("vehicle_id", id).Msg("failed to invalidate cached vehicle")
	}
}
