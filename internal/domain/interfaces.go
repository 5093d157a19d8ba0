package domain

import (
	"context"

	"fleetbook/internal/models"
	"fleetbook/internal/query"
)

// Repository is the persistent store surface the services depend on.
type Repository interface {
	CreateVehicle(ctx context.Context, v *models.Vehicle) error
	GetVehicle(ctx context.Context, id string) (*models.Vehicle, error)
	UpdateVehicleWithVersion(ctx context.Context, v *models.Vehicle, fromVersion int64) error
	ListVehicles(ctx context.Context, desc query.Descriptor) ([]models.Vehicle, int, error)

	CreateBookingWithLock(ctx context.Context, booking *models.Booking) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	UpdateBookingStatusWithVersion(ctx context.Context, id string, fromVersion int64, status, reason string) error
	ListBookings(ctx context.Context, desc query.Descriptor) ([]models.Booking, int, error)
	ListBookingsForVehicle(ctx context.Context, vehicleID string, desc query.Descriptor) ([]models.Booking, int, error)
	CountActiveOverlaps(ctx context.Context, vehicleID, excludeID string, from, to models.Date) (int, error)
}

// VehicleCache is a read-through cache for vehicle records. Implementations
// may lose entries at any time; the repository stays the source of truth.
type VehicleCache interface {
	GetVehicle(ctx context.Context, id string) (*models.Vehicle, error)
	SetVehicle(ctx context.Context, v *models.Vehicle) error
	InvalidateVehicle(ctx context.Context, id string) error
}

// EventPublisher publishes booking lifecycle events.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}
