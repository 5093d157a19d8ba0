package service

import (
	"context"
	"errors"
	"strings"

	"fleetbook/internal/apperr"
	"fleetbook/internal/database"
	"fleetbook/internal/domain"
	"fleetbook/internal/events"
	"fleetbook/internal/metrics"
	"fleetbook/internal/models"
	"fleetbook/internal/query"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// BookingService owns booking records: the status lifecycle, temporal
// non-overlap and ownership scoping. Ownership is re-checked here even
// though the HTTP layer already authorizes, so a guard bypass cannot leak
// or mutate another customer's bookings.
type BookingService struct {
	repo     domain.Repository
	eventBus domain.EventPublisher
	logger   *zerolog.Logger
}

func NewBookingService(repo domain.Repository, eventBus domain.EventPublisher, logger *zerolog.Logger) *BookingService {
	svcLogger := logger.With().Str("component", "booking").Logger()
	return &BookingService{
		repo:     repo,
		eventBus: eventBus,
		logger:   &svcLogger,
	}
}

// Create books a vehicle for [from, to). Conflicts are detected against
// every PENDING/CONFIRMED booking of the vehicle under the store's
// per-vehicle lock; back-to-back intervals are not conflicts.
func (s *BookingService) Create(ctx context.Context, principal models.Principal, vehicleID string, from, to models.Date) (*models.Booking, error) {
	if _, err := s.repo.GetVehicle(ctx, vehicleID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, apperr.NotFound("vehicle %s not found", vehicleID)
		}
		return nil, apperr.Internal(err, "failed to resolve vehicle")
	}

	if !from.Before(to) {
		return nil, apperr.InvalidArgument("from_date must be before to_date")
	}

	booking := &models.Booking{
		ID:        uuid.NewString(),
		VehicleID: vehicleID,
		OwnerID:   principal.OwnerID,
		FromDate:  from,
		ToDate:    to,
		Status:    models.StatusPending,
	}

	err := s.repo.CreateBookingWithLock(ctx, booking)
	if errors.Is(err, database.ErrBookingConflict) {
		metrics.IncBookingConflict()
		s.logger.Info().
			Str("vehicle_id", vehicleID).
			Str("from", from.String()).
			Str("to", to.String()).
			Msg("booking rejected: dates conflict")
		return nil, apperr.Conflict("vehicle is already booked for overlapping dates")
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to create booking")
	}

	// Defensive re-read: if another active booking intersects ours after
	// commit, the locking discipline is broken somewhere.
	overlaps, err := s.repo.CountActiveOverlaps(ctx, vehicleID, booking.ID, from, to)
	if err == nil && overlaps > 0 {
		s.logger.Error().
			Str("booking_id", booking.ID).
			Str("vehicle_id", vehicleID).
			Int("overlaps", overlaps).
			Msg("invariant violation: overlapping active bookings persisted")
		return nil, apperr.Internal(nil, "booking overlap invariant violated")
	}

	s.publishEvent(events.EventBookingCreated, booking, principal.Name)
	s.logger.Info().Str("booking_id", booking.ID).Str("vehicle_id", vehicleID).Msg("booking created")
	return booking, nil
}

// UpdateStatus performs one lifecycle transition:
//
//	PENDING   -> CONFIRMED | REJECTED  (admin, managers)
//	PENDING   -> CANCELLED             (owning customer, reason required)
//	CONFIRMED -> CANCELLED             (owning customer, reason required)
//
// REJECTED and CANCELLED are terminal.
func (s *BookingService) UpdateStatus(ctx context.Context, principal models.Principal, id, newStatus, reason string) (*models.Booking, error) {
	newStatus = strings.ToUpper(strings.TrimSpace(newStatus))
	if !models.IsValidStatus(newStatus) {
		return nil, apperr.InvalidArgument("unknown status %q", newStatus)
	}

	booking, err := s.getFromStore(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := checkTransitionPermission(principal, booking, newStatus); err != nil {
		return nil, err
	}

	if !models.CanTransition(booking.Status, newStatus) {
		return nil, apperr.FailedTransition("cannot transition booking from %s to %s", booking.Status, newStatus)
	}

	reason = strings.TrimSpace(reason)
	if newStatus == models.StatusCancelled && reason == "" {
		return nil, apperr.InvalidArgument("reason is required when cancelling a booking")
	}
	if newStatus != models.StatusCancelled && reason != "" {
		return nil, apperr.InvalidArgument("reason is only accepted when cancelling a booking")
	}

	err = s.repo.UpdateBookingStatusWithVersion(ctx, id, booking.Version, newStatus, reason)
	if errors.Is(err, database.ErrConcurrentModification) {
		return nil, apperr.Conflict("booking %s was modified concurrently, try again", id)
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to update booking status")
	}

	updated, err := s.getFromStore(ctx, id)
	if err != nil {
		return nil, err
	}

	s.publishEvent(eventTypeForStatus(newStatus), updated, principal.Name)
	s.logger.Info().
		Str("booking_id", id).
		Str("from_status", booking.Status).
		Str("to_status", newStatus).
		Str("by", principal.Name).
		Msg("booking status updated")
	return updated, nil
}

// Get returns one booking; customers can only read their own.
func (s *BookingService) Get(ctx context.Context, principal models.Principal, id string) (*models.Booking, error) {
	booking, err := s.getFromStore(ctx, id)
	if err != nil {
		return nil, err
	}
	if principal.IsCustomer() && booking.OwnerID != principal.OwnerID {
		return nil, apperr.PermissionDenied("customers can only view their own bookings")
	}
	return booking, nil
}

// List applies the descriptor; for customers the owner scope is forced
// here regardless of any client-supplied filters.
func (s *BookingService) List(ctx context.Context, principal models.Principal, desc query.Descriptor) ([]models.Booking, int, error) {
	if principal.IsCustomer() {
		desc = desc.WithFilter("owner_id", principal.OwnerID)
	}

	bookings, total, err := s.repo.ListBookings(ctx, desc)
	if err != nil {
		return nil, 0, apperr.Internal(err, "failed to list bookings")
	}
	return bookings, total, nil
}

// ListForVehicle lists a single vehicle's bookings, sorted per descriptor
// (from_date or creation order).
func (s *BookingService) ListForVehicle(ctx context.Context, vehicleID string, desc query.Descriptor) ([]models.Booking, int, error) {
	if _, err := s.repo.GetVehicle(ctx, vehicleID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, 0, apperr.NotFound("vehicle %s not found", vehicleID)
		}
		return nil, 0, apperr.Internal(err, "failed to resolve vehicle")
	}

	bookings, total, err := s.repo.ListBookingsForVehicle(ctx, vehicleID, desc)
	if err != nil {
		return nil, 0, apperr.Internal(err, "failed to list vehicle bookings")
	}
	return bookings, total, nil
}

func (s *BookingService) getFromStore(ctx context.Context, id string) (*models.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, apperr.NotFound("booking %s not found", id)
	}
	if err != nil {
		return nil, apperr.Internal(err, "failed to get booking")
	}
	return booking, nil
}

// checkTransitionPermission enforces who may request which status.
// Customers cancel their own bookings; admin and managers confirm or
// reject. This runs on top of the HTTP-layer guard on purpose.
func checkTransitionPermission(principal models.Principal, booking *models.Booking, newStatus string) error {
	if principal.IsCustomer() {
		if booking.OwnerID != principal.OwnerID {
			return apperr.PermissionDenied("customers can only update their own bookings")
		}
		if newStatus != models.StatusCancelled {
			return apperr.PermissionDenied("customers can only cancel their bookings")
		}
		return nil
	}

	switch newStatus {
	case models.StatusConfirmed, models.StatusRejected:
		return nil
	case models.StatusCancelled:
		return apperr.PermissionDenied("only the booking owner can cancel; use %s instead", models.StatusRejected)
	default:
		return apperr.PermissionDenied("status cannot be set to %s", newStatus)
	}
}

func eventTypeForStatus(status string) string {
	switch status {
	case models.StatusConfirmed:
		return events.EventBookingConfirmed
	case models.StatusRejected:
		return events.EventBookingRejected
	case models.StatusCancelled:
		return events.EventBookingCancelled
	default:
		return events.EventBookingCreated
	}
}

func (s *BookingService) publishEvent(eventType string, booking *models.Booking, changedBy string) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID: booking.ID,
		VehicleID: booking.VehicleID,
		OwnerID:   booking.OwnerID,
		Status:    booking.Status,
		FromDate:  booking.FromDate,
		ToDate:    booking.ToDate,
		Reason:    booking.Reason,
		ChangedBy: changedBy,
	}
	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish booking event")
	}
}
