package worker

import (
	"context"
	"errors"
	"time"

	"fleetbook/internal/database"
	"fleetbook/internal/events"
	"fleetbook/internal/models"
	"fleetbook/internal/query"

	"github.com/rs/zerolog"
)

// Sweeper периодически отклоняет PENDING-заявки, чья дата начала уже
// прошла: подтверждать их больше не имеет смысла.
type Sweeper struct {
	db       *database.DB
	eventBus *events.EventBus
	interval time.Duration
	retry    RetryPolicy
	logger   *zerolog.Logger
}

func NewSweeper(db *database.DB, eventBus *events.EventBus, interval time.Duration, retry RetryPolicy, logger *zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		db:       db,
		eventBus: eventBus,
		interval: interval,
		retry:    retry,
		logger:   logger,
	}
}

// Start runs the sweep loop until the context is cancelled. One pass runs
// immediately on start so a restart does not postpone cleanup by a full
// interval.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		swept, err := s.Sweep(ctx)
		if err != nil {
			s.logger.Error().Err(err).Msg("sweep pass failed")
		} else if swept > 0 {
			s.logger.Info().Int("rejected", swept).Msg("stale pending bookings rejected")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Sweep rejects every PENDING booking whose from_date is before today and
// returns how many were transitioned. Bookings modified concurrently are
// skipped; the next pass picks them up if they are still stale.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	cutoff := models.NewDate(now.Year(), now.Month(), now.Day()-1)

	desc := query.Descriptor{
		Filters: []query.Filter{
			{Field: "status", Operator: query.OpEq, Value: models.StatusPending},
			{Field: "from_date", Operator: query.OpLte, Value: cutoff},
		},
		Limit: models.MaxPageSize,
	}

	swept := 0
	for {
		bookings, _, err := s.db.ListBookings(ctx, desc)
		if err != nil {
			return swept, err
		}
		if len(bookings) == 0 {
			return swept, nil
		}

		progressed := false
		for i := range bookings {
			booking := &bookings[i]
			if err := s.reject(ctx, booking); err != nil {
				if errors.Is(err, database.ErrConcurrentModification) {
					s.logger.Debug().Str("booking_id", booking.ID).Msg("booking changed during sweep, skipping")
					continue
				}
				return swept, err
			}
			progressed = true
			swept++
		}

		// Отклонённые заявки выпадают из фильтра, поэтому offset не двигается.
		if len(bookings) < desc.Limit || !progressed {
			return swept, nil
		}
	}
}

func (s *Sweeper) reject(ctx context.Context, booking *models.Booking) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = s.db.UpdateBookingStatusWithVersion(ctx, booking.ID, booking.Version, models.StatusRejected, "")
		if err == nil {
			s.publishRejected(booking)
			return nil
		}
		if errors.Is(err, database.ErrConcurrentModification) || attempt > s.retry.MaxRetries {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.retry.NextDelay(attempt)):
		}
	}
}

func (s *Sweeper) publishRejected(booking *models.Booking) {
	if s.eventBus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID: booking.ID,
		VehicleID: booking.VehicleID,
		OwnerID:   booking.OwnerID,
		Status:    models.StatusRejected,
		FromDate:  booking.FromDate,
		ToDate:    booking.ToDate,
		ChangedBy: "sweeper",
	}
	if err := s.eventBus.PublishJSON(events.EventBookingRejected, payload); err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("publish sweep event")
	}
}
