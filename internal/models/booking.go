package models

import "time"

type Booking struct {
	ID        string    `json:"id"`
	VehicleID string    `json:"vehicle_id"`
	OwnerID   string    `json:"owner_id"`
	FromDate  Date      `json:"from_date"`
	ToDate    Date      `json:"to_date"`
	Status    string    `json:"status"` // PENDING, CONFIRMED, REJECTED, CANCELLED
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// statusTransitions настраивает допустимые переходы статусов заявки.
// REJECTED и CANCELLED — терминальные состояния.
var statusTransitions = map[string][]string{
	StatusPending:   {StatusConfirmed, StatusRejected, StatusCancelled},
	StatusConfirmed: {StatusCancelled},
	StatusRejected:  {},
	StatusCancelled: {},
}

// CanTransition reports whether from -> to is an allowed status change.
func CanTransition(from, to string) bool {
	allowed, ok := statusTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func IsTerminal(status string) bool {
	return len(statusTransitions[status]) == 0 && IsValidStatus(status)
}

// Overlaps reports whether the half-open interval [FromDate, ToDate)
// intersects [from, to). Back-to-back bookings do not overlap.
func (b *Booking) Overlaps(from, to Date) bool {
	return from.Before(b.ToDate) && b.FromDate.Before(to)
}
