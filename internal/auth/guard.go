package auth

import (
	"fleetbook/internal/apperr"
	"fleetbook/internal/models"
)

// Action names a guarded operation.
type Action string

const (
	ActionCreateVehicle       Action = "CreateVehicle"
	ActionUpdateVehicle       Action = "UpdateVehicle"
	ActionListVehicles        Action = "ListVehicles"
	ActionListVehicleBookings Action = "ListVehicleBookings"
	ActionCreateBooking       Action = "CreateBooking"
	ActionListBookings        Action = "ListBookings"
	ActionUpdateBooking       Action = "UpdateBooking"
)

// Resource describes the target of an action: the vehicle category it
// concerns and, for bookings, the owning customer.
type Resource struct {
	Category string
	OwnerID  string
}

// capability describes what a (role, action) pair is allowed to touch.
type capability struct {
	categoryMatch bool // resource category must equal the role's managed category
	ownerMatch    bool // resource owner must equal the principal's owner_id
}

// capabilities is the permission decision table. A missing entry means deny.
// Admin is handled separately: allowed on every action.
var capabilities = map[string]map[Action]capability{
	models.RoleCarManager: {
		ActionUpdateVehicle:       {categoryMatch: true},
		ActionListVehicles:        {},
		ActionListVehicleBookings: {categoryMatch: true},
		ActionListBookings:        {},
		ActionUpdateBooking:       {categoryMatch: true},
	},
	models.RoleMotorbikeManager: {
		ActionUpdateVehicle:       {categoryMatch: true},
		ActionListVehicles:        {},
		ActionListVehicleBookings: {categoryMatch: true},
		ActionListBookings:        {},
		ActionUpdateBooking:       {categoryMatch: true},
	},
	models.RoleCustomer: {
		ActionListVehicles:  {},
		ActionCreateBooking: {},
		ActionListBookings:  {ownerMatch: true},
		ActionUpdateBooking: {ownerMatch: true},
	},
}

// Authorize decides allow/deny for a principal performing an action against
// a resource. Pure function, no I/O; returns nil on allow and a
// PermissionDenied error carrying the reason on deny.
func Authorize(p models.Principal, action Action, res Resource) error {
	if p.IsAdmin() {
		return nil
	}

	caps, ok := capabilities[p.Role]
	if !ok {
		return apperr.PermissionDenied("role %s is not permitted to %s", p.Role, action)
	}
	c, ok := caps[action]
	if !ok {
		return apperr.PermissionDenied("role %s is not permitted to %s", p.Role, action)
	}

	if c.categoryMatch && res.Category != p.ManagedCategory() {
		return apperr.PermissionDenied("%s can only manage %s resources", p.Role, p.ManagedCategory())
	}
	if c.ownerMatch && res.OwnerID != p.OwnerID {
		return apperr.PermissionDenied("customers can only access their own bookings")
	}

	return nil
}
