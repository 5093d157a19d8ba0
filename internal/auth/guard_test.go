package auth

import (
	"testing"

	"fleetbook/internal/apperr"
	"fleetbook/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestAuthorize_Admin(t *testing.T) {
	admin := models.Principal{Role: models.RoleAdmin}

	actions := []Action{
		ActionCreateVehicle, ActionUpdateVehicle, ActionListVehicles,
		ActionListVehicleBookings, ActionCreateBooking, ActionListBookings,
		ActionUpdateBooking,
	}
	for _, action := range actions {
		assert.NoError(t, Authorize(admin, action, Resource{}), string(action))
	}
}

func TestAuthorize_CategoryManager(t *testing.T) {
	carManager := models.Principal{Role: models.RoleCarManager}
	motoManager := models.Principal{Role: models.RoleMotorbikeManager}

	carRes := Resource{Category: models.CategoryCar}
	motoRes := Resource{Category: models.CategoryMotorbike}

	assert.NoError(t, Authorize(carManager, ActionUpdateVehicle, carRes))
	assert.Error(t, Authorize(carManager, ActionUpdateVehicle, motoRes))
	assert.NoError(t, Authorize(motoManager, ActionUpdateVehicle, motoRes))
	assert.Error(t, Authorize(motoManager, ActionUpdateVehicle, carRes))

	assert.NoError(t, Authorize(carManager, ActionUpdateBooking, carRes))
	assert.Error(t, Authorize(carManager, ActionUpdateBooking, motoRes))

	// Managers never create vehicles or bookings
	assert.Error(t, Authorize(carManager, ActionCreateVehicle, carRes))
	assert.Error(t, Authorize(carManager, ActionCreateBooking, carRes))

	// Listing the catalog is unscoped
	assert.NoError(t, Authorize(carManager, ActionListVehicles, Resource{}))
	assert.NoError(t, Authorize(carManager, ActionListBookings, Resource{}))
}

func TestAuthorize_Customer(t *testing.T) {
	customer := models.Principal{Role: models.RoleCustomer, OwnerID: "cust-1"}

	assert.NoError(t, Authorize(customer, ActionListVehicles, Resource{}))
	assert.NoError(t, Authorize(customer, ActionCreateBooking, Resource{}))

	own := Resource{OwnerID: "cust-1"}
	foreign := Resource{OwnerID: "cust-2"}

	assert.NoError(t, Authorize(customer, ActionListBookings, own))
	assert.NoError(t, Authorize(customer, ActionUpdateBooking, own))
	assert.Error(t, Authorize(customer, ActionUpdateBooking, foreign))

	assert.Error(t, Authorize(customer, ActionCreateVehicle, Resource{}))
	assert.Error(t, Authorize(customer, ActionUpdateVehicle, Resource{Category: models.CategoryCar}))
	assert.Error(t, Authorize(customer, ActionListVehicleBookings, Resource{Category: models.CategoryCar}))
}

func TestAuthorize_DenyCarriesKind(t *testing.T) {
	customer := models.Principal{Role: models.RoleCustomer, OwnerID: "cust-1"}
	err := Authorize(customer, ActionCreateVehicle, Resource{})
	assert.True(t, apperr.IsKind(err, apperr.KindPermissionDenied))

	err = Authorize(models.Principal{Role: "Unknown"}, ActionListVehicles, Resource{})
	assert.True(t, apperr.IsKind(err, apperr.KindPermissionDenied))
}
