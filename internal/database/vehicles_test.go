package database

import (
	"context"
	"errors"
	"net/url"
	"os"
	"testing"

	"fleetbook/internal/models"
	"fleetbook/internal/query"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	logger := zerolog.New(os.Stdout)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	return db
}

func testCar(id string) *models.Vehicle {
	return &models.Vehicle{
		ID:       id,
		Brand:    "Toyota",
		Category: models.CategoryCar,
		Car: &models.CarAttributes{
			Seats:    5,
			Model:    "COROLLA",
			Gearbox:  models.GearboxManual,
			FuelType: models.FuelPetrol,
		},
		PriceByDay:       45,
		YearOfProduction: 2020,
	}
}

func testBike(id string) *models.Vehicle {
	return &models.Vehicle{
		ID:       id,
		Brand:    "Ural",
		Category: models.CategoryMotorbike,
		Motorbike: &models.MotorbikeAttributes{
			EngineCC:   750,
			HasSidecar: true,
		},
		PriceByDay:       25,
		YearOfProduction: 2018,
	}
}

func mustTranslate(t *testing.T, raw url.Values, resource query.Resource) query.Descriptor {
	desc, err := query.Translate(raw, resource)
	require.NoError(t, err)
	return desc
}

func TestCreateAndGetVehicle(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	v := testCar("veh-1")
	v.Metadata = map[string]any{"color": "red"}
	require.NoError(t, db.CreateVehicle(ctx, v))
	assert.Equal(t, int64(1), v.Version)
	assert.False(t, v.CreatedAt.IsZero())

	got, err := db.GetVehicle(ctx, "veh-1")
	require.NoError(t, err)
	assert.Equal(t, "Toyota", got.Brand)
	require.NotNil(t, got.Car)
	assert.Equal(t, 5, got.Car.Seats)
	assert.Nil(t, got.Motorbike)
	assert.Equal(t, "red", got.Metadata["color"])

	_, err = db.GetVehicle(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetVehicle_Motorbike(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.CreateVehicle(ctx, testBike("bike-1")))

	got, err := db.GetVehicle(ctx, "bike-1")
	require.NoError(t, err)
	require.NotNil(t, got.Motorbike)
	assert.Equal(t, 750, got.Motorbike.EngineCC)
	assert.True(t, got.Motorbike.HasSidecar)
	assert.Nil(t, got.Car)
}

func TestUpdateVehicleWithVersion(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	v := testCar("veh-1")
	require.NoError(t, db.CreateVehicle(ctx, v))

	v.Brand = "Honda"
	require.NoError(t, db.UpdateVehicleWithVersion(ctx, v, 1))
	assert.Equal(t, int64(2), v.Version)

	got, err := db.GetVehicle(ctx, "veh-1")
	require.NoError(t, err)
	assert.Equal(t, "Honda", got.Brand)
	assert.Equal(t, int64(2), got.Version)

	// Stale version loses
	err = db.UpdateVehicleWithVersion(ctx, v, 1)
	assert.True(t, errors.Is(err, ErrConcurrentModification))
}

func TestListVehicles_FiltersAndSort(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	cheap := testCar("veh-1")
	cheap.PriceByDay = 30
	expensive := testCar("veh-2")
	expensive.Brand = "BMW"
	expensive.PriceByDay = 90
	bike := testBike("bike-1")

	for _, v := range []*models.Vehicle{cheap, expensive, bike} {
		require.NoError(t, db.CreateVehicle(ctx, v))
	}

	// Category filter
	vehicles, total, err := db.ListVehicles(ctx,
		mustTranslate(t, url.Values{"category": {"CAR"}}, query.ResourceVehicles))
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, vehicles, 2)

	// Range filter
	vehicles, total, err = db.ListVehicles(ctx,
		mustTranslate(t, url.Values{"price_by_day": {"gte:50"}}, query.ResourceVehicles))
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "veh-2", vehicles[0].ID)

	// Brand filter is case-insensitive
	vehicles, _, err = db.ListVehicles(ctx,
		mustTranslate(t, url.Values{"brand": {"bmw"}}, query.ResourceVehicles))
	require.NoError(t, err)
	require.Len(t, vehicles, 1)
	assert.Equal(t, "BMW", vehicles[0].Brand)

	// Descending price sort
	vehicles, _, err = db.ListVehicles(ctx,
		mustTranslate(t, url.Values{"sort": {"-price_by_day"}}, query.ResourceVehicles))
	require.NoError(t, err)
	require.Len(t, vehicles, 3)
	assert.Equal(t, "veh-2", vehicles[0].ID)
}

func TestListVehicles_Pagination(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, db.CreateVehicle(ctx, testCar("veh-"+id)))
	}

	desc := mustTranslate(t, url.Values{"limit": {"2"}, "offset": {"2"}}, query.ResourceVehicles)
	vehicles, total, err := db.ListVehicles(ctx, desc)
	require.NoError(t, err)

	// Total counts all matches, not just the page
	assert.Equal(t, 5, total)
	assert.Len(t, vehicles, 2)

	// Offset past the end yields an empty page with the same total
	desc = mustTranslate(t, url.Values{"offset": {"50"}}, query.ResourceVehicles)
	vehicles, total, err = db.ListVehicles(ctx, desc)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Empty(t, vehicles)
}
