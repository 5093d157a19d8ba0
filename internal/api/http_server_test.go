package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"fleetbook/internal/auth"
	"fleetbook/internal/config"
	"fleetbook/internal/database"
	"fleetbook/internal/events"
	"fleetbook/internal/export"
	"fleetbook/internal/models"
	"fleetbook/internal/repository"
	"fleetbook/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminKey   = "admin-key"
	carMgrKey  = "car-mgr-key"
	motoMgrKey = "moto-mgr-key"
	aliceKey   = "alice-key"
	bobKey     = "bob-key"
)

func setupTestServer(t *testing.T) *httptest.Server {
	logger := zerolog.New(os.Stdout)

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	directory, err := auth.NewDirectory([]models.Principal{
		{Key: adminKey, Role: models.RoleAdmin, Name: "admin"},
		{Key: carMgrKey, Role: models.RoleCarManager, Name: "car-desk"},
		{Key: motoMgrKey, Role: models.RoleMotorbikeManager, Name: "moto-desk"},
		{Key: aliceKey, Role: models.RoleCustomer, OwnerID: "cust-alice", Name: "alice"},
		{Key: bobKey, Role: models.RoleCustomer, OwnerID: "cust-bob", Name: "bob"},
	})
	require.NoError(t, err)

	cache := repository.NewMemoryVehicleCache(time.Minute)
	catalog := service.NewCatalogService(db, cache, &logger)
	bookings := service.NewBookingService(db, events.NewEventBus(), &logger)
	exporter := export.NewExporter(t.TempDir(), &logger)

	cfg := config.APIConfig{
		HTTP: config.APIHTTPConfig{Port: 0},
		Auth: config.APIAuthConfig{HeaderAPIKey: "x-api-key"},
	}

	srv := NewHTTPServer(cfg, directory, catalog, bookings, exporter, &logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func doRequest(t *testing.T, ts *httptest.Server, method, path, apiKey string, body any) (*http.Response, map[string]any) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, ts.URL+path, reader)
	require.NoError(t, err)
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	var decoded map[string]any
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(data) > 0 && resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(data, &decoded), "body: %s", data)
	}
	return resp, decoded
}

func carPayload(brand string) map[string]any {
	return map[string]any{
		"brand":              brand,
		"category":           "CAR",
		"seats":              5,
		"model":              "Corolla",
		"gearbox":            "MANUAL",
		"fuel_type":          "PETROL",
		"price_by_day":       45,
		"year_of_production": 2020,
	}
}

func createVehicle(t *testing.T, ts *httptest.Server, payload map[string]any) string {
	resp, body := doRequest(t, ts, http.MethodPost, "/api/v1/vehicles", adminKey, payload)
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %v", body)
	return body["id"].(string)
}

func TestHealthNoAuth(t *testing.T) {
	ts := setupTestServer(t)

	resp, body := doRequest(t, ts, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestAuthRequired(t *testing.T) {
	ts := setupTestServer(t)

	resp, body := doRequest(t, ts, http.MethodGet, "/api/v1/vehicles", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Unauthenticated", body["error_type"])

	resp, _ = doRequest(t, ts, http.MethodGet, "/api/v1/vehicles", "bad-key", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestVehicleCRUD(t *testing.T) {
	ts := setupTestServer(t)

	id := createVehicle(t, ts, carPayload("Toyota"))

	resp, body := doRequest(t, ts, http.MethodGet, "/api/v1/vehicles/"+id, aliceKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Toyota", body["brand"])
	assert.Equal(t, "CAR", body["category"])
	assert.Equal(t, float64(5), body["seats"])

	// Admin patches the price
	resp, body = doRequest(t, ts, http.MethodPatch, "/api/v1/vehicles/"+id, adminKey,
		map[string]any{"price_by_day": 60})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(60), body["price_by_day"])
	assert.Equal(t, float64(2), body["version"])

	resp, body = doRequest(t, ts, http.MethodGet, "/api/v1/vehicles/missing", adminKey, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NotFound", body["error_type"])
}

func TestVehicleCreate_Authorization(t *testing.T) {
	ts := setupTestServer(t)

	for _, key := range []string{carMgrKey, aliceKey} {
		resp, body := doRequest(t, ts, http.MethodPost, "/api/v1/vehicles", key, carPayload("Toyota"))
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "PermissionDenied", body["error_type"])
	}
}

func TestVehicleCreate_Validation(t *testing.T) {
	ts := setupTestServer(t)

	payload := carPayload("Tesla")
	resp, body := doRequest(t, ts, http.MethodPost, "/api/v1/vehicles", adminKey, payload)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "InvalidArgument", body["error_type"])

	payload["fuel_type"] = "ELECTRIC"
	resp, _ = doRequest(t, ts, http.MethodPost, "/api/v1/vehicles", adminKey, payload)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestVehiclePatch_CategoryScope(t *testing.T) {
	ts := setupTestServer(t)
	id := createVehicle(t, ts, carPayload("Toyota"))

	// Car manager may patch a car
	resp, _ := doRequest(t, ts, http.MethodPatch, "/api/v1/vehicles/"+id, carMgrKey,
		map[string]any{"description": "well maintained"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Motorbike manager may not
	resp, body := doRequest(t, ts, http.MethodPatch, "/api/v1/vehicles/"+id, motoMgrKey,
		map[string]any{"description": "nope"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "PermissionDenied", body["error_type"])

	// Customers may not patch at all
	resp, _ = doRequest(t, ts, http.MethodPatch, "/api/v1/vehicles/"+id, aliceKey,
		map[string]any{"description": "mine"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestVehicleList_FilterAndPagination(t *testing.T) {
	ts := setupTestServer(t)

	for i := 0; i < 15; i++ {
		payload := carPayload(fmt.Sprintf("Brand%02d", i))
		payload["price_by_day"] = 10 * (i + 1)
		createVehicle(t, ts, payload)
	}

	resp, body := doRequest(t, ts, http.MethodGet, "/api/v1/vehicles?price_by_day=gte:100", aliceKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(6), body["total_count"])

	resp, body = doRequest(t, ts, http.MethodGet, "/api/v1/vehicles?offset=10&limit=5", aliceKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(15), body["total_count"])
	assert.Len(t, body["vehicles"], 5)

	// Unknown filter field fails fast
	resp, body = doRequest(t, ts, http.MethodGet, "/api/v1/vehicles?foo=bar", aliceKey, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "InvalidArgument", body["error_type"])
}

// TestBookingEndToEnd runs the full lifecycle across roles.
func TestBookingEndToEnd(t *testing.T) {
	ts := setupTestServer(t)

	vehicleID := createVehicle(t, ts, carPayload("Toyota"))

	// Customer1 books 08-01..08-10
	resp, booking := doRequest(t, ts, http.MethodPost, "/api/v1/bookings", aliceKey, map[string]any{
		"vehicle_id": vehicleID,
		"from_date":  "2026-08-01",
		"to_date":    "2026-08-10",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %v", booking)
	assert.Equal(t, "PENDING", booking["status"])
	bookingID := booking["id"].(string)

	// Customer2 overlaps and conflicts
	resp, body := doRequest(t, ts, http.MethodPost, "/api/v1/bookings", bobKey, map[string]any{
		"vehicle_id": vehicleID,
		"from_date":  "2026-08-05",
		"to_date":    "2026-08-12",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Conflict", body["error_type"])

	// Customer2 books back-to-back and succeeds
	resp, _ = doRequest(t, ts, http.MethodPost, "/api/v1/bookings", bobKey, map[string]any{
		"vehicle_id": vehicleID,
		"from_date":  "2026-08-10",
		"to_date":    "2026-08-15",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	// Admin confirms Customer1's booking
	resp, body = doRequest(t, ts, http.MethodPatch, "/api/v1/bookings/"+bookingID, adminKey,
		map[string]any{"status": "CONFIRMED"})
	require.Equal(t, http.StatusOK, resp.StatusCode, "body: %v", body)
	assert.Equal(t, "CONFIRMED", body["status"])

	// Customer1 cancels without a reason: validation error
	resp, body = doRequest(t, ts, http.MethodPatch, "/api/v1/bookings/"+bookingID, aliceKey,
		map[string]any{"status": "CANCELLED"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "InvalidArgument", body["error_type"])

	// With a reason it succeeds
	resp, body = doRequest(t, ts, http.MethodPatch, "/api/v1/bookings/"+bookingID, aliceKey,
		map[string]any{"status": "CANCELLED", "reason": "plans changed"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "CANCELLED", body["status"])
	assert.Equal(t, "plans changed", body["reason"])

	// Terminal state rejects any further transition
	resp, body = doRequest(t, ts, http.MethodPatch, "/api/v1/bookings/"+bookingID, adminKey,
		map[string]any{"status": "CONFIRMED"})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "FailedTransition", body["error_type"])
}

func TestBookingVisibility(t *testing.T) {
	ts := setupTestServer(t)
	vehicleID := createVehicle(t, ts, carPayload("Toyota"))

	resp, booking := doRequest(t, ts, http.MethodPost, "/api/v1/bookings", aliceKey, map[string]any{
		"vehicle_id": vehicleID,
		"from_date":  "2026-08-01",
		"to_date":    "2026-08-10",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	bookingID := booking["id"].(string)

	// Bob cannot read Alice's booking
	resp, body := doRequest(t, ts, http.MethodGet, "/api/v1/bookings/"+bookingID, bobKey, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "PermissionDenied", body["error_type"])

	// Bob's list is empty, Alice sees hers, admin sees all
	resp, body = doRequest(t, ts, http.MethodGet, "/api/v1/bookings", bobKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(0), body["total_count"])

	resp, body = doRequest(t, ts, http.MethodGet, "/api/v1/bookings", aliceKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total_count"])

	resp, body = doRequest(t, ts, http.MethodGet, "/api/v1/bookings", adminKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total_count"])
}

func TestVehicleBookingsListing(t *testing.T) {
	ts := setupTestServer(t)
	vehicleID := createVehicle(t, ts, carPayload("Toyota"))

	resp, _ := doRequest(t, ts, http.MethodPost, "/api/v1/bookings", aliceKey, map[string]any{
		"vehicle_id": vehicleID,
		"from_date":  "2026-08-01",
		"to_date":    "2026-08-10",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Car manager may list a car's bookings
	resp, body := doRequest(t, ts, http.MethodGet, "/api/v1/vehicles/"+vehicleID+"/bookings", carMgrKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["total_count"])

	// Motorbike manager may not
	resp, _ = doRequest(t, ts, http.MethodGet, "/api/v1/vehicles/"+vehicleID+"/bookings", motoMgrKey, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Customers may not either
	resp, _ = doRequest(t, ts, http.MethodGet, "/api/v1/vehicles/"+vehicleID+"/bookings", aliceKey, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestBookingsExport(t *testing.T) {
	ts := setupTestServer(t)
	vehicleID := createVehicle(t, ts, carPayload("Toyota"))

	resp, _ := doRequest(t, ts, http.MethodPost, "/api/v1/bookings", aliceKey, map[string]any{
		"vehicle_id": vehicleID,
		"from_date":  "2026-08-01",
		"to_date":    "2026-08-10",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Admin gets an xlsx attachment
	resp, _ = doRequest(t, ts, http.MethodGet, "/api/v1/bookings/export", adminKey, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), ".xlsx")

	// Everyone else is denied
	resp, _ = doRequest(t, ts, http.MethodGet, "/api/v1/bookings/export", carMgrKey, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = doRequest(t, ts, http.MethodGet, "/api/v1/bookings/export", aliceKey, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestMethodNotAllowed(t *testing.T) {
	ts := setupTestServer(t)

	resp, _ := doRequest(t, ts, http.MethodDelete, "/api/v1/vehicles", adminKey, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, _ = doRequest(t, ts, http.MethodPut, "/api/v1/bookings", adminKey, nil)
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
