package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"fleetbook/internal/apperr"
	"fleetbook/internal/auth"
	"fleetbook/internal/models"
	"fleetbook/internal/query"
)

func (s *HTTPServer) handleVehicles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createVehicle(w, r)
	case http.MethodGet:
		s.listVehicles(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleVehicleByID routes /api/v1/vehicles/{id} and
// /api/v1/vehicles/{id}/bookings.
func (s *HTTPServer) handleVehicleByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/vehicles/")
	id, sub, _ := strings.Cut(rest, "/")
	id = strings.TrimSpace(id)
	if id == "" {
		writeError(w, http.StatusBadRequest, "vehicle id is required")
		return
	}

	switch {
	case sub == "bookings":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		s.listVehicleBookings(w, r, id)
	case sub == "":
		switch r.Method {
		case http.MethodGet:
			s.getVehicle(w, r, id)
		case http.MethodPatch:
			s.updateVehicle(w, r, id)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) createVehicle(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeAppError(w, apperr.Unauthenticated("missing principal"))
		return
	}
	if err := auth.Authorize(principal, auth.ActionCreateVehicle, auth.Resource{}); err != nil {
		writeAppError(w, err)
		return
	}

	var spec models.VehicleSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	vehicle, err := s.catalog.Create(r.Context(), spec)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, vehicle)
}

func (s *HTTPServer) listVehicles(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeAppError(w, apperr.Unauthenticated("missing principal"))
		return
	}
	if err := auth.Authorize(principal, auth.ActionListVehicles, auth.Resource{}); err != nil {
		writeAppError(w, err)
		return
	}

	desc, err := query.Translate(r.URL.Query(), query.ResourceVehicles)
	if err != nil {
		writeAppError(w, err)
		return
	}

	vehicles, total, err := s.catalog.List(r.Context(), desc)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"vehicles":    vehicles,
		"total_count": total,
		"offset":      desc.Offset,
		"limit":       desc.Limit,
	})
}

func (s *HTTPServer) getVehicle(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeAppError(w, apperr.Unauthenticated("missing principal"))
		return
	}
	if err := auth.Authorize(principal, auth.ActionListVehicles, auth.Resource{}); err != nil {
		writeAppError(w, err)
		return
	}

	vehicle, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicle)
}

// updateVehicle authorizes against the stored vehicle's category, so a
// motorbike manager cannot patch a car even with a well-formed request.
func (s *HTTPServer) updateVehicle(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeAppError(w, apperr.Unauthenticated("missing principal"))
		return
	}

	vehicle, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := auth.Authorize(principal, auth.ActionUpdateVehicle, auth.Resource{Category: vehicle.Category}); err != nil {
		writeAppError(w, err)
		return
	}

	var patch models.VehiclePatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := s.catalog.Update(r.Context(), id, patch)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *HTTPServer) listVehicleBookings(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeAppError(w, apperr.Unauthenticated("missing principal"))
		return
	}

	vehicle, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	if err := auth.Authorize(principal, auth.ActionListVehicleBookings, auth.Resource{Category: vehicle.Category}); err != nil {
		writeAppError(w, err)
		return
	}

	desc, err := query.Translate(r.URL.Query(), query.ResourceBookings)
	if err != nil {
		writeAppError(w, err)
		return
	}

	bookings, total, err := s.bookings.ListForVehicle(r.Context(), id, desc)
	if err != nil {
		writeAppError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"bookings":    bookings,
		"total_count": total,
		"offset":      desc.Offset,
		"limit":       desc.Limit,
	})
}
