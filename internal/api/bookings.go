package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strings"

	"fleetbook/internal/apperr"
	"fleetbook/internal/auth"
	"fleetbook/internal/export"
	"fleetbook/internal/models"
	"fleetbook/internal/query"
)

type createBookingRequest struct {
	VehicleID string      `json:"vehicle_id"`
	FromDate  models.Date `json:"from_date"`
	ToDate    models.Date `json:"to_date"`
}

type updateBookingRequest struct {
	Status string `json:"status"`
	Reason string `json:"reason"`
}

func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createBooking(w, r)
	case http.MethodGet:
		s.listBookings(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleBookingByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(strings.TrimPrefix(r.URL.Path, "/api/v1/bookings/"))
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getBooking(w, r, id)
	case http.MethodPatch:
		s.updateBooking(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) createBooking(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeAppError(w, apperr.Unauthenticated("missing principal"))
		return
	}
	if err := auth.Authorize(principal, auth.ActionCreateBooking, auth.Resource{}); err != nil {
		writeAppError(w, err)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.VehicleID) == "" {
		writeError(w, http.StatusBadRequest, "vehicle_id is required")
		return
	}

	booking, err := s.bookings.Create(r.Context(), principal, req.VehicleID, req.FromDate, req.ToDate)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, booking)
}

func (s *HTTPServer) listBookings(w http.ResponseWriter, r *http.Request) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeAppError(w, apperr.Unauthenticated("missing principal"))
		return
	}
	if err := auth.Authorize(principal, auth.ActionListBookings, auth.Resource{OwnerID: principal.OwnerID}); err != nil {
		writeAppError(w, err)
		return
	}

	desc, err := query.Translate(r.URL.Query(), query.ResourceBookings)
	if err != nil {
		writeAppError(w, err)
		return
	}

	bookings, total, err := s.bookings.List(r.Context(), principal, desc)
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

func (s *HTTPServer) getBooking(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeAppError(w, apperr.Unauthenticated("missing principal"))
		return
	}

	booking, err := s.bookings.Get(r.Context(), principal, id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, booking)
}

// updateBooking authorizes against the stored booking's vehicle category
// and owner; the service re-checks transition permissions on top.
func (s *HTTPServer) updateBooking(w http.ResponseWriter, r *http.Request, id string) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeAppError(w, apperr.Unauthenticated("missing principal"))
		return
	}

	booking, err := s.bookings.Get(r.Context(), principal, id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	vehicle, err := s.catalog.Get(r.Context(), booking.VehicleID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	res := auth.Resource{Category: vehicle.Category, OwnerID: booking.OwnerID}
	if err := auth.Authorize(principal, auth.ActionUpdateBooking, res); err != nil {
		writeAppError(w, err)
		return
	}

	var req updateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := s.bookings.UpdateStatus(r.Context(), principal, id, req.Status, req.Reason)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// handleBookingsExport streams the full booking list as an Excel file.
// Admin only; filters from the query string apply, pagination does not.
func (s *HTTPServer) handleBookingsExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		writeAppError(w, apperr.Unauthenticated("missing principal"))
		return
	}
	if !principal.IsAdmin() {
		writeAppError(w, apperr.PermissionDenied("only admins can export bookings"))
		return
	}
	if s.exporter == nil {
		writeAppError(w, apperr.Internal(nil, "export is not configured"))
		return
	}

	desc, err := query.Translate(r.URL.Query(), query.ResourceBookings)
	if err != nil {
		writeAppError(w, err)
		return
	}

	rows, err := s.collectExportRows(r, principal, desc)
	if err != nil {
		writeAppError(w, err)
		return
	}

	path, err := s.exporter.BookingsToExcel(rows)
	if err != nil {
		writeAppError(w, apperr.Internal(err, "failed to build export"))
		return
	}

	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	http.ServeFile(w, r, path)
}

// collectExportRows pages through the booking list and joins each booking
// with its vehicle via the catalog cache.
func (s *HTTPServer) collectExportRows(r *http.Request, principal models.Principal, desc query.Descriptor) ([]export.BookingRow, error) {
	desc.Offset = 0
	desc.Limit = models.MaxPageSize

	var rows []export.BookingRow
	for {
		bookings, total, err := s.bookings.List(r.Context(), principal, desc)
		if err != nil {
			return nil, err
		}

		for i := range bookings {
			b := bookings[i]
			row := export.BookingRow{Booking: &b}
			if vehicle, err := s.catalog.Get(r.Context(), b.VehicleID); err == nil {
				row.Vehicle = vehicle
			}
			rows = append(rows, row)
		}

		desc.Offset += len(bookings)
		if len(bookings) == 0 || desc.Offset >= total {
			return rows, nil
		}
	}
}
