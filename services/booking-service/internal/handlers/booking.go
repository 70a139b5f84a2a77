package handlers

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/parrylicious/salonbook/libs/httpx"
	"github.com/parrylicious/salonbook/services/booking-service/internal/availability"
	"github.com/parrylicious/salonbook/services/booking-service/internal/bookings"
	"github.com/parrylicious/salonbook/services/booking-service/internal/catalog"
	"github.com/parrylicious/salonbook/services/booking-service/internal/model"
)

type customerRequest struct {
	FirstName string `json:"firstName" validate:"required,max=80"`
	LastName  string `json:"lastName" validate:"required,max=80"`
	Phone     string `json:"phone" validate:"required,max=40"`
	Email     string `json:"email" validate:"required,email"`
	Address   string `json:"address" validate:"max=200"`
	Notes     string `json:"notes" validate:"max=500"`
}

type createBookingRequest struct {
	ServiceID string          `json:"serviceId" validate:"required"`
	StylistID string          `json:"stylistId"`
	DateISO   string          `json:"dateISO" validate:"required"`
	Time      string          `json:"time" validate:"required"`
	Customer  customerRequest `json:"customer"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=confirmed canceled"`
}

type checkSlotResponse struct {
	Available bool `json:"available"`
}

func (h *Handler) ListServices(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"services": catalog.FilterByTag(r.URL.Query().Get("tag"))})
}

func (h *Handler) ListStylists(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"stylists": catalog.Stylists()})
}

func (h *Handler) Days(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"days": h.bookings.Days()})
}

func (h *Handler) Slots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date := strings.TrimSpace(q.Get("date"))
	serviceID := strings.TrimSpace(q.Get("service_id"))
	if date == "" || serviceID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "date and service_id are required")
		return
	}
	stylistID := strings.TrimSpace(q.Get("stylist_id"))

	slots, err := h.bookings.Slots(r.Context(), date, serviceID, stylistID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if slots == nil {
		slots = []availability.Slot{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"date":      date,
		"serviceId": serviceID,
		"stylistId": stylistID,
		"slots":     slots,
	})
}

func (h *Handler) CheckSlot(w http.ResponseWriter, r *http.Request) {
	var req availability.Request
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	ok, err := h.bookings.CheckSlot(r.Context(), principal(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, checkSlotResponse{Available: ok})
}

func (h *Handler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	b, err := h.bookings.Create(r.Context(), principal(r), bookings.CreateInput{
		ServiceID: req.ServiceID,
		StylistID: req.StylistID,
		DateISO:   req.DateISO,
		Time:      req.Time,
		Customer: model.Customer{
			FirstName: req.Customer.FirstName,
			LastName:  req.Customer.LastName,
			Phone:     req.Customer.Phone,
			Email:     req.Customer.Email,
			Address:   req.Customer.Address,
			Notes:     req.Customer.Notes,
		},
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, b)
}

func (h *Handler) ListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.bookings.List(r.Context(), principal(r), bookings.Filter{
		Status: q.Get("status"),
		Query:  q.Get("q"),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []model.Booking{}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"bookings": list})
}

func (h *Handler) GetBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.Get(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	b, err := h.bookings.UpdateStatus(r.Context(), principal(r), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, b)
}

func (h *Handler) BookingICS(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.Get(r.Context(), principal(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	ics, err := h.bookings.ICS(b)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="parrylicious-termin.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(ics)
}

func (h *Handler) ClearMine(w http.ResponseWriter, r *http.Request) {
	res, err := h.bookings.ClearMine(r.Context(), principal(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.bookings.Stats(r.Context(), principal(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.bookings.ExportCSV(r.Context(), principal(r), &buf); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="parrylicious-bookings.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
