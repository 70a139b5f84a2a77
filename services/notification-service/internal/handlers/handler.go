package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/parrylicious/salonbook/libs/auth"
	"github.com/parrylicious/salonbook/libs/httpx"
	"github.com/parrylicious/salonbook/services/notification-service/internal/dispatch"
	"github.com/parrylicious/salonbook/services/notification-service/internal/storage"
	"github.com/parrylicious/salonbook/services/notification-service/internal/templates"
)

type BookingStore interface {
	GetBooking(ctx context.Context, id string) (storage.Booking, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) dispatch.Result
}

type Handler struct {
	bookings   BookingStore
	dispatcher Dispatcher
	logger     *slog.Logger
}

func New(bookings BookingStore, dispatcher Dispatcher, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{bookings: bookings, dispatcher: dispatcher, logger: logger}
}

func (h *Handler) Routes(requireAuth func(http.Handler) http.Handler, mw ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(mw...)

	r.Route("/api/v1/notifications", func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/booking", h.NotifyBooking)
	})
	return r
}

type bookingRef struct {
	ID string `json:"id" validate:"required"`
}

type notifyRequest struct {
	EventType string     `json:"eventType" validate:"required,oneof=booking_requested booking_confirmed booking_canceled"`
	Booking   bookingRef `json:"booking"`
}

// NotifyBooking sends the message for a booking event to the booking's
// customer. Customers may only notify about their own bookings and never
// announce a confirmation.
func (h *Handler) NotifyBooking(w http.ResponseWriter, r *http.Request) {
	p, _ := auth.FromContext(r.Context())

	var req notifyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	kind := templates.Kind(req.EventType)

	b, err := h.bookings.GetBooking(r.Context(), req.Booking.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "booking not found")
			return
		}
		h.logger.Error("notification booking lookup failed", "err", err, "booking_id", req.Booking.ID)
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	staff := p.IsStaff()
	if !staff && b.UserID != p.UserID {
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "not allowed to notify about this booking")
		return
	}
	if !staff && kind == templates.KindConfirmed {
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "only staff may confirm bookings")
		return
	}

	res := h.dispatcher.Dispatch(r.Context(), dispatch.RequestFromBooking(kind, b))
	httpx.WriteJSON(w, http.StatusOK, res)
}
