package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/parrylicious/salonbook/libs/auth"
	"github.com/parrylicious/salonbook/libs/httpx"
	"github.com/parrylicious/salonbook/services/booking-service/internal/availability"
	"github.com/parrylicious/salonbook/services/booking-service/internal/bookings"
	"github.com/parrylicious/salonbook/services/booking-service/internal/model"
	"github.com/parrylicious/salonbook/services/booking-service/internal/profiles"
	"github.com/parrylicious/salonbook/services/booking-service/internal/storage"
	"github.com/parrylicious/salonbook/services/booking-service/internal/waitlist"
)

// BookingService is implemented by *bookings.Service.
type BookingService interface {
	Create(ctx context.Context, p auth.Principal, in bookings.CreateInput) (model.Booking, error)
	CheckSlot(ctx context.Context, p auth.Principal, req availability.Request) (bool, error)
	Slots(ctx context.Context, dateISO, serviceID, stylistID string) ([]availability.Slot, error)
	Days() []string
	List(ctx context.Context, p auth.Principal, f bookings.Filter) ([]model.Booking, error)
	Get(ctx context.Context, p auth.Principal, id string) (model.Booking, error)
	UpdateStatus(ctx context.Context, p auth.Principal, id, status string) (model.Booking, error)
	ClearMine(ctx context.Context, p auth.Principal) (bookings.ClearResult, error)
	Stats(ctx context.Context, p auth.Principal) (storage.Stats, error)
	ExportCSV(ctx context.Context, p auth.Principal, w io.Writer) error
	ICS(b model.Booking) ([]byte, error)
}

// WaitlistService is implemented by *waitlist.Service.
type WaitlistService interface {
	Create(ctx context.Context, p auth.Principal, in waitlist.CreateInput) (model.WaitlistEntry, error)
	List(ctx context.Context, p auth.Principal) ([]model.WaitlistEntry, error)
	Delete(ctx context.Context, p auth.Principal, id string) error
}

// ProfileService is implemented by *profiles.Service.
type ProfileService interface {
	GetMine(ctx context.Context, p auth.Principal) (model.Profile, error)
	UpdateMine(ctx context.Context, p auth.Principal, in profiles.UpdateInput) (model.Profile, error)
	UploadAvatar(ctx context.Context, p auth.Principal, data []byte) (model.Profile, error)
	SetRoleByEmail(ctx context.Context, p auth.Principal, email, role string) (model.UserRole, error)
	ListUsers(ctx context.Context, p auth.Principal, limit int) ([]model.UserRole, error)
}

type Handler struct {
	bookings BookingService
	waitlist WaitlistService
	profiles ProfileService
	logger   *slog.Logger
}

func New(b BookingService, w WaitlistService, p ProfileService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{bookings: b, waitlist: w, profiles: p, logger: logger}
}

// Routes mounts the API. requireAuth must store an auth.Principal in the
// request context; mw runs for every route, inside chi routing.
func (h *Handler) Routes(requireAuth func(http.Handler) http.Handler, mw ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(mw...)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/services", h.ListServices)
		r.Get("/stylists", h.ListStylists)
		r.Get("/availability/days", h.Days)
		r.Get("/availability/slots", h.Slots)
		r.Post("/availability/check", h.CheckSlot)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/bookings", func(r chi.Router) {
				r.Post("/", h.CreateBooking)
				r.Get("/", h.ListBookings)
				r.Delete("/mine", h.ClearMine)
				r.Get("/{id}", h.GetBooking)
				r.Patch("/{id}/status", h.UpdateStatus)
				r.Get("/{id}/ics", h.BookingICS)
			})

			r.Route("/waitlist", func(r chi.Router) {
				r.Post("/", h.CreateWaitlist)
				r.Get("/", h.ListWaitlist)
				r.Delete("/{id}", h.DeleteWaitlist)
			})

			r.Get("/profile", h.GetProfile)
			r.Put("/profile", h.UpdateProfile)
			r.Post("/profile/avatar", h.UploadAvatar)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireStaff)
				r.Get("/admin/stats", h.Stats)
				r.Get("/admin/bookings.csv", h.ExportCSV)
			})

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				r.Get("/admin/users", h.ListUsers)
				r.Put("/admin/users/role", h.SetRole)
			})
		})
	})
	return r
}

func principal(r *http.Request) auth.Principal {
	p, _ := auth.FromContext(r.Context())
	return p
}

// writeServiceError maps domain errors to HTTP responses.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, bookings.ErrInvalidInput),
		errors.Is(err, waitlist.ErrInvalidInput),
		errors.Is(err, profiles.ErrInvalidInput):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
	case errors.Is(err, availability.ErrSlotUnavailable):
		httpx.WriteError(w, http.StatusConflict, "slot_unavailable", "slot no longer available")
	case errors.Is(err, model.ErrSlotBusy):
		httpx.WriteError(w, http.StatusConflict, "slot_busy", "slot is being booked, please retry")
	case errors.Is(err, model.ErrInvalidTransition):
		httpx.WriteError(w, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, model.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "not found")
	case errors.Is(err, model.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden", "not allowed")
	default:
		h.logger.Error("request failed", "err", err, "method", r.Method, "path", r.URL.Path)
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
