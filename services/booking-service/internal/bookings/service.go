// Package bookings implements the booking lifecycle: creation with slot
// checks, role-scoped listing, status transitions and the dashboard views.
package bookings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/parrylicious/salonbook/libs/auth"
	"github.com/parrylicious/salonbook/libs/metrics"
	"github.com/parrylicious/salonbook/libs/outbox"
	"github.com/parrylicious/salonbook/services/booking-service/internal/availability"
	"github.com/parrylicious/salonbook/services/booking-service/internal/catalog"
	"github.com/parrylicious/salonbook/services/booking-service/internal/model"
	"github.com/parrylicious/salonbook/services/booking-service/internal/slotlock"
	"github.com/parrylicious/salonbook/services/booking-service/internal/storage"
)

// ErrInvalidInput wraps every validation failure; the message is safe to
// return to the caller.
var ErrInvalidInput = errors.New("invalid input")

// Store is the persistence the service needs. *storage.Store implements it.
type Store interface {
	WithTx(ctx context.Context, p auth.Principal, fn func(storage.TxStore) error) error
	GetBooking(ctx context.Context, id string) (model.Booking, error)
	ListDay(ctx context.Context, dateISO string) ([]model.Booking, error)
	ListBookings(ctx context.Context, f storage.BookingFilter) ([]model.Booking, error)
	Stats(ctx context.Context, userID string) (storage.Stats, error)
}

type Service struct {
	store    Store
	locker   slotlock.Locker
	schedule catalog.Schedule
	metrics  *metrics.BookingMetrics
	waitlist WaitlistClearer
	logger   *slog.Logger
	now      func() time.Time
}

// WaitlistClearer removes the caller's waitlist entries.
type WaitlistClearer interface {
	ClearMine(ctx context.Context, p auth.Principal) (int64, error)
}

type Option func(*Service)

func WithMetrics(m *metrics.BookingMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithWaitlist(w WaitlistClearer) Option {
	return func(s *Service) { s.waitlist = w }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, locker slotlock.Locker, schedule catalog.Schedule, logger *slog.Logger, opts ...Option) *Service {
	if locker == nil {
		locker = slotlock.NewLocal(slotlock.Options{})
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		store:    store,
		locker:   locker,
		schedule: schedule,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Schedule() catalog.Schedule {
	return s.schedule
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

type CreateInput struct {
	ServiceID string
	StylistID string
	DateISO   string
	Time      string
	Customer  model.Customer
}

// prepare resolves the catalog entries and checks the slot lies on the
// studio's grid.
func (s *Service) prepare(p auth.Principal, in CreateInput) (model.NewBooking, error) {
	svc, ok := catalog.ServiceByID(strings.TrimSpace(in.ServiceID))
	if !ok {
		return model.NewBooking{}, invalid("unknown service %q", in.ServiceID)
	}
	stylist, ok := catalog.StylistByID(strings.TrimSpace(in.StylistID))
	if !ok {
		return model.NewBooking{}, invalid("unknown stylist %q", in.StylistID)
	}
	dateISO := strings.TrimSpace(in.DateISO)
	if err := availability.CheckBookableDay(s.schedule, dateISO, s.now()); err != nil {
		return model.NewBooking{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	clock := strings.TrimSpace(in.Time)
	if err := availability.CheckOnGrid(s.schedule, clock, svc.DurationMin); err != nil {
		return model.NewBooking{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	c := in.Customer
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = strings.TrimSpace(c.Email)
	if c.FirstName == "" || c.LastName == "" || c.Phone == "" || c.Email == "" {
		return model.NewBooking{}, invalid("first name, last name, phone and email are required")
	}

	return model.NewBooking{
		UserID:      p.UserID,
		ServiceID:   svc.ID,
		ServiceName: svc.Name,
		DurationMin: svc.DurationMin,
		PriceFrom:   svc.PriceFrom,
		Deposit:     svc.Deposit,
		StylistID:   stylist.ID,
		StylistName: stylist.Name,
		DateISO:     dateISO,
		Time:        clock,
		Customer:    c,
	}, nil
}

// Create books an appointment. The database procedure decides atomically;
// without it the day is locked while the Go check and the insert run.
func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (model.Booking, error) {
	nb, err := s.prepare(p, in)
	if err != nil {
		return model.Booking{}, err
	}

	var created model.Booking
	err = s.store.WithTx(ctx, p, func(tx storage.TxStore) error {
		b, err := tx.CreateBookingRPC(ctx, nb)
		if err != nil {
			return err
		}
		created = b
		return emit(ctx, tx, outbox.TypeBookingRequested, b)
	})
	if err == nil {
		s.metrics.ObserveCreated("rpc")
		return created, nil
	}
	if !errors.Is(err, model.ErrProcedureMissing) {
		s.observeConflict(err)
		return model.Booking{}, err
	}

	s.logger.Debug("create_booking_secure missing, using locked fallback", "date", nb.DateISO)
	req := availability.Request{
		DateISO:     nb.DateISO,
		Time:        nb.Time,
		DurationMin: nb.DurationMin,
		StylistID:   nb.StylistID,
	}
	err = s.locker.WithDayLock(ctx, nb.DateISO, func(lockCtx context.Context) error {
		return s.store.WithTx(lockCtx, p, func(tx storage.TxStore) error {
			day, err := tx.ListDay(lockCtx, nb.DateISO)
			if err != nil {
				return fmt.Errorf("list day: %w", err)
			}
			if !availability.IsSlotAvailable(req, model.Slots(day)) {
				return availability.ErrSlotUnavailable
			}
			b, err := tx.InsertBooking(lockCtx, nb)
			if err != nil {
				return err
			}
			created = b
			return emit(lockCtx, tx, outbox.TypeBookingRequested, b)
		})
	})
	if err != nil {
		s.observeConflict(err)
		return model.Booking{}, err
	}
	s.metrics.ObserveCreated("fallback")
	return created, nil
}

func (s *Service) observeConflict(err error) {
	switch {
	case errors.Is(err, availability.ErrSlotUnavailable):
		s.metrics.ObserveSlotConflict("unavailable")
	case errors.Is(err, model.ErrSlotBusy):
		s.metrics.ObserveSlotConflict("busy")
	}
}

func emit(ctx context.Context, tx storage.TxStore, eventType string, b model.Booking) error {
	evt, err := outbox.NewBookingEvent(eventType, EventPayload(b))
	if err != nil {
		return err
	}
	if err := tx.InsertEvent(ctx, evt); err != nil {
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return nil
}

// EventPayload is the outbox snapshot of b.
func EventPayload(b model.Booking) outbox.BookingEvent {
	return outbox.BookingEvent{
		BookingID:   b.ID,
		UserID:      b.UserID,
		Status:      b.Status,
		ServiceID:   b.ServiceID,
		ServiceName: b.ServiceName,
		DateISO:     b.DateISO,
		Time:        b.Time,
		StylistID:   b.StylistID,
		FirstName:   b.Customer.FirstName,
		Email:       b.Customer.Email,
		Phone:       b.Customer.Phone,
		Deposit:     b.Deposit,
		PaymentRef:  b.PaymentReference,
	}
}

// CheckSlot asks the database whether req fits, falling back to the local
// rules over the day's bookings.
func (s *Service) CheckSlot(ctx context.Context, p auth.Principal, req availability.Request) (bool, error) {
	if _, err := availability.ParseDay(s.schedule, req.DateISO); err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if _, err := availability.ParseClock(req.Time); err != nil {
		return false, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if req.DurationMin <= 0 {
		return false, invalid("durationMin must be positive")
	}

	var ok bool
	err := s.store.WithTx(ctx, p, func(tx storage.TxStore) error {
		avail, err := tx.SlotAvailableRPC(ctx, req)
		if err == nil {
			ok = avail
			return nil
		}
		if !errors.Is(err, model.ErrProcedureMissing) {
			return err
		}
		day, err := tx.ListDay(ctx, req.DateISO)
		if err != nil {
			return err
		}
		ok = availability.IsSlotAvailable(req, model.Slots(day))
		return nil
	})
	return ok, err
}

// Slots returns the slot grid of a day for one catalog service.
func (s *Service) Slots(ctx context.Context, dateISO, serviceID, stylistID string) ([]availability.Slot, error) {
	svc, ok := catalog.ServiceByID(serviceID)
	if !ok {
		return nil, invalid("unknown service %q", serviceID)
	}
	if _, ok := catalog.StylistByID(stylistID); !ok {
		return nil, invalid("unknown stylist %q", stylistID)
	}
	if err := availability.CheckBookableDay(s.schedule, dateISO, s.now()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	day, err := s.store.ListDay(ctx, dateISO)
	if err != nil {
		return nil, fmt.Errorf("list day: %w", err)
	}
	return availability.DaySlots(s.schedule, dateISO, svc.DurationMin, stylistID, model.Slots(day), s.now())
}

func (s *Service) Days() []string {
	return availability.BookableDays(s.schedule, s.now())
}

type Filter struct {
	Status string
	Query  string
	Limit  int
}

// scope returns the user id a listing is restricted to; staff see everyone.
func scope(p auth.Principal) string {
	if p.IsStaff() {
		return ""
	}
	return p.UserID
}

func (s *Service) List(ctx context.Context, p auth.Principal, f Filter) ([]model.Booking, error) {
	status := strings.TrimSpace(f.Status)
	if status == "all" {
		status = ""
	}
	if status != "" && !model.ValidStatus(status) {
		return nil, invalid("unknown status %q", f.Status)
	}
	return s.store.ListBookings(ctx, storage.BookingFilter{
		UserID: scope(p),
		Status: status,
		Query:  strings.TrimSpace(f.Query),
		Limit:  f.Limit,
	})
}

// Get returns a booking visible to p. Other customers' bookings are
// reported as not found.
func (s *Service) Get(ctx context.Context, p auth.Principal, id string) (model.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	if !p.IsStaff() && b.UserID != p.UserID {
		return model.Booking{}, model.ErrNotFound
	}
	return b, nil
}

// UpdateStatus moves a booking to status. Staff may confirm or cancel any
// booking; customers may only cancel their own. Writing the current status
// again returns the booking unchanged and emits nothing.
func (s *Service) UpdateStatus(ctx context.Context, p auth.Principal, id, status string) (model.Booking, error) {
	status = strings.TrimSpace(status)
	if status != model.StatusConfirmed && status != model.StatusCanceled {
		return model.Booking{}, invalid("status must be confirmed or canceled")
	}
	if !p.IsStaff() && status != model.StatusCanceled {
		return model.Booking{}, model.ErrForbidden
	}

	var updated model.Booking
	changed := false
	err := s.store.WithTx(ctx, p, func(tx storage.TxStore) error {
		cur, err := tx.GetBookingForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !p.IsStaff() && cur.UserID != p.UserID {
			return model.ErrNotFound
		}
		if !model.CanTransition(cur.Status, status) {
			return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, cur.Status, status)
		}
		if cur.Status == status {
			updated = cur
			return nil
		}

		var b model.Booking
		if p.IsStaff() {
			b, err = tx.SetStatusRPC(ctx, id, status)
		} else {
			b, err = tx.CancelMineRPC(ctx, id)
		}
		if errors.Is(err, model.ErrProcedureMissing) {
			b, err = tx.UpdateStatus(ctx, id, status)
		}
		if err != nil {
			return err
		}
		updated = b
		changed = true

		eventType := outbox.TypeBookingConfirmed
		if status == model.StatusCanceled {
			eventType = outbox.TypeBookingCanceled
		}
		return emit(ctx, tx, eventType, b)
	})
	if err != nil {
		return model.Booking{}, err
	}
	if changed {
		s.metrics.ObserveStatusChange(status)
		s.logger.Info("booking status changed", "booking_id", id, "status", status, "by", p.UserID)
	}
	return updated, nil
}

type ClearResult struct {
	Bookings int64 `json:"bookings"`
	Waitlist int64 `json:"waitlist"`
}

// ClearMine deletes the caller's own bookings, then hands the waitlist to the
// configured clearer.
func (s *Service) ClearMine(ctx context.Context, p auth.Principal) (ClearResult, error) {
	var res ClearResult
	err := s.store.WithTx(ctx, p, func(tx storage.TxStore) error {
		n, err := tx.DeleteBookingsByUser(ctx, p.UserID)
		if err != nil {
			return fmt.Errorf("delete bookings: %w", err)
		}
		res.Bookings = n
		return nil
	})
	if err != nil || s.waitlist == nil {
		return res, err
	}
	n, err := s.waitlist.ClearMine(ctx, p)
	if err != nil {
		return res, fmt.Errorf("delete waitlist: %w", err)
	}
	res.Waitlist = n
	return res, nil
}

func (s *Service) Stats(ctx context.Context, p auth.Principal) (storage.Stats, error) {
	return s.store.Stats(ctx, scope(p))
}
