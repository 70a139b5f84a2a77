package bookings

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/parrylicious/salonbook/libs/auth"
	"github.com/parrylicious/salonbook/libs/outbox"
	"github.com/parrylicious/salonbook/services/booking-service/internal/availability"
	"github.com/parrylicious/salonbook/services/booking-service/internal/model"
	"github.com/parrylicious/salonbook/services/booking-service/internal/storage"
)

// fakeStore keeps bookings in memory and rolls back on error like a
// transaction would.
type fakeStore struct {
	mu         sync.Mutex
	bookings   []model.Booking
	waitlist   map[string]int64
	events     []outbox.Event
	rpcMissing bool
	createErr  error
	lastFilter storage.BookingFilter
	lastScope  string
	nextID     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{waitlist: map[string]int64{}}
}

func (f *fakeStore) WithTx(ctx context.Context, p auth.Principal, fn func(storage.TxStore) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	saved := append([]model.Booking(nil), f.bookings...)
	savedEvents := append([]outbox.Event(nil), f.events...)
	if err := fn(&fakeTx{f: f}); err != nil {
		f.bookings = saved
		f.events = savedEvents
		return err
	}
	return nil
}

func (f *fakeStore) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(id)
}

func (f *fakeStore) find(id string) (model.Booking, error) {
	for _, b := range f.bookings {
		if b.ID == id {
			return b, nil
		}
	}
	return model.Booking{}, model.ErrNotFound
}

func (f *fakeStore) ListDay(ctx context.Context, dateISO string) ([]model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.day(dateISO), nil
}

func (f *fakeStore) day(dateISO string) []model.Booking {
	var out []model.Booking
	for _, b := range f.bookings {
		if b.DateISO == dateISO && b.Status != model.StatusCanceled {
			out = append(out, b)
		}
	}
	return out
}

func (f *fakeStore) ListBookings(ctx context.Context, filter storage.BookingFilter) ([]model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilter = filter
	var out []model.Booking
	for _, b := range f.bookings {
		if filter.UserID != "" && b.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeStore) Stats(ctx context.Context, userID string) (storage.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastScope = userID
	var st storage.Stats
	for _, b := range f.bookings {
		if userID != "" && b.UserID != userID {
			continue
		}
		st.Bookings++
		if b.IsOpenPayment() {
			st.OpenPayments++
		}
	}
	return st, nil
}

func (f *fakeStore) add(b model.Booking) model.Booking {
	f.nextID++
	if b.ID == "" {
		b.ID = fmt.Sprintf("b-%d", f.nextID)
	}
	if b.Status == "" {
		b.Status = model.StatusRequested
	}
	if b.PaymentStatus == "" {
		b.PaymentStatus = model.PaymentUnpaid
	}
	f.bookings = append(f.bookings, b)
	return b
}

type fakeTx struct {
	f *fakeStore
}

func fromNew(in model.NewBooking) model.Booking {
	return model.Booking{
		UserID:      in.UserID,
		CreatedAt:   time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC),
		ServiceID:   in.ServiceID,
		ServiceName: in.ServiceName,
		DurationMin: in.DurationMin,
		PriceFrom:   in.PriceFrom,
		Deposit:     in.Deposit,
		StylistID:   in.StylistID,
		StylistName: in.StylistName,
		DateISO:     in.DateISO,
		Time:        in.Time,
		Customer:    in.Customer,
	}
}

func (t *fakeTx) CreateBookingRPC(ctx context.Context, in model.NewBooking) (model.Booking, error) {
	if t.f.rpcMissing {
		return model.Booking{}, model.ErrProcedureMissing
	}
	if t.f.createErr != nil {
		return model.Booking{}, t.f.createErr
	}
	return t.f.add(fromNew(in)), nil
}

func (t *fakeTx) InsertBooking(ctx context.Context, in model.NewBooking) (model.Booking, error) {
	return t.f.add(fromNew(in)), nil
}

func (t *fakeTx) ListDay(ctx context.Context, dateISO string) ([]model.Booking, error) {
	return t.f.day(dateISO), nil
}

func (t *fakeTx) SlotAvailableRPC(ctx context.Context, req availability.Request) (bool, error) {
	if t.f.rpcMissing {
		return false, model.ErrProcedureMissing
	}
	return true, nil
}

func (t *fakeTx) GetBookingForUpdate(ctx context.Context, id string) (model.Booking, error) {
	return t.f.find(id)
}

func (t *fakeTx) SetStatusRPC(ctx context.Context, id, status string) (model.Booking, error) {
	if t.f.rpcMissing {
		return model.Booking{}, model.ErrProcedureMissing
	}
	return t.UpdateStatus(ctx, id, status)
}

func (t *fakeTx) CancelMineRPC(ctx context.Context, id string) (model.Booking, error) {
	if t.f.rpcMissing {
		return model.Booking{}, model.ErrProcedureMissing
	}
	return t.UpdateStatus(ctx, id, model.StatusCanceled)
}

func (t *fakeTx) UpdateStatus(ctx context.Context, id, status string) (model.Booking, error) {
	for i := range t.f.bookings {
		if t.f.bookings[i].ID == id {
			t.f.bookings[i].Status = status
			return t.f.bookings[i], nil
		}
	}
	return model.Booking{}, model.ErrNotFound
}

func (t *fakeTx) DeleteBookingsByUser(ctx context.Context, userID string) (int64, error) {
	var kept []model.Booking
	var n int64
	for _, b := range t.f.bookings {
		if b.UserID == userID {
			n++
			continue
		}
		kept = append(kept, b)
	}
	t.f.bookings = kept
	return n, nil
}

func (t *fakeTx) DeleteWaitlistByUser(ctx context.Context, userID string) (int64, error) {
	n := t.f.waitlist[userID]
	delete(t.f.waitlist, userID)
	return n, nil
}

func (t *fakeTx) InsertEvent(ctx context.Context, evt outbox.Event) error {
	t.f.events = append(t.f.events, evt)
	return nil
}

func (f *fakeStore) eventTypes() string {
	types := make([]string, 0, len(f.events))
	for _, e := range f.events {
		types = append(types, e.EventType)
	}
	return strings.Join(types, ",")
}
