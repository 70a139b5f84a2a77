package payments

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/parrylicious/salonbook/libs/outbox"
	"github.com/parrylicious/salonbook/services/billing-service/internal/storage"
	"github.com/parrylicious/salonbook/services/billing-service/internal/stripeclient"
)

type fakeStore struct {
	mu       sync.Mutex
	bookings map[string]storage.Booking
	seen     map[string]bool
	events   []outbox.Event
	patches  []storage.PaymentPatch
}

func newFakeStore(list ...storage.Booking) *fakeStore {
	s := &fakeStore{bookings: map[string]storage.Booking{}, seen: map[string]bool{}}
	for _, b := range list {
		s.bookings[b.ID] = b
	}
	return s
}

func (s *fakeStore) GetBooking(ctx context.Context, id string) (storage.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return storage.Booking{}, storage.ErrNotFound
	}
	return b, nil
}

// WithTx applies the staged changes only when fn succeeds.
func (s *fakeStore) WithTx(ctx context.Context, fn func(storage.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &fakeTx{store: s, bookings: map[string]storage.Booking{}, seen: map[string]bool{}}
	if err := fn(tx); err != nil {
		return err
	}
	for id, b := range tx.bookings {
		s.bookings[id] = b
	}
	for id := range tx.seen {
		s.seen[id] = true
	}
	s.events = append(s.events, tx.events...)
	s.patches = append(s.patches, tx.patches...)
	return nil
}

func (s *fakeStore) booking(id string) storage.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings[id]
}

func (s *fakeStore) eventTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

type fakeTx struct {
	store    *fakeStore
	bookings map[string]storage.Booking
	seen     map[string]bool
	events   []outbox.Event
	patches  []storage.PaymentPatch
}

func (t *fakeTx) GetBookingForUpdate(ctx context.Context, id string) (storage.Booking, error) {
	if b, ok := t.bookings[id]; ok {
		return b, nil
	}
	b, ok := t.store.bookings[id]
	if !ok {
		return storage.Booking{}, storage.ErrNotFound
	}
	return b, nil
}

func (t *fakeTx) ApplyPayment(ctx context.Context, id string, p storage.PaymentPatch) (storage.Booking, error) {
	b, err := t.GetBookingForUpdate(ctx, id)
	if err != nil {
		return storage.Booking{}, err
	}
	b.PaymentStatus = p.Status
	b.DepositPaid = p.DepositPaid
	b.SessionID = p.SessionID
	t.bookings[id] = b
	t.patches = append(t.patches, p)
	return b, nil
}

func (t *fakeTx) RecordProviderEvent(ctx context.Context, evt storage.ProviderEvent) error {
	if !json.Valid(evt.Payload) {
		return errors.New("invalid payload")
	}
	if t.store.seen[evt.ProviderEventID] || t.seen[evt.ProviderEventID] {
		return storage.ErrDuplicateProviderEvent
	}
	t.seen[evt.ProviderEventID] = true
	return nil
}

func (t *fakeTx) InsertEvent(ctx context.Context, evt outbox.Event) error {
	t.events = append(t.events, evt)
	return nil
}

type fakeGateway struct {
	mu        sync.Mutex
	sessions  map[string]stripeclient.Session
	events    map[string]stripeclient.Event
	created   []stripeclient.CheckoutParams
	createErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{sessions: map[string]stripeclient.Session{}, events: map[string]stripeclient.Event{}}
}

func (g *fakeGateway) CreateCheckoutSession(ctx context.Context, p stripeclient.CheckoutParams) (stripeclient.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return stripeclient.Session{}, g.createErr
	}
	g.created = append(g.created, p)
	s := stripeclient.Session{
		ID:                "cs_test_new",
		URL:               "https://checkout.stripe.com/c/pay/cs_test_new",
		Status:            "open",
		PaymentStatus:     "unpaid",
		AmountTotal:       p.AmountCents,
		Currency:          p.Currency,
		ClientReferenceID: p.BookingID,
		Metadata:          p.Metadata,
	}
	g.sessions[s.ID] = s
	return s, nil
}

func (g *fakeGateway) GetCheckoutSession(ctx context.Context, id string) (stripeclient.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[id]
	if !ok {
		return stripeclient.Session{}, errors.New("no such checkout session")
	}
	return s, nil
}

func (g *fakeGateway) GetEvent(ctx context.Context, id string) (stripeclient.Event, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.events[id]
	if !ok {
		return stripeclient.Event{}, errors.New("no such event")
	}
	return e, nil
}
