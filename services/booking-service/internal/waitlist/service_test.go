package waitlist

import (
	"context"
	"errors"
	"testing"

	"github.com/parrylicious/salonbook/libs/auth"
	"github.com/parrylicious/salonbook/services/booking-service/internal/model"
	"github.com/parrylicious/salonbook/services/booking-service/internal/storage"
)

type memStore struct {
	storage.TxStore
	entries   map[string]model.WaitlistEntry
	listScope string
	cleared   string
}

func (m *memStore) WithTx(ctx context.Context, p auth.Principal, fn func(storage.TxStore) error) error {
	return fn(m)
}

func (m *memStore) DeleteWaitlistByUser(ctx context.Context, userID string) (int64, error) {
	m.cleared = userID
	return 3, nil
}

func (m *memStore) CreateWaitlistEntry(ctx context.Context, e model.WaitlistEntry) (model.WaitlistEntry, error) {
	e.ID = "w-1"
	m.entries[e.ID] = e
	return e, nil
}

func (m *memStore) ListWaitlist(ctx context.Context, userID string) ([]model.WaitlistEntry, error) {
	m.listScope = userID
	return nil, nil
}

func (m *memStore) GetWaitlistEntry(ctx context.Context, id string) (model.WaitlistEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return model.WaitlistEntry{}, model.ErrNotFound
	}
	return e, nil
}

func (m *memStore) DeleteWaitlistEntry(ctx context.Context, id string) error {
	delete(m.entries, id)
	return nil
}

var (
	owner    = auth.Principal{UserID: "u1", Role: auth.RoleCustomer}
	stranger = auth.Principal{UserID: "u2", Role: auth.RoleCustomer}
	admin    = auth.Principal{UserID: "a1", Role: auth.RoleAdmin}
)

func TestCreateResolvesService(t *testing.T) {
	store := &memStore{entries: map[string]model.WaitlistEntry{}}
	svc := NewService(store)

	e, err := svc.Create(context.Background(), owner, CreateInput{ServiceID: "cornrows", Email: " ada@example.com "})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if e.ServiceName == "" || e.Email != "ada@example.com" || e.UserID != "u1" {
		t.Fatalf("unexpected entry %+v", e)
	}

	if _, err := svc.Create(context.Background(), owner, CreateInput{ServiceID: "cornrows"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput without contact, got %v", err)
	}
	if _, err := svc.Create(context.Background(), owner, CreateInput{ServiceID: "nope", Phone: "1"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown service, got %v", err)
	}
}

func TestDeleteOwnership(t *testing.T) {
	store := &memStore{entries: map[string]model.WaitlistEntry{"w-1": {ID: "w-1", UserID: "u1"}}}
	svc := NewService(store)

	if err := svc.Delete(context.Background(), stranger, "w-1"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for stranger, got %v", err)
	}
	if err := svc.Delete(context.Background(), admin, "w-1"); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	if _, ok := store.entries["w-1"]; ok {
		t.Fatal("expected entry removed")
	}
}

func TestListScopeAndClear(t *testing.T) {
	store := &memStore{entries: map[string]model.WaitlistEntry{}}
	svc := NewService(store)

	_, _ = svc.List(context.Background(), owner)
	if store.listScope != "u1" {
		t.Fatalf("expected owner scope, got %q", store.listScope)
	}
	_, _ = svc.List(context.Background(), admin)
	if store.listScope != "" {
		t.Fatalf("expected unscoped list for admin, got %q", store.listScope)
	}

	n, err := svc.ClearMine(context.Background(), owner)
	if err != nil || n != 3 || store.cleared != "u1" {
		t.Fatalf("unexpected clear result n=%d err=%v cleared=%q", n, err, store.cleared)
	}
}
