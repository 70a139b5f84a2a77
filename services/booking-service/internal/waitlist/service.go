package waitlist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/parrylicious/salonbook/libs/auth"
	"github.com/parrylicious/salonbook/services/booking-service/internal/catalog"
	"github.com/parrylicious/salonbook/services/booking-service/internal/model"
	"github.com/parrylicious/salonbook/services/booking-service/internal/storage"
)

var ErrInvalidInput = errors.New("invalid input")

type Store interface {
	WithTx(ctx context.Context, p auth.Principal, fn func(storage.TxStore) error) error
	CreateWaitlistEntry(ctx context.Context, e model.WaitlistEntry) (model.WaitlistEntry, error)
	ListWaitlist(ctx context.Context, userID string) ([]model.WaitlistEntry, error)
	GetWaitlistEntry(ctx context.Context, id string) (model.WaitlistEntry, error)
	DeleteWaitlistEntry(ctx context.Context, id string) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

type CreateInput struct {
	ServiceID string
	Email     string
	Phone     string
	Note      string
}

func (s *Service) Create(ctx context.Context, p auth.Principal, in CreateInput) (model.WaitlistEntry, error) {
	svc, ok := catalog.ServiceByID(strings.TrimSpace(in.ServiceID))
	if !ok {
		return model.WaitlistEntry{}, fmt.Errorf("%w: unknown service %q", ErrInvalidInput, in.ServiceID)
	}
	email := strings.TrimSpace(in.Email)
	phone := strings.TrimSpace(in.Phone)
	if email == "" && phone == "" {
		return model.WaitlistEntry{}, fmt.Errorf("%w: email or phone is required", ErrInvalidInput)
	}
	return s.store.CreateWaitlistEntry(ctx, model.WaitlistEntry{
		UserID:      p.UserID,
		ServiceID:   svc.ID,
		ServiceName: svc.Name,
		Email:       email,
		Phone:       phone,
		Note:        strings.TrimSpace(in.Note),
	})
}

// List returns the caller's entries, or every entry for staff.
func (s *Service) List(ctx context.Context, p auth.Principal) ([]model.WaitlistEntry, error) {
	userID := p.UserID
	if p.IsStaff() {
		userID = ""
	}
	return s.store.ListWaitlist(ctx, userID)
}

// Delete removes an entry owned by p; staff may remove any entry.
func (s *Service) Delete(ctx context.Context, p auth.Principal, id string) error {
	e, err := s.store.GetWaitlistEntry(ctx, id)
	if err != nil {
		return err
	}
	if !p.IsStaff() && e.UserID != p.UserID {
		return model.ErrNotFound
	}
	return s.store.DeleteWaitlistEntry(ctx, id)
}

func (s *Service) ClearMine(ctx context.Context, p auth.Principal) (int64, error) {
	var n int64
	err := s.store.WithTx(ctx, p, func(tx storage.TxStore) error {
		var err error
		n, err = tx.DeleteWaitlistByUser(ctx, p.UserID)
		return err
	})
	return n, err
}
