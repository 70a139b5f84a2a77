// Package profiles manages the caller's profile and the admin role tools.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/parrylicious/salonbook/libs/auth"
	"github.com/parrylicious/salonbook/services/booking-service/internal/avatars"
	"github.com/parrylicious/salonbook/services/booking-service/internal/model"
)

var ErrInvalidInput = errors.New("invalid input")

type Store interface {
	GetProfile(ctx context.Context, userID string) (model.Profile, error)
	UpsertProfile(ctx context.Context, p model.Profile) (model.Profile, error)
	SetAvatarURL(ctx context.Context, userID, url string) (model.Profile, error)
	SetRoleByEmail(ctx context.Context, email, role string) (model.UserRole, error)
	ListUsers(ctx context.Context, limit int) ([]model.UserRole, error)
}

type Service struct {
	store   Store
	avatars avatars.Store
	logger  *slog.Logger
}

func NewService(store Store, avatarStore avatars.Store, logger *slog.Logger) *Service {
	if avatarStore == nil {
		avatarStore = avatars.DataURLStore{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, avatars: avatarStore, logger: logger}
}

// GetMine returns the caller's profile. A caller without a profile row gets
// one built from the token.
func (s *Service) GetMine(ctx context.Context, p auth.Principal) (model.Profile, error) {
	prof, err := s.store.GetProfile(ctx, p.UserID)
	if errors.Is(err, model.ErrNotFound) {
		return model.Profile{ID: p.UserID, Email: p.Email, Role: auth.NormalizeRole(p.Role)}, nil
	}
	if err != nil {
		return model.Profile{}, err
	}
	prof.Role = auth.NormalizeRole(prof.Role)
	return prof, nil
}

type UpdateInput struct {
	FullName string
	Phone    string
	Address  string
}

func (s *Service) UpdateMine(ctx context.Context, p auth.Principal, in UpdateInput) (model.Profile, error) {
	fullName := strings.TrimSpace(in.FullName)
	if len(fullName) > 120 {
		return model.Profile{}, fmt.Errorf("%w: full name is too long", ErrInvalidInput)
	}
	return s.store.UpsertProfile(ctx, model.Profile{
		ID:       p.UserID,
		Email:    p.Email,
		FullName: fullName,
		Phone:    strings.TrimSpace(in.Phone),
		Address:  strings.TrimSpace(in.Address),
	})
}

func (s *Service) UploadAvatar(ctx context.Context, p auth.Principal, data []byte) (model.Profile, error) {
	url, err := s.avatars.Put(ctx, p.UserID, data)
	if err != nil {
		if errors.Is(err, avatars.ErrTooLarge) || errors.Is(err, avatars.ErrUnsupportedType) || errors.Is(err, avatars.ErrEmpty) {
			return model.Profile{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return model.Profile{}, err
	}
	return s.store.SetAvatarURL(ctx, p.UserID, url)
}

// SetRoleByEmail changes a user's role. Admins cannot demote themselves.
func (s *Service) SetRoleByEmail(ctx context.Context, p auth.Principal, email, role string) (model.UserRole, error) {
	if !p.IsAdmin() {
		return model.UserRole{}, model.ErrForbidden
	}
	email = strings.ToLower(strings.TrimSpace(email))
	role = strings.ToLower(strings.TrimSpace(role))
	if email == "" {
		return model.UserRole{}, fmt.Errorf("%w: email is required", ErrInvalidInput)
	}
	if auth.NormalizeRole(role) != role {
		return model.UserRole{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, role)
	}
	if email == strings.ToLower(p.Email) && role != auth.RoleAdmin {
		return model.UserRole{}, fmt.Errorf("%w: admins cannot demote themselves", ErrInvalidInput)
	}

	u, err := s.store.SetRoleByEmail(ctx, email, role)
	if err != nil {
		return model.UserRole{}, err
	}
	s.logger.Info("role changed", "user_id", u.ID, "role", role, "by", p.UserID)
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context, p auth.Principal, limit int) ([]model.UserRole, error) {
	if !p.IsAdmin() {
		return nil, model.ErrForbidden
	}
	return s.store.ListUsers(ctx, limit)
}
