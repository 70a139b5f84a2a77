package profiles

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/parrylicious/salonbook/libs/auth"
	"github.com/parrylicious/salonbook/services/booking-service/internal/model"
)

type memStore struct {
	profiles map[string]model.Profile
	roles    map[string]string
}

func newMemStore() *memStore {
	return &memStore{profiles: map[string]model.Profile{}, roles: map[string]string{}}
}

func (m *memStore) GetProfile(ctx context.Context, userID string) (model.Profile, error) {
	p, ok := m.profiles[userID]
	if !ok {
		return model.Profile{}, model.ErrNotFound
	}
	return p, nil
}

func (m *memStore) UpsertProfile(ctx context.Context, p model.Profile) (model.Profile, error) {
	m.profiles[p.ID] = p
	return p, nil
}

func (m *memStore) SetAvatarURL(ctx context.Context, userID, url string) (model.Profile, error) {
	p := m.profiles[userID]
	p.ID = userID
	p.AvatarURL = url
	m.profiles[userID] = p
	return p, nil
}

func (m *memStore) SetRoleByEmail(ctx context.Context, email, role string) (model.UserRole, error) {
	if _, ok := m.roles[email]; !ok {
		return model.UserRole{}, model.ErrNotFound
	}
	m.roles[email] = role
	return model.UserRole{ID: "id-" + email, Email: email, Role: role}, nil
}

func (m *memStore) ListUsers(ctx context.Context, limit int) ([]model.UserRole, error) {
	var out []model.UserRole
	for email, role := range m.roles {
		out = append(out, model.UserRole{Email: email, Role: role})
	}
	return out, nil
}

var (
	alice = auth.Principal{UserID: "u1", Email: "alice@example.com", Role: auth.RoleCustomer}
	root  = auth.Principal{UserID: "a1", Email: "root@example.com", Role: auth.RoleAdmin}
)

func TestGetMineWithoutRow(t *testing.T) {
	svc := NewService(newMemStore(), nil, nil)

	p, err := svc.GetMine(context.Background(), alice)
	require.NoError(t, err)
	require.Equal(t, model.Profile{ID: "u1", Email: "alice@example.com", Role: auth.RoleCustomer}, p)
}

func TestUpdateMineTrims(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, nil)

	p, err := svc.UpdateMine(context.Background(), alice, UpdateInput{FullName: "  Alice A. ", Phone: " 0170 "})
	require.NoError(t, err)
	require.Equal(t, "Alice A.", p.FullName)
	require.Equal(t, "0170", p.Phone)

	_, err = svc.UpdateMine(context.Background(), alice, UpdateInput{FullName: strings.Repeat("x", 121)})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestUploadAvatarDataURL(t *testing.T) {
	store := newMemStore()
	svc := NewService(store, nil, nil)

	p, err := svc.UploadAvatar(context.Background(), alice, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(p.AvatarURL, "data:image/png;base64,"))

	_, err = svc.UploadAvatar(context.Background(), alice, []byte("plain text"))
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestSetRoleByEmail(t *testing.T) {
	store := newMemStore()
	store.roles["bob@example.com"] = auth.RoleCustomer
	svc := NewService(store, nil, nil)
	ctx := context.Background()

	_, err := svc.SetRoleByEmail(ctx, alice, "bob@example.com", auth.RoleStaff)
	require.ErrorIs(t, err, model.ErrForbidden)

	u, err := svc.SetRoleByEmail(ctx, root, " Bob@Example.com ", "STAFF")
	require.NoError(t, err)
	require.Equal(t, auth.RoleStaff, u.Role)

	_, err = svc.SetRoleByEmail(ctx, root, "bob@example.com", "owner")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.SetRoleByEmail(ctx, root, "root@example.com", auth.RoleCustomer)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.SetRoleByEmail(ctx, root, "ghost@example.com", auth.RoleStaff)
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListUsersAdminOnly(t *testing.T) {
	store := newMemStore()
	store.roles["bob@example.com"] = auth.RoleCustomer
	svc := NewService(store, nil, nil)

	_, err := svc.ListUsers(context.Background(), alice, 0)
	require.ErrorIs(t, err, model.ErrForbidden)

	users, err := svc.ListUsers(context.Background(), root, 0)
	require.NoError(t, err)
	require.Len(t, users, 1)
}
