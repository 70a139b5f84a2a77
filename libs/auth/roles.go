package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
)

// RoleResolver looks up the application role of a user.
type RoleResolver interface {
	Role(ctx context.Context, userID string) (string, error)
}

type rowQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProfileRoles reads roles from the profiles table. Users without a profile
// row are customers.
type ProfileRoles struct {
	db rowQuerier
}

func NewProfileRoles(db rowQuerier) *ProfileRoles {
	return &ProfileRoles{db: db}
}

func (r *ProfileRoles) Role(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return RoleCustomer, nil
	}
	var role *string
	err := r.db.QueryRow(ctx, `SELECT role FROM profiles WHERE id = $1`, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return RoleCustomer, nil
	}
	if err != nil {
		return "", err
	}
	if role == nil {
		return RoleCustomer, nil
	}
	return NormalizeRole(*role), nil
}

// StaticRoles resolves every user to the same role.
type StaticRoles string

func (s StaticRoles) Role(context.Context, string) (string, error) {
	return NormalizeRole(string(s)), nil
}
