package auth

import (
	"context"
	"strings"
)

const (
	RoleCustomer = "customer"
	RoleStaff    = "staff"
	RoleAdmin    = "admin"
)

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID string
	Email  string
	Role   string
}

func (p Principal) IsStaff() bool {
	return IsStaff(p.Role)
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// IsStaff reports whether role may act on other customers' bookings.
func IsStaff(role string) bool {
	return role == RoleStaff || role == RoleAdmin
}

// NormalizeRole maps unknown or empty roles to customer.
func NormalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case RoleStaff:
		return RoleStaff
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleCustomer
	}
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok && p.UserID != ""
}
