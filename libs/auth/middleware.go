package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/parrylicious/salonbook/libs/httpx"
)

// TokenVerifier is implemented by *Verifier.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// Authenticator turns a bearer token into a Principal.
type Authenticator struct {
	verifier TokenVerifier
	roles    RoleResolver
	logger   *slog.Logger
}

func NewAuthenticator(verifier TokenVerifier, roles RoleResolver, logger *slog.Logger) *Authenticator {
	if roles == nil {
		roles = StaticRoles(RoleCustomer)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{verifier: verifier, roles: roles, logger: logger}
}

func (a *Authenticator) Authenticate(r *http.Request) (Principal, error) {
	token := BearerToken(r.Header.Get("Authorization"))
	if token == "" {
		return Principal{}, ErrInvalidToken
	}
	ident, err := a.verifier.Verify(r.Context(), token)
	if err != nil {
		return Principal{}, err
	}
	role, err := a.roles.Role(r.Context(), ident.UserID)
	if err != nil {
		return Principal{}, err
	}
	return Principal{UserID: ident.UserID, Email: ident.Email, Role: role}, nil
}

// Require rejects requests without a valid bearer token and stores the
// Principal in the request context.
func (a *Authenticator) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, err := a.Authenticate(r)
		switch {
		case err == nil:
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		case errors.Is(err, ErrNotConfigured):
			httpx.WriteError(w, http.StatusServiceUnavailable, "auth_not_configured", "auth is not configured")
		case errors.Is(err, ErrInvalidToken):
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		default:
			a.logger.Error("authenticate request", "err", err)
			httpx.WriteError(w, http.StatusInternalServerError, "auth_failed", "could not authenticate request")
		}
	})
}

// RequireStaff must run after Require.
func RequireStaff(next http.Handler) http.Handler {
	return requireRole(next, IsStaff)
}

// RequireAdmin must run after Require.
func RequireAdmin(next http.Handler) http.Handler {
	return requireRole(next, func(role string) bool { return role == RoleAdmin })
}

func requireRole(next http.Handler, allowed func(string) bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromContext(r.Context())
		if !ok {
			httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
			return
		}
		if !allowed(p.Role) {
			httpx.WriteError(w, http.StatusForbidden, "forbidden", "insufficient role")
			return
		}
		next.ServeHTTP(w, r)
	})
}
