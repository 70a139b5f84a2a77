package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pashagolub/pgxmock/v3"
)

func TestHS256RoundTrip(t *testing.T) {
	secret := "test-secret"
	token, err := SignHS256(secret, "user-1", "kim@example.com", time.Hour)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}

	v := NewVerifier(VerifierConfig{JWTSecret: secret, Audience: "authenticated"})
	ident, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ident.UserID != "user-1" || ident.Email != "kim@example.com" {
		t.Fatalf("identity mismatch: %+v", ident)
	}

	wrong := NewVerifier(VerifierConfig{JWTSecret: "wrong-secret"})
	if _, err := wrong.Verify(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken with wrong secret, got %v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	token, err := SignHS256("s", "user-1", "", -time.Hour)
	if err != nil {
		t.Fatalf("SignHS256 failed: %v", err)
	}
	v := NewVerifier(VerifierConfig{JWTSecret: "s"})
	if _, err := v.Verify(context.Background(), token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}
}

func TestJWKSVerification(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("rsa.GenerateKey failed: %v", err)
	}
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("ecdsa.GenerateKey failed: %v", err)
	}

	enc := base64.RawURLEncoding.EncodeToString
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{
				{"kty": "RSA", "kid": "rsa-1", "n": enc(rsaKey.N.Bytes()), "e": enc(big.NewInt(int64(rsaKey.E)).Bytes())},
				{"kty": "EC", "kid": "ec-1", "crv": "P-256", "x": enc(ecKey.X.FillBytes(make([]byte, 32))), "y": enc(ecKey.Y.FillBytes(make([]byte, 32)))},
			},
		})
	}))
	defer srv.Close()

	v := NewVerifier(VerifierConfig{JWKSURL: srv.URL})
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   "user-2",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}

	rsaToken := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	rsaToken.Header["kid"] = "rsa-1"
	signed, err := rsaToken.SignedString(rsaKey)
	if err != nil {
		t.Fatalf("sign rs256: %v", err)
	}
	if ident, err := v.Verify(context.Background(), signed); err != nil || ident.UserID != "user-2" {
		t.Fatalf("rs256 verify: %+v %v", ident, err)
	}

	ecToken := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	ecToken.Header["kid"] = "ec-1"
	signed, err = ecToken.SignedString(ecKey)
	if err != nil {
		t.Fatalf("sign es256: %v", err)
	}
	if ident, err := v.Verify(context.Background(), signed); err != nil || ident.UserID != "user-2" {
		t.Fatalf("es256 verify: %+v %v", ident, err)
	}

	rsaToken.Header["kid"] = "unknown"
	signed, _ = rsaToken.SignedString(rsaKey)
	if _, err := v.Verify(context.Background(), signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected unknown kid to fail, got %v", err)
	}
}

func TestRemoteFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/user" || r.Header.Get("apikey") != "anon" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"user-3","email":"remote@example.com"}`))
	}))
	defer srv.Close()

	v := NewVerifier(VerifierConfig{SupabaseURL: srv.URL + "/", AnonKey: "anon"})
	ident, err := v.Verify(context.Background(), "good")
	if err != nil || ident.UserID != "user-3" || ident.Email != "remote@example.com" {
		t.Fatalf("remote verify: %+v %v", ident, err)
	}
	if _, err := v.Verify(context.Background(), "bad"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}

	if _, err := NewVerifier(VerifierConfig{}).Verify(context.Background(), "x"); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestProfileRoles(t *testing.T) {
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("pgxmock: %v", err)
	}
	defer mock.Close()

	staff := "staff"
	mock.ExpectQuery("SELECT role FROM profiles").WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"role"}).AddRow(&staff))
	mock.ExpectQuery("SELECT role FROM profiles").WithArgs("u2").
		WillReturnRows(pgxmock.NewRows([]string{"role"}))

	roles := NewProfileRoles(mock)
	if role, err := roles.Role(context.Background(), "u1"); err != nil || role != RoleStaff {
		t.Fatalf("expected staff, got %q %v", role, err)
	}
	if role, err := roles.Role(context.Background(), "u2"); err != nil || role != RoleCustomer {
		t.Fatalf("expected customer default, got %q %v", role, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRequireMiddleware(t *testing.T) {
	token, _ := SignHS256("s", "user-1", "", time.Hour)
	a := NewAuthenticator(NewVerifier(VerifierConfig{JWTSecret: "s"}), StaticRoles(RoleCustomer), nil)

	var seen Principal
	h := a.Require(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent || seen.UserID != "user-1" || seen.Role != RoleCustomer {
		t.Fatalf("unexpected result %d %+v", rr.Code, seen)
	}

	staffOnly := a.Require(RequireStaff(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))
	rr = httptest.NewRecorder()
	staffOnly.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer, got %d", rr.Code)
	}
}

func TestBearerToken(t *testing.T) {
	if got := BearerToken("bearer abc "); got != "abc" {
		t.Fatalf("expected abc, got %q", got)
	}
	if got := BearerToken("Basic abc"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}

func TestJWKSClientThrottlesUnknownKidRefetch(t *testing.T) {
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("ecdsa.GenerateKey failed: %v", err)
	}
	enc := base64.RawURLEncoding.EncodeToString
	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{
				{"kty": "EC", "kid": "ec-1", "use": "sig", "crv": "P-256", "x": enc(ecKey.X.FillBytes(make([]byte, 32))), "y": enc(ecKey.Y.FillBytes(make([]byte, 32)))},
				{"kty": "EC", "kid": "bad", "crv": "P-256", "x": enc([]byte{1}), "y": enc([]byte{2})},
				{"kty": "RSA", "kid": "enc-1", "use": "enc", "n": enc([]byte{1, 2, 3}), "e": enc([]byte{1, 0, 1})},
			},
		})
	}))
	defer srv.Close()

	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	c := NewJWKSClient(srv.URL, time.Hour, srv.Client())
	c.now = func() time.Time { return now }

	if _, err := c.Key(context.Background(), "ec-1"); err != nil {
		t.Fatalf("Key: %v", err)
	}
	for _, kid := range []string{"bad", "enc-1", "missing"} {
		if _, err := c.Key(context.Background(), kid); !errors.Is(err, ErrKeyNotFound) {
			t.Fatalf("%s: expected ErrKeyNotFound, got %v", kid, err)
		}
	}
	if fetches.Load() != 1 {
		t.Fatalf("unknown kids must not refetch within the throttle window, got %d fetches", fetches.Load())
	}

	now = now.Add(time.Minute)
	if _, err := c.Key(context.Background(), "missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if fetches.Load() != 2 {
		t.Fatalf("expected a refetch after the throttle window, got %d fetches", fetches.Load())
	}
}
