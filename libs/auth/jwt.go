package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrNotConfigured = errors.New("auth verifier not configured")
)

// Claims are the Supabase access token claims the services read.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the verified subject of a token, before role resolution.
type Identity struct {
	UserID string
	Email  string
}

type VerifierConfig struct {
	// JWTSecret is the project's HS256 secret.
	JWTSecret string
	// JWKSURL enables RS256/ES256 verification against rotating keys.
	JWKSURL string
	// SupabaseURL and AnonKey enable the remote /auth/v1/user lookup used
	// when no local key material is configured.
	SupabaseURL string
	AnonKey     string
	Audience    string
	HTTPClient  *http.Client
}

// Verifier checks Supabase access tokens.
type Verifier struct {
	secret      []byte
	jwks        *JWKSClient
	supabaseURL string
	anonKey     string
	audience    string
	client      *http.Client
}

func NewVerifier(cfg VerifierConfig) *Verifier {
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	v := &Verifier{
		supabaseURL: strings.TrimRight(cfg.SupabaseURL, "/"),
		anonKey:     cfg.AnonKey,
		audience:    cfg.Audience,
		client:      client,
	}
	if cfg.JWTSecret != "" {
		v.secret = []byte(cfg.JWTSecret)
	}
	if cfg.JWKSURL != "" {
		v.jwks = NewJWKSClient(cfg.JWKSURL, 10*time.Minute, client)
	}
	return v
}

func (v *Verifier) hasLocalKeys() bool {
	return len(v.secret) > 0 || v.jwks != nil
}

func (v *Verifier) Verify(ctx context.Context, token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrInvalidToken
	}
	if v.hasLocalKeys() {
		return v.verifyLocal(ctx, token)
	}
	if v.supabaseURL != "" && v.anonKey != "" {
		return v.verifyRemote(ctx, token)
	}
	return Identity{}, ErrNotConfigured
}

func (v *Verifier) verifyLocal(ctx context.Context, token string) (Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "RS256", "ES256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodHMAC:
			if len(v.secret) == 0 {
				return nil, ErrKeyNotFound
			}
			return v.secret, nil
		case *jwt.SigningMethodRSA, *jwt.SigningMethodECDSA:
			if v.jwks == nil {
				return nil, ErrKeyNotFound
			}
			kid, _ := t.Header["kid"].(string)
			return v.jwks.Key(ctx, kid)
		default:
			return nil, fmt.Errorf("unexpected signing method %s", t.Method.Alg())
		}
	}, opts...)
	if err != nil || !parsed.Valid {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.Subject, Email: claims.Email}, nil
}

type remoteUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (v *Verifier) verifyRemote(ctx context.Context, token string) (Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.supabaseURL+"/auth/v1/user", nil)
	if err != nil {
		return Identity{}, err
	}
	req.Header.Set("apikey", v.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := v.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("auth user lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Identity{}, ErrInvalidToken
	}

	var user remoteUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil || user.ID == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: user.ID, Email: user.Email}, nil
}

// SignHS256 issues a token the way the auth server does. Used by tests and
// local tooling.
func SignHS256(secret string, userID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{"authenticated"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
