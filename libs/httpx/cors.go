package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/cors"
)

// CORSPolicy lists the browser origins allowed to call a service. An origin
// is "*", an exact origin, or a single-label wildcard such as
// "https://*.vercel.app" for preview deployments.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// Allows reports whether origin matches the policy.
func (p CORSPolicy) Allows(origin string) bool {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" {
		return false
	}
	for _, candidate := range trimOrigins(p.AllowedOrigins) {
		if candidate == "*" || strings.EqualFold(candidate, origin) || matchWildcard(candidate, origin) {
			return true
		}
	}
	return false
}

// WithCORS answers preflights and decorates responses for allowed origins.
// An empty origin list disables CORS entirely.
func WithCORS(p CORSPolicy) Middleware {
	if len(trimOrigins(p.AllowedOrigins)) == 0 {
		return nil
	}
	exposed := append([]string{RequestIDHeader}, p.ExposedHeaders...)
	return cors.Handler(cors.Options{
		AllowOriginFunc:  func(_ *http.Request, origin string) bool { return p.Allows(origin) },
		AllowedMethods:   p.AllowedMethods,
		AllowedHeaders:   p.AllowedHeaders,
		ExposedHeaders:   exposed,
		AllowCredentials: p.AllowCredentials,
		MaxAge:           int(p.MaxAge.Seconds()),
	})
}

func trimOrigins(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimRight(strings.TrimSpace(v), "/"); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// matchWildcard matches "scheme://*.domain" against exactly one extra label.
func matchWildcard(pattern, origin string) bool {
	scheme, domain, ok := strings.Cut(pattern, "://*.")
	if !ok {
		return false
	}
	rest, ok := cutPrefixFold(origin, scheme+"://")
	if !ok {
		return false
	}
	label, host, ok := strings.Cut(rest, ".")
	return ok && label != "" && !strings.ContainsAny(label, "/:") && strings.EqualFold(host, domain)
}

func cutPrefixFold(s, prefix string) (string, bool) {
	if len(s) < len(prefix) || !strings.EqualFold(s[:len(prefix)], prefix) {
		return "", false
	}
	return s[len(prefix):], true
}
