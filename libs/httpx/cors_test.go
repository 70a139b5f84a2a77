package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWithCORSPreflight(t *testing.T) {
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}), WithCORS(CORSPolicy{
		AllowedOrigins: []string{"https://parrylicious.de", "https://*.vercel.app"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", "Stripe-Signature"},
		MaxAge:         10 * time.Minute,
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/bookings", nil)
	req.Header.Set("Origin", "https://preview-12.vercel.app")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rw := httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code >= 300 {
		t.Fatalf("expected a successful preflight, got %d", rw.Code)
	}
	if got := rw.Header().Get("Access-Control-Allow-Origin"); got != "https://preview-12.vercel.app" {
		t.Fatalf("unexpected allow origin %q", got)
	}
	if got := rw.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Fatalf("unexpected max age %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/bookings", nil)
	req.Header.Set("Origin", "https://evil.example")
	rw = httptest.NewRecorder()
	h.ServeHTTP(rw, req)
	if rw.Code != http.StatusTeapot {
		t.Fatalf("expected passthrough, got %d", rw.Code)
	}
	if got := rw.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestCORSPolicyAllows(t *testing.T) {
	p := CORSPolicy{AllowedOrigins: []string{"https://parrylicious.de/", "https://*.vercel.app"}}
	cases := map[string]bool{
		"https://parrylicious.de":        true,
		"https://a.vercel.app":           true,
		"https://a.b.vercel.app":         false,
		"http://a.vercel.app":            false,
		"https://parrylicious.de.evil.x": false,
		"":                               false,
	}
	for origin, want := range cases {
		if got := p.Allows(origin); got != want {
			t.Fatalf("Allows(%q) = %v, want %v", origin, got, want)
		}
	}
}

func TestWithCORSDisabledWithoutOrigins(t *testing.T) {
	if WithCORS(CORSPolicy{AllowedOrigins: []string{" ", ""}}) != nil {
		t.Fatal("empty origin list must disable CORS")
	}
}
