package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/parrylicious/salonbook/services/gateway-service/internal/config"
)

func TestServeOpenAPI(t *testing.T) {
	rec := httptest.NewRecorder()
	serveOpenAPI(rec, httptest.NewRequest(http.MethodGet, "/openapi", nil))
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "application/yaml" {
		t.Fatalf("unexpected response %d %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "/api/v1/notifications/booking") {
		t.Fatal("openapi document should describe the notification endpoint")
	}
}

func limitedHandler(t *testing.T, rdb *redis.Client) http.Handler {
	t.Helper()
	cfg := config.Config{RateLimitPerMinute: 2, RateLimitPrefix: "test", RateLimitFailOpen: true}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return rateLimiter(cfg, rdb, logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func hit(h http.Handler) int {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/services", nil)
	req.RemoteAddr = "203.0.113.7:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestRateLimiterInMemory(t *testing.T) {
	h := limitedHandler(t, nil)
	for i := 0; i < 2; i++ {
		if code := hit(h); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
	if code := hit(h); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
}

func TestRateLimiterRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	h := limitedHandler(t, rdb)
	for i := 0; i < 2; i++ {
		if code := hit(h); code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, code)
		}
	}
	if code := hit(h); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", code)
	}
	if len(mr.Keys()) == 0 {
		t.Fatal("expected the counter to live in redis")
	}
}
