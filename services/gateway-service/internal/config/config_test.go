package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8080" || cfg.RateLimitPerMinute != 120 || cfg.RequestTimeout != 15*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.NotificationURL != "http://notification-service:8085" || !cfg.RateLimitFailOpen {
		t.Fatalf("unexpected upstream defaults: %+v", cfg)
	}
	if len(cfg.CORSAllowedHeaders) != 4 || cfg.CORSAllowedHeaders[3] != "Stripe-Signature" {
		t.Fatalf("unexpected cors headers %v", cfg.CORSAllowedHeaders)
	}
}

func TestLoadRejectsRelativeUpstream(t *testing.T) {
	t.Setenv("BILLING_URL", "billing-service")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for relative upstream url")
	}
}
