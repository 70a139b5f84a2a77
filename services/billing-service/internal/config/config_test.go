package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/salon")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://parrylicious.de")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8084" || cfg.StripeWebhookTolerance != 300*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ReconcileLockKey != 4242001 || cfg.ReconcileInterval != 5*time.Minute || !cfg.ReconcileEnabled {
		t.Fatalf("unexpected reconcile defaults: %+v", cfg)
	}
	if len(cfg.CheckoutAllowedOrigins) != 1 || cfg.CheckoutAllowedOrigins[0] != "https://parrylicious.de" {
		t.Fatalf("checkout origins should fall back to CORS origins, got %v", cfg.CheckoutAllowedOrigins)
	}
}

func TestLoadRequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_ = os.Unsetenv("DATABASE_URL")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}
