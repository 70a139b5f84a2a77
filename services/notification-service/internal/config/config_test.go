package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/salon")
	t.Setenv("EMAIL_PROVIDER", " SendGrid ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8085" || cfg.SMSProvider != "noop" || cfg.ProviderTimeout != 10*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.EmailProvider != "sendgrid" {
		t.Fatalf("provider should be normalized, got %q", cfg.EmailProvider)
	}
}

func TestLoadTopics(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/salon")
	t.Setenv("KAFKA_CONSUME_TOPICS", "booking.confirmed.v1,payment.deposit.paid.v1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.KafkaTopics) != 2 || cfg.KafkaTopics[1] != "payment.deposit.paid.v1" {
		t.Fatalf("unexpected topics %v", cfg.KafkaTopics)
	}
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/salon")
	t.Setenv("PORT", "99999")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for out of range port")
	}
}

func TestLoadRequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_ = os.Unsetenv("DATABASE_URL")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}
