package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/salon")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://parrylicious.de,http://localhost:5173")
	t.Setenv("SUPABASE_JWT_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != "8083" || cfg.Timezone != "Europe/Berlin" || cfg.SlotLockTTL != 5*time.Second {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.CORSAllowedOrigins)
	}
	if v := cfg.Verifier(); v.JWTSecret != "secret" || v.Audience != "authenticated" {
		t.Fatalf("unexpected verifier config: %+v", v)
	}
}

func TestLoadRequiresDatabase(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	_ = os.Unsetenv("DATABASE_URL")
	if _, err := Load(); err == nil {
		t.Fatal("expected error without DATABASE_URL")
	}
}
