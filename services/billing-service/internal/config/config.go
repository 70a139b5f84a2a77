package config

import (
	"time"

	"github.com/parrylicious/salonbook/libs/auth"
	libconfig "github.com/parrylicious/salonbook/libs/config"
)

type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"billing-service"`
	Port        string `envconfig:"PORT" default:"8084"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	KafkaBrokers    string        `envconfig:"KAFKA_BROKERS"`
	OutboxPollEvery time.Duration `envconfig:"OUTBOX_POLL_EVERY" default:"2s"`
	OutboxBatchSize int           `envconfig:"OUTBOX_BATCH_SIZE" default:"50"`

	SupabaseURL       string `envconfig:"SUPABASE_URL"`
	SupabaseAnonKey   string `envconfig:"SUPABASE_ANON_KEY"`
	SupabaseJWTSecret string `envconfig:"SUPABASE_JWT_SECRET"`
	SupabaseJWKSURL   string `envconfig:"SUPABASE_JWKS_URL"`
	JWTAudience       string `envconfig:"JWT_AUDIENCE" default:"authenticated"`

	StripeSecretKey        string        `envconfig:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret    string        `envconfig:"STRIPE_WEBHOOK_SECRET"`
	StripeWebhookTolerance time.Duration `envconfig:"STRIPE_WEBHOOK_TOLERANCE" default:"300s"`
	CheckoutAllowedOrigins []string      `envconfig:"CHECKOUT_ALLOWED_ORIGINS"`
	PublicSiteURL          string        `envconfig:"PUBLIC_SITE_URL"`

	ReconcileEnabled      bool          `envconfig:"RECONCILE_ENABLED" default:"true"`
	ReconcileInterval     time.Duration `envconfig:"RECONCILE_INTERVAL" default:"5m"`
	ReconcilePendingAfter time.Duration `envconfig:"RECONCILE_PENDING_AFTER" default:"30m"`
	ReconcileBatchSize    int           `envconfig:"RECONCILE_BATCH_SIZE" default:"50"`
	ReconcileLockKey      int64         `envconfig:"RECONCILE_ADVISORY_LOCK_KEY" default:"4242001"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
	MaxBodyBytes       int64    `envconfig:"MAX_BODY_BYTES" default:"1048576"`
}

// Load reads .env (if present) and the process environment.
func Load() (Config, error) {
	if err := libconfig.LoadDotenv(); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := libconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if _, err := libconfig.Port("PORT", cfg.Port); err != nil {
		return Config{}, err
	}
	if len(cfg.CheckoutAllowedOrigins) == 0 {
		cfg.CheckoutAllowedOrigins = cfg.CORSAllowedOrigins
	}
	return cfg, nil
}

func (c Config) Verifier() auth.VerifierConfig {
	return auth.VerifierConfig{
		JWTSecret:   c.SupabaseJWTSecret,
		JWKSURL:     c.SupabaseJWKSURL,
		SupabaseURL: c.SupabaseURL,
		AnonKey:     c.SupabaseAnonKey,
		Audience:    c.JWTAudience,
	}
}
