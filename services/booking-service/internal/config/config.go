package config

import (
	"time"

	"github.com/parrylicious/salonbook/libs/auth"
	libconfig "github.com/parrylicious/salonbook/libs/config"
)

type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"booking-service"`
	Port        string `envconfig:"PORT" default:"8083"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
	Timezone    string `envconfig:"STUDIO_TIMEZONE" default:"Europe/Berlin"`

	KafkaBrokers    string        `envconfig:"KAFKA_BROKERS"`
	OutboxPollEvery time.Duration `envconfig:"OUTBOX_POLL_EVERY" default:"2s"`
	OutboxBatchSize int           `envconfig:"OUTBOX_BATCH_SIZE" default:"50"`

	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	SlotLockTTL   time.Duration `envconfig:"SLOT_LOCK_TTL" default:"5s"`

	SupabaseURL       string `envconfig:"SUPABASE_URL"`
	SupabaseAnonKey   string `envconfig:"SUPABASE_ANON_KEY"`
	SupabaseJWTSecret string `envconfig:"SUPABASE_JWT_SECRET"`
	SupabaseJWKSURL   string `envconfig:"SUPABASE_JWKS_URL"`
	JWTAudience       string `envconfig:"JWT_AUDIENCE" default:"authenticated"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
	MaxBodyBytes       int64    `envconfig:"MAX_BODY_BYTES" default:"3145728"`

	AvatarBucket          string `envconfig:"AVATAR_S3_BUCKET"`
	AvatarRegion          string `envconfig:"AVATAR_S3_REGION"`
	AvatarEndpoint        string `envconfig:"AVATAR_S3_ENDPOINT"`
	AvatarPublicURL       string `envconfig:"AVATAR_PUBLIC_URL"`
	AvatarAccessKeyID     string `envconfig:"AVATAR_S3_ACCESS_KEY_ID"`
	AvatarSecretAccessKey string `envconfig:"AVATAR_S3_SECRET_ACCESS_KEY"`
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
