package config

import (
	"strings"
	"time"

	"github.com/parrylicious/salonbook/libs/auth"
	libconfig "github.com/parrylicious/salonbook/libs/config"
)

type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"notification-service"`
	Port        string `envconfig:"PORT" default:"8085"`
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	KafkaBrokers string   `envconfig:"KAFKA_BROKERS"`
	KafkaGroupID string   `envconfig:"KAFKA_GROUP_ID" default:"notification-service"`
	KafkaTopics  []string `envconfig:"KAFKA_CONSUME_TOPICS"`

	SupabaseURL       string `envconfig:"SUPABASE_URL"`
	SupabaseAnonKey   string `envconfig:"SUPABASE_ANON_KEY"`
	SupabaseJWTSecret string `envconfig:"SUPABASE_JWT_SECRET"`
	SupabaseJWKSURL   string `envconfig:"SUPABASE_JWKS_URL"`
	JWTAudience       string `envconfig:"JWT_AUDIENCE" default:"authenticated"`

	// EmailProvider is one of sendgrid, ses, smtp or none.
	EmailProvider  string `envconfig:"EMAIL_PROVIDER" default:"smtp"`
	EmailFrom      string `envconfig:"EMAIL_FROM" default:"termine@parrylicious.de"`
	EmailFromName  string `envconfig:"EMAIL_FROM_NAME" default:"Parrylicious"`
	SendGridAPIKey string `envconfig:"SENDGRID_API_KEY"`
	SESRegion      string `envconfig:"SES_REGION"`
	SESAccessKey   string `envconfig:"SES_ACCESS_KEY_ID"`
	SESSecretKey   string `envconfig:"SES_SECRET_ACCESS_KEY"`
	SMTPHost       string `envconfig:"SMTP_HOST" default:"mailpit"`
	SMTPPort       string `envconfig:"SMTP_PORT" default:"1025"`

	// SMSProvider is one of twilio, webhook or noop.
	SMSProvider      string        `envconfig:"SMS_PROVIDER" default:"noop"`
	TwilioAccountSID string        `envconfig:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string        `envconfig:"TWILIO_AUTH_TOKEN"`
	TwilioFromNumber string        `envconfig:"TWILIO_FROM_NUMBER"`
	SMSWebhookURL    string        `envconfig:"SMS_WEBHOOK_URL"`
	SMSWebhookToken  string        `envconfig:"SMS_WEBHOOK_TOKEN"`
	SMSSenderID      string        `envconfig:"SMS_SENDER_ID" default:"Parrylicious"`
	ProviderTimeout  time.Duration `envconfig:"NOTIFY_PROVIDER_TIMEOUT" default:"10s"`

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
	cfg.EmailProvider = strings.ToLower(strings.TrimSpace(cfg.EmailProvider))
	cfg.SMSProvider = strings.ToLower(strings.TrimSpace(cfg.SMSProvider))
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
