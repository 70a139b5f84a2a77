package config

import (
	"net/url"
	"time"

	libconfig "github.com/parrylicious/salonbook/libs/config"
)

type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"gateway-service"`
	Port        string `envconfig:"PORT" default:"8080"`

	BookingURL      string `envconfig:"BOOKING_URL" default:"http://booking-service:8083"`
	BillingURL      string `envconfig:"BILLING_URL" default:"http://billing-service:8084"`
	NotificationURL string `envconfig:"NOTIFICATION_URL" default:"http://notification-service:8085"`

	MaxBodyBytes   int64         `envconfig:"REQUEST_BODY_LIMIT_BYTES" default:"1048576"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"15s"`

	RateLimitPerMinute int    `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
	RateLimitPrefix    string `envconfig:"RATE_LIMIT_PREFIX" default:"rl"`
	RateLimitFailOpen  bool   `envconfig:"RATE_LIMIT_FAIL_OPEN" default:"true"`
	RedisAddr          string `envconfig:"REDIS_ADDR"`
	RedisUsername      string `envconfig:"REDIS_USERNAME"`
	RedisPassword      string `envconfig:"REDIS_PASSWORD"`
	RedisDB            int    `envconfig:"REDIS_DB" default:"0"`

	CORSAllowedOrigins   []string      `envconfig:"CORS_ALLOWED_ORIGINS"`
	CORSAllowedMethods   []string      `envconfig:"CORS_ALLOWED_METHODS" default:"GET,POST,PUT,PATCH,DELETE,OPTIONS"`
	CORSAllowedHeaders   []string      `envconfig:"CORS_ALLOWED_HEADERS" default:"Authorization,Content-Type,X-Request-Id,Stripe-Signature"`
	CORSAllowCredentials bool          `envconfig:"CORS_ALLOW_CREDENTIALS" default:"false"`
	CORSMaxAge           time.Duration `envconfig:"CORS_MAX_AGE" default:"10m"`
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
	for _, raw := range []string{cfg.BookingURL, cfg.BillingURL, cfg.NotificationURL} {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}
