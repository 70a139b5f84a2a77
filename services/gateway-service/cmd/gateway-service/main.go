package main

import (
	"context"
	"embed"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/parrylicious/salonbook/libs/httpx"
	otelx "github.com/parrylicious/salonbook/libs/otel"
	"github.com/parrylicious/salonbook/libs/redisx"
	"github.com/parrylicious/salonbook/libs/runtime"
	"github.com/parrylicious/salonbook/services/gateway-service/internal/config"
	"github.com/parrylicious/salonbook/services/gateway-service/internal/proxy"
)

//go:embed assets/gateway.v1.yaml
var openAPISpec embed.FS

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(cfg.ServiceName)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.ServiceName))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	upstreams, err := proxy.ParseUpstreams(cfg.BookingURL, cfg.BillingURL, cfg.NotificationURL)
	if err != nil {
		panic(err)
	}

	rdb, err := redisx.Open(ctx, redisx.Options{
		Addr:     cfg.RedisAddr,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Error("redis unavailable; falling back to in-memory rate limiting", "err", err)
	}
	if rdb != nil {
		defer func() { _ = rdb.Close() }()
	}

	probe := &http.Client{Timeout: 2 * time.Second}
	readyChecks := []runtime.ReadyCheck{
		{Name: "booking", Check: proxy.HealthCheck(probe, upstreams.Booking)},
		{Name: "billing", Check: proxy.HealthCheck(probe, upstreams.Billing)},
		{Name: "notification", Check: proxy.HealthCheck(probe, upstreams.Notification)},
	}
	if rdb != nil {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: redisx.ReadyCheck(rdb)})
	}

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	proxy.Register(mux, upstreams, otelhttp.NewTransport(http.DefaultTransport), logger)
	mux.HandleFunc("/openapi", serveOpenAPI)

	handler := httpx.Chain(mux,
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   cfg.CORSAllowedOrigins,
			AllowedMethods:   cfg.CORSAllowedMethods,
			AllowedHeaders:   cfg.CORSAllowedHeaders,
			AllowCredentials: cfg.CORSAllowCredentials,
			MaxAge:           cfg.CORSMaxAge,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(cfg.MaxBodyBytes),
		httpx.WithTimeout(cfg.RequestTimeout),
		proxy.Except(rateLimiter(cfg, rdb, logger), proxy.WebhookPath, "/healthz", "/readyz"),
	)
	handler = otelhttp.NewHandler(handler, "gateway")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	runtime.Serve(ctx, logger, srv)
}

// rateLimiter uses Redis when a client is available so the limit holds
// across gateway replicas.
func rateLimiter(cfg config.Config, rdb *redis.Client, logger *slog.Logger) httpx.Middleware {
	if rdb != nil {
		rl := httpx.NewRedisRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, cfg.RateLimitPrefix)
		logger.Info("rate limiting enabled (redis)", "per_minute", cfg.RateLimitPerMinute, "redis_addr", cfg.RedisAddr)
		return rl.Middleware(logger, cfg.RateLimitFailOpen)
	}
	rl := httpx.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	logger.Info("rate limiting enabled (in-memory)", "per_minute", cfg.RateLimitPerMinute)
	return rl.Middleware()
}

func serveOpenAPI(w http.ResponseWriter, _ *http.Request) {
	data, err := openAPISpec.ReadFile("assets/gateway.v1.yaml")
	if err != nil {
		http.Error(w, "openapi not available", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
