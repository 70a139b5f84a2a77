package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/parrylicious/salonbook/libs/auth"
	"github.com/parrylicious/salonbook/libs/db"
	"github.com/parrylicious/salonbook/libs/httpx"
	"github.com/parrylicious/salonbook/libs/kafkax"
	"github.com/parrylicious/salonbook/libs/metrics"
	otelx "github.com/parrylicious/salonbook/libs/otel"
	"github.com/parrylicious/salonbook/libs/outbox"
	"github.com/parrylicious/salonbook/libs/runtime"
	"github.com/parrylicious/salonbook/services/billing-service/internal/config"
	"github.com/parrylicious/salonbook/services/billing-service/internal/handlers"
	"github.com/parrylicious/salonbook/services/billing-service/internal/payments"
	"github.com/parrylicious/salonbook/services/billing-service/internal/reconcile"
	"github.com/parrylicious/salonbook/services/billing-service/internal/storage"
	"github.com/parrylicious/salonbook/services/billing-service/internal/stripeclient"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(cfg.ServiceName)

	ctx, stop := runtime.SignalContext()
	defer stop()
	loops := runtime.NewLoops(logger)

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

	pool, err := db.OpenWithOptions(ctx, cfg.DatabaseURL, db.Options{ApplicationName: cfg.ServiceName})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	readyChecks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(reg, cfg.ServiceName)
	outboxMetrics := metrics.NewOutboxMetrics(reg, cfg.ServiceName)
	paymentMetrics := metrics.NewPaymentMetrics(reg)

	if cfg.KafkaBrokers != "" {
		publisher := outbox.NewPublisher(pool, outbox.NewRepository(), logger, outbox.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			PollEvery: cfg.OutboxPollEvery,
			BatchSize: cfg.OutboxBatchSize,
			OnPublish: outboxMetrics.ObservePublished,
		})
		loops.Go(ctx, "outbox-publisher", publisher.Run)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)})
	} else {
		logger.Warn("KAFKA_BROKERS not set; outbox events stay in the database")
	}

	var gateway stripeclient.Gateway
	if key := strings.TrimSpace(cfg.StripeSecretKey); key != "" {
		gateway = stripeclient.New(key)
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set; checkout and reconcile disabled")
	}

	repo := storage.NewRepository(pool)
	paymentSvc := payments.NewService(repo, gateway, payments.Config{
		WebhookSecret:    cfg.StripeWebhookSecret,
		WebhookTolerance: cfg.StripeWebhookTolerance,
		AllowedOrigins:   cfg.CheckoutAllowedOrigins,
		SiteURL:          cfg.PublicSiteURL,
	}, logger, payments.WithMetrics(paymentMetrics))

	if gateway != nil && cfg.ReconcileEnabled {
		rec := reconcile.New(repo, paymentSvc, reconcile.NewAdvisoryLock(pool.Pool, cfg.ReconcileLockKey), logger, reconcile.Config{
			Interval:     cfg.ReconcileInterval,
			PendingAfter: cfg.ReconcilePendingAfter,
			BatchSize:    cfg.ReconcileBatchSize,
		})
		loops.Go(ctx, "payment-reconciler", rec.Run)
	}

	authn := auth.NewAuthenticator(auth.NewVerifier(cfg.Verifier()), auth.NewProfileRoles(pool), logger)
	api := handlers.New(paymentSvc, logger).Routes(authn.Require, httpMetrics.Middleware)

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.Handle("/metrics", metrics.Handler(reg))
	mux.Handle("/api/", api)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "Stripe-Signature", "X-Request-Id"},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(cfg.MaxBodyBytes),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "billing")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	runtime.Serve(ctx, logger, srv)
	loops.Wait(10*time.Second)
}
