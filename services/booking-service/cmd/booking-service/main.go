package main

import (
	"context"
	"net/http"
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
	"github.com/parrylicious/salonbook/libs/redisx"
	"github.com/parrylicious/salonbook/libs/runtime"
	"github.com/parrylicious/salonbook/services/booking-service/internal/avatars"
	"github.com/parrylicious/salonbook/services/booking-service/internal/bookings"
	"github.com/parrylicious/salonbook/services/booking-service/internal/catalog"
	"github.com/parrylicious/salonbook/services/booking-service/internal/config"
	"github.com/parrylicious/salonbook/services/booking-service/internal/handlers"
	"github.com/parrylicious/salonbook/services/booking-service/internal/profiles"
	"github.com/parrylicious/salonbook/services/booking-service/internal/slotlock"
	"github.com/parrylicious/salonbook/services/booking-service/internal/storage"
	"github.com/parrylicious/salonbook/services/booking-service/internal/waitlist"
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

	schedule, err := catalog.LoadSchedule(cfg.Timezone)
	if err != nil {
		logger.Error("schedule setup failed", "err", err)
		panic(err)
	}

	pool, err := db.OpenWithOptions(ctx, cfg.DatabaseURL, db.Options{ApplicationName: cfg.ServiceName})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	readyChecks := []runtime.ReadyCheck{{Name: "db", Check: db.ReadyCheck(pool)}}

	var locker slotlock.Locker
	lockOpts := slotlock.Options{TTL: cfg.SlotLockTTL}
	rdb, err := redisx.Open(ctx, redisx.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	switch {
	case err != nil:
		logger.Error("redis connection failed; using in-process slot lock", "err", err)
		locker = slotlock.NewLocal(lockOpts)
	case rdb == nil:
		logger.Warn("REDIS_ADDR not set; using in-process slot lock")
		locker = slotlock.NewLocal(lockOpts)
	default:
		defer rdb.Close()
		locker = slotlock.NewRedis(rdb, lockOpts)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "redis", Check: redisx.ReadyCheck(rdb)})
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.NewHTTPMetrics(reg, cfg.ServiceName)
	outboxMetrics := metrics.NewOutboxMetrics(reg, cfg.ServiceName)

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

	avatarStore, err := avatars.New(ctx, avatars.S3Config{
		Bucket:          cfg.AvatarBucket,
		Region:          cfg.AvatarRegion,
		Endpoint:        cfg.AvatarEndpoint,
		PublicURL:       cfg.AvatarPublicURL,
		AccessKeyID:     cfg.AvatarAccessKeyID,
		SecretAccessKey: cfg.AvatarSecretAccessKey,
	})
	if err != nil {
		logger.Error("avatar storage setup failed; storing avatars inline", "err", err)
		avatarStore = avatars.DataURLStore{}
	}

	store := storage.NewStore(pool)
	waitlistSvc := waitlist.NewService(store)
	bookingSvc := bookings.NewService(store, locker, schedule, logger,
		bookings.WithMetrics(metrics.NewBookingMetrics(reg)),
		bookings.WithWaitlist(waitlistSvc),
	)
	profileSvc := profiles.NewService(store, avatarStore, logger)

	authn := auth.NewAuthenticator(auth.NewVerifier(cfg.Verifier()), auth.NewProfileRoles(pool), logger)
	api := handlers.New(bookingSvc, waitlistSvc, profileSvc, logger).Routes(authn.Require, httpMetrics.Middleware)

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.Handle("/metrics", metrics.Handler(reg))
	mux.Handle("/api/", api)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(cfg.MaxBodyBytes),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	runtime.Serve(ctx, logger, srv)
	loops.Wait(10*time.Second)
}
