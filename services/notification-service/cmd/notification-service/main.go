package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/parrylicious/salonbook/libs/auth"
	"github.com/parrylicious/salonbook/libs/db"
	"github.com/parrylicious/salonbook/libs/httpx"
	"github.com/parrylicious/salonbook/libs/kafkax"
	"github.com/parrylicious/salonbook/libs/metrics"
	otelx "github.com/parrylicious/salonbook/libs/otel"
	"github.com/parrylicious/salonbook/libs/runtime"
	"github.com/parrylicious/salonbook/services/notification-service/internal/config"
	"github.com/parrylicious/salonbook/services/notification-service/internal/consumer"
	"github.com/parrylicious/salonbook/services/notification-service/internal/dispatch"
	"github.com/parrylicious/salonbook/services/notification-service/internal/email"
	"github.com/parrylicious/salonbook/services/notification-service/internal/handlers"
	"github.com/parrylicious/salonbook/services/notification-service/internal/inbox"
	"github.com/parrylicious/salonbook/services/notification-service/internal/sms"
	"github.com/parrylicious/salonbook/services/notification-service/internal/storage"
)

func newEmailSender(ctx context.Context, cfg config.Config, logger *slog.Logger) email.Sender {
	switch cfg.EmailProvider {
	case "sendgrid":
		s, err := email.NewSendGridSender(email.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.EmailFrom,
			FromName:  cfg.EmailFromName,
		}, logger)
		if err != nil {
			logger.Warn("sendgrid disabled", "err", err)
			return nil
		}
		return s
	case "ses":
		sesCfg := email.SESConfig{
			Region:          cfg.SESRegion,
			AccessKeyID:     cfg.SESAccessKey,
			SecretAccessKey: cfg.SESSecretKey,
			FromEmail:       cfg.EmailFrom,
			FromName:        cfg.EmailFromName,
		}
		client, err := email.NewSESClient(ctx, sesCfg)
		if err != nil {
			logger.Warn("ses disabled", "err", err)
			return nil
		}
		return email.NewSESSender(client, sesCfg)
	case "smtp":
		return email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.EmailFrom)
	default:
		logger.Warn("email notifications disabled", "provider", cfg.EmailProvider)
		return nil
	}
}

func newSMSSender(cfg config.Config, logger *slog.Logger) sms.Sender {
	switch cfg.SMSProvider {
	case "twilio":
		s, err := sms.NewTwilioSender(sms.TwilioConfig{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			From:       cfg.TwilioFromNumber,
			Timeout:    cfg.ProviderTimeout,
		})
		if err != nil {
			logger.Warn("twilio disabled", "err", err)
			return nil
		}
		return s
	case "webhook":
		if cfg.SMSWebhookURL == "" {
			logger.Warn("SMS_WEBHOOK_URL not set; sms disabled")
			return nil
		}
		return sms.NewWebhookSender(sms.WebhookConfig{
			URL:     cfg.SMSWebhookURL,
			Token:   cfg.SMSWebhookToken,
			Sender:  cfg.SMSSenderID,
			Timeout: cfg.ProviderTimeout,
		})
	case "noop":
		return sms.NewNoopSender()
	default:
		logger.Warn("sms notifications disabled", "provider", cfg.SMSProvider)
		return nil
	}
}

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
	notificationMetrics := metrics.NewNotificationMetrics(reg)

	notificationsRepo := storage.NewRepository(pool)
	dispatcher := dispatch.New(
		newEmailSender(ctx, cfg, logger),
		newSMSSender(cfg, logger),
		notificationsRepo,
		logger,
		dispatch.WithMetrics(notificationMetrics),
		dispatch.WithTimeout(cfg.ProviderTimeout),
	)

	if cfg.KafkaBrokers != "" {
		topics := cfg.KafkaTopics
		if len(topics) == 0 {
			topics = dispatch.ConsumedEventTypes()
		}
		eventConsumer := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
			Brokers: cfg.KafkaBrokers,
			GroupID: cfg.KafkaGroupID,
			Topics:  topics,
		}, func(ctx context.Context, msg kafka.Message) error {
			meta := kafkax.ExtractEventMeta(msg)
			req, ok, err := dispatch.RequestFromEvent(meta.EventType, msg.Value)
			if err != nil {
				// Malformed events are dropped rather than retried.
				logger.Error("invalid booking event", "err", err, "event_id", meta.EventID)
				return nil
			}
			if !ok {
				return nil
			}
			res := dispatcher.Dispatch(ctx, req)
			logger.Info("booking event processed",
				"event_id", meta.EventID,
				"event_type", meta.EventType,
				"booking_id", req.BookingID,
				"ok", res.OK,
			)
			return nil
		})
		loops.Go(ctx, "event-consumer", eventConsumer.Run)
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)})
	} else {
		logger.Warn("KAFKA_BROKERS not set; only the HTTP endpoint sends notifications")
	}

	authn := auth.NewAuthenticator(auth.NewVerifier(cfg.Verifier()), auth.NewProfileRoles(pool), logger)
	api := handlers.New(notificationsRepo, dispatcher, logger).Routes(authn.Require, httpMetrics.Middleware)

	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	mux.Handle("/metrics", metrics.Handler(reg))
	mux.Handle("/api/", api)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{"POST", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-Id"},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(cfg.MaxBodyBytes),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "notification")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	runtime.Serve(ctx, logger, srv)
	loops.Wait(10*time.Second)
}
