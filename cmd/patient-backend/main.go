package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/citycare-hospital/patient-backend/internal/events"
	"github.com/citycare-hospital/patient-backend/internal/handlers"
	"github.com/citycare-hospital/patient-backend/internal/notify"
	"github.com/citycare-hospital/patient-backend/internal/patients"
	"github.com/citycare-hospital/patient-backend/internal/reports"
	"github.com/citycare-hospital/patient-backend/internal/storage"
	"github.com/citycare-hospital/patient-backend/libs/config"
	"github.com/citycare-hospital/patient-backend/libs/db"
	"github.com/citycare-hospital/patient-backend/libs/httpx"
	"github.com/citycare-hospital/patient-backend/libs/kafkax"
	otelx "github.com/citycare-hospital/patient-backend/libs/otel"
	"github.com/citycare-hospital/patient-backend/libs/runtime"
	"github.com/citycare-hospital/patient-backend/libs/sentryx"
)

func main() {
	service := config.String("SERVICE_NAME", "patient-backend")
	port, err := config.Port("PORT", "5000")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	if err := sentryx.Init(
		config.String("SENTRY_DSN", ""),
		config.String("APP_ENV", "development"),
		service+"@"+config.String("APP_VERSION", "dev"),
	); err != nil {
		logger.Error("sentry setup failed", "err", err)
	}
	defer sentryx.Flush()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	// The database is the one hard dependency; everything else degrades to a
	// disabled feature when unconfigured.
	mongoURI, err := config.RequiredString("MONGO_URI")
	if err != nil {
		logger.Error("missing configuration", "err", err)
		panic(err)
	}
	client, err := db.Open(ctx, mongoURI, config.String("MONGO_DB", "hospital"))
	if err != nil {
		logger.Error("mongodb connection failed", "err", err)
		panic(err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.Close(closeCtx)
	}()
	logger.Info("mongodb connected")

	reportStore, err := reports.NewStore(config.String("UPLOAD_DIR", "uploads"))
	if err != nil {
		logger.Error("upload dir setup failed", "err", err)
		panic(err)
	}

	emailSender := notify.NewEmailSender(notify.EmailConfig{
		Host:        config.String("SMTP_HOST", ""),
		Port:        config.String("SMTP_PORT", "587"),
		User:        config.String("SMTP_USER", ""),
		Pass:        config.String("SMTP_PASS", ""),
		From:        config.String("FROM_EMAIL", ""),
		Secure:      config.Bool("SMTP_SECURE", false),
		AdminEmails: config.String("ADMIN_EMAIL", ""),
	})
	smsSender := notify.NewSMSSender(notify.SMSConfig{
		AccountSID:  config.String("TWILIO_SID", ""),
		AuthToken:   config.String("TWILIO_TOKEN", ""),
		From:        config.String("TWILIO_FROM", ""),
		AdminPhones: config.String("ADMIN_MOBILE", ""),
	}, logger)
	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	publisher := events.NewPublisher(kafkaBrokers, config.String("KAFKA_TOPIC", events.DefaultTopic))
	defer publisher.Close()
	logger.Info("notification channels",
		"email", emailSender.Enabled(),
		"sms", smsSender.Enabled(),
		"events", publisher.Enabled(),
	)

	repo := storage.NewPatientRepository(client)
	svc := patients.NewService(repo, reportStore, logger, emailSender, smsSender, publisher)

	readyChecks := []runtime.ReadyCheck{
		{Name: "mongodb", Check: db.ReadyCheck(client)},
	}
	if kafkaBrokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)

	handlers.NewPatientHandler(svc, logger).Register(mux)
	mux.Handle("GET /metrics", httpx.MetricsHandler())
	mux.Handle("GET /uploads/", http.StripPrefix(reports.PublicPrefix, reportStore.FileServer()))

	var limit httpx.Middleware
	rateLimit := config.Int("RATE_LIMIT", 60)
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     redisAddr,
			Password: config.String("REDIS_PASSWORD", ""),
		})
		defer rdb.Close()
		limit = httpx.NewRedisRateLimiter(rdb, rateLimit, time.Minute, "patients").Middleware(logger, true)
	} else {
		limit = httpx.NewRateLimiter(rateLimit, time.Minute).Middleware()
	}

	handler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithMetrics,
		httpx.WithCORS(config.String("CORS_ORIGINS", "")),
		httpx.WithBodyLimit(int64(config.Int("MAX_BODY_BYTES", 33<<20))),
		// generous enough for report uploads over slow links
		httpx.WithTimeout(time.Duration(config.Int("REQUEST_TIMEOUT_SECONDS", 30))*time.Second),
		limit,
	)
	handler = otelhttp.NewHandler(handler, service)

	srv := &http.Server{
		Addr:              config.String("HOST", "0.0.0.0") + ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
