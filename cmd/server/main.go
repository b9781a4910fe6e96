package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"support_directory_go/config"
	"support_directory_go/db"
	"support_directory_go/handlers"
	"support_directory_go/middleware"
	"support_directory_go/services"
	"support_directory_go/services/jobs"

	"github.com/getsentry/sentry-go"
	sentryecho "github.com/getsentry/sentry-go/echo"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/gorm"
)

func main() {
	// Load configuration
	cfg := config.Load()

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			Environment:      cfg.Environment,
			SampleRate:       1.0,
			AttachStacktrace: true,
			ServerName:       "",
		})
		if err != nil {
			logger.Warn("Sentry disabled", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Initialize database
	database, err := db.Initialize(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close(database) //nolint:errcheck

	if err := services.SeedAdmin(context.Background(), database, logger, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		logger.Fatal("Failed to seed admin user", zap.Error(err))
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := services.NewEngineMetrics(registry)
	if err != nil {
		logger.Fatal("Failed to register metrics", zap.Error(err))
	}

	publishers, closePublishers := buildPublishers(cfg, database, logger)
	defer closePublishers()

	opts := services.EngineOptions{
		Logger:       logger,
		Metrics:      metrics,
		Publishers:   publishers,
		ReadAttempts: cfg.DBReadAttempts,
	}
	if cfg.GeocoderEnabled {
		opts.Geocoder = services.NewPostcodeGeocoder(cfg.GeocoderURL, logger)
	}

	engine, err := services.NewEngine(database, opts)
	if err != nil {
		logger.Fatal("Failed to build engine", zap.Error(err))
	}

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handlers.HTTPErrorHandler(logger)

	// Middleware
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency))
			return nil
		},
	}))
	if cfg.SentryDSN != "" {
		e.Use(sentryecho.New(sentryecho.Options{Repanic: true}))
	}
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{AllowOrigins: cfg.AllowedOrigins}))
	e.Use(echomiddleware.BodyLimit("1M"))
	e.Use(echomiddleware.ContextTimeout(cfg.RequestTimeout))

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{RPS: cfg.RateLimitRPS, Burst: cfg.RateLimitBurst})
	loginLimiter := middleware.NewRateLimiter(middleware.LoginRateLimitConfig())
	e.Use(limiter.Middleware())

	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.HTTPErrorOnError,
	})))

	h := handlers.New(engine, cfg, logger)
	h.RegisterRoutes(e, loginLimiter)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background jobs
	go jobs.RunSessionCleanup(ctx, database, logger, cfg.SessionCleanupTick)
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				limiter.Prune()
				loginLimiter.Prune()
			}
		}
	}()

	// Start server
	go func() {
		logger.Info("Server starting", zap.String("port", cfg.ServerPort), zap.String("driver", cfg.DBDriver))
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zc zap.Config
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	return zc.Build()
}

// buildPublishers selects the broker publisher and adds email delivery when
// Resend is configured. The returned func closes broker connections.
func buildPublishers(cfg *config.Config, database *gorm.DB, logger *zap.Logger) ([]services.NotificationPublisher, func()) {
	var publishers []services.NotificationPublisher
	closeFn := func() {}

	switch cfg.NotificationBroker {
	case config.BrokerKafka:
		kp := services.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		publishers = append(publishers, kp)
		closeFn = func() {
			if err := kp.Close(); err != nil {
				logger.Warn("Failed to close Kafka writer", zap.Error(err))
			}
		}
	case config.BrokerSQS:
		sp, err := services.NewSQSPublisher(context.Background(), services.SQSOptions{
			Region:          cfg.AWSRegion,
			QueueURL:        cfg.SQSQueueURL,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			logger.Fatal("Failed to build SQS publisher", zap.Error(err))
		}
		publishers = append(publishers, sp)
	default:
		publishers = append(publishers, services.NewLogPublisher(logger))
	}

	if cfg.ResendAPIKey != "" || cfg.EmailTestMode {
		publishers = append(publishers, services.NewEmailPublisher(database, cfg, logger))
	}

	logger.Info("Notification publishers configured", zap.Int("count", len(publishers)), zap.String("broker", cfg.NotificationBroker))
	return publishers, closeFn
}
