// Command meshwork-api runs the Meshwork authentication and user API.
//
// The API listens on MESHWORK_PORT; liveness, readiness and Prometheus
// metrics are served separately on MESHWORK_HEALTH_PORT so probes and
// scrapes never compete with client traffic.
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/meshwork-app/meshwork-api/pkg/api"
	"github.com/meshwork-app/meshwork-api/pkg/config"
	"github.com/meshwork-app/meshwork-api/pkg/jobs"
	"github.com/meshwork-app/meshwork-api/pkg/mailer"
	"github.com/meshwork-app/meshwork-api/pkg/observability"
	"github.com/meshwork-app/meshwork-api/pkg/password"
	"github.com/meshwork-app/meshwork-api/pkg/store"
	"github.com/meshwork-app/meshwork-api/pkg/token"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("invalid configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, os.Stdout)

	accessLog := logrus.New()
	accessLog.SetFormatter(&logrus.JSONFormatter{})
	accessLog.SetOutput(os.Stdout)

	db, err := sql.Open("postgres", cfg.DB.URL)
	if err != nil {
		logger.WithError(err).Error("opening database")
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.DB.MaxOpenConns)
	db.SetMaxIdleConns(cfg.DB.MaxIdleConns)

	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		logger.WithError(err).Error("database unreachable")
		os.Exit(1)
	}
	if err := store.EnsureSchema(ctx, db); err != nil {
		logger.WithError(err).Error("ensuring database schema")
		os.Exit(1)
	}
	stores := store.New(db)

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			opts = &redis.Options{
				Addr:     cfg.Redis.URL,
				Password: cfg.Redis.Password,
				DB:       cfg.Redis.DB,
			}
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			// The rate limiter fails open, so a Redis outage at boot is a
			// warning rather than a fatal error.
			logger.WithError(err).Warn("redis unreachable, rate limiting degraded")
		}
		defer redisClient.Close()
	} else {
		logger.Warn("no redis configured, rate limiting disabled")
	}

	tokens := token.NewService(cfg.Auth.SigningSecret,
		token.WithExpiry(cfg.Auth.TokenExpiry))
	hasher := password.NewHasher(cfg.Auth.BcryptCost, cfg.Auth.HashConcurrency)

	var mail mailer.Mailer
	if cfg.Mail.Host != "" {
		mail = mailer.NewSMTPMailer(cfg.Mail, cfg.Server.Origin, logger)
	} else {
		logger.Warn("no SMTP relay configured, mail will be logged only")
		mail = mailer.NewLogMailer(logger)
	}

	scheduler, err := jobs.New(cfg.Jobs, stores, logger)
	if err != nil {
		logger.WithError(err).Error("building job schedule")
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	server := api.NewServer(api.Options{
		Stores:    stores,
		Tokens:    tokens,
		Hasher:    hasher,
		Mailer:    mail,
		Logger:    logger,
		AccessLog: accessLog,
		Redis:     redisClient,
		Config:    cfg,
	})

	apiServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	opsMux := http.NewServeMux()
	observability.RegisterHealthRoutes(opsMux,
		observability.NewHealthChecker(db, redisClient))
	opsMux.Handle("/metrics", observability.MetricsHandler())
	opsServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: opsMux,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.WithField("addr", apiServer.Addr).Info("api server listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	go func() {
		logger.WithField("addr", opsServer.Addr).Info("ops server listening")
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("shutting down")
	case err := <-errCh:
		logger.WithError(err).Error("server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("api server shutdown failed")
	}
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("ops server shutdown failed")
	}
	logger.Info("stopped")
}
