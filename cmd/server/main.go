// Command server runs the credential watch API: provider sync against the
// national registry, credential tracking, expiry scanning, and alerting.
//
// Backends are optional and driven by configuration: without DATABASE_URL the
// stores are in-memory, without REDIS_URL registry lookups go uncached, and
// without KAFKA_BROKERS no alert events are published.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	alerthandler "credentialwatch/internal/alert/handler"
	alertmetrics "credentialwatch/internal/alert/metrics"
	alertservice "credentialwatch/internal/alert/service"
	alertstore "credentialwatch/internal/alert/store"
	credhandler "credentialwatch/internal/credential/handler"
	credmetrics "credentialwatch/internal/credential/metrics"
	credservice "credentialwatch/internal/credential/service"
	credstore "credentialwatch/internal/credential/store"
	"credentialwatch/internal/events"
	"credentialwatch/internal/platform/config"
	"credentialwatch/internal/platform/httpserver"
	"credentialwatch/internal/platform/logger"
	"credentialwatch/internal/platform/postgres"
	platformredis "credentialwatch/internal/platform/redis"
	provhandler "credentialwatch/internal/provider/handler"
	provmetrics "credentialwatch/internal/provider/metrics"
	provservice "credentialwatch/internal/provider/service"
	provstore "credentialwatch/internal/provider/store"
	"credentialwatch/internal/registry"
	"credentialwatch/internal/risk"
	"credentialwatch/internal/scanner"
	httptransport "credentialwatch/internal/transport/http"
)

const requestTimeout = 30 * time.Second

func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Stores: PostgreSQL when configured, in-memory otherwise.
	var (
		providers   provstore.Store  = provstore.NewInMemory()
		credentials credstore.Store  = credstore.NewInMemory()
		alerts      alertstore.Store = alertstore.NewInMemory()
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to open database", "error", err.Error())
			os.Exit(1)
		}
		defer db.Close()
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Error("failed to ensure schema", "error", err.Error())
			os.Exit(1)
		}
		providers = provstore.NewPostgres(db)
		credentials = credstore.NewPostgres(db)
		alerts = alertstore.NewPostgres(db)
		log.Info("using postgresql stores")
	} else {
		log.Info("using in-memory stores")
	}

	// Registry client, optionally fronted by a Redis cache.
	var lookup registry.Lookup = registry.NewClient(cfg.Registry.BaseURL, cfg.Registry.Timeout)
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("failed to connect to redis", "error", err.Error())
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		lookup = registry.NewCachedLookup(lookup, redisClient, cfg.Redis.CacheTTL, log)
		log.Info("registry lookup cache enabled", "ttl", cfg.Redis.CacheTTL.String())
	}

	// Alert event publisher, when a broker is configured.
	alertOpts := []alertservice.Option{
		alertservice.WithMetrics(alertmetrics.New()),
		alertservice.WithDedupe(cfg.DedupeOpenAlerts),
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := events.NewKafka(ctx, cfg.KafkaBrokers, cfg.AlertTopic, log)
		if err != nil {
			log.Error("failed to connect to kafka", "error", err.Error())
			os.Exit(1)
		}
		defer publisher.Close(context.Background())
		alertOpts = append(alertOpts, alertservice.WithPublisher(publisher))
		log.Info("alert events enabled", "topic", cfg.AlertTopic)
	}

	evaluator := risk.NewEvaluator(credentials, providers)

	providerSvc := provservice.New(providers, credentials, lookup, log, provmetrics.New())
	credentialSvc := credservice.New(credentials, providers, evaluator, log, credmetrics.New())
	alertSvc := alertservice.New(alerts, providers, credentials, log, alertOpts...)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:         log,
		RequestTimeout: requestTimeout,
		Handlers: []httptransport.Registrar{
			provhandler.New(providerSvc, log),
			credhandler.New(credentialSvc, log),
			alerthandler.New(alertSvc, log),
		},
	})

	srv := httpserver.New(cfg.Addr, router)

	go func() {
		log.Info("starting credentialwatch", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err.Error())
			stop()
		}
	}()

	sweep := scanner.New(credentialSvc, alertSvc, cfg.Scan.Interval, cfg.Scan.WindowDays, log)
	go func() {
		if err := sweep.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("scanner error", "error", err.Error())
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
