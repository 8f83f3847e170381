package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"finreport/internal/amqp"
	"finreport/internal/backend"
	"finreport/internal/cache"
	"finreport/internal/config"
	apphttp "finreport/internal/http"
	"finreport/internal/log"
	"finreport/internal/reconcile"
	"finreport/internal/services"
	"finreport/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	// Amounts go out as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.Load()
	if err != nil {
		log.New(log.DefaultConfig()).Error("Failed to load configuration", log.FieldError, err)
		os.Exit(1)
	}

	level, _ := log.ParseLevel(cfg.LogLevel)
	logCfg := log.DefaultConfig()
	logCfg.Level = level
	logger := log.New(logCfg)
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	loc, _ := cfg.Location()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize record store", log.FieldError, err, "backend", cfg.RecordBackend)
		os.Exit(1)
	}
	if res.Cleanup != nil {
		defer func() {
			if err := res.Cleanup(); err != nil {
				logger.Error("Record store cleanup failed", log.FieldError, err)
			}
		}()
	}

	recOpts := reconcile.DefaultOptions()
	recOpts.DedupExpenses = cfg.DedupExpenses
	recOpts.Location = loc
	reports := services.NewReportService(res.Backend, services.Config{
		Location:  loc,
		CacheSize: cfg.ReportCacheSize,
		CacheTTL:  cfg.ReportCacheTTL,
		Reconcile: recOpts,
	}, logger)

	cacheManager := cache.NewManager(logger)
	for _, c := range reports.Caches() {
		cacheManager.Register(c)
	}
	cacheManager.StartCleanup(cfg.ReportCacheTTL)
	defer cacheManager.Stop()

	// Cache invalidation from ledger-change events is optional.
	if cfg.AMQPEnabled() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, reports will expire by TTL only", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			invalidator := worker.NewInvalidationWorker(reports, logger)
			go func() {
				if err := invalidator.Run(ctx, amqpClient, cfg.ReportFlushEvery); err != nil {
					logger.Error("Ledger change consumption stopped", log.FieldError, err)
				}
			}()
			logger.Info("Consuming ledger changes", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:           ":" + cfg.Port,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, reports, logger)
	srv.MaxHeaderBytes = 1 << 16

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cancel()
	}()

	logger.Info("Starting finreport server",
		"port", cfg.Port,
		"backend", cfg.RecordBackend,
		"timezone", loc.String(),
		"dedup_expenses", cfg.DedupExpenses)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
