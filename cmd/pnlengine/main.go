package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"pnlengine/internal/amqp"
	"pnlengine/internal/cache"
	"pnlengine/internal/cli"
	"pnlengine/internal/engine"
	apphttp "pnlengine/internal/http"
	"pnlengine/internal/log"
	"pnlengine/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)

	cfg := cli.LoadAndValidateConfig(logger)

	sqliteRepo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	matcher := cli.InitMatcher(logger, cfg.MappingRulesPath)

	// AMQP is optional: without a URL, uploads skip the report-ready event
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		var err error
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	resultCache := cache.NewLRUCache[*engine.Result](cfg.CacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager()
	cacheManager.Register(resultCache)
	cacheManager.StartCleanup(10 * time.Minute)

	opts := engine.Options{
		PaymentProcessingRate: cfg.PaymentProcessingRate,
		MaterialityThreshold:  cfg.MaterialityThreshold,
		MaxMonths:             cfg.MaxMonths,
	}
	reports := services.NewReportService(sqliteRepo, amqpClient, matcher, resultCache, opts, cfg.ForecastMonths, logger)
	defer reports.Close()

	srv := apphttp.NewServer(":"+cfg.Port, reports, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting pnlengine server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		cacheManager.Stop()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
