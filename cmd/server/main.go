package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cjmurphy27/barn-management-sub000/internal/config"
	"github.com/cjmurphy27/barn-management-sub000/internal/infra"
	"github.com/cjmurphy27/barn-management-sub000/internal/router"
	"github.com/cjmurphy27/barn-management-sub000/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	// Structured logger: pretty in development, JSON in production
	if !cfg.IsProduction() {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	if cfg.DBAutoMigrate {
		if err := infra.RunMigrations(db); err != nil {
			log.Fatal().Err(err).Msg("migrations failed")
		}
	}

	// Redis only carries stock alerts; the catalog keeps working without it.
	var rdb *redis.Client
	if client, err := infra.NewRedis(cfg.RedisURL); err != nil {
		log.Warn().Err(err).Msg("redis unavailable, stock alerts disabled")
	} else {
		rdb = client
		defer rdb.Close()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc := router.NewServices(cfg, db, rdb)

	// Background jobs share the HTTP layer's services.
	if rdb != nil {
		pool := worker.NewPool(rdb, map[string]worker.Handler{
			worker.JobStockAlert: worker.NewStockAlertWorker(infra.NewMailer(cfg), cfg.AlertEmailTo),
		})
		pool.Start(ctx, cfg.WorkerPoolSize)
	}
	if _, err := worker.StartScanSweeper(ctx, worker.ScanSweeperConfig{
		Scans:    svc.Receipts,
		TTL:      cfg.ScanTTL,
		Schedule: cfg.ScanSweepSchedule,
	}); err != nil {
		log.Fatal().Err(err).Msg("invalid SCAN_SWEEP_SCHEDULE")
	}

	r := router.New(cfg, db, rdb, svc)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // receipt extraction may take up to EXTRACTOR_TIMEOUT
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("barn supply service listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}
