// Package main is the entry point for the DiviTrack market-data engine.
// It keeps a local store of security snapshots, price history and exchange
// rates warm via scheduled provider syncs, and serves them over HTTP with
// provenance tags so consumers always know what kind of data they got.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/divitrack/divitrack/internal/clients/exchangerate"
	"github.com/divitrack/divitrack/internal/clients/finnhub"
	"github.com/divitrack/divitrack/internal/config"
	"github.com/divitrack/divitrack/internal/database"
	"github.com/divitrack/divitrack/internal/modules/currency"
	"github.com/divitrack/divitrack/internal/modules/market_hours"
	"github.com/divitrack/divitrack/internal/modules/marketdata"
	"github.com/divitrack/divitrack/internal/scheduler"
	"github.com/divitrack/divitrack/internal/server"
	"github.com/divitrack/divitrack/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting DiviTrack market-data engine")

	// Database
	db, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "marketdata.db"),
		Profile: database.ProfileStandard,
		Name:    "marketdata",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	// Clients
	finnhubClient := finnhub.NewClient(cfg.FinnhubBaseURL, cfg.FinnhubAPIKey, log)
	if !finnhubClient.Configured() {
		log.Warn().Msg("No provider API key configured, sync endpoints will be unavailable")
	}
	rateClient := exchangerate.NewClient(log)

	// Services
	marketHours := market_hours.NewService()

	securities := marketdata.NewSecurityRepository(db.Conn(), log)
	priceStore := marketdata.NewPriceStore(db.Conn(), log)
	auditLog := marketdata.NewAuditLog(db.Conn(), log)

	provider := marketdata.NewFinnhubProvider(finnhubClient)
	policy := marketdata.NewStalenessPolicy(marketHours,
		time.Duration(cfg.StalenessMinutes)*time.Minute, log)
	gapFiller := marketdata.NewGapFiller(provider, securities, priceStore, marketHours, log)

	syncService := marketdata.NewService(
		provider, securities, priceStore, auditLog, policy, gapFiller,
		marketHours, cfg.RatePerMinute, cfg.DefaultExchange, log)

	rateRepo := currency.NewRepository(db.Conn(), log)
	rateService := currency.NewService(rateRepo, rateClient, log)

	// Scheduler
	sched := scheduler.New(log)

	quoteJob := scheduler.NewQuoteRefreshJob(syncService, log)
	eodJob := scheduler.NewEODSyncJob(syncService, 30, log)
	rateJob := scheduler.NewRateSyncJob(rateService, cfg.BaseCurrency, cfg.Currencies, log)

	refreshSchedule := fmt.Sprintf("0 */%d * * * *", cfg.RefreshMinutes)
	if err := sched.AddJob(refreshSchedule, quoteJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register quote refresh job")
	}
	// Daily history sync after the US close, rates shortly after midnight
	if err := sched.AddJob("0 30 22 * * *", eodJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register end-of-day sync job")
	}
	if err := sched.AddJob("0 15 0 * * *", rateJob); err != nil {
		log.Fatal().Err(err).Msg("Failed to register rate sync job")
	}

	sched.Start()

	// HTTP server
	srv := server.New(server.Config{
		Log:     log,
		Port:    cfg.Port,
		DevMode: cfg.DevMode,
		DB:      db,
		Sync:    syncService,
		Audit:   auditLog,
		Rates:   rateService,
		EODJob:  eodJob,
	})

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("DiviTrack started")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	if err := db.WALCheckpoint("TRUNCATE"); err != nil {
		log.Warn().Err(err).Msg("WAL checkpoint failed")
	}

	log.Info().Msg("Shutdown complete")
}
