package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/divitrack/divitrack/internal/modules/currency"
	"github.com/divitrack/divitrack/internal/modules/marketdata"
)

const jobTimeout = 10 * time.Minute

// QuoteRefreshJob runs the scheduled quote sync. The sync service itself
// applies the trading-day and market-hours gates, so firing on a weekend is
// harmless and cheap.
type QuoteRefreshJob struct {
	sync *marketdata.Service
	log  zerolog.Logger
}

// NewQuoteRefreshJob creates the periodic quote refresh job
func NewQuoteRefreshJob(sync *marketdata.Service, log zerolog.Logger) *QuoteRefreshJob {
	return &QuoteRefreshJob{
		sync: sync,
		log:  log.With().Str("job", "quote_refresh").Logger(),
	}
}

// Name returns the job name
func (j *QuoteRefreshJob) Name() string {
	return "quote_refresh"
}

// Run executes one scheduled quote sync pass
func (j *QuoteRefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	report, err := j.sync.RunScheduled(ctx)
	if err != nil {
		return fmt.Errorf("scheduled quote sync failed: %w", err)
	}

	if !report.Success {
		j.log.Debug().Str("reason", report.Message).Msg("Quote refresh skipped")
		return nil
	}

	j.log.Info().
		Int("total", report.Details.Total).
		Int("success", report.Details.Success).
		Int("errors", report.Details.Errors).
		Msg("Quote refresh finished")
	return nil
}

// EODSyncJob backfills daily price history after markets close so every
// completed trading day ends up with its daily bucket.
type EODSyncJob struct {
	sync       *marketdata.Service
	windowDays int
	log        zerolog.Logger
}

// NewEODSyncJob creates the end-of-day history sync job
func NewEODSyncJob(sync *marketdata.Service, windowDays int, log zerolog.Logger) *EODSyncJob {
	return &EODSyncJob{
		sync:       sync,
		windowDays: windowDays,
		log:        log.With().Str("job", "eod_sync").Logger(),
	}
}

// Name returns the job name
func (j *EODSyncJob) Name() string {
	return "eod_sync"
}

// RunReport runs the gated end-of-day sync and returns its report.
// Exposed so the jobs API can trigger the sync on demand and hand the
// caller the same report shape the cron run produces.
func (j *EODSyncJob) RunReport(ctx context.Context) (*marketdata.ScheduledReport, error) {
	return j.sync.RunScheduledBackfill(ctx, j.windowDays)
}

// Run backfills daily history for all active securities
func (j *EODSyncJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	report, err := j.RunReport(ctx)
	if err != nil {
		return fmt.Errorf("end-of-day sync failed: %w", err)
	}

	if !report.Success {
		j.log.Debug().Str("reason", report.Message).Msg("End-of-day sync skipped")
		return nil
	}

	j.log.Info().
		Int("total", report.Details.Total).
		Int("success", report.Details.Success).
		Int("errors", report.Details.Errors).
		Msg("End-of-day sync finished")
	return nil
}

// RateSyncJob refreshes the cached exchange rates once a day
type RateSyncJob struct {
	rates   *currency.Service
	base    string
	targets []string
	log     zerolog.Logger
}

// NewRateSyncJob creates the daily exchange-rate refresh job
func NewRateSyncJob(rates *currency.Service, base string, targets []string, log zerolog.Logger) *RateSyncJob {
	return &RateSyncJob{
		rates:   rates,
		base:    base,
		targets: targets,
		log:     log.With().Str("job", "rate_sync").Logger(),
	}
}

// Name returns the job name
func (j *RateSyncJob) Name() string {
	return "rate_sync"
}

// Run refreshes all configured currency pairs
func (j *RateSyncJob) Run() error {
	refreshed := j.rates.RefreshAll(j.base, j.targets)
	j.log.Info().Int("refreshed", refreshed).Msg("Rate sync finished")
	return nil
}
