package marketdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// ErrProviderNotConfigured is returned when a sync is requested without
// provider credentials. Reads still work; only provider traffic is refused.
var ErrProviderNotConfigured = errors.New("market-data provider is not configured")

// Service orchestrates quote synchronization: batch fetches, the scheduled
// refresh, history backfills and provenance-tagged reads. All provider
// traffic funnels through a single rate limiter so batches never exceed the
// provider's per-minute allowance.
type Service struct {
	provider   Provider
	securities *SecurityRepository
	store      *PriceStore
	audit      *AuditLog
	policy     *StalenessPolicy
	gapFiller  *GapFiller
	calendar   TradingCalendar
	limiter    *rate.Limiter

	defaultExchange string
	now             func() time.Time
	log             zerolog.Logger
}

const (
	quoteEndpoint  = "/quote"
	candleEndpoint = "/stock/candle"

	// OriginScheduled tags audit rows written by cron jobs
	OriginScheduled = "scheduled"
	// OriginInteractive tags audit rows written by API-triggered syncs
	OriginInteractive = "interactive"
)

// NewService creates the sync orchestrator. ratePerMinute caps provider
// requests; defaultExchange drives the scheduled-run trading-day gate.
func NewService(
	provider Provider,
	securities *SecurityRepository,
	store *PriceStore,
	audit *AuditLog,
	policy *StalenessPolicy,
	gapFiller *GapFiller,
	calendar TradingCalendar,
	ratePerMinute int,
	defaultExchange string,
	log zerolog.Logger,
) *Service {
	if ratePerMinute <= 0 {
		ratePerMinute = 60
	}

	return &Service{
		provider:        provider,
		securities:      securities,
		store:           store,
		audit:           audit,
		policy:          policy,
		gapFiller:       gapFiller,
		calendar:        calendar,
		limiter:         rate.NewLimiter(rate.Every(time.Minute/time.Duration(ratePerMinute)), 1),
		defaultExchange: defaultExchange,
		now:             time.Now,
		log:             log.With().Str("service", "marketdata_sync").Logger(),
	}
}

// SetClock overrides the wall clock (tests only)
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// UpdateQuotes refreshes current quotes for the given symbols, or for every
// active security when symbols is empty. Fresh snapshots are skipped unless
// force is set. Per-symbol failures land in the result, never in the error:
// the error return is reserved for conditions that fail the whole batch.
func (s *Service) UpdateQuotes(ctx context.Context, symbols []string, force bool) (*BatchResult, error) {
	if !s.provider.Configured() {
		return nil, ErrProviderNotConfigured
	}

	targets, unknown, err := s.resolveTargets(symbols)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Success: []string{}, Failed: []string{}}
	result.Failed = append(result.Failed, unknown...)
	for _, security := range targets {
		lastUpdate, err := s.lastUpdate(security.Symbol)
		if err != nil {
			s.log.Error().Err(err).Str("symbol", security.Symbol).Msg("Failed to read snapshot")
			result.Failed = append(result.Failed, security.Symbol)
			continue
		}

		if !s.policy.ShouldManualRefresh(lastUpdate, force) {
			result.Skipped = append(result.Skipped, security.Symbol)
			continue
		}

		if err := s.fetchAndStore(ctx, security, OriginInteractive); err != nil {
			s.log.Warn().Err(err).Str("symbol", security.Symbol).Msg("Quote sync failed")
			result.Failed = append(result.Failed, security.Symbol)
			continue
		}
		result.Success = append(result.Success, security.Symbol)
	}

	s.log.Info().
		Int("success", len(result.Success)).
		Int("failed", len(result.Failed)).
		Int("skipped", len(result.Skipped)).
		Bool("force", force).
		Msg("Quote batch finished")

	return result, nil
}

// RunScheduled is the cron-facing quote refresh. On non-trading days it
// returns immediately with success=false and leaves no trace: no provider
// call, no audit row. On trading days it refreshes every active security
// whose exchange is open and whose snapshot has gone stale.
func (s *Service) RunScheduled(ctx context.Context) (*ScheduledReport, error) {
	now := s.now()
	if !s.calendar.IsTradingDay(s.defaultExchange, now) {
		s.log.Debug().Str("exchange", s.defaultExchange).Msg("Not a trading day, skipping scheduled sync")
		return &ScheduledReport{
			Success: false,
			Message: "not a trading day, sync skipped",
		}, nil
	}

	if !s.provider.Configured() {
		return &ScheduledReport{
			Success: false,
			Message: "market-data provider is not configured",
		}, nil
	}

	securities, err := s.securities.GetAllActive()
	if err != nil {
		return nil, fmt.Errorf("failed to load active securities: %w", err)
	}

	details := &ScheduledDetails{Timestamp: now}
	for _, security := range securities {
		lastUpdate, err := s.lastUpdate(security.Symbol)
		if err != nil {
			s.log.Error().Err(err).Str("symbol", security.Symbol).Msg("Failed to read snapshot")
			details.Errors++
			continue
		}

		if !s.policy.ShouldAutoRefresh(security.Exchange, lastUpdate) {
			continue
		}

		details.Total++
		if err := s.fetchAndStore(ctx, security, OriginScheduled); err != nil {
			s.log.Warn().Err(err).Str("symbol", security.Symbol).Msg("Scheduled quote sync failed")
			details.Errors++
			continue
		}
		details.Success++
	}

	return &ScheduledReport{
		Success: true,
		Message: fmt.Sprintf("synced %d/%d securities", details.Success, details.Total),
		Details: details,
	}, nil
}

// BackfillHistory runs the gap filler for the given symbols (all active
// securities when empty) at the given resolution. windowDays bounds the
// daily lookback; it is ignored for intraday, which always targets the most
// recent session.
func (s *Service) BackfillHistory(ctx context.Context, symbols []string, res Resolution, windowDays int) (*BackfillSummary, error) {
	return s.backfill(ctx, symbols, res, windowDays, OriginInteractive)
}

// RunScheduledBackfill is the end-of-day history sync, reachable from both
// cron and the jobs API. It carries the same trading-day gate as the quote
// refresh: on non-trading days it returns success=false and leaves no trace.
func (s *Service) RunScheduledBackfill(ctx context.Context, windowDays int) (*ScheduledReport, error) {
	now := s.now()
	if !s.calendar.IsTradingDay(s.defaultExchange, now) {
		s.log.Debug().Str("exchange", s.defaultExchange).Msg("Not a trading day, skipping end-of-day sync")
		return &ScheduledReport{
			Success: false,
			Message: "not a trading day, sync skipped",
		}, nil
	}

	if !s.provider.Configured() {
		return &ScheduledReport{
			Success: false,
			Message: "market-data provider is not configured",
		}, nil
	}

	summary, err := s.backfill(ctx, nil, ResolutionDaily, windowDays, OriginScheduled)
	if err != nil {
		return nil, err
	}

	details := &ScheduledDetails{
		Total:     len(summary.Success) + len(summary.Failed),
		Success:   len(summary.Success),
		Errors:    len(summary.Failed),
		Timestamp: now,
	}

	return &ScheduledReport{
		Success: true,
		Message: fmt.Sprintf("backfilled %d/%d securities", details.Success, details.Total),
		Details: details,
	}, nil
}

func (s *Service) backfill(ctx context.Context, symbols []string, res Resolution, windowDays int, origin string) (*BackfillSummary, error) {
	if !s.provider.Configured() {
		return nil, ErrProviderNotConfigured
	}
	if _, err := tableFor(res); err != nil {
		return nil, err
	}
	if windowDays <= 0 {
		windowDays = 30
	}

	targets, unknown, err := s.resolveTargets(symbols)
	if err != nil {
		return nil, err
	}

	summary := &BackfillSummary{
		BatchResult: BatchResult{Success: []string{}, Failed: []string{}},
	}
	summary.Failed = append(summary.Failed, unknown...)
	for _, security := range targets {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter interrupted: %w", err)
		}

		report, err := s.gapFiller.Fill(security.Symbol, res, windowDays)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", security.Symbol).Msg("History backfill failed")
			s.auditAppend(candleEndpoint, security.Symbol, "error", origin)
			summary.Failed = append(summary.Failed, security.Symbol)
			continue
		}

		s.auditAppend(candleEndpoint, security.Symbol, "success", origin)
		summary.Success = append(summary.Success, security.Symbol)
		summary.Reports = append(summary.Reports, *report)
	}

	return summary, nil
}

// GetSnapshot returns the cached snapshot for a symbol, tagged with
// provenance and a staleness flag computed at read time. Returns (nil, nil)
// when the security exists but has never been priced, or is unknown.
func (s *Service) GetSnapshot(symbol string) (*TaggedSnapshot, error) {
	snapshot, err := s.securities.GetSnapshot(symbol)
	if err != nil {
		return nil, err
	}
	if snapshot == nil {
		return nil, nil
	}

	stale := s.policy.IsStale(snapshot.LastUpdate)
	provenance := ProvenanceCached
	if stale {
		provenance = ProvenanceStale
	}

	return &TaggedSnapshot{
		Provenance: provenance,
		Stale:      stale,
		Snapshot:   *snapshot,
	}, nil
}

// GetSeries returns the stored price series for a symbol over a horizon.
// When no stored data covers the window, a deterministic synthetic series
// is generated instead, tagged so consumers can tell it apart.
func (s *Service) GetSeries(symbol string, horizonStr string) (*TaggedSeries, error) {
	security, err := s.securities.GetBySymbol(symbol)
	if err != nil {
		return nil, err
	}
	if security == nil {
		return nil, nil
	}

	horizon := ParseHorizon(horizonStr)
	params := horizons[horizon]
	res := ResolutionDaily
	if horizon == Horizon1D {
		res = ResolutionIntraday
	}

	now := s.now()
	from := now.Unix() - int64(params.Points)*params.StepSeconds

	points, err := s.store.CloseSeries(security.ID, res, from, now.Unix())
	if err != nil {
		return nil, err
	}

	if len(points) > 0 {
		return &TaggedSeries{
			Symbol:     security.Symbol,
			Provenance: ProvenanceCached,
			Points:     points,
		}, nil
	}

	basePrice := 0.0
	if snapshot, err := s.securities.GetSnapshot(security.Symbol); err == nil && snapshot != nil {
		basePrice = snapshot.Price
	}

	series := SyntheticSeries(security.Symbol, horizon, basePrice, now)
	s.log.Debug().
		Str("symbol", security.Symbol).
		Str("horizon", string(horizon)).
		Msg("No stored series, serving synthetic fallback")

	return &series, nil
}

// fetchAndStore performs one rate-limited quote fetch and persists the
// snapshot. Every attempt leaves an audit row, success or not.
func (s *Service) fetchAndStore(ctx context.Context, security Security, origin string) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter interrupted: %w", err)
	}

	quote, err := s.provider.Quote(security.Symbol)
	if err != nil {
		s.auditAppend(quoteEndpoint, security.Symbol, "error", origin)
		return err
	}

	status := "closed"
	if s.calendar.IsMarketOpen(security.Exchange, s.now()) {
		status = "open"
	}

	snapshot := Snapshot{
		Symbol:           security.Symbol,
		Price:            quote.Current,
		Change24h:        quote.Change,
		ChangePercent24h: quote.ChangePercent,
		MarketStatus:     status,
		LastUpdate:       s.now().UTC(),
	}
	if err := s.securities.UpdateSnapshot(security.Symbol, snapshot); err != nil {
		s.auditAppend(quoteEndpoint, security.Symbol, "error", origin)
		return fmt.Errorf("failed to store snapshot for %s: %w", security.Symbol, err)
	}

	s.auditAppend(quoteEndpoint, security.Symbol, "success", origin)
	return nil
}

// auditAppend records a provider attempt. Audit failures are logged, never
// propagated: a broken audit trail must not fail a sync.
func (s *Service) auditAppend(endpoint, symbol, status, origin string) {
	if err := s.audit.Append("finnhub", endpoint, symbol, status, origin); err != nil {
		s.log.Error().Err(err).Str("symbol", symbol).Msg("Failed to write audit entry")
	}
}

// resolveTargets maps requested symbols to securities, or returns all active
// securities when none were requested. Symbols absent from the catalog come
// back in unknown: they are failed entries that must not cost a provider
// call, a limiter slot or an audit row.
func (s *Service) resolveTargets(symbols []string) (targets []Security, unknown []string, err error) {
	if len(symbols) == 0 {
		securities, err := s.securities.GetAllActive()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load active securities: %w", err)
		}
		return securities, nil, nil
	}

	targets = make([]Security, 0, len(symbols))
	for _, symbol := range symbols {
		security, err := s.securities.GetBySymbol(symbol)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to look up security %s: %w", symbol, err)
		}
		if security == nil {
			unknown = append(unknown, normalizeSymbol(symbol))
			continue
		}
		targets = append(targets, *security)
	}
	return targets, unknown, nil
}

// lastUpdate reads the snapshot last-update time, zero when never priced
func (s *Service) lastUpdate(symbol string) (time.Time, error) {
	snapshot, err := s.securities.GetSnapshot(symbol)
	if err != nil {
		return time.Time{}, err
	}
	if snapshot == nil {
		return time.Time{}, nil
	}
	return snapshot.LastUpdate, nil
}
