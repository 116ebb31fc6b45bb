package marketdata

import (
	"time"

	"github.com/rs/zerolog"
)

// TradingCalendar is the slice of the market-hours service the staleness
// policy needs. Satisfied by market_hours.Service.
type TradingCalendar interface {
	IsTradingDay(exchangeCode string, t time.Time) bool
	IsMarketOpen(exchangeCode string, t time.Time) bool
}

// StalenessPolicy decides whether a refresh is due for a snapshot, given its
// last-update time and the trading calendar.
type StalenessPolicy struct {
	calendar  TradingCalendar
	threshold time.Duration
	now       func() time.Time
	log       zerolog.Logger
}

// NewStalenessPolicy creates a staleness policy with the given threshold
func NewStalenessPolicy(calendar TradingCalendar, threshold time.Duration, log zerolog.Logger) *StalenessPolicy {
	return &StalenessPolicy{
		calendar:  calendar,
		threshold: threshold,
		now:       time.Now,
		log:       log.With().Str("component", "staleness_policy").Logger(),
	}
}

// SetClock overrides the wall clock (tests only)
func (p *StalenessPolicy) SetClock(now func() time.Time) {
	p.now = now
}

// Threshold returns the configured staleness window
func (p *StalenessPolicy) Threshold() time.Duration {
	return p.threshold
}

// IsStale reports whether lastUpdate is older than the threshold.
// Exactly at the threshold counts as fresh. A zero lastUpdate (never
// fetched) is always stale.
func (p *StalenessPolicy) IsStale(lastUpdate time.Time) bool {
	if lastUpdate.IsZero() {
		return true
	}
	return p.now().Sub(lastUpdate) > p.threshold
}

// ShouldAutoRefresh gates the periodic automatic refresh: the exchange must
// be within trading hours on a trading day and the snapshot must be stale.
func (p *StalenessPolicy) ShouldAutoRefresh(exchangeCode string, lastUpdate time.Time) bool {
	now := p.now()
	if !p.calendar.IsTradingDay(exchangeCode, now) {
		return false
	}
	if !p.calendar.IsMarketOpen(exchangeCode, now) {
		return false
	}
	return p.IsStale(lastUpdate)
}

// ShouldManualRefresh gates an interactive refresh request: trading hours
// are bypassed, but fresh snapshots are skipped unless force is set.
func (p *StalenessPolicy) ShouldManualRefresh(lastUpdate time.Time, force bool) bool {
	if force {
		return true
	}
	return p.IsStale(lastUpdate)
}
