package marketdata

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// SessionCalendar is the calendar slice the gap filler needs: trading-day
// checks plus session bounds for bucket generation.
type SessionCalendar interface {
	IsTradingDay(exchangeCode string, t time.Time) bool
	Session(exchangeCode string, t time.Time) (open, close time.Time, ok bool)
}

// SecurityLookup resolves a symbol to its stored security row
type SecurityLookup interface {
	GetBySymbol(symbol string) (*Security, error)
}

// PointStore is the price-point persistence slice used by the gap filler
// and the orchestrator.
type PointStore interface {
	UpsertPoints(securityID int64, res Resolution, points []PricePoint) error
	Timestamps(securityID int64, res Resolution, fromUnix, toUnix int64) (map[int64]bool, error)
}

// GapFiller detects missing historical price buckets and backfills them with
// a single covering provider request. When the stored series already covers
// the expected buckets, no provider call is made at all.
type GapFiller struct {
	provider   Provider
	securities SecurityLookup
	store      PointStore
	calendar   SessionCalendar
	now        func() time.Time
	log        zerolog.Logger
}

// NewGapFiller creates a new historical gap filler
func NewGapFiller(provider Provider, securities SecurityLookup, store PointStore, calendar SessionCalendar, log zerolog.Logger) *GapFiller {
	return &GapFiller{
		provider:   provider,
		securities: securities,
		store:      store,
		calendar:   calendar,
		now:        time.Now,
		log:        log.With().Str("component", "gap_filler").Logger(),
	}
}

// SetClock overrides the wall clock. Tests only.
func (g *GapFiller) SetClock(now func() time.Time) {
	g.now = now
}

// Fill backfills missing price buckets for a symbol at the given resolution.
// For intraday data the window is the most recent trading session; for daily
// data it is the last windowDays calendar days of completed trading days.
func (g *GapFiller) Fill(symbol string, res Resolution, windowDays int) (*GapFillReport, error) {
	security, err := g.securities.GetBySymbol(symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to look up security %s: %w", symbol, err)
	}
	if security == nil {
		return nil, fmt.Errorf("unknown security %s", symbol)
	}

	expected := g.expectedBuckets(security.Exchange, res, windowDays)
	report := &GapFillReport{Symbol: security.Symbol, Resolution: res}
	if len(expected) == 0 {
		return report, nil
	}

	from := expected[0]
	to := expected[len(expected)-1] + res.BucketSeconds()

	existing, err := g.store.Timestamps(security.ID, res, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load stored timestamps for %s: %w", symbol, err)
	}
	report.Existing = len(existing)

	missing := make(map[int64]bool)
	var missingFrom, missingTo int64
	for _, ts := range expected {
		if existing[ts] {
			continue
		}
		missing[ts] = true
		if missingFrom == 0 || ts < missingFrom {
			missingFrom = ts
		}
		if ts > missingTo {
			missingTo = ts
		}
	}
	report.Missing = len(missing)
	if len(missing) == 0 {
		g.log.Debug().
			Str("symbol", security.Symbol).
			Str("resolution", string(res)).
			Int("existing", report.Existing).
			Msg("Series complete, skipping fetch")
		return report, nil
	}

	candles, err := g.provider.Candles(security.Symbol, res, missingFrom, missingTo+res.BucketSeconds())
	if err != nil {
		return nil, fmt.Errorf("backfill fetch failed for %s: %w", symbol, err)
	}

	points := make([]PricePoint, 0, len(missing))
	for _, c := range candles {
		bucket := alignToBucket(c.TS, res)
		if !missing[bucket] {
			continue
		}
		delete(missing, bucket)
		points = append(points, PricePoint{
			TS:     bucket,
			Open:   c.Open,
			High:   c.High,
			Low:    c.Low,
			Close:  c.Close,
			Volume: c.Volume,
		})
	}

	if len(points) > 0 {
		if err := g.store.UpsertPoints(security.ID, res, points); err != nil {
			return nil, fmt.Errorf("failed to store backfilled points for %s: %w", symbol, err)
		}
	}
	report.Written = len(points)

	g.log.Info().
		Str("symbol", security.Symbol).
		Str("resolution", string(res)).
		Int("existing", report.Existing).
		Int("missing", report.Missing).
		Int("written", report.Written).
		Msg("Backfilled price history")

	return report, nil
}

// expectedBuckets returns the sorted bucket timestamps the stored series
// should contain for the window ending now. Buckets still in progress are
// excluded so a partially elapsed bucket never registers as a gap.
func (g *GapFiller) expectedBuckets(exchange string, res Resolution, windowDays int) []int64 {
	now := g.now()

	if res == ResolutionDaily {
		return g.dailyBuckets(exchange, windowDays, now)
	}
	return g.intradayBuckets(exchange, now)
}

// dailyBuckets yields one UTC-midnight bucket per completed trading day in
// the last windowDays calendar days, excluding today.
func (g *GapFiller) dailyBuckets(exchange string, windowDays int, now time.Time) []int64 {
	buckets := make([]int64, 0, windowDays)
	for i := windowDays; i >= 1; i-- {
		day := now.AddDate(0, 0, -i)
		// Check the exchange-local noon to avoid midnight timezone edges
		probe := time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, time.UTC)
		if !g.calendar.IsTradingDay(exchange, probe) {
			continue
		}
		bucket := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		buckets = append(buckets, bucket.Unix())
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i] < buckets[j] })
	return buckets
}

// intradayBuckets yields the 5-minute buckets of the most recent trading
// session up to now. If today is not a trading day the filler walks back to
// the previous one.
func (g *GapFiller) intradayBuckets(exchange string, now time.Time) []int64 {
	var open, close time.Time
	found := false
	for i := 0; i < 7; i++ {
		day := now.AddDate(0, 0, -i)
		if o, c, ok := g.calendar.Session(exchange, day); ok {
			// Skip sessions that have not started yet
			if o.After(now) {
				continue
			}
			open, close = o, c
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	step := ResolutionIntraday.BucketSeconds()
	buckets := make([]int64, 0, 96)
	for ts := open.Unix(); ts < close.Unix(); ts += step {
		// Only completed buckets count as expected
		if ts+step > now.Unix() {
			break
		}
		buckets = append(buckets, ts)
	}
	return buckets
}

// alignToBucket snaps a provider timestamp down to its bucket boundary
func alignToBucket(ts int64, res Resolution) int64 {
	step := res.BucketSeconds()
	return ts - ts%step
}
