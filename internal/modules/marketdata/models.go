// Package marketdata implements the market-data synchronization and caching
// engine: quote sync, historical gap filling, synthetic fallback series and
// the staleness rules that gate provider calls.
package marketdata

import "time"

// Provenance tags every value handed to consumers so synthetic or stale data
// is never indistinguishable from live data.
type Provenance string

const (
	// ProvenanceLive - freshly fetched from the provider
	ProvenanceLive Provenance = "live"
	// ProvenanceCached - served from the store within the staleness window
	ProvenanceCached Provenance = "cached"
	// ProvenanceStale - served from the store past the staleness window
	ProvenanceStale Provenance = "stale"
	// ProvenanceSynthetic - deterministic generated series, no real data behind it
	ProvenanceSynthetic Provenance = "synthetic"
)

// Resolution is the time-bucket granularity of a stored price series
type Resolution string

const (
	// ResolutionIntraday - 5-minute buckets within trading hours
	ResolutionIntraday Resolution = "intraday"
	// ResolutionDaily - one bucket per trading day
	ResolutionDaily Resolution = "daily"
)

// ProviderCode maps a resolution to the provider's candle vocabulary
func (r Resolution) ProviderCode() string {
	if r == ResolutionIntraday {
		return "5"
	}
	return "D"
}

// BucketSeconds is the width of one bucket at this resolution
func (r Resolution) BucketSeconds() int64 {
	if r == ResolutionIntraday {
		return 5 * 60
	}
	return 24 * 60 * 60
}

// Security represents a catalog entry. The catalog itself is managed
// externally; this engine only reads identity fields and writes the cached
// snapshot columns.
type Security struct {
	ID       int64  `json:"id"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Currency string `json:"currency"`
	Active   bool   `json:"active"`
}

// Snapshot is the cached current-price state of a security.
// Overwritten on every successful fetch; never deleted, only flagged stale.
type Snapshot struct {
	Symbol           string    `json:"symbol"`
	Price            float64   `json:"price"`
	Change24h        float64   `json:"change_24h"`
	ChangePercent24h float64   `json:"change_percent_24h"`
	MarketStatus     string    `json:"market_status"`
	LastUpdate       time.Time `json:"last_update"`
}

// TaggedSnapshot is a snapshot with provenance and a staleness flag computed
// at read time.
type TaggedSnapshot struct {
	Provenance Provenance `json:"provenance"`
	Stale      bool       `json:"stale"`
	Snapshot   Snapshot   `json:"snapshot"`
}

// PricePoint is one OHLCV bucket of a stored series.
// Uniquely keyed by (security id, ts) within its resolution table.
type PricePoint struct {
	SecurityID int64   `json:"security_id"`
	TS         int64   `json:"ts"`
	Open       float64 `json:"open"`
	High       float64 `json:"high"`
	Low        float64 `json:"low"`
	Close      float64 `json:"close"`
	Volume     int64   `json:"volume"`
}

// SeriesPoint is one point of a chart-facing price series
type SeriesPoint struct {
	TS    int64   `json:"ts"`
	Price float64 `json:"price"`
}

// TaggedSeries is a price series with provenance
type TaggedSeries struct {
	Symbol     string        `json:"symbol"`
	Provenance Provenance    `json:"provenance"`
	Points     []SeriesPoint `json:"points"`
}

// BatchResult is the outcome shape of every batch sync call.
// Partial failure is the expected case, never an error.
type BatchResult struct {
	Success []string `json:"success"`
	Failed  []string `json:"failed"`
	Skipped []string `json:"skipped,omitempty"`
}

// GapFillReport summarises one gap-fill pass for a symbol/resolution
type GapFillReport struct {
	Symbol     string     `json:"symbol"`
	Resolution Resolution `json:"resolution"`
	Existing   int        `json:"existing"`
	Missing    int        `json:"missing"`
	Written    int        `json:"written"`
}

// BackfillSummary is the outcome of a batch history backfill
type BackfillSummary struct {
	BatchResult
	Reports []GapFillReport `json:"reports"`
}

// ScheduledDetails is the per-run summary of the scheduled sync job
type ScheduledDetails struct {
	Total     int       `json:"total"`
	Success   int       `json:"success"`
	Errors    int       `json:"errors"`
	Timestamp time.Time `json:"timestamp"`
}

// ScheduledReport is the scheduled job contract
type ScheduledReport struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Details *ScheduledDetails `json:"details,omitempty"`
}
