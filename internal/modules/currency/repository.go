// Package currency caches exchange rates with a daily TTL so portfolio
// valuation never waits on the rate provider.
package currency

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// CachedRate is one stored exchange rate with its fetch time
type CachedRate struct {
	BaseCurrency   string
	TargetCurrency string
	Rate           float64
	FetchedAt      time.Time
}

// Repository persists exchange rates keyed by currency pair
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new exchange-rate repository
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "currency").Logger(),
	}
}

// Get returns the cached rate for a pair, or nil when never fetched
func (r *Repository) Get(base, target string) (*CachedRate, error) {
	query := `SELECT base_currency, target_currency, rate, fetched_at
	          FROM exchange_rates
	          WHERE base_currency = ? AND target_currency = ?`

	var cached CachedRate
	var fetchedAt int64
	err := r.db.QueryRow(query, normalizeCurrency(base), normalizeCurrency(target)).
		Scan(&cached.BaseCurrency, &cached.TargetCurrency, &cached.Rate, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rate %s/%s: %w", base, target, err)
	}

	cached.FetchedAt = time.Unix(fetchedAt, 0).UTC()
	return &cached, nil
}

// Upsert stores a rate for a pair, replacing any previous value
func (r *Repository) Upsert(base, target string, rate float64, fetchedAt time.Time) error {
	query := `INSERT INTO exchange_rates (base_currency, target_currency, rate, fetched_at)
	          VALUES (?, ?, ?, ?)
	          ON CONFLICT(base_currency, target_currency) DO UPDATE SET
	              rate = excluded.rate,
	              fetched_at = excluded.fetched_at`

	_, err := r.db.Exec(query,
		normalizeCurrency(base), normalizeCurrency(target),
		rate, fetchedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to upsert rate %s/%s: %w", base, target, err)
	}

	return nil
}

func normalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
