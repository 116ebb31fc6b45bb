package marketdata

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// SecurityRepository handles security and snapshot database operations.
// The securities catalog is owned by external admin tooling; this engine
// reads identity fields and writes only the cached snapshot columns.
type SecurityRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// securityColumns is the identity column list for the securities table.
// Used to avoid SELECT * which can break when the catalog schema changes.
const securityColumns = `id, symbol, name, exchange, currency, active`

// NewSecurityRepository creates a new security repository
func NewSecurityRepository(db *sql.DB, log zerolog.Logger) *SecurityRepository {
	return &SecurityRepository{
		db:  db,
		log: log.With().Str("repo", "security").Logger(),
	}
}

// GetBySymbol returns a security by symbol, nil when not found
func (r *SecurityRepository) GetBySymbol(symbol string) (*Security, error) {
	query := "SELECT " + securityColumns + " FROM securities WHERE symbol = ?"

	row := r.db.QueryRow(query, normalizeSymbol(symbol))
	sec, err := scanSecurity(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query security by symbol: %w", err)
	}

	return sec, nil
}

// GetAllActive returns all active securities ordered by symbol
func (r *SecurityRepository) GetAllActive() ([]Security, error) {
	query := "SELECT " + securityColumns + " FROM securities WHERE active = 1 ORDER BY symbol"

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query active securities: %w", err)
	}
	defer rows.Close()

	var securities []Security
	for rows.Next() {
		var s Security
		var active int
		if err := rows.Scan(&s.ID, &s.Symbol, &s.Name, &s.Exchange, &s.Currency, &active); err != nil {
			return nil, fmt.Errorf("failed to scan security: %w", err)
		}
		s.Active = active != 0
		securities = append(securities, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating securities: %w", err)
	}

	return securities, nil
}

// Create inserts a security into the catalog.
// Kept for seeding and tests; the admin screens own catalog management.
func (r *SecurityRepository) Create(symbol, name, exchange, currency string) (int64, error) {
	result, err := r.db.Exec(
		"INSERT INTO securities (symbol, name, exchange, currency, active) VALUES (?, ?, ?, ?, 1)",
		normalizeSymbol(symbol), name, exchange, currency,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert security %s: %w", symbol, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get security id: %w", err)
	}

	return id, nil
}

// GetSnapshot returns the cached current-price snapshot for a symbol.
// Returns nil when the security does not exist or has never been priced.
func (r *SecurityRepository) GetSnapshot(symbol string) (*Snapshot, error) {
	query := `
		SELECT symbol, current_price, price_change_24h, price_change_percent_24h,
		       market_status, last_price_update
		FROM securities
		WHERE symbol = ?
	`

	var snap Snapshot
	var price, change, changePct sql.NullFloat64
	var status sql.NullString
	var lastUpdate sql.NullInt64

	err := r.db.QueryRow(query, normalizeSymbol(symbol)).Scan(
		&snap.Symbol, &price, &change, &changePct, &status, &lastUpdate,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}

	if !price.Valid {
		// Security exists but was never priced
		return nil, nil
	}

	snap.Price = price.Float64
	snap.Change24h = change.Float64
	snap.ChangePercent24h = changePct.Float64
	snap.MarketStatus = status.String
	if lastUpdate.Valid {
		snap.LastUpdate = time.Unix(lastUpdate.Int64, 0).UTC()
	}

	return &snap, nil
}

// UpdateSnapshot overwrites the cached snapshot columns for a symbol.
// Writes are keyed by the security's natural identity, so concurrent
// writers converge without locking.
func (r *SecurityRepository) UpdateSnapshot(symbol string, snap Snapshot) error {
	result, err := r.db.Exec(`
		UPDATE securities
		SET current_price = ?,
		    price_change_24h = ?,
		    price_change_percent_24h = ?,
		    market_status = ?,
		    last_price_update = ?
		WHERE symbol = ?
	`, snap.Price, snap.Change24h, snap.ChangePercent24h, snap.MarketStatus,
		snap.LastUpdate.Unix(), normalizeSymbol(symbol))
	if err != nil {
		return fmt.Errorf("failed to update snapshot for %s: %w", symbol, err)
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return fmt.Errorf("security not found: %s", symbol)
	}

	r.log.Debug().
		Str("symbol", symbol).
		Float64("price", snap.Price).
		Msg("Updated snapshot")

	return nil
}

// scanner abstracts sql.Row and sql.Rows for scanSecurity
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSecurity(row scanner) (*Security, error) {
	var s Security
	var active int
	if err := row.Scan(&s.ID, &s.Symbol, &s.Name, &s.Exchange, &s.Currency, &active); err != nil {
		return nil, err
	}
	s.Active = active != 0
	return &s, nil
}

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
