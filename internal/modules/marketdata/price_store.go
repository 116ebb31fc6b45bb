package marketdata

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/divitrack/divitrack/internal/database"
)

// PriceStore provides read/write access to the multi-resolution price-point
// tables. All writes are idempotent upserts keyed by (security_id, ts), so
// re-fetching an already-stored timestamp never duplicates a row.
type PriceStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewPriceStore creates a new price store
func NewPriceStore(db *sql.DB, log zerolog.Logger) *PriceStore {
	return &PriceStore{
		db:  db,
		log: log.With().Str("repo", "price_store").Logger(),
	}
}

// tableFor maps a resolution to its table. The explicit switch doubles as
// validation against injecting arbitrary table names.
func tableFor(res Resolution) (string, error) {
	switch res {
	case ResolutionIntraday:
		return "price_points_intraday", nil
	case ResolutionDaily:
		return "price_points_daily", nil
	default:
		return "", fmt.Errorf("unknown resolution: %s", res)
	}
}

// UpsertPoints writes price points for a security in a single transaction.
// The unique constraint on (security_id, ts) is the conflict target, so
// repeated runs over the same window are safe.
func (s *PriceStore) UpsertPoints(securityID int64, res Resolution, points []PricePoint) error {
	if len(points) == 0 {
		return nil
	}

	table, err := tableFor(res)
	if err != nil {
		return err
	}

	err = database.WithTransaction(s.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(fmt.Sprintf(`
			INSERT INTO %s (security_id, ts, open, high, low, close, volume)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(security_id, ts) DO UPDATE SET
				open = excluded.open,
				high = excluded.high,
				low = excluded.low,
				close = excluded.close,
				volume = excluded.volume
		`, table))
		if err != nil {
			return fmt.Errorf("failed to prepare upsert: %w", err)
		}
		defer stmt.Close()

		for _, p := range points {
			if _, err := stmt.Exec(securityID, p.TS, p.Open, p.High, p.Low, p.Close, p.Volume); err != nil {
				return fmt.Errorf("failed to upsert point at %d: %w", p.TS, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Debug().
		Int64("security_id", securityID).
		Str("resolution", string(res)).
		Int("count", len(points)).
		Msg("Upserted price points")

	return nil
}

// Timestamps returns the set of stored bucket timestamps for a security and
// resolution within [fromUnix, toUnix].
func (s *PriceStore) Timestamps(securityID int64, res Resolution, fromUnix, toUnix int64) (map[int64]bool, error) {
	table, err := tableFor(res)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT ts FROM %s WHERE security_id = ? AND ts >= ? AND ts <= ?", table,
	)

	rows, err := s.db.Query(query, securityID, fromUnix, toUnix)
	if err != nil {
		return nil, fmt.Errorf("failed to query timestamps: %w", err)
	}
	defer rows.Close()

	existing := make(map[int64]bool)
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("failed to scan timestamp: %w", err)
		}
		existing[ts] = true
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating timestamps: %w", err)
	}

	return existing, nil
}

// Count returns the number of stored points for a security and resolution
func (s *PriceStore) Count(securityID int64, res Resolution) (int, error) {
	table, err := tableFor(res)
	if err != nil {
		return 0, err
	}

	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE security_id = ?", table)
	if err := s.db.QueryRow(query, securityID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}

	return count, nil
}

// CloseSeries returns the close-price series for a security within
// [fromUnix, toUnix], ordered by timestamp ascending.
func (s *PriceStore) CloseSeries(securityID int64, res Resolution, fromUnix, toUnix int64) ([]SeriesPoint, error) {
	table, err := tableFor(res)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT ts, close FROM %s WHERE security_id = ? AND ts >= ? AND ts <= ? ORDER BY ts", table,
	)

	rows, err := s.db.Query(query, securityID, fromUnix, toUnix)
	if err != nil {
		return nil, fmt.Errorf("failed to query series: %w", err)
	}
	defer rows.Close()

	var points []SeriesPoint
	for rows.Next() {
		var p SeriesPoint
		if err := rows.Scan(&p.TS, &p.Price); err != nil {
			return nil, fmt.Errorf("failed to scan series point: %w", err)
		}
		points = append(points, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating series: %w", err)
	}

	return points, nil
}
