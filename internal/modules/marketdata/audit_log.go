package marketdata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AuditEntry records one provider call attempt, success or failure.
type AuditEntry struct {
	ID        string    `json:"id"`
	Service   string    `json:"service"`
	Endpoint  string    `json:"endpoint"`
	Symbol    string    `json:"symbol"`
	Status    string    `json:"status"` // "success" or "error"
	Origin    string    `json:"origin"` // "scheduled" or "interactive"
	CreatedAt time.Time `json:"created_at"`
}

// AuditLog is the append-only repository over sync_audit_log
type AuditLog struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewAuditLog creates a new audit log repository
func NewAuditLog(db *sql.DB, log zerolog.Logger) *AuditLog {
	return &AuditLog{
		db:  db,
		log: log.With().Str("repo", "audit_log").Logger(),
	}
}

// Append records one provider call attempt
func (a *AuditLog) Append(service, endpoint, symbol, status, origin string) error {
	_, err := a.db.Exec(`
		INSERT INTO sync_audit_log (id, service, endpoint, symbol, status, origin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), service, endpoint, symbol, status, origin, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}

	return nil
}

// Count returns the total number of audit entries
func (a *AuditLog) Count() (int, error) {
	var count int
	if err := a.db.QueryRow("SELECT COUNT(*) FROM sync_audit_log").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}

// Recent returns the most recent audit entries, newest first
func (a *AuditLog) Recent(limit int) ([]AuditEntry, error) {
	rows, err := a.db.Query(`
		SELECT id, service, endpoint, symbol, status, origin, created_at
		FROM sync_audit_log
		ORDER BY created_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var createdAt int64
		if err := rows.Scan(&e.ID, &e.Service, &e.Endpoint, &e.Symbol, &e.Status, &e.Origin, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.CreatedAt = time.Unix(createdAt, 0).UTC()
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit entries: %w", err)
	}

	return entries, nil
}
