// ABOUTME: Security ledger storage for SQLite
// ABOUTME: Append-only log of every classification decision
package sqlite

import (
	"database/sql"
	"time"

	"github.com/sisyph/mcoder/internal/models"
)

// SecurityStore handles security ledger persistence
type SecurityStore struct {
	db *DB
}

// NewSecurityStore creates a new SecurityStore
func NewSecurityStore(db *DB) *SecurityStore {
	return &SecurityStore{db: db}
}

// Record appends one security event with the current time
func (s *SecurityStore) Record(action string, level models.RiskLevel, details string) (*models.SecurityEvent, error) {
	now := time.Now().UTC()
	result, err := s.db.Exec(`
		INSERT INTO security_log (action, risk_level, details, timestamp)
		VALUES (?, ?, ?, ?)
	`, action, string(level), details, now)
	if err != nil {
		return nil, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &models.SecurityEvent{
		ID:        id,
		Action:    action,
		RiskLevel: level,
		Details:   details,
		Timestamp: now,
	}, nil
}

// Recent returns up to limit events, most recent first. A limit of zero or less returns all.
func (s *SecurityStore) Recent(limit int) ([]models.SecurityEvent, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, action, risk_level, details, timestamp
		FROM security_log
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	events := []models.SecurityEvent{}
	for rows.Next() {
		var (
			e       models.SecurityEvent
			level   string
			details sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Action, &level, &details, &e.Timestamp); err != nil {
			return nil, err
		}
		e.RiskLevel = models.RiskLevel(level)
		e.Details = details.String
		events = append(events, e)
	}
	return events, rows.Err()
}

// Count returns the total number of ledger rows
func (s *SecurityStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM security_log`).Scan(&n)
	return n, err
}
