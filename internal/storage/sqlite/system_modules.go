// ABOUTME: System module tracker storage for SQLite
// ABOUTME: Current-state rows and the append-only transition history, written together
package sqlite

import (
	"database/sql"
	"time"

	"github.com/sisyph/mcoder/internal/models"
)

// SystemModuleStore handles system module persistence
type SystemModuleStore struct {
	db *DB
}

// NewSystemModuleStore creates a new SystemModuleStore
func NewSystemModuleStore(db *DB) *SystemModuleStore {
	return &SystemModuleStore{db: db}
}

// Upsert overwrites the current row for moduleName and appends a history entry with the
// same values. Both writes share one transaction so the two tables never diverge.
func (s *SystemModuleStore) Upsert(moduleName, status, log string) (*models.SystemModuleStatus, error) {
	now := time.Now().UTC()
	current := &models.SystemModuleStatus{
		ModuleName: moduleName,
		Status:     status,
		UpdatedAt:  now,
		Log:        log,
	}

	err := s.db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`
			INSERT INTO system_modules (module_name, status, updated_at, log)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(module_name) DO UPDATE SET
				status = excluded.status,
				updated_at = excluded.updated_at,
				log = excluded.log
		`, moduleName, status, now, nullString(log)); err != nil {
			return err
		}

		if err := tx.QueryRow(`SELECT id FROM system_modules WHERE module_name = ?`, moduleName).Scan(&current.ID); err != nil {
			return err
		}

		_, err := tx.Exec(`
			INSERT INTO system_status_history (module_name, status, updated_at, log)
			VALUES (?, ?, ?, ?)
		`, moduleName, status, now, nullString(log))
		return err
	})
	if err != nil {
		return nil, err
	}
	return current, nil
}

// List returns all current system module rows, by name
func (s *SystemModuleStore) List() ([]models.SystemModuleStatus, error) {
	rows, err := s.db.Query(`
		SELECT id, module_name, status, updated_at, log
		FROM system_modules
		ORDER BY module_name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	modules := []models.SystemModuleStatus{}
	for rows.Next() {
		var (
			m   models.SystemModuleStatus
			log sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.ModuleName, &m.Status, &m.UpdatedAt, &log); err != nil {
			return nil, err
		}
		m.Log = log.String
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

// History returns up to limit transitions, most recent first. An empty moduleName
// returns the interleaved timeline of every module. A limit of zero or less returns all.
func (s *SystemModuleStore) History(moduleName string, limit int) ([]models.SystemStatusHistoryEntry, error) {
	if limit <= 0 {
		limit = -1
	}

	var (
		rows *sql.Rows
		err  error
	)
	if moduleName != "" {
		rows, err = s.db.Query(`
			SELECT id, module_name, status, updated_at, log
			FROM system_status_history
			WHERE module_name = ?
			ORDER BY updated_at DESC, id DESC
			LIMIT ?
		`, moduleName, limit)
	} else {
		rows, err = s.db.Query(`
			SELECT id, module_name, status, updated_at, log
			FROM system_status_history
			ORDER BY updated_at DESC, id DESC
			LIMIT ?
		`, limit)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	entries := []models.SystemStatusHistoryEntry{}
	for rows.Next() {
		var (
			e   models.SystemStatusHistoryEntry
			log sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.ModuleName, &e.Status, &e.UpdatedAt, &log); err != nil {
			return nil, err
		}
		e.Log = log.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
