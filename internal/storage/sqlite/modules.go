// ABOUTME: Project module tracker storage for SQLite
// ABOUTME: One live row per (project, module); updates overwrite in place
package sqlite

import (
	"database/sql"
	"time"

	"github.com/sisyph/mcoder/internal/models"
)

// ModuleStore handles project module persistence
type ModuleStore struct {
	db *DB
}

// NewModuleStore creates a new ModuleStore
func NewModuleStore(db *DB) *ModuleStore {
	return &ModuleStore{db: db}
}

// Upsert inserts or overwrites the module row for (projectID, moduleName)
func (s *ModuleStore) Upsert(projectID int64, moduleName, status, log string) (*models.ModuleStatus, error) {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO modules (project_id, module_name, status, updated_at, log)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(project_id, module_name) DO UPDATE SET
			status = excluded.status,
			updated_at = excluded.updated_at,
			log = excluded.log
	`, projectID, moduleName, status, now, nullString(log))
	if err != nil {
		return nil, err
	}

	var id int64
	if err := s.db.QueryRow(`SELECT id FROM modules WHERE project_id = ? AND module_name = ?`,
		projectID, moduleName).Scan(&id); err != nil {
		return nil, err
	}
	return &models.ModuleStatus{
		ID:         id,
		ProjectID:  projectID,
		ModuleName: moduleName,
		Status:     status,
		UpdatedAt:  now,
		Log:        log,
	}, nil
}

// ListByProject returns the current module rows for a project, by name
func (s *ModuleStore) ListByProject(projectID int64) ([]models.ModuleStatus, error) {
	rows, err := s.db.Query(`
		SELECT id, project_id, module_name, status, updated_at, log
		FROM modules
		WHERE project_id = ?
		ORDER BY module_name ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	modules := []models.ModuleStatus{}
	for rows.Next() {
		var (
			m   models.ModuleStatus
			log sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.ModuleName, &m.Status, &m.UpdatedAt, &log); err != nil {
			return nil, err
		}
		m.Log = log.String
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

// Progress returns done and total module counts for a project
func (s *ModuleStore) Progress(projectID int64) (done, total int, err error) {
	err = s.db.QueryRow(`
		SELECT
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COUNT(*)
		FROM modules
		WHERE project_id = ?
	`, models.ModuleDone, projectID).Scan(&done, &total)
	return done, total, err
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
