// ABOUTME: Project storage operations for SQLite
// ABOUTME: Insert, lookup, listing and status retirement of projects
package sqlite

import (
	"database/sql"
	"time"

	"github.com/sisyph/mcoder/internal/models"
)

// ProjectStore handles project persistence
type ProjectStore struct {
	db *DB
}

// NewProjectStore creates a new ProjectStore
func NewProjectStore(db *DB) *ProjectStore {
	return &ProjectStore{db: db}
}

// Insert saves a new project and sets its ID and timestamps
func (s *ProjectStore) Insert(p *models.Project) (int64, error) {
	now := time.Now().UTC()
	if p.Status == "" {
		p.Status = models.ProjectStatusActive
	}

	result, err := s.db.Exec(`
		INSERT INTO projects (name, description, status, security_level, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, p.Name, p.Description, p.Status, string(p.SecurityLevel), now, now)
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return id, nil
}

// GetByID retrieves a project, returning nil when it does not exist
func (s *ProjectStore) GetByID(id int64) (*models.Project, error) {
	var (
		p           models.Project
		description sql.NullString
		level       string
	)

	err := s.db.QueryRow(`
		SELECT id, name, description, status, security_level, created_at, updated_at
		FROM projects
		WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &description, &p.Status, &level, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.Description = description.String
	p.SecurityLevel = models.RiskLevel(level)
	return &p, nil
}

// Exists reports whether a project row exists
func (s *ProjectStore) Exists(id int64) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM projects WHERE id = ?`, id).Scan(&n)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Status returns the project with message and file counts computed at query time
func (s *ProjectStore) Status(id int64) (*models.ProjectStatus, error) {
	var (
		st          models.ProjectStatus
		description sql.NullString
	)

	err := s.db.QueryRow(`
		SELECT p.id, p.name, p.description, p.status, p.created_at,
			(SELECT COUNT(*) FROM messages m WHERE m.project_id = p.id),
			(SELECT COUNT(*) FROM files f WHERE f.project_id = p.id)
		FROM projects p
		WHERE p.id = ?
	`, id).Scan(&st.ID, &st.Name, &description, &st.Status, &st.CreatedAt,
		&st.MessageCount, &st.FileCount)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	st.Description = description.String
	return &st, nil
}

// List returns all projects, newest first
func (s *ProjectStore) List() ([]models.Project, error) {
	rows, err := s.db.Query(`
		SELECT id, name, description, status, security_level, created_at, updated_at
		FROM projects
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	projects := []models.Project{}
	for rows.Next() {
		var (
			p           models.Project
			description sql.NullString
			level       string
		)
		if err := rows.Scan(&p.ID, &p.Name, &description, &p.Status, &level, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Description = description.String
		p.SecurityLevel = models.RiskLevel(level)
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateStatus changes the status label. Returns false if the project does not exist.
func (s *ProjectStore) UpdateStatus(id int64, status string) (bool, error) {
	result, err := s.db.Exec(`
		UPDATE projects SET status = ?, updated_at = ? WHERE id = ?
	`, status, time.Now().UTC(), id)
	if err != nil {
		return false, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
