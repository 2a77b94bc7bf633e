// ABOUTME: File registry storage operations for SQLite
// ABOUTME: Immutable file metadata rows with content hash and scan verdict
package sqlite

import (
	"time"

	"github.com/sisyph/mcoder/internal/models"
)

// FileStore handles file record persistence
type FileStore struct {
	db *DB
}

// NewFileStore creates a new FileStore
func NewFileStore(db *DB) *FileStore {
	return &FileStore{db: db}
}

// Insert saves a file record and sets its ID and upload time
func (s *FileStore) Insert(f *models.FileRecord) (int64, error) {
	uploadedAt := f.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = time.Now().UTC()
	}

	result, err := s.db.Exec(`
		INSERT INTO files (project_id, filename, file_path, file_size, file_hash, uploaded_at, security_scan)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, f.ProjectID, f.Filename, f.SourcePath, f.SizeBytes, f.ContentHash, uploadedAt, string(f.SecurityScan))
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	f.ID = id
	f.UploadedAt = uploadedAt
	return id, nil
}

// ListByProject returns a project's files in upload order
func (s *FileStore) ListByProject(projectID int64) ([]models.FileRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, project_id, filename, file_path, file_size, file_hash, uploaded_at, security_scan
		FROM files
		WHERE project_id = ?
		ORDER BY uploaded_at ASC, id ASC
	`, projectID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	files := []models.FileRecord{}
	for rows.Next() {
		var (
			f    models.FileRecord
			scan string
		)
		if err := rows.Scan(&f.ID, &f.ProjectID, &f.Filename, &f.SourcePath, &f.SizeBytes,
			&f.ContentHash, &f.UploadedAt, &scan); err != nil {
			return nil, err
		}
		f.SecurityScan = models.RiskLevel(scan)
		files = append(files, f)
	}
	return files, rows.Err()
}
