// ABOUTME: Message log storage operations for SQLite
// ABOUTME: Append-only inserts, recency-ordered history and ranked substring search
package sqlite

import (
	"strings"
	"time"

	"github.com/sisyph/mcoder/internal/models"
)

// MessageStore handles message persistence. Rows are never updated or deleted.
type MessageStore struct {
	db *DB
}

// NewMessageStore creates a new MessageStore
func NewMessageStore(db *DB) *MessageStore {
	return &MessageStore{db: db}
}

// Append inserts a message and sets its ID and creation time
func (s *MessageStore) Append(m *models.Message) (int64, error) {
	createdAt := m.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	result, err := s.db.Exec(`
		INSERT INTO messages (project_id, sender, content, message_type, importance, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ProjectID, m.Sender, m.Content, m.MessageType, m.Importance, createdAt)
	if err != nil {
		return 0, err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}
	m.ID = id
	m.CreatedAt = createdAt
	return id, nil
}

// History returns up to limit messages for a project, most recent first.
// A limit of zero or less returns the whole log.
func (s *MessageStore) History(projectID int64, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(`
		SELECT id, project_id, sender, content, message_type, importance, created_at
		FROM messages
		WHERE project_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, projectID, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	return scanMessages(rows, nil)
}

// Search returns every message whose content contains query, ignoring case.
// projectID of zero searches all projects. Results are ranked by importance, then recency.
func (s *MessageStore) Search(query string, projectID int64) ([]models.Message, error) {
	base := `
		SELECT id, project_id, sender, content, message_type, importance, created_at
		FROM messages`
	order := `
		ORDER BY importance DESC, created_at DESC, id DESC`

	var (
		rows rowScanner
		err  error
	)
	if projectID > 0 {
		rows, err = s.db.Query(base+` WHERE project_id = ?`+order, projectID)
	} else {
		rows, err = s.db.Query(base + order)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	// SQLite LIKE only folds ASCII, so matching happens here
	needle := strings.ToLower(query)
	return scanMessages(rows, func(m *models.Message) bool {
		return strings.Contains(strings.ToLower(m.Content), needle)
	})
}

// Count returns the number of messages in a project
func (s *MessageStore) Count(projectID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM messages WHERE project_id = ?`, projectID).Scan(&n)
	return n, err
}

// rowScanner is the subset of *sql.Rows used by the scan helpers
type rowScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
	Close() error
}

func scanMessages(rows rowScanner, keep func(*models.Message) bool) ([]models.Message, error) {
	messages := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ProjectID, &m.Sender, &m.Content, &m.MessageType,
			&m.Importance, &m.CreatedAt); err != nil {
			return nil, err
		}
		if keep != nil && !keep(&m) {
			continue
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
