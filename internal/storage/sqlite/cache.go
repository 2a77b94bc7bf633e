// ABOUTME: Content cache storage for SQLite
// ABOUTME: Rows are keyed by the SHA-256 of the caller's key and pruned by last access
package sqlite

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/sisyph/mcoder/internal/models"
)

// CacheStore handles cached content persistence
type CacheStore struct {
	db *DB
}

// NewCacheStore creates a new CacheStore
func NewCacheStore(db *DB) *CacheStore {
	return &CacheStore{db: db}
}

// HashKey returns the hex SHA-256 used as the cache key
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Put stores content under key, replacing any previous entry
func (s *CacheStore) Put(key, content, contentType string) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO memory_cache (key_hash, content, content_type, created_at, last_accessed)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key_hash) DO UPDATE SET
			content = excluded.content,
			content_type = excluded.content_type,
			created_at = excluded.created_at,
			last_accessed = excluded.last_accessed
	`, HashKey(key), content, nullString(contentType), now, now)
	return err
}

// Get returns the entry for key and bumps its last access time, or nil when absent
func (s *CacheStore) Get(key string) (*models.CacheEntry, error) {
	var (
		e           models.CacheEntry
		contentType sql.NullString
	)
	hash := HashKey(key)

	err := s.db.QueryRow(`
		SELECT key_hash, content, content_type, created_at, last_accessed
		FROM memory_cache
		WHERE key_hash = ?
	`, hash).Scan(&e.KeyHash, &e.Content, &contentType, &e.CreatedAt, &e.LastAccessed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.ContentType = contentType.String

	now := time.Now().UTC()
	if _, err := s.db.Exec(`UPDATE memory_cache SET last_accessed = ? WHERE key_hash = ?`, now, hash); err != nil {
		return nil, err
	}
	e.LastAccessed = now
	return &e, nil
}

// Prune deletes entries not accessed since cutoff and returns how many were removed
func (s *CacheStore) Prune(cutoff time.Time) (int64, error) {
	result, err := s.db.Exec(`DELETE FROM memory_cache WHERE last_accessed < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Count returns the number of cached entries
func (s *CacheStore) Count() (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM memory_cache`).Scan(&n)
	return n, err
}
