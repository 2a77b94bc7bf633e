// ABOUTME: SQLite database schema for the project memory store
// ABOUTME: Tables, indexes and the versioned migration runner
package sqlite

import (
	"database/sql"
	"fmt"
)

// Schema contains the version 1 statements for database initialization
const Schema = `
CREATE TABLE IF NOT EXISTS projects (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT,
    status TEXT NOT NULL DEFAULT 'active',
    security_level TEXT NOT NULL DEFAULT 'LOW',
    created_at DATETIME NOT NULL,
    updated_at DATETIME NOT NULL
);

-- Messages are append-only; no UPDATE or DELETE is ever issued against them
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL REFERENCES projects(id),
    sender TEXT NOT NULL,
    content TEXT NOT NULL,
    message_type TEXT NOT NULL DEFAULT 'text',
    importance INTEGER NOT NULL DEFAULT 1,
    created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL REFERENCES projects(id),
    filename TEXT NOT NULL,
    file_path TEXT NOT NULL,
    file_size INTEGER NOT NULL,
    file_hash TEXT NOT NULL,
    uploaded_at DATETIME NOT NULL,
    security_scan TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS security_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    action TEXT NOT NULL,
    risk_level TEXT NOT NULL,
    details TEXT,
    timestamp DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS modules (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL REFERENCES projects(id),
    module_name TEXT NOT NULL,
    status TEXT NOT NULL,
    updated_at DATETIME NOT NULL,
    log TEXT,
    UNIQUE(project_id, module_name)
);

CREATE TABLE IF NOT EXISTS system_modules (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    module_name TEXT NOT NULL UNIQUE,
    status TEXT NOT NULL,
    updated_at DATETIME NOT NULL,
    log TEXT
);

CREATE TABLE IF NOT EXISTS system_status_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    module_name TEXT NOT NULL,
    status TEXT NOT NULL,
    updated_at DATETIME NOT NULL,
    log TEXT
);

CREATE TABLE IF NOT EXISTS memory_cache (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    key_hash TEXT NOT NULL UNIQUE,
    content TEXT NOT NULL,
    content_type TEXT,
    created_at DATETIME NOT NULL,
    last_accessed DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_messages_project ON messages(project_id, created_at);
CREATE INDEX IF NOT EXISTS idx_files_project ON files(project_id);
CREATE INDEX IF NOT EXISTS idx_security_log_timestamp ON security_log(timestamp);
CREATE INDEX IF NOT EXISTS idx_modules_project ON modules(project_id);
CREATE INDEX IF NOT EXISTS idx_system_history_module ON system_status_history(module_name, updated_at);
CREATE INDEX IF NOT EXISTS idx_cache_accessed ON memory_cache(last_accessed);
`

// SchemaVersion is the current schema version for migrations
const SchemaVersion = 1

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{version: 1, sql: Schema},
}

// migrate applies every migration newer than the recorded version, one transaction each
func migrate(db *sql.DB) error {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	if err := db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current); err != nil {
		return fmt.Errorf("read schema_migrations version: %w", err)
	}
	if current > SchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported version %d", current, SchemaVersion)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations(version) VALUES (?)`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
	}

	return nil
}
