// ABOUTME: Unified Storage layer that wraps all SQLite stores
// ABOUTME: Every content write is screened by the classifier and recorded in the security ledger
package sqlite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sisyph/mcoder/internal/classifier"
	"github.com/sisyph/mcoder/internal/errs"
	"github.com/sisyph/mcoder/internal/models"
)

// Ledger actions
const (
	ActionCreateProject = "create_project"
	ActionAddMessage    = "add_message"
	ActionAddFile       = "add_file"
	ActionAnalyzeCode   = "analyze_code"
)

// Storage is the project memory store. It owns one database handle for its lifetime.
type Storage struct {
	db            *DB
	projects      *ProjectStore
	messages      *MessageStore
	files         *FileStore
	security      *SecurityStore
	modules       *ModuleStore
	systemModules *SystemModuleStore
	cache         *CacheStore
	classifier    classifier.Classifier
	logger        *slog.Logger
	onVerdict     VerdictHook
	mu            sync.Mutex
}

// VerdictHook observes every recorded classification
type VerdictHook func(action string, verdict models.Verdict)

// NewStorage initializes storage at the default database path
func NewStorage() (*Storage, error) {
	return NewStorageWithPath(DefaultDBPath())
}

// NewStorageWithPath initializes storage with a custom database path
func NewStorageWithPath(dbPath string) (*Storage, error) {
	db, err := Open(dbPath)
	if err != nil {
		return nil, errs.StorageUnavailable(err, "open database")
	}
	return newStorage(db), nil
}

// NewStorageInMemory creates an in-memory storage (for testing)
func NewStorageInMemory() (*Storage, error) {
	db, err := OpenInMemory()
	if err != nil {
		return nil, errs.StorageUnavailable(err, "open in-memory database")
	}
	return newStorage(db), nil
}

func newStorage(db *DB) *Storage {
	return &Storage{
		db:            db,
		projects:      NewProjectStore(db),
		messages:      NewMessageStore(db),
		files:         NewFileStore(db),
		security:      NewSecurityStore(db),
		modules:       NewModuleStore(db),
		systemModules: NewSystemModuleStore(db),
		cache:         NewCacheStore(db),
		classifier:    classifier.New(),
		logger:        slog.New(slog.DiscardHandler),
	}
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database file path
func (s *Storage) Path() string {
	return s.db.Path()
}

// Ping checks that the database still answers
func (s *Storage) Ping(ctx context.Context) error {
	if err := s.db.Conn().PingContext(ctx); err != nil {
		return errs.StorageUnavailable(err, "ping database")
	}
	return nil
}

// SetLogger sets the operational logger
func (s *Storage) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// SetClassifier replaces the content classifier
func (s *Storage) SetClassifier(c classifier.Classifier) {
	if c != nil {
		s.classifier = c
	}
}

// SetVerdictHook registers fn to observe each verdict after it reaches the ledger
func (s *Storage) SetVerdictHook(fn VerdictHook) {
	s.onVerdict = fn
}

// fail mirrors err into the operational log and returns it, wrapping raw database errors
func (s *Storage) fail(op string, err error, attrs ...any) error {
	return s.logFailure(op, errs.StorageUnavailable(err, op), attrs...)
}

// logFailure records err in the operational log and returns it unchanged
func (s *Storage) logFailure(op string, err error, attrs ...any) error {
	s.logger.Error("storage operation failed", append([]any{"op", op, "err", err}, attrs...)...)
	return err
}

// screen classifies content and records the verdict. A ledger failure is returned, never dropped.
func (s *Storage) screen(action, content, kind string) (models.Verdict, error) {
	verdict := s.classifier.Classify(content, kind)
	if _, err := s.security.Record(action, verdict.RiskLevel, classifier.Describe(kind, verdict)); err != nil {
		return verdict, s.fail("record security event", err, "action", action)
	}
	if s.onVerdict != nil {
		s.onVerdict(action, verdict)
	}
	if !verdict.Accepted {
		s.logger.Warn("content flagged", "action", action, "risk", verdict.RiskLevel, "factors", verdict.Factors)
	}
	return verdict, nil
}

func (s *Storage) requireProject(op string, id int64) error {
	ok, err := s.projects.Exists(id)
	if err != nil {
		return s.fail(op, err, "project_id", id)
	}
	if !ok {
		err := errs.NotFound("project %d not found", id)
		s.logger.Info("project not found", "op", op, "project_id", id)
		return err
	}
	return nil
}

// CreateProject classifies name and description and inserts the project when accepted.
// Rejected content fails with a policy violation; the ledger entry is written either way.
func (s *Storage) CreateProject(name, description string) (int64, error) {
	if err := models.ValidateProjectName(name); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	verdict, err := s.screen(ActionCreateProject, name+" "+description, classifier.KindText)
	if err != nil {
		return 0, err
	}
	if !verdict.Accepted {
		return 0, errs.PolicyViolation(fmt.Sprintf("project %q rejected", name), verdict.Factors)
	}

	p := &models.Project{
		Name:          name,
		Description:   description,
		Status:        models.ProjectStatusActive,
		SecurityLevel: verdict.RiskLevel,
	}
	id, err := s.projects.Insert(p)
	if err != nil {
		return 0, s.fail("insert project", err, "name", name)
	}
	s.logger.Info("project created", "project_id", id, "name", name)
	return id, nil
}

// GetProject returns the project row
func (s *Storage) GetProject(id int64) (*models.Project, error) {
	p, err := s.projects.GetByID(id)
	if err != nil {
		return nil, s.fail("get project", err, "project_id", id)
	}
	if p == nil {
		return nil, errs.NotFound("project %d not found", id)
	}
	return p, nil
}

// GetProjectStatus returns the project with live message and file counts
func (s *Storage) GetProjectStatus(id int64) (*models.ProjectStatus, error) {
	st, err := s.projects.Status(id)
	if err != nil {
		return nil, s.fail("get project status", err, "project_id", id)
	}
	if st == nil {
		return nil, errs.NotFound("project %d not found", id)
	}
	return st, nil
}

// ListProjects returns every project, newest first
func (s *Storage) ListProjects() ([]models.Project, error) {
	projects, err := s.projects.List()
	if err != nil {
		return nil, s.fail("list projects", err)
	}
	return projects, nil
}

// SetProjectStatus relabels a project. Projects are never deleted.
func (s *Storage) SetProjectStatus(id int64, status string) error {
	if strings.TrimSpace(status) == "" {
		return fmt.Errorf("status cannot be empty")
	}
	ok, err := s.projects.UpdateStatus(id, status)
	if err != nil {
		return s.fail("set project status", err, "project_id", id)
	}
	if !ok {
		return errs.NotFound("project %d not found", id)
	}
	return nil
}

// BuildProgress returns done/total*100 over the project's current modules, 0 with no modules
func (s *Storage) BuildProgress(projectID int64) (float64, error) {
	if err := s.requireProject("build progress", projectID); err != nil {
		return 0, err
	}
	done, total, err := s.modules.Progress(projectID)
	if err != nil {
		return 0, s.fail("build progress", err, "project_id", projectID)
	}
	return progressPercent(done, total), nil
}

func progressPercent(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}

// AddMessage appends a message to a project's log. The content is classified and the
// verdict recorded, but the message is stored regardless of the verdict.
func (s *Storage) AddMessage(projectID int64, sender, content, messageType string, importance int) (*models.Message, error) {
	msg, err := models.NewMessage(projectID, sender, content, messageType, importance)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireProject("add message", projectID); err != nil {
		return nil, err
	}
	if _, err := s.screen(ActionAddMessage, msg.Content, msg.MessageType); err != nil {
		return nil, err
	}
	if _, err := s.messages.Append(msg); err != nil {
		return nil, s.fail("append message", err, "project_id", projectID)
	}
	return msg, nil
}

// History returns up to limit messages for a project, most recent first
func (s *Storage) History(projectID int64, limit int) ([]models.Message, error) {
	if err := s.requireProject("history", projectID); err != nil {
		return nil, err
	}
	messages, err := s.messages.History(projectID, limit)
	if err != nil {
		return nil, s.fail("history", err, "project_id", projectID)
	}
	return messages, nil
}

// SearchMessages returns every message containing query, case-insensitively, ranked by
// importance then recency. projectID of zero searches every project.
func (s *Storage) SearchMessages(query string, projectID int64) ([]models.Message, error) {
	if projectID > 0 {
		if err := s.requireProject("search", projectID); err != nil {
			return nil, err
		}
	}
	messages, err := s.messages.Search(query, projectID)
	if err != nil {
		return nil, s.fail("search messages", err, "query", query)
	}
	return messages, nil
}

// AddFile registers a file with its SHA-256 digest. Missing paths and files over the size
// ceiling are rejected; a flagged descriptor is recorded but does not block the insert.
func (s *Storage) AddFile(projectID int64, sourcePath string) (bool, error) {
	info, err := os.Stat(sourcePath)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Info("file not found", "op", "add file", "path", sourcePath)
			return false, errs.NotFound("file %s not found", sourcePath)
		}
		return false, s.logFailure("add file", fmt.Errorf("stat %s: %w", sourcePath, err), "path", sourcePath)
	}
	if !info.Mode().IsRegular() {
		return false, errs.NotFound("%s is not a regular file", sourcePath)
	}
	if info.Size() > models.MaxFileSize {
		s.logger.Warn("file exceeds size limit", "path", sourcePath, "size", info.Size(), "limit", models.MaxFileSize)
		return false, errs.SizeLimitExceeded("file %s is %d bytes, limit is %d", sourcePath, info.Size(), models.MaxFileSize)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireProject("add file", projectID); err != nil {
		return false, err
	}

	hash, size, err := HashFile(sourcePath)
	if err != nil {
		return false, s.logFailure("add file", fmt.Errorf("hash %s: %w", sourcePath, err), "path", sourcePath)
	}

	verdict, err := s.screen(ActionAddFile, "file:"+sourcePath, classifier.KindFile)
	if err != nil {
		return false, err
	}

	record := &models.FileRecord{
		ProjectID:    projectID,
		Filename:     filepath.Base(sourcePath),
		SourcePath:   sourcePath,
		SizeBytes:    size,
		ContentHash:  hash,
		SecurityScan: verdict.RiskLevel,
	}
	if _, err := s.files.Insert(record); err != nil {
		return false, s.fail("insert file", err, "project_id", projectID, "path", sourcePath)
	}
	return true, nil
}

// ListFiles returns a project's registered files
func (s *Storage) ListFiles(projectID int64) ([]models.FileRecord, error) {
	if err := s.requireProject("list files", projectID); err != nil {
		return nil, err
	}
	files, err := s.files.ListByProject(projectID)
	if err != nil {
		return nil, s.fail("list files", err, "project_id", projectID)
	}
	return files, nil
}

// HashFile streams a file through SHA-256 and returns the hex digest and byte count
func HashFile(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, err
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// AnalyzeContent classifies content produced outside the store and records the verdict
func (s *Storage) AnalyzeContent(action, content, kind string) (models.Verdict, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.screen(action, content, kind)
}

// RecordSecurityEvent appends a ledger row directly
func (s *Storage) RecordSecurityEvent(action string, level models.RiskLevel, details string) (*models.SecurityEvent, error) {
	if !level.Valid() {
		return nil, fmt.Errorf("invalid risk level %q", level)
	}
	event, err := s.security.Record(action, level, details)
	if err != nil {
		return nil, s.fail("record security event", err, "action", action)
	}
	return event, nil
}

// RecentSecurityEvents returns up to limit ledger rows, most recent first
func (s *Storage) RecentSecurityEvents(limit int) ([]models.SecurityEvent, error) {
	events, err := s.security.Recent(limit)
	if err != nil {
		return nil, s.fail("recent security events", err)
	}
	return events, nil
}

// SetModuleStatus upserts a project module row in place
func (s *Storage) SetModuleStatus(projectID int64, moduleName, status, log string) (*models.ModuleStatus, error) {
	if err := models.ValidateModuleUpdate(moduleName, status); err != nil {
		return nil, err
	}
	if err := s.requireProject("set module status", projectID); err != nil {
		return nil, err
	}
	m, err := s.modules.Upsert(projectID, moduleName, status, log)
	if err != nil {
		return nil, s.fail("set module status", err, "project_id", projectID, "module", moduleName)
	}
	return m, nil
}

// ListModules returns a project's current module rows
func (s *Storage) ListModules(projectID int64) ([]models.ModuleStatus, error) {
	if err := s.requireProject("list modules", projectID); err != nil {
		return nil, err
	}
	modules, err := s.modules.ListByProject(projectID)
	if err != nil {
		return nil, s.fail("list modules", err, "project_id", projectID)
	}
	return modules, nil
}

// SetSystemModuleStatus upserts the current row and appends a history entry, on every call
func (s *Storage) SetSystemModuleStatus(moduleName, status, log string) (*models.SystemModuleStatus, error) {
	if err := models.ValidateModuleUpdate(moduleName, status); err != nil {
		return nil, err
	}
	m, err := s.systemModules.Upsert(moduleName, status, log)
	if err != nil {
		return nil, s.fail("set system module status", err, "module", moduleName)
	}
	s.logger.Debug("system module updated", "module", moduleName, "status", status)
	return m, nil
}

// ListSystemModules returns every current system module row
func (s *Storage) ListSystemModules() ([]models.SystemModuleStatus, error) {
	modules, err := s.systemModules.List()
	if err != nil {
		return nil, s.fail("list system modules", err)
	}
	return modules, nil
}

// SystemStatusHistory returns transitions, most recent first. Empty moduleName means all modules.
func (s *Storage) SystemStatusHistory(moduleName string, limit int) ([]models.SystemStatusHistoryEntry, error) {
	entries, err := s.systemModules.History(moduleName, limit)
	if err != nil {
		return nil, s.fail("system status history", err, "module", moduleName)
	}
	return entries, nil
}

// CachePut stores content under key
func (s *Storage) CachePut(key, content, contentType string) error {
	if err := s.cache.Put(key, content, contentType); err != nil {
		return s.fail("cache put", err)
	}
	return nil
}

// CacheGet returns cached content for key, or nil when absent
func (s *Storage) CacheGet(key string) (*models.CacheEntry, error) {
	e, err := s.cache.Get(key)
	if err != nil {
		return nil, s.fail("cache get", err)
	}
	return e, nil
}

// CachePrune evicts entries not accessed within maxAge
func (s *Storage) CachePrune(maxAge time.Duration) (int64, error) {
	n, err := s.cache.Prune(time.Now().Add(-maxAge))
	if err != nil {
		return 0, s.fail("cache prune", err)
	}
	return n, nil
}

// CacheCount returns the number of cache entries
func (s *Storage) CacheCount() (int, error) {
	n, err := s.cache.Count()
	if err != nil {
		return 0, s.fail("cache count", err)
	}
	return n, nil
}
