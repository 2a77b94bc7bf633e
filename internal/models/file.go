// ABOUTME: FileRecord holds metadata and an integrity hash for an uploaded file
// ABOUTME: Records are immutable once inserted
package models

import "time"

// MaxFileSize is the hard ceiling for registered files (50 MiB)
const MaxFileSize int64 = 50 * 1024 * 1024

// FileRecord represents a registered file
type FileRecord struct {
	ID           int64     `json:"id" yaml:"id"`
	ProjectID    int64     `json:"project_id" yaml:"project_id"`
	Filename     string    `json:"filename" yaml:"filename"`
	SourcePath   string    `json:"source_path" yaml:"source_path"`
	SizeBytes    int64     `json:"size_bytes" yaml:"size_bytes"`
	ContentHash  string    `json:"content_hash" yaml:"content_hash"`
	UploadedAt   time.Time `json:"uploaded_at" yaml:"uploaded_at"`
	SecurityScan RiskLevel `json:"security_scan" yaml:"security_scan"`
}
