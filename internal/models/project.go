// ABOUTME: Project is the root entity that owns messages, files and modules
// ABOUTME: Projects are never deleted, only retired by changing their status label
package models

import (
	"errors"
	"strings"
	"time"
)

const (
	// ProjectStatusActive is the status assigned at creation
	ProjectStatusActive = "active"
	// ProjectStatusArchived is the conventional label for a retired project
	ProjectStatusArchived = "archived"
)

// Project represents a tracked project
type Project struct {
	ID            int64     `json:"id" yaml:"id"`
	Name          string    `json:"name" yaml:"name"`
	Description   string    `json:"description" yaml:"description"`
	Status        string    `json:"status" yaml:"status"`
	SecurityLevel RiskLevel `json:"security_level" yaml:"security_level"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" yaml:"updated_at"`
}

// ProjectStatus is a project plus counts derived from its child rows at query time
type ProjectStatus struct {
	ID           int64     `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	Description  string    `json:"description" yaml:"description"`
	Status       string    `json:"status" yaml:"status"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	MessageCount int       `json:"message_count" yaml:"message_count"`
	FileCount    int       `json:"file_count" yaml:"file_count"`
}

// ValidateProjectName rejects blank names
func ValidateProjectName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("project name cannot be empty")
	}
	return nil
}
