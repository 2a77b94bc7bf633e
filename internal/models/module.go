// ABOUTME: Status ledgers for build modules, per project and system wide
// ABOUTME: System modules keep a full transition history next to the current row
package models

import (
	"errors"
	"strings"
	"time"
)

const (
	ModuleNotStarted = "not_started"
	ModuleInProgress = "in_progress"
	ModuleDone       = "done"
	ModuleFailed     = "failed"
)

// ModuleStatus is the current status of a build module inside a project
type ModuleStatus struct {
	ID         int64     `json:"id" yaml:"id"`
	ProjectID  int64     `json:"project_id" yaml:"project_id"`
	ModuleName string    `json:"module_name" yaml:"module_name"`
	Status     string    `json:"status" yaml:"status"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`
	Log        string    `json:"log,omitempty" yaml:"log,omitempty"`
}

// SystemModuleStatus is the current status of a system-wide module
type SystemModuleStatus struct {
	ID         int64     `json:"id" yaml:"id"`
	ModuleName string    `json:"module_name" yaml:"module_name"`
	Status     string    `json:"status" yaml:"status"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`
	Log        string    `json:"log,omitempty" yaml:"log,omitempty"`
}

// SystemStatusHistoryEntry is one recorded system module transition
type SystemStatusHistoryEntry struct {
	ID         int64     `json:"id" yaml:"id"`
	ModuleName string    `json:"module_name" yaml:"module_name"`
	Status     string    `json:"status" yaml:"status"`
	UpdatedAt  time.Time `json:"updated_at" yaml:"updated_at"`
	Log        string    `json:"log,omitempty" yaml:"log,omitempty"`
}

// ValidateModuleUpdate checks the name and status of a module update
func ValidateModuleUpdate(moduleName, status string) error {
	if strings.TrimSpace(moduleName) == "" {
		return errors.New("module name cannot be empty")
	}
	if strings.TrimSpace(status) == "" {
		return errors.New("module status cannot be empty")
	}
	return nil
}
