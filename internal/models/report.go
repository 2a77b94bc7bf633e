// ABOUTME: ProjectReport is the data behind an exported project report
package models

import "time"

// ProjectReport collects everything a report renders for one project
type ProjectReport struct {
	Version        string          `json:"version" yaml:"version"`
	GeneratedAt    time.Time       `json:"generated_at" yaml:"generated_at"`
	Tool           string          `json:"tool" yaml:"tool"`
	Project        Project         `json:"project" yaml:"project"`
	Messages       []Message       `json:"messages" yaml:"messages"`
	Files          []FileRecord    `json:"files" yaml:"files"`
	Modules        []ModuleStatus  `json:"modules" yaml:"modules"`
	BuildProgress  float64         `json:"build_progress" yaml:"build_progress"`
	SecurityEvents []SecurityEvent `json:"security_events" yaml:"security_events"`
}
