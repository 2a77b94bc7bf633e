// ABOUTME: Report snapshot assembly for a single project
// ABOUTME: Gathers history, files, modules and recent security events in one pass
package sqlite

import (
	"fmt"
	"time"

	"github.com/sisyph/mcoder/internal/models"
)

// ReportVersion is the schema version of exported report data
const ReportVersion = "1.0"

// ReportLimits caps how much history and ledger data a snapshot includes
type ReportLimits struct {
	Messages       int
	SecurityEvents int
}

// DefaultReportLimits matches the report defaults
var DefaultReportLimits = ReportLimits{Messages: 1000, SecurityEvents: 1000}

// Snapshot collects the report data for a project. Messages keep History order
// (most recent first); security events are global, not project scoped.
func (s *Storage) Snapshot(projectID int64, limits ReportLimits) (*models.ProjectReport, error) {
	project, err := s.GetProject(projectID)
	if err != nil {
		return nil, err
	}

	messages, err := s.History(projectID, limits.Messages)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	files, err := s.ListFiles(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	modules, err := s.ListModules(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list modules: %w", err)
	}

	progress, err := s.BuildProgress(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute progress: %w", err)
	}

	events, err := s.RecentSecurityEvents(limits.SecurityEvents)
	if err != nil {
		return nil, fmt.Errorf("failed to get security events: %w", err)
	}

	return &models.ProjectReport{
		Version:        ReportVersion,
		GeneratedAt:    time.Now().UTC(),
		Tool:           "mcoder",
		Project:        *project,
		Messages:       messages,
		Files:          files,
		Modules:        modules,
		BuildProgress:  progress,
		SecurityEvents: events,
	}, nil
}
