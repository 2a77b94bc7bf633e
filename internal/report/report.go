// ABOUTME: Report exporter that writes a project report to disk
// ABOUTME: Plain text is always written; the paginated rendering and YAML dump are optional
package report

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sisyph/mcoder/internal/models"
	"github.com/sisyph/mcoder/internal/storage/sqlite"
)

// DefaultWrapWidth is the column width used by fixed-width renderings
const DefaultWrapWidth = 110

// Source provides report data
type Source interface {
	Snapshot(projectID int64, limits sqlite.ReportLimits) (*models.ProjectReport, error)
}

// Result lists the files an export produced. RichPath and YAMLPath are empty when skipped.
type Result struct {
	TextPath string `json:"text_path"`
	RichPath string `json:"rich_path,omitempty"`
	YAMLPath string `json:"yaml_path,omitempty"`
}

// Exporter writes project reports into Dir
type Exporter struct {
	source    Source
	Dir       string
	Limits    sqlite.ReportLimits
	Rich      Renderer
	WriteYAML bool
	Logger    *slog.Logger
	now       func() time.Time
}

// NewExporter returns an exporter writing into dir with the paginated renderer enabled
func NewExporter(source Source, dir string) *Exporter {
	return &Exporter{
		source: source,
		Dir:    dir,
		Limits: sqlite.DefaultReportLimits,
		Rich:   NewPagedRenderer(DefaultWrapWidth, DefaultPageLines),
		Logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
}

// Export writes the report for projectID. Only the plain text file is required; a failing
// rich rendering or YAML dump is logged and skipped.
func (e *Exporter) Export(projectID int64) (*Result, error) {
	data, err := e.source.Snapshot(projectID, e.Limits)
	if err != nil {
		return nil, err
	}

	if e.Dir != "" {
		if err := os.MkdirAll(e.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	base := filepath.Join(e.Dir, e.baseName(projectID))

	result := &Result{TextPath: base + ".txt"}
	if err := writeFile(result.TextPath, func(f *os.File) error { return WriteText(f, data) }); err != nil {
		e.logger().Error("text report failed", "project_id", projectID, "err", err)
		return nil, fmt.Errorf("failed to write text report: %w", err)
	}
	e.logger().Info("exported text report", "project_id", projectID, "path", result.TextPath)

	if e.Rich != nil {
		richPath := base + e.Rich.Ext()
		if err := writeFile(richPath, func(f *os.File) error { return e.Rich.Render(f, data) }); err != nil {
			_ = os.Remove(richPath)
			e.logger().Warn("rich report skipped", "project_id", projectID, "err", err)
		} else {
			result.RichPath = richPath
		}
	}

	if e.WriteYAML {
		yamlPath := base + ".yaml"
		if err := writeFile(yamlPath, func(f *os.File) error { return WriteYAML(f, data) }); err != nil {
			_ = os.Remove(yamlPath)
			e.logger().Warn("yaml dump skipped", "project_id", projectID, "err", err)
		} else {
			result.YAMLPath = yamlPath
		}
	}

	return result, nil
}

// baseName is project_report_<id>_<timestamp>_<suffix>; the suffix keeps two exports in
// the same second apart
func (e *Exporter) baseName(projectID int64) string {
	now := time.Now
	if e.now != nil {
		now = e.now
	}
	return fmt.Sprintf("project_report_%d_%s_%s",
		projectID, now().Format("20060102_150405"), uuid.New().String()[:8])
}

func (e *Exporter) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return e.Logger
}

func writeFile(path string, fn func(f *os.File) error) error {
	f, err := os.Create(path) // #nosec G304
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
