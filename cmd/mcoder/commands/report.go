// ABOUTME: CLI command to export a project report to disk
// ABOUTME: Writes plain text plus optional paginated Markdown and YAML files
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sisyph/mcoder/internal/report"
)

var (
	reportDir    string
	reportYAML   bool
	reportNoRich bool
)

// NewReportCmd creates the report command
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report [project-id]",
		Short: "Export a project report",
		Long: `Export a project's metadata, message log, files, modules and the recent
security log to report files.

The plain text report is always written. A paginated Markdown rendering is
written too unless disabled, and --yaml adds a machine-readable dump.
A failure in the optional renderings is logged and skipped.

Examples:
  mcoder report 1
  mcoder report 1 --dir ./reports --yaml
  mcoder report 1 --no-rich`,
		Args: cobra.ExactArgs(1),
		RunE: runReport,
	}

	cmd.Flags().StringVar(&reportDir, "dir", "", "Output directory (default from config)")
	cmd.Flags().BoolVar(&reportYAML, "yaml", false, "Also write a YAML data dump")
	cmd.Flags().BoolVar(&reportNoRich, "no-rich", false, "Skip the paginated rendering")

	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0], "project id")
	if err != nil {
		return err
	}

	s, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	exporter := newExporter(s)
	if reportDir != "" {
		exporter.Dir = reportDir
	}
	if reportYAML {
		exporter.WriteYAML = true
	}
	if reportNoRich {
		exporter.Rich = nil
	}

	result, err := exporter.Export(id)
	if err != nil {
		return err
	}

	if jsonOutput() {
		return printJSON(cmd.OutOrStdout(), result)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n", result.TextPath)
	if result.RichPath != "" {
		fmt.Fprintf(out, "%s\n", result.RichPath)
	}
	if result.YAMLPath != "" {
		fmt.Fprintf(out, "%s\n", result.YAMLPath)
	}
	return nil
}

// newExporter builds an exporter from the session's report settings
func newExporter(s *session) *report.Exporter {
	rc := s.cfg.Report
	exporter := report.NewExporter(s.store, rc.Dir)
	exporter.Limits = s.cfg.ReportLimits()
	exporter.WriteYAML = rc.YAML
	exporter.Logger = s.logger
	if rc.Rich {
		exporter.Rich = report.NewPagedRenderer(rc.Wrap, rc.PageLines)
	} else {
		exporter.Rich = nil
	}
	return exporter
}
