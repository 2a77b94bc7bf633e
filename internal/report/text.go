// ABOUTME: Plain text rendering of a project report
// ABOUTME: Header, then messages, files and security events sections
package report

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/sisyph/mcoder/internal/models"
)

const timeLayout = "2006-01-02 15:04:05"

// WriteText renders the report as plain text
func WriteText(w io.Writer, r *models.ProjectReport) error {
	bw := bufio.NewWriter(w)
	for _, line := range textLines(r) {
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// textLines is shared by the text and paginated renderings so both carry the same content
func textLines(r *models.ProjectReport) []string {
	p := r.Project
	lines := []string{
		fmt.Sprintf("=== PROJECT REPORT #%d ===", p.ID),
		fmt.Sprintf("Name: %s", p.Name),
		fmt.Sprintf("Description: %s", p.Description),
		fmt.Sprintf("Status: %s", p.Status),
		fmt.Sprintf("Created: %s", formatTime(p.CreatedAt)),
		fmt.Sprintf("Build progress: %.1f%%", r.BuildProgress),
		"",
		fmt.Sprintf("--- MESSAGES (%d) ---", len(r.Messages)),
	}
	for _, m := range r.Messages {
		lines = append(lines, FormatMessage(m))
	}

	lines = append(lines, "", fmt.Sprintf("--- FILES (%d) ---", len(r.Files)))
	for _, f := range r.Files {
		lines = append(lines, fmt.Sprintf("%s | %s | %d bytes | %s | %s",
			f.Filename, f.SourcePath, f.SizeBytes, formatTime(f.UploadedAt), f.SecurityScan))
	}

	if len(r.Modules) > 0 {
		lines = append(lines, "", fmt.Sprintf("--- MODULES (%d) ---", len(r.Modules)))
		for _, m := range r.Modules {
			lines = append(lines, fmt.Sprintf("%s | %s | %s", m.ModuleName, m.Status, formatTime(m.UpdatedAt)))
		}
	}

	lines = append(lines, "", fmt.Sprintf("--- SECURITY EVENTS (%d) ---", len(r.SecurityEvents)))
	for _, ev := range r.SecurityEvents {
		lines = append(lines, fmt.Sprintf("[%s] %s | %s | %s",
			formatTime(ev.Timestamp), ev.Action, ev.RiskLevel, ev.Details))
	}
	return lines
}

// FormatMessage renders one message as a report line
func FormatMessage(m models.Message) string {
	return fmt.Sprintf("[%s] %s (%s): %s", formatTime(m.CreatedAt), m.Sender, m.MessageType, m.Content)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(timeLayout)
}
