// ABOUTME: Paginated fixed-width rendering of a project report
// ABOUTME: Wraps long lines at a column width and breaks the output into numbered pages
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/sisyph/mcoder/internal/models"
)

// DefaultPageLines is the number of body lines per page
const DefaultPageLines = 60

// Renderer produces a secondary rendering of a report
type Renderer interface {
	Render(w io.Writer, r *models.ProjectReport) error
	Ext() string
}

// PagedRenderer writes Markdown with one fenced block per page
type PagedRenderer struct {
	Width     int
	PageLines int
}

// NewPagedRenderer returns a renderer wrapping at width with pageLines lines per page
func NewPagedRenderer(width, pageLines int) *PagedRenderer {
	return &PagedRenderer{Width: width, PageLines: pageLines}
}

// Ext returns the file extension for paged reports
func (p *PagedRenderer) Ext() string {
	return ".md"
}

// Render writes the paginated report
func (p *PagedRenderer) Render(w io.Writer, r *models.ProjectReport) error {
	if p.Width <= 0 || p.PageLines <= 0 {
		return fmt.Errorf("invalid page geometry %dx%d", p.Width, p.PageLines)
	}

	var body []string
	for _, line := range textLines(r) {
		body = append(body, SplitLine(line, p.Width)...)
	}
	pages := paginate(body, p.PageLines)

	bw := bufio.NewWriter(w)
	_, _ = fmt.Fprintf(bw, "# Project Report #%d: %s\n\n", r.Project.ID, r.Project.Name)
	for i, page := range pages {
		fence := fenceFor(page)
		_, _ = fmt.Fprintf(bw, "## Page %d of %d\n\n%stext\n", i+1, len(pages), fence)
		for _, line := range page {
			_, _ = fmt.Fprintln(bw, line)
		}
		_, _ = fmt.Fprintf(bw, "%s\n\n", fence)
	}
	return bw.Flush()
}

// fenceFor returns a backtick fence longer than any backtick run in page
func fenceFor(page []string) string {
	longest := 0
	for _, line := range page {
		run := 0
		for _, r := range line {
			if r != '`' {
				run = 0
				continue
			}
			run++
			if run > longest {
				longest = run
			}
		}
	}
	if longest < 3 {
		return "```"
	}
	return strings.Repeat("`", longest+1)
}

// SplitLine hard-wraps a line into chunks of at most width runes. Embedded newlines
// start a new chunk. An empty line yields one empty chunk.
func SplitLine(line string, width int) []string {
	if width <= 0 {
		return []string{line}
	}

	var out []string
	for _, segment := range strings.Split(line, "\n") {
		runes := []rune(segment)
		if len(runes) == 0 {
			out = append(out, "")
			continue
		}
		for start := 0; start < len(runes); start += width {
			end := start + width
			if end > len(runes) {
				end = len(runes)
			}
			out = append(out, string(runes[start:end]))
		}
	}
	return out
}

func paginate(lines []string, perPage int) [][]string {
	if len(lines) == 0 {
		return [][]string{{}}
	}
	var pages [][]string
	for start := 0; start < len(lines); start += perPage {
		end := start + perPage
		if end > len(lines) {
			end = len(lines)
		}
		pages = append(pages, lines[start:end])
	}
	return pages
}
