// ABOUTME: YAML data dump of a project report
package report

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/sisyph/mcoder/internal/models"
)

// WriteYAML encodes the report data as YAML
func WriteYAML(w io.Writer, r *models.ProjectReport) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(r); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}
