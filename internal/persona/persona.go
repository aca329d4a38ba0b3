// Package persona defines synthetic user profiles and their sources:
// YAML config files and LLM-generated template variations.
package persona

import (
	"fmt"
	"strings"
)

// Persona is a synthetic user profile driving navigation and scoring.
// Read-only for the lifetime of an analysis run.
type Persona struct {
	Name      string   `yaml:"name" json:"name"`
	Interests []string `yaml:"interests" json:"interests"`
	Needs     []string `yaml:"needs" json:"needs"`
	Goals     []string `yaml:"goals" json:"goals"`
}

// Validate checks that the persona is usable for an analysis run.
// A persona without needs is rejected because information coverage is
// computed as covered needs over total needs.
func (p Persona) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("persona name is required")
	}
	if len(p.Needs) == 0 {
		return fmt.Errorf("persona %q has no needs", p.Name)
	}
	return nil
}

// WantsVisualAnalysis reports whether any goal asks for visual analysis.
// Screenshots are only sent to the model for such personas.
func (p Persona) WantsVisualAnalysis() bool {
	for _, goal := range p.Goals {
		if strings.Contains(strings.ToLower(goal), "visual") {
			return true
		}
	}
	return false
}

// FileSlug returns the persona name in a form usable in file names.
func (p Persona) FileSlug() string {
	return strings.ReplaceAll(strings.ToLower(p.Name), " ", "_")
}
