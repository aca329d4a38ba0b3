package persona

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"
)

// Completer produces a text completion for a prompt. Satisfied by
// llm.Limiter.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxAttempts int) (string, error)
}

// Template describes the kind of user to generate personas for.
type Template struct {
	Role              string            `yaml:"role" json:"role"`
	ExperienceLevel   string            `yaml:"experience_level" json:"experience_level"`
	PrimaryGoal       string            `yaml:"primary_goal" json:"primary_goal"`
	Context           string            `yaml:"context" json:"context"`
	AdditionalDetails map[string]string `yaml:"additional_details,omitempty" json:"additional_details,omitempty"`
}

// Validate checks the template has the fields the generation prompt needs.
func (t Template) Validate() error {
	if strings.TrimSpace(t.Role) == "" {
		return fmt.Errorf("template role is required")
	}
	if strings.TrimSpace(t.PrimaryGoal) == "" {
		return fmt.Errorf("template primary goal is required")
	}
	return nil
}

// Generator creates persona variations from a template using the model.
type Generator struct {
	llm    Completer
	logger *slog.Logger
}

// NewGenerator creates a persona generator.
func NewGenerator(llm Completer, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{llm: llm, logger: logger}
}

// Generate asks the model for n distinct persona variations of the template.
// The model answers with one YAML document per persona; malformed documents
// are skipped. Fails only when no valid persona could be parsed.
func (g *Generator) Generate(ctx context.Context, tmpl Template, n int) ([]Persona, error) {
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	if n <= 0 {
		n = 1
	}

	details := "None"
	if len(tmpl.AdditionalDetails) > 0 {
		var sb strings.Builder
		for k, v := range tmpl.AdditionalDetails {
			fmt.Fprintf(&sb, "- %s: %s\n", k, v)
		}
		details = sb.String()
	}

	prompt := fmt.Sprintf(`Create %d distinct but related persona variations for:

Role: %s
Experience Level: %s
Primary Goal: %s
Context: %s

Additional Details:
%s

For each variation, provide:
1. Name
2. 5 specific interests related to their role and context
3. 5 concrete needs they have
4. 5 goals they want to achieve

Format each persona as YAML separated by "---", like this example (do not include the example in output):
name: "John Smith"
interests:
  - "Cloud architecture"
  - "DevOps practices"
needs:
  - "Flexible work hours"
  - "Remote collaboration tools"
goals:
  - "Find remote contract work"
  - "Build portfolio"
`, n, tmpl.Role, tmpl.ExperienceLevel, tmpl.PrimaryGoal, tmpl.Context, details)

	response, err := g.llm.Complete(ctx, prompt, 3)
	if err != nil {
		return nil, fmt.Errorf("generate personas: %w", err)
	}

	personas := parsePersonaDocs(response, g.logger)
	if len(personas) == 0 {
		return nil, fmt.Errorf("no valid personas in model response")
	}

	g.logger.Info("generated personas", "requested", n, "parsed", len(personas))
	return personas, nil
}

// parsePersonaDocs splits the response on "---" separators and parses each
// section as a YAML persona, skipping anything malformed or incomplete.
func parsePersonaDocs(response string, logger *slog.Logger) []Persona {
	var sections []string
	var current []string
	for _, line := range strings.Split(strings.TrimSpace(response), "\n") {
		if strings.TrimSpace(line) == "---" {
			if len(current) > 0 {
				sections = append(sections, strings.Join(current, "\n"))
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		sections = append(sections, strings.Join(current, "\n"))
	}

	var personas []Persona
	for _, section := range sections {
		if strings.TrimSpace(section) == "" {
			continue
		}

		var p Persona
		if err := yaml.Unmarshal([]byte(section), &p); err != nil {
			logger.Warn("skipping unparsable persona section", "error", err)
			continue
		}
		if p.Name == "" || len(p.Interests) == 0 || len(p.Needs) == 0 || len(p.Goals) == 0 {
			logger.Warn("skipping incomplete persona section", "name", p.Name)
			continue
		}
		personas = append(personas, p)
	}
	return personas
}
