package persona

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

type fixedCompleter struct {
	response string
	err      error
	prompt   string
}

func (c *fixedCompleter) Complete(ctx context.Context, prompt string, maxAttempts int) (string, error) {
	c.prompt = prompt
	return c.response, c.err
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

const generatedResponse = `name: "Dana"
interests:
  - "API design"
needs:
  - "clear pricing"
goals:
  - "evaluate for the team"
---
This line is not YAML at all: [
---
name: "Incomplete"
interests:
  - "something"
needs: []
goals: []
---
name: "Bob"
interests:
  - "cost control"
needs:
  - "enterprise plan details"
goals:
  - "compare vendors"
`

func TestGenerate(t *testing.T) {
	llm := &fixedCompleter{response: generatedResponse}
	gen := NewGenerator(llm, discard())

	tmpl := Template{
		Role:        "backend developer",
		PrimaryGoal: "evaluate the product",
		Context:     "team of five",
	}
	personas, err := gen.Generate(context.Background(), tmpl, 2)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	// Malformed and incomplete sections are skipped.
	if len(personas) != 2 {
		t.Fatalf("Generate() returned %d personas, want 2: %+v", len(personas), personas)
	}
	if personas[0].Name != "Dana" || personas[1].Name != "Bob" {
		t.Errorf("names = %q, %q, want Dana, Bob", personas[0].Name, personas[1].Name)
	}

	if !strings.Contains(llm.prompt, "backend developer") {
		t.Errorf("prompt missing role: %q", llm.prompt)
	}
	if !strings.Contains(llm.prompt, "2 distinct") {
		t.Errorf("prompt missing count: %q", llm.prompt)
	}
}

func TestGenerate_InvalidTemplate(t *testing.T) {
	gen := NewGenerator(&fixedCompleter{}, discard())

	if _, err := gen.Generate(context.Background(), Template{PrimaryGoal: "x"}, 1); err == nil {
		t.Error("Generate() with no role succeeded, want error")
	}
	if _, err := gen.Generate(context.Background(), Template{Role: "dev"}, 1); err == nil {
		t.Error("Generate() with no goal succeeded, want error")
	}
}

func TestGenerate_CompletionFailure(t *testing.T) {
	llm := &fixedCompleter{err: errors.New("model unavailable")}
	gen := NewGenerator(llm, discard())

	tmpl := Template{Role: "dev", PrimaryGoal: "evaluate"}
	if _, err := gen.Generate(context.Background(), tmpl, 1); err == nil {
		t.Error("Generate() succeeded despite completion failure")
	}
}

func TestGenerate_NoUsableSections(t *testing.T) {
	llm := &fixedCompleter{response: "Sorry, I cannot help with that."}
	gen := NewGenerator(llm, discard())

	tmpl := Template{Role: "dev", PrimaryGoal: "evaluate"}
	_, err := gen.Generate(context.Background(), tmpl, 1)
	if err == nil || !strings.Contains(err.Error(), "no valid personas") {
		t.Errorf("Generate() error = %v, want no valid personas", err)
	}
}

func TestParsePersonaDocs_SingleDoc(t *testing.T) {
	doc := `name: "Solo"
interests: ["a"]
needs: ["b"]
goals: ["c"]`
	personas := parsePersonaDocs(doc, discard())
	if len(personas) != 1 || personas[0].Name != "Solo" {
		t.Errorf("parsePersonaDocs() = %+v, want single Solo persona", personas)
	}
}
