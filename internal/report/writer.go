package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Writer persists reports as pretty-printed JSON under a base directory.
type Writer struct {
	dir string
}

// NewWriter returns a writer rooted at dir, creating it if needed.
func NewWriter(dir string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating reports dir: %w", err)
	}
	return &Writer{dir: dir}, nil
}

// WriteAnalysis saves a single persona report and returns the file path.
func (w *Writer) WriteAnalysis(r *AnalysisReport) (string, error) {
	name := fmt.Sprintf("%s_%s.json", slug(r.PersonaName), time.Now().Format(FileTimeLayout))
	return w.write(filepath.Join(w.dir, name), r)
}

// WriteFocusGroup saves a combined focus group report plus each
// individual report under a focus_group subdirectory.
func (w *Writer) WriteFocusGroup(r *FocusGroupReport) (string, error) {
	sub := filepath.Join(w.dir, "focus_group")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		return "", fmt.Errorf("creating focus group dir: %w", err)
	}

	stamp := time.Now().Format(FileTimeLayout)
	for _, individual := range r.IndividualReports {
		name := fmt.Sprintf("%s_%s.json", slug(individual.PersonaName), stamp)
		if _, err := w.write(filepath.Join(sub, name), individual); err != nil {
			return "", err
		}
	}

	return w.write(filepath.Join(sub, fmt.Sprintf("combined_%s.json", stamp)), r)
}

func (w *Writer) write(path string, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return path, nil
}

func slug(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "_")
	var b strings.Builder
	for _, r := range s {
		if r == '_' || r == '-' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "persona"
	}
	return b.String()
}
