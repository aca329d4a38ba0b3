package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/sitepanel/sitepanel/internal/analysis"
)

func sampleReport() *AnalysisReport {
	mem := analysis.NewMemory()
	mem.Record("https://example.com", analysis.PageAnalysis{
		URL:               "https://example.com",
		Summary:           "Landing page.",
		Likes:             []string{"clear layout"},
		Dislikes:          []string{"slow"},
		ClickReasons:      []string{"find pricing"},
		NextExpectations:  []string{"pricing table"},
		VisualAnalysis:    []string{"blue hero"},
		OverallImpression: "Decent start.",
	}, 0.4, 0.5)
	mem.Record("https://example.com/pricing", analysis.PageAnalysis{
		URL:     "https://example.com/pricing",
		Summary: "Pricing page.",
	}, 0.6, 0.5)
	mem.RecordCTA("demo")

	return New("Data Dana", "https://example.com",
		"Gathered sufficient information", "Solid site overall.", 1.0, mem)
}

func TestReportRoundTrip(t *testing.T) {
	r := sampleReport()

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got AnalysisReport
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !reflect.DeepEqual(&got, r) {
		t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", &got, r)
	}
}

func TestReportFieldNames(t *testing.T) {
	data, err := json.Marshal(sampleReport())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	for _, key := range []string{
		"persona_name", "start_url", "timestamp", "pages_analyzed",
		"navigation_path", "exit_reason", "information_coverage",
		"found_ctas", "final_conclusion",
	} {
		if _, ok := raw[key]; !ok {
			t.Errorf("missing top-level field %q", key)
		}
	}
	if _, ok := raw["error"]; ok {
		t.Error("error field should be omitted on success")
	}

	pages, ok := raw["pages_analyzed"].([]any)
	if !ok || len(pages) != 2 {
		t.Fatalf("pages_analyzed = %v", raw["pages_analyzed"])
	}
	page := pages[0].(map[string]any)
	for _, key := range []string{
		"url", "summary", "likes", "dislikes", "click_reasons",
		"next_expectations", "visual_analysis", "overall_impression",
	} {
		if _, ok := page[key]; !ok {
			t.Errorf("missing page field %q", key)
		}
	}

	steps := raw["navigation_path"].([]any)
	step := steps[0].(map[string]any)
	if step["url"] != "https://example.com" || step["reason"] != "Initial page" {
		t.Errorf("navigation_path[0] = %v", step)
	}
}

func TestWriter(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}

	path, err := w.WriteAnalysis(sampleReport())
	if err != nil {
		t.Fatalf("WriteAnalysis() error = %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "data_dana_") {
		t.Errorf("unexpected filename %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	var got AnalysisReport
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("written file is not valid JSON: %v", err)
	}
	if got.PersonaName != "Data Dana" {
		t.Errorf("PersonaName = %q", got.PersonaName)
	}
}

func TestWriter_FocusGroup(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}

	fg := &FocusGroupReport{
		URL:               "https://example.com",
		NumPersonas:       1,
		IndividualReports: []*AnalysisReport{sampleReport()},
		Status:            StatusComplete,
	}
	path, err := w.WriteFocusGroup(fg)
	if err != nil {
		t.Fatalf("WriteFocusGroup() error = %v", err)
	}
	if filepath.Dir(path) != filepath.Join(dir, "focus_group") {
		t.Errorf("combined report written to %q", path)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "focus_group"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d files in focus_group dir, want combined + individual", len(entries))
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Data Dana", "data_dana"},
		{"  Büro Chef!  ", "bro_chef"},
		{"!!!", "persona"},
	}
	for _, tt := range tests {
		if got := slug(tt.in); got != tt.want {
			t.Errorf("slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
