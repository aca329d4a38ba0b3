package analysis

import (
	"fmt"
	"reflect"
	"testing"
)

func TestMemory_Record(t *testing.T) {
	m := NewMemory()

	first := PageAnalysis{
		URL:          "https://example.com",
		Summary:      "Landing page.",
		Likes:        []string{"clean design"},
		Dislikes:     []string{"slow load"},
		ClickReasons: []string{"find pricing"},
	}
	m.Record("https://example.com", first, 0.4, 0.5)

	second := PageAnalysis{
		URL:          "https://example.com/pricing",
		Summary:      "Pricing page.",
		ClickReasons: []string{"compare plans"},
	}
	m.Record("https://example.com/pricing", second, 0.6, 1.0)

	if !m.Visited("https://example.com") || m.Visited("https://example.com/other") {
		t.Error("Visited() wrong")
	}

	wantPath := []PathStep{
		{URL: "https://example.com", Reason: "Initial page"},
		{URL: "https://example.com/pricing", Reason: "compare plans"},
	}
	if !reflect.DeepEqual(m.NavigationPath, wantPath) {
		t.Errorf("NavigationPath = %v, want %v", m.NavigationPath, wantPath)
	}

	wantInsights := []string{"clean design", "slow load", "find pricing"}
	if !reflect.DeepEqual(m.KeyInsights["https://example.com"], wantInsights) {
		t.Errorf("KeyInsights = %v, want %v", m.KeyInsights["https://example.com"], wantInsights)
	}

	if got := m.AverageSatisfaction(); got != 0.75 {
		t.Errorf("AverageSatisfaction() = %v, want 0.75", got)
	}
}

// Every recorded page must land in every per-URL map and in the path.
func TestMemory_MapsStayAligned(t *testing.T) {
	m := NewMemory()
	for i := 0; i < 4; i++ {
		url := fmt.Sprintf("https://example.com/p%d", i)
		m.Record(url, PageAnalysis{URL: url, Summary: "s"}, 0.1, 0.5)
	}

	n := len(m.VisitedURLs)
	if len(m.NavigationPath) != n {
		t.Fatalf("path length %d, visited %d", len(m.NavigationPath), n)
	}
	for _, url := range m.VisitedURLs {
		for name, ok := range map[string]bool{
			"Analyses":           hasKey(m.Analyses, url),
			"PageSummaries":      hasKey(m.PageSummaries, url),
			"KeyInsights":        hasKey(m.KeyInsights, url),
			"TopicRelevance":     hasKey(m.TopicRelevance, url),
			"SatisfactionScores": hasKey(m.SatisfactionScores, url),
			"OverallImpressions": hasKey(m.OverallImpressions, url),
			"NextExpectations":   hasKey(m.NextExpectations, url),
			"VisualAnalysis":     hasKey(m.VisualAnalysis, url),
		} {
			if !ok {
				t.Errorf("%s missing entry for %s", name, url)
			}
		}
	}
}

func hasKey[V any](m map[string]V, key string) bool {
	_, ok := m[key]
	return ok
}

func TestMemory_ObserveRelevance(t *testing.T) {
	m := NewMemory()

	m.ObserveRelevance(0.1)
	m.ObserveRelevance(0.2)
	if m.ConsecutiveIrrelevantPages != 2 {
		t.Errorf("counter = %d, want 2", m.ConsecutiveIrrelevantPages)
	}

	// Threshold is inclusive: 0.3 resets.
	m.ObserveRelevance(0.3)
	if m.ConsecutiveIrrelevantPages != 0 {
		t.Errorf("counter = %d, want 0 after reset", m.ConsecutiveIrrelevantPages)
	}
}

func TestMemory_RecentURLs(t *testing.T) {
	m := NewMemory()
	for _, u := range []string{"a", "b", "c"} {
		m.Record(u, PageAnalysis{}, 0, 0.5)
	}

	if got := m.RecentURLs(2); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("RecentURLs(2) = %v", got)
	}
	if got := m.RecentURLs(10); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("RecentURLs(10) = %v", got)
	}
	if got := m.RecentURLs(0); got != nil {
		t.Errorf("RecentURLs(0) = %v, want nil", got)
	}
}
