package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/sitepanel/sitepanel/internal/analysis"
	"github.com/sitepanel/sitepanel/internal/crawler"
	"github.com/sitepanel/sitepanel/internal/persona"
)

// fakeFetcher serves canned pages by URL.
type fakeFetcher struct {
	pages map[string]*crawler.PageContent
	errs  map[string]error
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*crawler.PageContent, error) {
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	page, ok := f.pages[url]
	if !ok {
		return nil, fmt.Errorf("no page for %s", url)
	}
	return page, nil
}

// fakeCompleter returns scripted responses in order. Analysis prompts get
// analysis responses, link prompts get the chosen URL, everything else a
// generic sentence.
type fakeCompleter struct {
	analyses []string // consumed in order by analysis prompts
	choices  []string // consumed in order by navigation prompts
	err      error
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string, _ int) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	switch {
	case strings.Contains(prompt, "Provide CONCISE analysis"):
		if len(f.analyses) == 0 {
			return "", errors.New("fake: out of analysis responses")
		}
		r := f.analyses[0]
		f.analyses = f.analyses[1:]
		return r, nil
	case strings.Contains(prompt, "navigation decision"):
		if len(f.choices) == 0 {
			return "", errors.New("fake: out of choices")
		}
		r := f.choices[0]
		f.choices = f.choices[1:]
		return "I want to learn more.\n" + r, nil
	default:
		return "The site was a reasonable fit overall.", nil
	}
}

func analysisResponse(summary string, likes []string) string {
	var b strings.Builder
	b.WriteString("FINAL ASSESSMENT\n\n")
	b.WriteString("Summary: " + summary + "\n\n")
	if len(likes) > 0 {
		b.WriteString("Likes:\n")
		for _, l := range likes {
			b.WriteString("- " + l + "\n")
		}
		b.WriteString("\n")
	}
	b.WriteString("Overall Impression: Fine.")
	return b.String()
}

func page(url string, links ...string) *crawler.PageContent {
	return &crawler.PageContent{
		URL:         url,
		TextContent: "Welcome. Request a demo today.",
		Links:       links,
	}
}

func testPersona() persona.Persona {
	return persona.Persona{
		Name:      "Buyer Bob",
		Interests: []string{"pricing"},
		Needs:     []string{"pricing", "docs"},
		Goals:     []string{"evaluate the product"},
	}
}

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// Coverage reaching its threshold stops the run with the sufficient
// information reason.
func TestNavigate_StopsOnCoverage(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*crawler.PageContent{
		"https://site.test/":     page("https://site.test/", "https://site.test/docs"),
		"https://site.test/docs": page("https://site.test/docs", "https://site.test/about"),
	}}
	llm := &fakeCompleter{
		analyses: []string{
			analysisResponse("Landing page.", []string{"pricing info"}),
			analysisResponse("Documentation.", []string{"docs guide"}),
		},
		choices: []string{"https://site.test/docs"},
	}

	a := New(testPersona(), llm, fetcher, discard())
	rep, err := a.Navigate(context.Background(), "https://site.test/")
	if err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}

	if rep.ExitReason != "Gathered sufficient information" {
		t.Errorf("ExitReason = %q", rep.ExitReason)
	}
	if len(rep.PagesAnalyzed) != 2 {
		t.Errorf("PagesAnalyzed = %d, want 2", len(rep.PagesAnalyzed))
	}
	if rep.InformationCoverage != 1.0 {
		t.Errorf("InformationCoverage = %v, want 1.0", rep.InformationCoverage)
	}
	if len(rep.NavigationPath) != len(rep.PagesAnalyzed) {
		t.Errorf("path %d entries, pages %d", len(rep.NavigationPath), len(rep.PagesAnalyzed))
	}
	// The page text contains "demo", recorded but never an exit trigger.
	if len(rep.FoundCTAs) == 0 || rep.FoundCTAs[0] != "demo" {
		t.Errorf("FoundCTAs = %v", rep.FoundCTAs)
	}
}

// Three consecutive irrelevant pages stop the run regardless of coverage.
func TestNavigate_StopsOnIrrelevance(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*crawler.PageContent{}}
	llm := &fakeCompleter{}
	for i := 0; i < 4; i++ {
		url := fmt.Sprintf("https://site.test/p%d", i)
		next := fmt.Sprintf("https://site.test/p%d", i+1)
		fetcher.pages[url] = page(url, next)
		llm.analyses = append(llm.analyses, analysisResponse("Nothing of interest here.", nil))
		llm.choices = append(llm.choices, next)
	}

	a := New(testPersona(), llm, fetcher, discard(), WithMaxPages(10))
	rep, err := a.Navigate(context.Background(), "https://site.test/p0")
	if err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}

	if rep.ExitReason != "Website lacks relevant content" {
		t.Errorf("ExitReason = %q", rep.ExitReason)
	}
	if len(rep.PagesAnalyzed) != 3 {
		t.Errorf("PagesAnalyzed = %d, want 3", len(rep.PagesAnalyzed))
	}
}

// A bot challenge on page 2 aborts the run but preserves page 1's analysis.
func TestNavigate_ChallengeAborts(t *testing.T) {
	fetcher := &fakeFetcher{
		pages: map[string]*crawler.PageContent{
			"https://site.test/": page("https://site.test/", "https://site.test/blocked"),
		},
		errs: map[string]error{
			"https://site.test/blocked": fmt.Errorf("%w: interstitial", crawler.ErrChallengeDetected),
		},
	}
	llm := &fakeCompleter{
		analyses: []string{analysisResponse("Landing page.", nil)},
		choices:  []string{"https://site.test/blocked"},
	}

	a := New(testPersona(), llm, fetcher, discard())
	rep, err := a.Navigate(context.Background(), "https://site.test/")
	if !errors.Is(err, crawler.ErrChallengeDetected) {
		t.Fatalf("Navigate() error = %v, want challenge", err)
	}

	if len(rep.PagesAnalyzed) != 1 {
		t.Errorf("PagesAnalyzed = %d, want 1", len(rep.PagesAnalyzed))
	}
	if !strings.Contains(rep.ExitReason, "challenge") {
		t.Errorf("ExitReason = %q, want challenge reference", rep.ExitReason)
	}
	if rep.Error != "challenge_detected" {
		t.Errorf("Error = %q", rep.Error)
	}
}

// A model response without a Dislikes block parses cleanly with an empty
// dislikes list.
func TestAnalyzePage_MissingSection(t *testing.T) {
	llm := &fakeCompleter{
		analyses: []string{analysisResponse("Fine page.", []string{"fast"})},
	}
	a := New(testPersona(), llm, &fakeFetcher{}, discard())

	got := a.AnalyzePage(context.Background(), "https://site.test/", page("https://site.test/"))
	if len(got.Dislikes) != 0 {
		t.Errorf("Dislikes = %v, want empty", got.Dislikes)
	}
	if got.Summary != "Fine page." {
		t.Errorf("Summary = %q", got.Summary)
	}
}

// Analysis never fails: a dead completion client yields an error-flagged
// analysis and the run still produces a report.
func TestAnalyzePage_DegradesOnFailure(t *testing.T) {
	llm := &fakeCompleter{err: errors.New("model unavailable")}
	a := New(testPersona(), llm, &fakeFetcher{}, discard())

	got := a.AnalyzePage(context.Background(), "https://site.test/", page("https://site.test/"))
	if !strings.Contains(got.Summary, "model unavailable") {
		t.Errorf("Summary = %q, want embedded error", got.Summary)
	}
	if got.OverallImpression != "Analysis failed" {
		t.Errorf("OverallImpression = %q", got.OverallImpression)
	}
}

func TestNavigate_NoLinks(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*crawler.PageContent{
		"https://site.test/": page("https://site.test/"),
	}}
	llm := &fakeCompleter{analyses: []string{analysisResponse("Dead end.", nil)}}

	a := New(testPersona(), llm, fetcher, discard())
	rep, err := a.Navigate(context.Background(), "https://site.test/")
	if err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if rep.ExitReason != "No further links to explore" {
		t.Errorf("ExitReason = %q", rep.ExitReason)
	}
}

func TestNavigate_MaxPagesCap(t *testing.T) {
	fetcher := &fakeFetcher{pages: map[string]*crawler.PageContent{}}
	llm := &fakeCompleter{}
	for i := 0; i < 5; i++ {
		url := fmt.Sprintf("https://site.test/p%d", i)
		next := fmt.Sprintf("https://site.test/p%d", i+1)
		fetcher.pages[url] = page(url, next)
		// Relevant pages keep the irrelevance counter at zero.
		llm.analyses = append(llm.analyses, analysisResponse("All about pricing.", nil))
		llm.choices = append(llm.choices, next)
	}

	a := New(testPersona(), llm, fetcher, discard(), WithMaxPages(3))
	rep, err := a.Navigate(context.Background(), "https://site.test/p0")
	if err != nil {
		t.Fatalf("Navigate() error = %v", err)
	}
	if len(rep.PagesAnalyzed) != 3 {
		t.Errorf("PagesAnalyzed = %d, want 3", len(rep.PagesAnalyzed))
	}
}

func TestChooseNextURL(t *testing.T) {
	p := testPersona()

	tests := []struct {
		name    string
		links   []string
		visited []string
		choice  string
		llmErr  error
		want    string
	}{
		{
			name:   "valid model choice",
			links:  []string{"https://site.test/a", "https://site.test/b"},
			choice: "https://site.test/b",
			want:   "https://site.test/b",
		},
		{
			name:   "hallucinated url falls back to first unvisited",
			links:  []string{"https://site.test/a", "https://site.test/b"},
			choice: "https://elsewhere.test/",
			want:   "https://site.test/a",
		},
		{
			name:    "visited model choice falls back",
			links:   []string{"https://site.test/a", "https://site.test/b"},
			visited: []string{"https://site.test/a"},
			choice:  "https://site.test/a",
			want:    "https://site.test/b",
		},
		{
			name:    "all links visited",
			links:   []string{"https://site.test/a"},
			visited: []string{"https://site.test/a"},
			want:    "",
		},
		{
			name:  "same page links only",
			links: []string{"https://site.test/current#pricing"},
			want:  "",
		},
		{
			name:   "completion failure ends navigation",
			links:  []string{"https://site.test/a"},
			llmErr: errors.New("down"),
			want:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &fakeCompleter{choices: []string{tt.choice}, err: tt.llmErr}
			a := New(p, llm, &fakeFetcher{}, discard())
			for _, url := range tt.visited {
				a.memory.Record(url, analysis.PageAnalysis{}, 0, 0.5)
			}

			got := a.chooseNextURL(context.Background(), "https://site.test/current", tt.links, analysis.PageAnalysis{})
			if got != tt.want {
				t.Errorf("chooseNextURL() = %q, want %q", got, tt.want)
			}
			if got != "" && a.memory.Visited(got) {
				t.Errorf("chooseNextURL() returned visited url %q", got)
			}
		})
	}
}
