package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sitepanel/sitepanel/internal/analysis"
	"github.com/sitepanel/sitepanel/internal/crawler"
	"github.com/sitepanel/sitepanel/internal/metrics"
	"github.com/sitepanel/sitepanel/internal/report"
)

// Call-to-action keywords scanned for on every page. Hits are recorded in
// memory and surfaced in the report but never trigger an exit.
var ctaKeywords = []string{"contact", "demo", "trial", "sign up", "get started"}

// Navigate walks the site starting from startURL until an exit condition
// fires or the page cap is reached. Every terminal path produces a
// report; only challenge detection additionally returns an error.
func (a *PersonaAgent) Navigate(ctx context.Context, startURL string) (*report.AnalysisReport, error) {
	a.logger.Info("starting navigation", "start_url", startURL, "max_pages", a.maxPages)
	start := time.Now()

	current := startURL
	exitReason := ""
	var fatal error

	for len(a.memory.VisitedURLs) < a.maxPages {
		a.logger.Info("processing page",
			"page", len(a.memory.VisitedURLs)+1,
			"max_pages", a.maxPages,
			"url", current)

		content, err := a.fetcher.Fetch(ctx, current)
		if err != nil {
			if errors.Is(err, crawler.ErrChallengeDetected) {
				a.logger.Error("bot challenge detected, aborting run", "url", current)
				exitReason = fmt.Sprintf("Bot challenge detected at %s", current)
				fatal = err
				break
			}
			a.logger.Error("navigation error", "url", current, "error", err)
			exitReason = fmt.Sprintf("Error: %v", err)
			break
		}

		// The current page is always analyzed and recorded before the
		// exit criteria are consulted, so a stopping page still shows up
		// in the report.
		pageAnalysis := a.AnalyzePage(ctx, current, content)
		relevance := analysis.Relevance(pageAnalysis, a.persona)
		a.memory.Record(current, pageAnalysis, relevance, analysis.Satisfaction(pageAnalysis))
		a.memory.ObserveRelevance(relevance)
		a.detectCTA(content)

		if shouldStop, stopReason := a.ShouldExit(); shouldStop {
			a.logger.Info("exit criteria met", "reason", stopReason)
			exitReason = stopReason
			break
		}

		if len(content.Links) == 0 {
			a.logger.Info("no links found on page, ending navigation")
			exitReason = "No further links to explore"
			break
		}

		next := a.chooseNextURL(ctx, current, content.Links, pageAnalysis)
		if next == "" {
			a.logger.Info("no suitable next url found, ending navigation")
			exitReason = "No relevant links to explore"
			break
		}
		current = next
	}

	conclusion := a.finalConclusion(ctx)
	coverage := analysis.InformationCoverage(a.memory, a.persona)

	rep := report.New(a.persona.Name, startURL, exitReason, conclusion, coverage, a.memory)
	if fatal != nil {
		rep.Error = "challenge_detected"
	}

	if a.metrics != nil {
		a.metrics.RecordTiming(metrics.OpPersonaRun, time.Since(start))
		if fatal != nil {
			a.metrics.RecordError(metrics.OpPersonaRun)
		}
	}
	a.logger.Info("navigation finished",
		"pages", len(a.memory.VisitedURLs),
		"exit_reason", exitReason,
		"coverage", coverage,
		"duration", time.Since(start))

	return rep, fatal
}

// detectCTA records the first call-to-action keyword present in the page
// text, if any.
func (a *PersonaAgent) detectCTA(content *crawler.PageContent) {
	text := strings.ToLower(content.TextContent)
	for _, keyword := range ctaKeywords {
		if strings.Contains(text, keyword) {
			a.memory.RecordCTA(keyword)
			return
		}
	}
}

// finalConclusion asks the model for a short closing assessment of the
// whole run. Failures degrade to a fixed marker string.
func (a *PersonaAgent) finalConclusion(ctx context.Context) string {
	a.logger.Info("generating final conclusion")

	coverage := analysis.InformationCoverage(a.memory, a.persona)

	foundCTAs := "None"
	if len(a.memory.FoundCTAs) > 0 {
		foundCTAs = strings.Join(a.memory.FoundCTAs, ", ")
	}

	var insights strings.Builder
	for _, url := range a.memory.RecentURLs(contextWindow) {
		fmt.Fprintf(&insights, "- %s: %s\n", url, strings.Join(a.memory.KeyInsights[url], "; "))
	}

	prompt := fmt.Sprintf(`As %s, provide a concise final conclusion about your experience analyzing this website.

Your Profile:
- Interests: %s
- Needs: %s
- Goals: %s

Analysis Summary:
- Pages Analyzed: %d
- Information Coverage: %.0f%%
- Average Satisfaction: %.0f%%
- Found CTAs: %s

Key Insights:
%s
Provide a 3-4 sentence conclusion that:
1. Evaluates how well the website meets your needs and goals
2. Highlights key strengths and weaknesses
3. Makes a final recommendation`,
		a.persona.Name,
		strings.Join(a.persona.Interests, ", "),
		strings.Join(a.persona.Needs, ", "),
		strings.Join(a.persona.Goals, ", "),
		len(a.memory.VisitedURLs),
		coverage*100,
		a.memory.AverageSatisfaction()*100,
		foundCTAs,
		insights.String(),
	)

	conclusion, err := a.llm.Complete(ctx, prompt, 3)
	if err != nil {
		a.logger.Error("generating conclusion failed", "error", err)
		return "Error generating conclusion"
	}
	return strings.TrimSpace(conclusion)
}
