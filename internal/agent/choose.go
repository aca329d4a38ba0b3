package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sitepanel/sitepanel/internal/analysis"
	"github.com/sitepanel/sitepanel/internal/crawler"
	"github.com/sitepanel/sitepanel/internal/metrics"
)

// How many candidate links at most are shown to the model.
const maxCandidateLinks = 50

// chooseNextURL asks the model which link to follow next. The returned
// URL is guaranteed to be a member of links and not yet visited; an empty
// string means navigation should end.
func (a *PersonaAgent) chooseNextURL(ctx context.Context, currentURL string, links []string, current analysis.PageAnalysis) string {
	var external []string
	for _, link := range links {
		if !crawler.IsSamePage(link, currentURL) {
			external = append(external, link)
		}
	}
	if len(external) == 0 {
		a.logger.Info("no external links found for navigation")
		return ""
	}

	var unvisited []string
	for _, link := range external {
		if !a.memory.Visited(link) {
			unvisited = append(unvisited, link)
		}
	}
	if len(unvisited) == 0 {
		return ""
	}

	start := time.Now()
	response, err := a.llm.Complete(ctx, a.choicePrompt(currentURL, unvisited, current), 3)
	if err != nil {
		a.logger.Error("link selection failed", "error", err)
		if a.metrics != nil {
			a.metrics.RecordError(metrics.OpChooseLink)
		}
		return ""
	}
	if a.metrics != nil {
		a.metrics.RecordTiming(metrics.OpChooseLink, time.Since(start))
	}

	if url := lastLine(response); a.validChoice(url, external) {
		a.logger.Info("selected next url", "url", url)
		return url
	}

	a.logger.Warn("selected url invalid or already visited, falling back")
	return unvisited[0]
}

// validChoice accepts only members of the candidate set that have not
// been visited this run.
func (a *PersonaAgent) validChoice(url string, candidates []string) bool {
	if url == "" || a.memory.Visited(url) {
		return false
	}
	for _, c := range candidates {
		if c == url {
			return true
		}
	}
	return false
}

func (a *PersonaAgent) choicePrompt(currentURL string, unvisited []string, current analysis.PageAnalysis) string {
	var history strings.Builder
	for _, url := range a.memory.RecentURLs(contextWindow) {
		insights := a.memory.KeyInsights[url]
		if len(insights) > 3 {
			insights = insights[:3]
		}
		fmt.Fprintf(&history, `URL: %s
Relevance Score: %.2f
Summary: %s
Key Insights: %s
Visual Analysis: %s
Overall Impression: %s

`,
			url,
			a.memory.TopicRelevance[url],
			a.memory.PageSummaries[url],
			strings.Join(insights, ", "),
			strings.Join(a.memory.VisualAnalysis[url], ", "),
			a.memory.OverallImpressions[url])
	}

	if len(unvisited) > maxCandidateLinks {
		unvisited = unvisited[:maxCandidateLinks]
	}

	return fmt.Sprintf(`As %s, explain your navigation decision:

Your Profile:
- Interests: %s
- Goals: %s
- Needs: %s

Current Page Analysis:
- URL: %s
- Summary: %s
- Likes: %s
- Dislikes: %s

Previously visited pages:
%s
Available unvisited links:
%s

Based on:
1. Your goals and needs
2. What you've learned from visited pages
3. What information you're still missing

Choose the most promising unvisited link that will help achieve your goals.

First explain your reasoning, then provide just the chosen URL on a new line.`,
		a.persona.Name,
		strings.Join(a.persona.Interests, ", "),
		strings.Join(a.persona.Goals, ", "),
		strings.Join(a.persona.Needs, ", "),
		currentURL,
		current.Summary,
		strings.Join(current.Likes, ", "),
		strings.Join(current.Dislikes, ", "),
		history.String(),
		strings.Join(unvisited, "\n"),
	)
}

// lastLine returns the last non-empty line of a model response.
func lastLine(s string) string {
	lines := strings.Split(s, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
