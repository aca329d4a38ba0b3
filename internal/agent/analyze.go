package agent

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/sitepanel/sitepanel/internal/analysis"
	"github.com/sitepanel/sitepanel/internal/crawler"
	"github.com/sitepanel/sitepanel/internal/metrics"
)

const (
	screenshotSkipped = "[Screenshot analysis skipped based on persona goals]"

	sectionExcerptLen = 200

	// Content limits for the reduced retry after a failed analysis call.
	reducedContentLen = 1000
	reducedHeadersLen = 200
)

// AnalyzePage runs one completion call over the page content and parses
// the sectioned response. It degrades instead of failing: when the model
// cannot be reached even with reduced content, the returned analysis
// carries the error in its summary and "Analysis failed" as impression.
func (a *PersonaAgent) AnalyzePage(ctx context.Context, url string, content *crawler.PageContent) analysis.PageAnalysis {
	a.logger.Info("analyzing page", "url", url)
	start := time.Now()

	cleaned := analysis.PreprocessContent(content.TextContent, analysis.DefaultMaxContentLength)
	headers := analysis.ExtractHeaders(cleaned)
	mainContent := analysis.ExtractMainContent(cleaned, a.persona)

	image := screenshotSkipped
	if a.persona.WantsVisualAnalysis() && len(content.Screenshot) > 0 {
		image = "<image>" + base64.StdEncoding.EncodeToString(content.Screenshot) + "</image>"
	}

	prompt := a.analysisPrompt(headers, mainContent, image, content.SectionLinks)

	response, err := a.llm.Complete(ctx, prompt, 2)
	if err != nil {
		a.logger.Warn("analysis attempt failed, retrying with reduced content", "url", url, "error", err)

		mainContent = analysis.Truncate(mainContent, reducedContentLen)
		headers = analysis.Truncate(headers, reducedHeadersLen)
		prompt = a.analysisPrompt(headers, mainContent, image, content.SectionLinks)

		response, err = a.llm.Complete(ctx, prompt, 3)
	}
	if err != nil {
		a.logger.Error("page analysis failed", "url", url, "error", err)
		if a.metrics != nil {
			a.metrics.RecordError(metrics.OpAnalyzePage)
		}
		return analysis.PageAnalysis{
			URL:               url,
			Summary:           fmt.Sprintf("Error in analysis: %v", err),
			OverallImpression: "Analysis failed",
		}
	}

	if a.metrics != nil {
		a.metrics.RecordTiming(metrics.OpAnalyzePage, time.Since(start))
	}
	a.logger.Info("page analysis completed", "url", url, "duration", time.Since(start))

	return analysis.ParseResponse(url, response)
}

func (a *PersonaAgent) analysisPrompt(headers, mainContent, image string, sections map[string]string) string {
	var sectionContent strings.Builder
	if len(sections) > 0 {
		sectionContent.WriteString("\nPage Sections:\n")
		for anchor, text := range sections {
			fmt.Fprintf(&sectionContent, "\nSection %s:\n%s...\n", anchor, analysis.Truncate(text, sectionExcerptLen))
		}
	}

	return fmt.Sprintf(`Analyze this webpage for %s:

Key Interests: %s
Primary Needs: %s
Main Goals: %s

Page Headers:
%s

Main Content:
%s

Visual:
%s
%s
Provide CONCISE analysis:

VISUAL BRIEF
- Key layout elements
- Main visual features like color, font, etc
- Navigation elements

CONTENT SUMMARY
- Relevance to persona
- Key information
- Content quality

FINAL ASSESSMENT

Summary: [Brief overview]
Likes:
- [Top 3 only, drawn from both visual brief and content summary]
Dislikes:
- [Top 3 only, drawn from both visual brief and content summary]
Click Reasons:
- [Max 2 points]
Next Expectations:
- [Max 2 points]
Overall Impression: [One sentence impression]`,
		a.persona.Name,
		topN(a.persona.Interests, 3),
		topN(a.persona.Needs, 3),
		topN(a.persona.Goals, 3),
		headers,
		mainContent,
		image,
		sectionContent.String(),
	)
}

// topN joins the first n values with commas.
func topN(values []string, n int) string {
	if len(values) > n {
		values = values[:n]
	}
	return strings.Join(values, ", ")
}
