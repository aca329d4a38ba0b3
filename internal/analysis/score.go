package analysis

import (
	"strings"

	"github.com/sitepanel/sitepanel/internal/persona"
)

// Relevance scores how well a page analysis matches the persona: 0.2 per
// interest and per need whose lowercase text appears as a substring of the
// summary, likes, and click reasons combined, clamped to [0, 1]. Matches
// are counted independently per keyword; repeated hits across interests
// and needs both count.
func Relevance(a PageAnalysis, p persona.Persona) float64 {
	text := strings.ToLower(a.Summary + " " + strings.Join(a.Likes, " ") + " " + strings.Join(a.ClickReasons, " "))

	score := 0.0
	for _, interest := range p.Interests {
		if strings.Contains(text, strings.ToLower(interest)) {
			score += 0.2
		}
	}
	for _, need := range p.Needs {
		if strings.Contains(text, strings.ToLower(need)) {
			score += 0.2
		}
	}

	return min(1.0, score)
}

// InformationCoverage is the fraction of persona needs covered by any
// insight recorded so far, across all visited pages. A need is covered
// when its lowercase text is a substring of any recorded insight.
// Returns 0 for personas without needs; construction-time validation
// rejects those, but callers of this package may not have gone through it.
func InformationCoverage(m *NavigationMemory, p persona.Persona) float64 {
	if len(p.Needs) == 0 {
		return 0
	}

	covered := map[string]struct{}{}
	for _, insights := range m.KeyInsights {
		for _, insight := range insights {
			lower := strings.ToLower(insight)
			for _, need := range p.Needs {
				if strings.Contains(lower, strings.ToLower(need)) {
					covered[need] = struct{}{}
				}
			}
		}
	}

	return float64(len(covered)) / float64(len(p.Needs))
}

// Satisfaction is likes over likes+dislikes, or the neutral prior 0.5 when
// both are empty.
func Satisfaction(a PageAnalysis) float64 {
	total := len(a.Likes) + len(a.Dislikes)
	if total == 0 {
		return 0.5
	}
	return float64(len(a.Likes)) / float64(total)
}
