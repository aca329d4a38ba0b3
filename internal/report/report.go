// Package report defines the serialized artifacts produced by persona
// runs and focus groups, plus helpers for writing them to disk. Field
// names are a compatibility contract for downstream consumers.
package report

import (
	"time"

	"github.com/sitepanel/sitepanel/internal/analysis"
)

// Timestamp layout used in report payloads and filenames.
const (
	TimeLayout     = "2006-01-02 15:04:05"
	FileTimeLayout = "20060102_150405"
)

// AnalysisReport is the terminal artifact of one persona's run.
type AnalysisReport struct {
	PersonaName         string                  `json:"persona_name"`
	StartURL            string                  `json:"start_url"`
	Timestamp           string                  `json:"timestamp"`
	PagesAnalyzed       []analysis.PageAnalysis `json:"pages_analyzed"`
	NavigationPath      []analysis.PathStep     `json:"navigation_path"`
	ExitReason          string                  `json:"exit_reason"`
	InformationCoverage float64                 `json:"information_coverage"`
	FoundCTAs           []string                `json:"found_ctas"`
	FinalConclusion     string                  `json:"final_conclusion"`

	// Error is set when the run failed outright (for example a bot
	// challenge on the first page). Empty on success.
	Error string `json:"error,omitempty"`
}

// New assembles a report from a finished run's memory.
func New(personaName, startURL, exitReason, conclusion string, coverage float64, mem *analysis.NavigationMemory) *AnalysisReport {
	pages := make([]analysis.PageAnalysis, 0, len(mem.VisitedURLs))
	for _, url := range mem.VisitedURLs {
		pages = append(pages, mem.Analyses[url])
	}

	return &AnalysisReport{
		PersonaName:         personaName,
		StartURL:            startURL,
		Timestamp:           time.Now().Format(TimeLayout),
		PagesAnalyzed:       pages,
		NavigationPath:      mem.NavigationPath,
		ExitReason:          exitReason,
		InformationCoverage: coverage,
		FoundCTAs:           mem.FoundCTAs,
		FinalConclusion:     conclusion,
	}
}

// PatternCount is one aggregated observation with its frequency across
// all personas of a focus group.
type PatternCount struct {
	Text  string `json:"text"`
	Count int    `json:"count"`
}

// CommonPatterns are the top observations per category across a focus
// group, ordered by count with ties broken by first appearance.
type CommonPatterns struct {
	Likes        []PatternCount `json:"likes"`
	Dislikes     []PatternCount `json:"dislikes"`
	Expectations []PatternCount `json:"expectations"`
}

// Focus group run status values.
const (
	StatusComplete = "complete"
	StatusPartial  = "partial"
	StatusStopped  = "stopped"
)

// FocusGroupReport combines the individual persona reports for one URL.
type FocusGroupReport struct {
	URL               string            `json:"url"`
	Timestamp         string            `json:"timestamp"`
	NumPersonas       int               `json:"num_personas"`
	CommonPatterns    CommonPatterns    `json:"common_patterns"`
	IndividualReports []*AnalysisReport `json:"individual_reports"`
	Summary           string            `json:"summary"`
	Status            string            `json:"status"`
}
