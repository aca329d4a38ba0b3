// Package analysis holds the per-page analysis model, the navigation
// memory accumulated during a run, and the scoring and parsing logic
// behind exit decisions.
package analysis

// PageAnalysis is the result of analyzing one page for one persona.
// Created once per visited page and immutable afterward; owned by
// NavigationMemory. Field names are part of the report JSON contract.
type PageAnalysis struct {
	URL               string   `json:"url"`
	Summary           string   `json:"summary"`
	Likes             []string `json:"likes"`
	Dislikes          []string `json:"dislikes"`
	ClickReasons      []string `json:"click_reasons"`
	NextExpectations  []string `json:"next_expectations"`
	VisualAnalysis    []string `json:"visual_analysis"`
	OverallImpression string   `json:"overall_impression"`
}

// ExitCriteria configures when browsing ends.
//
// SatisfactionThreshold and MaxIrrelevantPages are configuration
// placeholders: declared, never read by the control flow.
type ExitCriteria struct {
	MinInformationCoverage         float64
	ConsecutiveIrrelevantThreshold int
	SatisfactionThreshold          float64
	MaxIrrelevantPages             int
}

// DefaultExitCriteria returns the standard exit criteria.
func DefaultExitCriteria() ExitCriteria {
	return ExitCriteria{
		MinInformationCoverage:         0.8,
		ConsecutiveIrrelevantThreshold: 3,
		SatisfactionThreshold:          0.7,
		MaxIrrelevantPages:             3,
	}
}

// RelevanceThreshold is the per-page relevance below which a page counts
// as irrelevant for the consecutive-irrelevant exit criterion.
const RelevanceThreshold = 0.3
