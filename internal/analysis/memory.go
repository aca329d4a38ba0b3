package analysis

// PathStep is one entry in the navigation audit trail.
type PathStep struct {
	URL    string `json:"url"`
	Reason string `json:"reason"`
}

// NavigationMemory is the accumulating state of one run, owned exclusively
// by one navigation engine instance. All sequences are append-only; map
// entries are written once per visited page and never mutated afterward.
//
// Invariant: len(VisitedURLs) == len(NavigationPath), and every per-URL map
// has exactly one entry per visited URL.
type NavigationMemory struct {
	VisitedURLs        []string
	Analyses           map[string]PageAnalysis
	PageSummaries      map[string]string
	KeyInsights        map[string][]string
	TopicRelevance     map[string]float64
	SatisfactionScores map[string]float64
	OverallImpressions map[string]string
	NextExpectations   map[string][]string
	VisualAnalysis     map[string][]string
	NavigationPath     []PathStep

	ConsecutiveIrrelevantPages int
	FoundCTAs                  []string
}

// NewMemory creates an empty navigation memory.
func NewMemory() *NavigationMemory {
	return &NavigationMemory{
		Analyses:           map[string]PageAnalysis{},
		PageSummaries:      map[string]string{},
		KeyInsights:        map[string][]string{},
		TopicRelevance:     map[string]float64{},
		SatisfactionScores: map[string]float64{},
		OverallImpressions: map[string]string{},
		NextExpectations:   map[string][]string{},
		VisualAnalysis:     map[string][]string{},
	}
}

// Visited reports whether the URL was already recorded in this run.
func (m *NavigationMemory) Visited(url string) bool {
	for _, u := range m.VisitedURLs {
		if u == url {
			return true
		}
	}
	return false
}

// Record appends one visited page to the memory: the full analysis, the
// derived maps, and the navigation path step. The path reason is "Initial
// page" for the first page, otherwise the first click reason of the
// analysis.
func (m *NavigationMemory) Record(url string, a PageAnalysis, relevance, satisfaction float64) {
	m.VisitedURLs = append(m.VisitedURLs, url)
	m.Analyses[url] = a
	m.PageSummaries[url] = a.Summary
	m.OverallImpressions[url] = a.OverallImpression
	m.NextExpectations[url] = a.NextExpectations
	m.VisualAnalysis[url] = a.VisualAnalysis

	insights := make([]string, 0, len(a.Likes)+len(a.Dislikes)+len(a.ClickReasons))
	insights = append(insights, a.Likes...)
	insights = append(insights, a.Dislikes...)
	insights = append(insights, a.ClickReasons...)
	m.KeyInsights[url] = insights

	m.TopicRelevance[url] = relevance
	m.SatisfactionScores[url] = satisfaction

	reason := "Continued exploration"
	if len(m.NavigationPath) == 0 {
		reason = "Initial page"
	} else if len(a.ClickReasons) > 0 {
		reason = a.ClickReasons[0]
	}
	m.NavigationPath = append(m.NavigationPath, PathStep{URL: url, Reason: reason})
}

// ObserveRelevance updates the consecutive-irrelevant counter: reset when
// the page scores at or above the threshold, incremented otherwise.
func (m *NavigationMemory) ObserveRelevance(score float64) {
	if score < RelevanceThreshold {
		m.ConsecutiveIrrelevantPages++
	} else {
		m.ConsecutiveIrrelevantPages = 0
	}
}

// RecordCTA appends a detected call-to-action keyword.
func (m *NavigationMemory) RecordCTA(keyword string) {
	m.FoundCTAs = append(m.FoundCTAs, keyword)
}

// RecentURLs returns the last n visited URLs in visit order.
func (m *NavigationMemory) RecentURLs(n int) []string {
	if n <= 0 || len(m.VisitedURLs) == 0 {
		return nil
	}
	if len(m.VisitedURLs) < n {
		n = len(m.VisitedURLs)
	}
	return m.VisitedURLs[len(m.VisitedURLs)-n:]
}

// AverageSatisfaction returns the mean satisfaction over all recorded
// pages, 0 when nothing has been recorded.
func (m *NavigationMemory) AverageSatisfaction() float64 {
	if len(m.SatisfactionScores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range m.SatisfactionScores {
		sum += s
	}
	return sum / float64(len(m.SatisfactionScores))
}
