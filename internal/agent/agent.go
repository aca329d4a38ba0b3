// Package agent implements the persona navigation engine: the control
// loop that fetches pages, analyzes them from a persona's point of view,
// decides when to stop, and picks the next link to follow.
package agent

import (
	"context"
	"log/slog"

	"github.com/sitepanel/sitepanel/internal/analysis"
	"github.com/sitepanel/sitepanel/internal/crawler"
	"github.com/sitepanel/sitepanel/internal/metrics"
	"github.com/sitepanel/sitepanel/internal/persona"
	"github.com/sitepanel/sitepanel/internal/report"
)

// Completer produces text for a prompt, retrying internally up to
// maxAttempts times. Satisfied by llm.Limiter.
type Completer interface {
	Complete(ctx context.Context, prompt string, maxAttempts int) (string, error)
}

// Agent navigates a website on behalf of one persona.
type Agent interface {
	// AnalyzePage analyzes one fetched page. It never fails: on internal
	// errors it returns an analysis whose summary carries the error text.
	AnalyzePage(ctx context.Context, url string, content *crawler.PageContent) analysis.PageAnalysis

	// ShouldExit reports whether browsing should end and why.
	ShouldExit() (bool, string)

	// Navigate runs the full loop from startURL. A report is returned in
	// every case; the error is non-nil only when a bot challenge aborted
	// the run, so orchestrators can stop launching further runs.
	Navigate(ctx context.Context, startURL string) (*report.AnalysisReport, error)
}

// How many recently visited pages feed the next-link prompt.
const contextWindow = 3

// PersonaAgent is the single Agent implementation. One instance owns one
// run: its memory, its completion client, and its exit criteria are not
// shared with other personas.
type PersonaAgent struct {
	persona  persona.Persona
	llm      Completer
	fetcher  crawler.Fetcher
	memory   *analysis.NavigationMemory
	criteria analysis.ExitCriteria
	maxPages int
	logger   *slog.Logger
	metrics  *metrics.Collector
}

// Option configures a PersonaAgent.
type Option func(*PersonaAgent)

// WithExitCriteria overrides the default exit criteria.
func WithExitCriteria(c analysis.ExitCriteria) Option {
	return func(a *PersonaAgent) { a.criteria = c }
}

// WithMaxPages caps how many pages one run may visit.
func WithMaxPages(n int) Option {
	return func(a *PersonaAgent) {
		if n > 0 {
			a.maxPages = n
		}
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(a *PersonaAgent) { a.metrics = m }
}

// New creates an agent for one persona run.
func New(p persona.Persona, llm Completer, fetcher crawler.Fetcher, logger *slog.Logger, opts ...Option) *PersonaAgent {
	if logger == nil {
		logger = slog.Default()
	}
	a := &PersonaAgent{
		persona:  p,
		llm:      llm,
		fetcher:  fetcher,
		memory:   analysis.NewMemory(),
		criteria: analysis.DefaultExitCriteria(),
		maxPages: 5,
		logger:   logger.With("persona", p.Name),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Memory exposes the run's navigation memory, mainly for tests and
// progress reporting.
func (a *PersonaAgent) Memory() *analysis.NavigationMemory {
	return a.memory
}

// ShouldExit checks the exit criteria in fixed order: sufficient
// information coverage first, then too many consecutive irrelevant pages.
func (a *PersonaAgent) ShouldExit() (bool, string) {
	coverage := analysis.InformationCoverage(a.memory, a.persona)
	if coverage >= a.criteria.MinInformationCoverage {
		return true, "Gathered sufficient information"
	}
	if a.memory.ConsecutiveIrrelevantPages >= a.criteria.ConsecutiveIrrelevantThreshold {
		return true, "Website lacks relevant content"
	}
	return false, ""
}
