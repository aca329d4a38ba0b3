// Package focusgroup runs one navigation agent per persona against the
// same URL, with bounded concurrency and pacing, and merges the results
// into a combined report.
package focusgroup

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sitepanel/sitepanel/internal/agent"
	"github.com/sitepanel/sitepanel/internal/persona"
	"github.com/sitepanel/sitepanel/internal/report"
)

// AgentFactory builds a fresh agent for one persona run. Each run gets
// its own agent so rate-limit bookkeeping stays per-persona.
type AgentFactory func(p persona.Persona) (agent.Agent, error)

// Analyzer orchestrates a focus group.
type Analyzer struct {
	personas []persona.Persona
	newAgent AgentFactory
	llm      agent.Completer
	logger   *slog.Logger
	writer   *report.Writer

	// gate bounds how many persona runs are in flight at once. It only
	// blocks entry, never interrupts running work.
	gate   chan struct{}
	pacing time.Duration
	sleep  func(ctx context.Context, d time.Duration)
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithConcurrency sets how many persona runs may execute at once.
func WithConcurrency(n int) Option {
	return func(a *Analyzer) {
		if n > 0 {
			a.gate = make(chan struct{}, n)
		}
	}
}

// WithPacing sets the delay inserted after each completed persona run.
func WithPacing(d time.Duration) Option {
	return func(a *Analyzer) { a.pacing = d }
}

// WithWriter makes the analyzer persist reports as they are produced.
func WithWriter(w *report.Writer) Option {
	return func(a *Analyzer) { a.writer = w }
}

// withSleep replaces the pacing sleep, for tests.
func withSleep(fn func(ctx context.Context, d time.Duration)) Option {
	return func(a *Analyzer) { a.sleep = fn }
}

// New creates a focus group analyzer. llm is used only for the combined
// narrative summary; each persona run brings its own completion client
// via the factory.
func New(personas []persona.Persona, newAgent AgentFactory, llm agent.Completer, logger *slog.Logger, opts ...Option) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Analyzer{
		personas: personas,
		newAgent: newAgent,
		llm:      llm,
		logger:   logger,
		gate:     make(chan struct{}, 2),
		pacing:   30 * time.Second,
		sleep:    sleepCtx,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AnalyzeWebsite runs every persona against url and combines the results.
// A bot challenge surfaced by any run stops further launches; runs
// already in flight are allowed to finish and their reports are kept.
func (a *Analyzer) AnalyzeWebsite(ctx context.Context, url string) (*report.FocusGroupReport, error) {
	a.logger.Info("starting focus group analysis", "url", url, "personas", len(a.personas))

	results := make([]*report.AnalysisReport, len(a.personas))
	var wg sync.WaitGroup
	var challenged atomic.Bool
	var failed atomic.Bool

	for i, p := range a.personas {
		select {
		case a.gate <- struct{}{}:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
		if challenged.Load() {
			<-a.gate
			a.logger.Warn("skipping persona after challenge detection", "persona", p.Name)
			break
		}

		wg.Add(1)
		go func(i int, p persona.Persona) {
			defer wg.Done()
			defer func() { <-a.gate }()

			rep, fatal := a.runPersona(ctx, p, url)
			if fatal {
				challenged.Store(true)
			}
			if rep.Error != "" {
				failed.Store(true)
			}
			results[i] = rep

			a.sleep(ctx, a.pacing)
		}(i, p)
	}
	wg.Wait()

	var individual []*report.AnalysisReport
	for _, r := range results {
		if r != nil {
			individual = append(individual, r)
		}
	}

	status := report.StatusComplete
	switch {
	case challenged.Load():
		status = report.StatusStopped
	case failed.Load() || len(individual) < len(a.personas):
		status = report.StatusPartial
	}

	patterns := aggregate(individual)
	combined := &report.FocusGroupReport{
		URL:               url,
		Timestamp:         time.Now().Format(report.TimeLayout),
		NumPersonas:       len(individual),
		CommonPatterns:    patterns,
		IndividualReports: individual,
		Summary:           a.summarize(ctx, url, len(individual), patterns),
		Status:            status,
	}

	if a.writer != nil {
		if path, err := a.writer.WriteFocusGroup(combined); err != nil {
			a.logger.Error("saving focus group report failed", "error", err)
		} else {
			a.logger.Info("saved focus group report", "path", path)
		}
	}

	a.logger.Info("focus group analysis finished", "url", url, "status", status, "reports", len(individual))
	return combined, nil
}

// runPersona executes one persona's full run. The bool result reports a
// fatal challenge; every other failure degrades to a placeholder report.
func (a *Analyzer) runPersona(ctx context.Context, p persona.Persona, url string) (*report.AnalysisReport, bool) {
	a.logger.Info("starting persona analysis", "persona", p.Name)

	ag, err := a.newAgent(p)
	if err != nil {
		a.logger.Error("creating agent failed", "persona", p.Name, "error", err)
		return placeholder(p, url, err), false
	}

	rep, err := ag.Navigate(ctx, url)
	if err != nil {
		a.logger.Error("persona run aborted by challenge", "persona", p.Name, "error", err)
		return rep, true
	}
	return rep, false
}

func placeholder(p persona.Persona, url string, err error) *report.AnalysisReport {
	return &report.AnalysisReport{
		PersonaName: p.Name,
		StartURL:    url,
		Timestamp:   time.Now().Format(report.TimeLayout),
		ExitReason:  "Analysis failed",
		Error:       fmt.Sprintf("analysis_failed: %v", err),
	}
}

// summarize asks the model for the cross-persona narrative. Failure is
// non-fatal and degrades to a marker string.
func (a *Analyzer) summarize(ctx context.Context, url string, numReports int, patterns report.CommonPatterns) string {
	prompt := fmt.Sprintf(`Analyze these focus group results for %s:

Number of Participants: %d

Common Likes:
%s

Common Dislikes:
%s

Common Expectations:
%s

Provide a concise summary of:
1. Key patterns across personas
2. Notable differences between personas
3. Main recommendations`,
		url, numReports,
		formatPatterns(patterns.Likes),
		formatPatterns(patterns.Dislikes),
		formatPatterns(patterns.Expectations),
	)

	summary, err := a.llm.Complete(ctx, prompt, 3)
	if err != nil {
		a.logger.Error("generating focus group summary failed", "error", err)
		return "Error generating summary"
	}
	return strings.TrimSpace(summary)
}

func formatPatterns(counts []report.PatternCount) string {
	if len(counts) == 0 {
		return "None"
	}
	var b strings.Builder
	for _, c := range counts {
		fmt.Fprintf(&b, "- %s (%d)\n", c.Text, c.Count)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
