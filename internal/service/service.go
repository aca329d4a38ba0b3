// Package service wires configuration, fetchers, completion clients, and
// agents into the operations exposed by the CLI and the HTTP server.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sitepanel/sitepanel/internal/agent"
	"github.com/sitepanel/sitepanel/internal/config"
	"github.com/sitepanel/sitepanel/internal/crawler"
	"github.com/sitepanel/sitepanel/internal/focusgroup"
	"github.com/sitepanel/sitepanel/internal/llm"
	"github.com/sitepanel/sitepanel/internal/metrics"
	"github.com/sitepanel/sitepanel/internal/persona"
	"github.com/sitepanel/sitepanel/internal/report"
)

// Runner executes full analysis runs. The HTTP server and CLI depend on
// this interface so tests can substitute canned results.
type Runner interface {
	RunAnalysis(ctx context.Context, p persona.Persona, url string) (*report.AnalysisReport, error)
	RunFocusGroup(ctx context.Context, personas []persona.Persona, url string) (*report.FocusGroupReport, error)
}

// Service is the production Runner. One Service owns the shared metrics
// collector and report writer; completion clients and fetchers are created
// per run so rate-limit state stays per-persona.
type Service struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics *metrics.Collector
	writer  *report.Writer
}

// New creates the service. The reports directory is created eagerly so a
// misconfigured path fails at startup rather than after a long run.
func New(cfg config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	writer, err := report.NewWriter(cfg.ReportsDir)
	if err != nil {
		return nil, err
	}
	return &Service{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewCollector(),
		writer:  writer,
	}, nil
}

// Metrics exposes the shared collector for the stats endpoint.
func (s *Service) Metrics() *metrics.Collector {
	return s.metrics
}

// Writer exposes the report writer.
func (s *Service) Writer() *report.Writer {
	return s.writer
}

// newCompleter builds a fresh rate-limited completion client.
func (s *Service) newCompleter() (*llm.Limiter, error) {
	model, err := llm.NewModel(s.cfg)
	if err != nil {
		return nil, err
	}
	return llm.NewLimiter(model, s.cfg.MinCallDelay, s.cfg.MaxCallDelay, s.logger,
		llm.WithMetrics(s.metrics)), nil
}

// newFetcher builds the configured content fetcher. The returned close
// func must be called on all exit paths; browser instances leak otherwise.
func (s *Service) newFetcher() (crawler.Fetcher, func() error, error) {
	switch s.cfg.Fetcher {
	case config.FetcherStatic:
		return crawler.NewStaticFetcher(s.logger, s.metrics), func() error { return nil }, nil
	case config.FetcherBrowser, "":
		f, err := crawler.NewBrowserFetcher(crawler.BrowserConfig{
			RemoteURL:      s.cfg.BrowserURL,
			ScreenshotsDir: s.cfg.ScreenshotsDir,
			Logger:         s.logger,
			Metrics:        s.metrics,
		})
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown fetcher mode %q", s.cfg.Fetcher)
	}
}

// newAgent assembles a fully wired agent for one persona run.
func (s *Service) newAgent(p persona.Persona) (agent.Agent, func() error, error) {
	completer, err := s.newCompleter()
	if err != nil {
		return nil, nil, err
	}
	fetcher, closeFetcher, err := s.newFetcher()
	if err != nil {
		return nil, nil, err
	}
	a := agent.New(p, completer, fetcher, s.logger,
		agent.WithMaxPages(s.cfg.MaxPages),
		agent.WithMetrics(s.metrics))
	return a, closeFetcher, nil
}

// RunAnalysis runs one persona against a URL and persists the report.
// An error is returned only for setup failures and fatal challenges; the
// report is non-nil whenever a run actually started.
func (s *Service) RunAnalysis(ctx context.Context, p persona.Persona, url string) (*report.AnalysisReport, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	a, closeFetcher, err := s.newAgent(p)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := closeFetcher(); err != nil {
			s.logger.Warn("closing fetcher failed", "error", err)
		}
	}()

	rep, navErr := a.Navigate(ctx, url)
	if path, err := s.writer.WriteAnalysis(rep); err != nil {
		s.logger.Error("saving report failed", "error", err)
	} else {
		s.logger.Info("saved report", "path", path)
	}
	return rep, navErr
}

// RunFocusGroup runs every persona against the URL and persists the
// combined report.
func (s *Service) RunFocusGroup(ctx context.Context, personas []persona.Persona, url string) (*report.FocusGroupReport, error) {
	if len(personas) == 0 {
		return nil, fmt.Errorf("focus group needs at least one persona")
	}
	for _, p := range personas {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("persona %q: %w", p.Name, err)
		}
	}

	summaryLLM, err := s.newCompleter()
	if err != nil {
		return nil, err
	}

	// Each persona run owns its fetcher; the factory closes it when the
	// run's agent finishes navigating.
	factory := func(p persona.Persona) (agent.Agent, error) {
		a, closeFetcher, err := s.newAgent(p)
		if err != nil {
			return nil, err
		}
		return &closingAgent{Agent: a, close: closeFetcher, logger: s.logger}, nil
	}

	fg := focusgroup.New(personas, factory, summaryLLM, s.logger,
		focusgroup.WithConcurrency(s.cfg.MaxConcurrentRuns),
		focusgroup.WithPacing(s.cfg.RunPacing),
		focusgroup.WithWriter(s.writer))

	return fg.AnalyzeWebsite(ctx, url)
}

// closingAgent releases the run's fetcher once navigation returns.
type closingAgent struct {
	agent.Agent
	close  func() error
	logger *slog.Logger
}

func (c *closingAgent) Navigate(ctx context.Context, startURL string) (*report.AnalysisReport, error) {
	defer func() {
		if err := c.close(); err != nil {
			c.logger.Warn("closing fetcher failed", "error", err)
		}
	}()
	return c.Agent.Navigate(ctx, startURL)
}
