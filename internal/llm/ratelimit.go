package llm

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/sitepanel/sitepanel/internal/metrics"
)

// maxBackoff caps the exponential backoff between rate-limited attempts.
const maxBackoff = 300 * time.Second

// generator is the minimal surface the limiter needs from the model.
type generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Limiter serializes completion calls and enforces minimum spacing between
// them. The upstream service enforces aggressive rate limits; one Limiter
// instance per persona run keeps the bookkeeping per-persona.
type Limiter struct {
	llm      generator
	minDelay time.Duration
	maxDelay time.Duration
	logger   *slog.Logger
	metrics  *metrics.Collector

	mu       sync.Mutex
	lastCall time.Time

	// injectable for tests
	now       func() time.Time
	sleep     func(ctx context.Context, d time.Duration) error
	randFloat func() float64
}

// LimiterOption configures a Limiter.
type LimiterOption func(*Limiter)

// WithMetrics attaches a metrics collector to the limiter.
func WithMetrics(c *metrics.Collector) LimiterOption {
	return func(l *Limiter) { l.metrics = c }
}

// WithClock overrides the limiter's time source and sleeper (for tests).
func WithClock(now func() time.Time, sleep func(ctx context.Context, d time.Duration) error) LimiterOption {
	return func(l *Limiter) {
		l.now = now
		l.sleep = sleep
	}
}

// NewLimiter wraps a completion model with call spacing and retry policy.
// minDelay and maxDelay bound the random spacing between top-level calls;
// defaults are 10s and 20s.
func NewLimiter(llm generator, minDelay, maxDelay time.Duration, logger *slog.Logger, opts ...LimiterOption) *Limiter {
	if minDelay <= 0 {
		minDelay = 10 * time.Second
	}
	if maxDelay < minDelay {
		maxDelay = 2 * minDelay
	}
	if logger == nil {
		logger = slog.Default()
	}

	l := &Limiter{
		llm:       llm,
		minDelay:  minDelay,
		maxDelay:  maxDelay,
		logger:    logger,
		now:       time.Now,
		sleep:     sleepCtx,
		randFloat: rand.Float64,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Complete invokes the model, retrying up to maxAttempts times. Spacing:
// the first attempt waits a random delay in [minDelay, maxDelay] since the
// previous call returned; retry n within the same Complete waits
// min(300s, minDelay * 2^n). Non-rate-limit failures additionally sleep
// 2^attempt seconds. The backoff resets on every new Complete call.
func (l *Limiter) Complete(ctx context.Context, prompt string, maxAttempts int) (string, error) {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := l.waitForSlot(ctx, attempt); err != nil {
			return "", err
		}

		l.logger.Debug("completion attempt", "attempt", attempt+1, "max_attempts", maxAttempts, "prompt_len", len(prompt))

		start := l.now()
		response, err := l.llm.Generate(ctx, prompt)
		l.touch()

		if l.metrics != nil {
			l.metrics.RecordTiming(metrics.OpLLMGenerate, l.now().Sub(start))
		}

		if err == nil {
			return response, nil
		}
		lastErr = err

		if isRateLimitError(err) {
			// Backoff happens in waitForSlot on the next attempt.
			l.logger.Warn("rate limit hit", "attempt", attempt+1)
			continue
		}

		l.logger.Warn("completion attempt failed", "attempt", attempt+1, "error", err)
		if attempt+1 < maxAttempts {
			backoff := time.Duration(1<<uint(attempt+1)) * time.Second
			if err := l.sleep(ctx, backoff); err != nil {
				return "", err
			}
		}
	}

	return "", fmt.Errorf("%w after %d attempts: %w", ErrExhausted, maxAttempts, lastErr)
}

// waitForSlot blocks until enough time has passed since the last call.
// attempt 0 uses the random [minDelay, maxDelay] spacing; retries use
// exponential backoff capped at maxBackoff.
func (l *Limiter) waitForSlot(ctx context.Context, attempt int) error {
	var delay time.Duration
	if attempt > 0 {
		delay = min(maxBackoff, l.minDelay*(1<<uint(attempt)))
	} else {
		delay = l.minDelay + time.Duration(l.randFloat()*float64(l.maxDelay-l.minDelay))
	}

	l.mu.Lock()
	elapsed := l.now().Sub(l.lastCall)
	l.mu.Unlock()

	if elapsed < delay {
		wait := delay - elapsed
		l.logger.Debug("waiting before completion call", "wait", wait)
		return l.sleep(ctx, wait)
	}
	return nil
}

// touch records the time of the last call, success or failure, so spacing
// applies uniformly.
func (l *Limiter) touch() {
	l.mu.Lock()
	l.lastCall = l.now()
	l.mu.Unlock()
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
