package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/stealth"

	"github.com/sitepanel/sitepanel/internal/metrics"
)

const (
	navigationTimeout = 30 * time.Second
	// graceDelay gives late-loading content a chance after the load event
	// when the idle wait times out.
	graceDelay = 2 * time.Second
)

// challengeMarkers are substrings of known anti-bot verification pages.
var challengeMarkers = []string{
	"challenges.cloudflare.com",
	"challenge-running",
	"challenge-form",
	"cf_captcha",
	"cf-browser-verification",
	"verify you are human",
	"needs to review the security of your connection",
}

// challengeTitles are page-title fragments of protection interstitials.
var challengeTitles = []string{
	"security check",
	"cloudflare",
	"ddos protection",
}

// BrowserConfig configures the browser fetcher.
type BrowserConfig struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// ScreenshotsDir, when set, additionally saves every screenshot as a
	// PNG file there.
	ScreenshotsDir string

	Logger  *slog.Logger
	Metrics *metrics.Collector
}

// BrowserFetcher drives a headless Chrome via rod with stealth pages.
// Browser instances are costly; acquire once per run and Close on all exit
// paths.
type BrowserFetcher struct {
	cfg     BrowserConfig
	browser *rod.Browser
	lnch    *launcher.Launcher
	logger  *slog.Logger
}

// NewBrowserFetcher launches Chrome (or connects to a remote instance) and
// returns a ready fetcher. Call Close when done.
func NewBrowserFetcher(cfg BrowserConfig) (*BrowserFetcher, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var wsURL string
	var lnch *launcher.Launcher

	if cfg.RemoteURL != "" {
		wsURL = cfg.RemoteURL
		logger.Info("crawler: connecting to remote browser", "url", wsURL)
	} else {
		l := launcher.New().
			Headless(true).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		wsURL = u
		lnch = l
		logger.Info("crawler: launched local chrome", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if lnch != nil {
			lnch.Cleanup()
		}
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	return &BrowserFetcher{
		cfg:     cfg,
		browser: b,
		lnch:    lnch,
		logger:  logger,
	}, nil
}

// Close shuts down the browser and the launcher.
func (f *BrowserFetcher) Close() error {
	var err error
	if f.browser != nil {
		err = f.browser.Close()
		f.browser = nil
	}
	if f.lnch != nil {
		f.lnch.Cleanup()
		f.lnch = nil
	}
	return err
}

// Fetch navigates to the URL on a fresh stealth page and extracts visible
// text, links, section anchors, and a full-page screenshot. Returns
// ErrChallengeDetected when the page is an anti-bot interstitial.
func (f *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (*PageContent, error) {
	start := time.Now()

	pageURL, err := Normalize(rawURL, "")
	if err != nil {
		return nil, err
	}

	page, err := stealth.Page(f.browser)
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer page.Close()

	navCtx, cancel := context.WithTimeout(ctx, navigationTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		// Fall back to a short grace period for late content.
		f.logger.Warn("crawler: load wait timed out, using grace period", "url", pageURL, "error", err)
		select {
		case <-time.After(graceDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := f.checkChallenge(ctx, page, pageURL); err != nil {
		return nil, err
	}

	content, err := f.extract(ctx, page, pageURL)
	if err != nil {
		return nil, err
	}

	shot, err := page.Context(ctx).Screenshot(true, nil)
	if err != nil {
		f.logger.Warn("crawler: screenshot failed", "url", pageURL, "error", err)
	} else {
		content.Screenshot = shot
		f.saveScreenshot(pageURL, shot)
	}

	if f.cfg.Metrics != nil {
		f.cfg.Metrics.RecordTiming(metrics.OpFetchPage, time.Since(start))
	}
	f.logger.Info("crawler: fetched page",
		"url", pageURL,
		"text_len", len(content.TextContent),
		"links", len(content.Links),
		"duration_ms", time.Since(start).Milliseconds())

	return content, nil
}

// checkChallenge inspects the rendered page for anti-bot verification
// markers.
func (f *BrowserFetcher) checkChallenge(ctx context.Context, page *rod.Page, pageURL string) error {
	html, err := page.Context(ctx).HTML()
	if err != nil {
		return fmt.Errorf("read page html: %w", err)
	}
	lower := strings.ToLower(html)
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			f.logger.Error("crawler: challenge page detected", "url", pageURL, "marker", marker)
			return fmt.Errorf("%w at %s: automated analysis blocked, human verification required", ErrChallengeDetected, pageURL)
		}
	}

	res, err := page.Context(ctx).Eval(`() => document.title`)
	if err != nil {
		return nil
	}
	title := strings.ToLower(res.Value.Str())
	for _, t := range challengeTitles {
		if strings.Contains(title, t) {
			f.logger.Error("crawler: challenge page detected", "url", pageURL, "title", title)
			return fmt.Errorf("%w at %s: automated analysis blocked, human verification required", ErrChallengeDetected, pageURL)
		}
	}
	return nil
}

// extractScript collects visible text, outbound links, and same-page
// section text in one pass. Same-page links (fragments included) become
// section entries instead of navigation candidates.
const extractScript = `() => {
	const visible = el => {
		const s = window.getComputedStyle(el);
		return s.display !== 'none' && s.visibility !== 'hidden';
	};
	const text = Array.from(document.querySelectorAll('body *'))
		.filter(visible)
		.map(el => el.textContent)
		.join('\n');

	const links = [];
	const sections = {};
	const samePath = p => p.replace(/\/$/, '');
	for (const a of document.querySelectorAll('a[href]')) {
		const href = a.getAttribute('href');
		if (!href) continue;
		if (href.startsWith('#')) {
			const el = document.getElementById(href.slice(1));
			if (el) sections[href] = el.textContent;
			continue;
		}
		let abs;
		try { abs = new URL(href, location.href); } catch (e) { continue; }
		if (abs.origin === location.origin &&
			samePath(abs.pathname) === samePath(location.pathname) &&
			abs.search === location.search) {
			if (abs.hash) {
				const el = document.getElementById(abs.hash.slice(1));
				if (el) sections[abs.hash] = el.textContent;
			}
			continue;
		}
		links.push(abs.href);
	}
	return {text, links, sections};
}`

func (f *BrowserFetcher) extract(ctx context.Context, page *rod.Page, pageURL string) (*PageContent, error) {
	res, err := page.Context(ctx).Eval(extractScript)
	if err != nil {
		return nil, fmt.Errorf("extract content: %w", err)
	}

	content := &PageContent{
		URL:          pageURL,
		TextContent:  res.Value.Get("text").Str(),
		SectionLinks: map[string]string{},
	}

	for _, link := range res.Value.Get("links").Arr() {
		href := link.Str()
		if _, err := url.ParseRequestURI(href); err != nil {
			f.logger.Debug("crawler: skipping invalid link", "href", href)
			continue
		}
		content.Links = append(content.Links, href)
	}
	for anchor, text := range res.Value.Get("sections").Map() {
		content.SectionLinks[anchor] = strings.TrimSpace(text.Str())
	}

	return content, nil
}

// saveScreenshot writes the JPEG to the screenshots directory, best effort.
func (f *BrowserFetcher) saveScreenshot(pageURL string, shot []byte) {
	if f.cfg.ScreenshotsDir == "" {
		return
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return
	}
	if err := os.MkdirAll(f.cfg.ScreenshotsDir, 0755); err != nil {
		f.logger.Warn("crawler: create screenshots dir", "error", err)
		return
	}
	domain := strings.TrimPrefix(u.Host, "www.")
	name := fmt.Sprintf("%s_%s.png", domain, time.Now().Format("20060102_150405"))
	path := filepath.Join(f.cfg.ScreenshotsDir, name)
	if err := os.WriteFile(path, shot, 0644); err != nil {
		f.logger.Warn("crawler: save screenshot", "path", path, "error", err)
		return
	}
	f.logger.Debug("crawler: screenshot saved", "path", path)
}
