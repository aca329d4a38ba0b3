package crawler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sitepanel/sitepanel/internal/metrics"
)

var hiddenStylePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)display\s*:\s*none`),
	regexp.MustCompile(`(?i)visibility\s*:\s*hidden`),
}

// StaticFetcher retrieves pages over plain HTTP and parses the HTML
// directly. No JavaScript execution and no screenshots; suited to static
// sites and to tests.
type StaticFetcher struct {
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics.Collector
}

// NewStaticFetcher creates a static HTTP fetcher.
func NewStaticFetcher(logger *slog.Logger, collector *metrics.Collector) *StaticFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &StaticFetcher{
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
		metrics: collector,
	}
}

// Fetch downloads and parses one page.
func (f *StaticFetcher) Fetch(ctx context.Context, rawURL string) (*PageContent, error) {
	start := time.Now()

	pageURL, err := Normalize(rawURL, "")
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pageURL, err)
	}

	if err := checkChallengeHTML(string(body), pageURL); err != nil {
		f.logger.Error("crawler: challenge page detected", "url", pageURL)
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("fetch %s: status %s", pageURL, resp.Status)
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	content := &PageContent{
		URL:          pageURL,
		TextContent:  collectText(doc),
		SectionLinks: map[string]string{},
	}
	collectLinks(doc, pageURL, content)

	if f.metrics != nil {
		f.metrics.RecordTiming(metrics.OpFetchPage, time.Since(start))
	}
	f.logger.Info("crawler: fetched page",
		"url", pageURL,
		"text_len", len(content.TextContent),
		"links", len(content.Links),
		"duration_ms", time.Since(start).Milliseconds())

	return content, nil
}

// checkChallengeHTML inspects raw HTML for anti-bot verification markers.
func checkChallengeHTML(body, pageURL string) error {
	lower := strings.ToLower(body)
	for _, marker := range challengeMarkers {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w at %s: automated analysis blocked, human verification required", ErrChallengeDetected, pageURL)
		}
	}
	return nil
}

func skippedNode(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Head:
		return true
	}
	for _, a := range n.Attr {
		if a.Key == "style" {
			for _, pat := range hiddenStylePatterns {
				if pat.MatchString(a.Val) {
					return true
				}
			}
		}
	}
	return false
}

// collectText gathers visible text nodes, one line per text node.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if skippedNode(n) {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				sb.WriteString(t)
				sb.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSuffix(sb.String(), "\n")
}

// collectLinks walks anchors, resolving each href against the page URL.
// Same-page links become section entries keyed by fragment; everything else
// lands in Links in document order.
func collectLinks(doc *html.Node, pageURL string, content *PageContent) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return
	}

	sectionText := map[string]string{}
	indexSections(doc, sectionText)

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.A {
			for _, a := range n.Attr {
				if a.Key != "href" || a.Val == "" {
					continue
				}
				href := strings.TrimSpace(a.Val)

				if strings.HasPrefix(href, "#") {
					if text, ok := sectionText[strings.TrimPrefix(href, "#")]; ok {
						content.SectionLinks[href] = text
					}
					continue
				}

				ref, err := url.Parse(href)
				if err != nil {
					continue
				}
				abs := base.ResolveReference(ref)
				if abs.Scheme != "http" && abs.Scheme != "https" {
					continue
				}
				if IsSamePage(abs.String(), pageURL) {
					if abs.Fragment != "" {
						if text, ok := sectionText[abs.Fragment]; ok {
							content.SectionLinks["#"+abs.Fragment] = text
						}
					}
					continue
				}
				content.Links = append(content.Links, abs.String())
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
}

// indexSections maps element ids to their text content.
func indexSections(n *html.Node, out map[string]string) {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val != "" {
				out[a.Val] = strings.TrimSpace(collectText(n))
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		indexSections(c, out)
	}
}
