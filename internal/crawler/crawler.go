// Package crawler fetches page content for analysis: visible text, links,
// section anchors, and a screenshot. Two implementations exist: a rod-driven
// headless browser and a static net/http fetcher.
package crawler

import (
	"context"
	"errors"
)

// Sentinel errors for fetch operations.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrChallengeDetected indicates an anti-bot verification page
	// (Cloudflare or similar) blocked content extraction. Fatal to the
	// whole run, never retried.
	ErrChallengeDetected = errors.New("challenge page detected")

	// ErrInvalidURL indicates the URL could not be normalized into a
	// fetchable absolute URL.
	ErrInvalidURL = errors.New("invalid url")
)

// PageContent is the result of fetching one page. Ephemeral, one per fetch.
type PageContent struct {
	URL         string
	TextContent string
	// Links holds absolute URLs found on the page, in document order,
	// same-page links excluded.
	Links []string
	// Screenshot is a full-page PNG, empty for fetchers without rendering.
	Screenshot []byte
	// SectionLinks maps fragment anchors ("#pricing") to the text of the
	// section they point at.
	SectionLinks map[string]string
}

// Fetcher retrieves page content for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*PageContent, error)
}
