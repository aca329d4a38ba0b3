package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

const testPage = `<!DOCTYPE html>
<html>
<head>
  <title>Acme</title>
  <style>.x { color: red }</style>
  <script>console.log("tracking")</script>
</head>
<body>
  <nav>
    <a href="/pricing">Pricing</a>
    <a href="/docs">Docs</a>
    <a href="#features">Features</a>
    <a href="mailto:hi@acme.test">Mail us</a>
  </nav>
  <h1>Welcome to Acme</h1>
  <p style="display:none">hidden promo text</p>
  <div id="features">
    <h2>Features</h2>
    <p>Fast and reliable.</p>
  </div>
  <a href="https://external.test/blog">Blog</a>
</body>
</html>`

func serve(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestStaticFetcher_Fetch(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testPage)
	})

	f := NewStaticFetcher(discard(), nil)
	page, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if !strings.Contains(page.TextContent, "Welcome to Acme") {
		t.Errorf("TextContent missing heading: %q", page.TextContent)
	}
	if strings.Contains(page.TextContent, "tracking") {
		t.Errorf("TextContent includes script content: %q", page.TextContent)
	}
	if strings.Contains(page.TextContent, "hidden promo") {
		t.Errorf("TextContent includes display:none content: %q", page.TextContent)
	}

	wantLinks := []string{
		srv.URL + "/pricing",
		srv.URL + "/docs",
		"https://external.test/blog",
	}
	if len(page.Links) != len(wantLinks) {
		t.Fatalf("Links = %v, want %v", page.Links, wantLinks)
	}
	for i, want := range wantLinks {
		if page.Links[i] != want {
			t.Errorf("Links[%d] = %q, want %q", i, page.Links[i], want)
		}
	}

	section, ok := page.SectionLinks["#features"]
	if !ok {
		t.Fatalf("SectionLinks missing #features: %v", page.SectionLinks)
	}
	if !strings.Contains(section, "Fast and reliable.") {
		t.Errorf("section text = %q, want the features copy", section)
	}
}

func TestStaticFetcher_ChallengeDetected(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		fmt.Fprint(w, `<html><body>
			<div class="challenge-form">Verify you are human</div>
		</body></html>`)
	})

	f := NewStaticFetcher(discard(), nil)
	_, err := f.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrChallengeDetected) {
		t.Errorf("Fetch() error = %v, want ErrChallengeDetected", err)
	}
}

func TestStaticFetcher_ErrorStatus(t *testing.T) {
	srv := serve(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	})

	f := NewStaticFetcher(discard(), nil)
	_, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("Fetch() error = nil, want status error")
	}
	if errors.Is(err, ErrChallengeDetected) {
		t.Errorf("Fetch() error = %v, plain 404 is not a challenge", err)
	}
}

func TestStaticFetcher_InvalidURL(t *testing.T) {
	f := NewStaticFetcher(discard(), nil)
	_, err := f.Fetch(context.Background(), "not a url")
	if !errors.Is(err, ErrInvalidURL) {
		t.Errorf("Fetch() error = %v, want ErrInvalidURL", err)
	}
}
