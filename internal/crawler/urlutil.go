package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// Normalize resolves raw against base (for relative links), adds an https
// scheme when missing, and validates the result. Returns ErrInvalidURL when
// the input cannot become a fetchable absolute URL.
func Normalize(raw, base string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	if strings.HasPrefix(raw, "/") && base != "" {
		baseURL, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("%w: bad base %q", ErrInvalidURL, base)
		}
		ref, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
		}
		raw = baseURL.ResolveReference(ref).String()
	}

	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || !strings.Contains(u.Host, ".") && u.Host != "localhost" && !strings.Contains(u.Host, ":") {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}

	return u.String(), nil
}

// IsSamePage reports whether two URLs point at the same page, ignoring the
// fragment and any trailing slash difference in the path.
func IsSamePage(a, b string) bool {
	ua, err := url.Parse(a)
	if err != nil {
		return false
	}
	ub, err := url.Parse(b)
	if err != nil {
		return false
	}

	return ua.Scheme == ub.Scheme &&
		ua.Host == ub.Host &&
		strings.TrimSuffix(ua.Path, "/") == strings.TrimSuffix(ub.Path, "/") &&
		ua.RawQuery == ub.RawQuery
}

// StripFragment removes the fragment from a URL.
func StripFragment(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	return u.String()
}
