// Package source fetches timetable workbooks from where they are published.
package source

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Fetcher downloads the bytes behind a source URL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

const xlsxSuffix = ".xlsx"

// ValidateURL accepts absolute http(s) URLs whose path ends in .xlsx and
// s3://bucket/key.xlsx object URLs.
func ValidateURL(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	switch u.Scheme {
	case "http", "https":
		if u.Host == "" {
			return nil, fmt.Errorf("%w: %q has no host", ErrInvalidURL, rawURL)
		}
	case "s3":
		if u.Host == "" || strings.Trim(u.Path, "/") == "" {
			return nil, fmt.Errorf("%w: %q must be s3://bucket/key", ErrInvalidURL, rawURL)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidURL, u.Scheme)
	}
	if !strings.HasSuffix(strings.ToLower(u.Path), xlsxSuffix) {
		return nil, fmt.Errorf("%w: %q must end in %s", ErrInvalidURL, rawURL, xlsxSuffix)
	}
	return u, nil
}

// Router picks a fetcher by URL scheme.
type Router struct {
	http Fetcher
	s3   Fetcher
}

// NewRouter routes http(s) URLs to httpF and s3 URLs to s3F. Either may be
// nil, in which case that scheme is rejected.
func NewRouter(httpF, s3F Fetcher) *Router {
	return &Router{http: httpF, s3: s3F}
}

// Fetch implements Fetcher.
func (r *Router) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return nil, err
	}
	var f Fetcher
	switch u.Scheme {
	case "s3":
		f = r.s3
	default:
		f = r.http
	}
	if f == nil {
		return nil, fmt.Errorf("%w: no fetcher configured for %s", ErrInvalidURL, u.Scheme)
	}
	return f.Fetch(ctx, rawURL)
}
