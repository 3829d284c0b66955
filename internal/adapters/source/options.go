package source

import (
	"net/http"
	"time"
)

// HTTPOption applies a configuration option to the HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		if c != nil {
			f.client = c
		}
	}
}

// WithTimeout sets the request timeout of the default client.
func WithTimeout(d time.Duration) HTTPOption {
	return func(f *HTTPFetcher) {
		if d > 0 {
			f.client.Timeout = d
		}
	}
}

// WithMaxBytes caps the download size.
func WithMaxBytes(n int64) HTTPOption {
	return func(f *HTTPFetcher) {
		if n > 0 {
			f.maxBytes = n
		}
	}
}
