package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/exambot/pkg/metrics"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultMaxBytes    = 32 << 20
)

// HTTPFetcher downloads workbooks over http(s).
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewHTTPFetcher creates an HTTPFetcher.
func NewHTTPFetcher(opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:   &http.Client{Timeout: defaultHTTPTimeout},
		maxBytes: defaultMaxBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidURL, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		metrics.RecordErrorByComponent("source", "http")
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.RecordErrorByComponent("source", "http_status")
		return nil, fmt.Errorf("%w: %s returned %s", ErrFetch, rawURL, resp.Status)
	}
	data, err := readLimited(resp.Body, f.maxBytes)
	if err != nil {
		return nil, err
	}
	metrics.RecordSourceFetch(float64(time.Since(start).Milliseconds()), len(data))
	return data, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}
