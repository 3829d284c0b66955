package source

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/okian/exambot/pkg/metrics"
)

// S3Config locates an S3-compatible object store.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// S3Fetcher downloads workbooks from s3://bucket/key URLs.
type S3Fetcher struct {
	client   *minio.Client
	maxBytes int64
}

// NewS3Fetcher creates a client for the configured store. No request is made
// until the first Fetch.
func NewS3Fetcher(cfg S3Config) (*S3Fetcher, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client for %q: %w", cfg.Endpoint, err)
	}
	return &S3Fetcher{client: client, maxBytes: defaultMaxBytes}, nil
}

// SplitS3URL returns the bucket and object key of an s3:// URL.
func SplitS3URL(rawURL string) (bucket, key string, err error) {
	u, err := ValidateURL(rawURL)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "s3" {
		return "", "", fmt.Errorf("%w: %q is not an s3 url", ErrInvalidURL, rawURL)
	}
	return u.Host, strings.TrimPrefix(u.Path, "/"), nil
}

// Fetch implements Fetcher.
func (f *S3Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	bucket, key, err := SplitS3URL(rawURL)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	obj, err := f.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		metrics.RecordErrorByComponent("source", "s3")
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer obj.Close()

	data, err := readLimited(obj, f.maxBytes)
	if err != nil {
		metrics.RecordErrorByComponent("source", "s3")
		return nil, err
	}
	metrics.RecordSourceFetch(float64(time.Since(start).Milliseconds()), len(data))
	return data, nil
}
