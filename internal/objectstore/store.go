// Package objectstore writes uploaded files to durable blob storage.
package objectstore

import (
	"context"
	"fmt"
	"io"
)

// Store defines the blob operations the intake pipeline depends on.
// Implementations are safe for concurrent use.
type Store interface {
	// Put writes body under key in bucket. size may be -1 when unknown.
	// A successful return means the object is durable and readable.
	Put(ctx context.Context, bucket, key string, body io.Reader, size int64) error
	// Exists reports whether key is present in bucket. A missing key is
	// (false, nil), not an error.
	Exists(ctx context.Context, bucket, key string) (bool, error)
	// Backend names the implementation for logs and metrics.
	Backend() string
}

// Backend names accepted by configuration.
const (
	BackendS3    = "s3"
	BackendNATS  = "nats"
	BackendLocal = "local"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	// S3: endpoint host[:port], region, credentials. Empty credentials fall
	// back to the AWS environment, shared credentials file, then IAM.
	Endpoint        string
	Region          string
	UseSSL          bool
	AccessKeyID     string
	SecretAccessKey string
	// CreateBucket creates a missing bucket on startup (S3, NATS).
	CreateBucket bool
	Bucket       string
	// NATS: server url.
	NATSURL string
	// Local: root directory, one subdirectory per bucket.
	Directory string
}

// New creates the backend selected by cfg.
func New(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendS3:
		return NewS3Store(ctx, cfg)
	case BackendNATS:
		return NewNATSStore(ctx, cfg)
	case BackendLocal:
		return NewLocalStore(cfg.Directory)
	default:
		return nil, fmt.Errorf("unknown object store backend %q", cfg.Backend)
	}
}

// Close releases backend resources when the store holds any.
func Close(s Store) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
