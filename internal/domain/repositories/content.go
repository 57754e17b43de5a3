package repositories

import (
	"context"
	"io"
)

// ContentLocator stores file bytes and hands back a retrieval URL.
type ContentLocator interface {
	// Upload stores size bytes from r at path and returns its URL.
	Upload(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error)

	// Open streams the content stored at path.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the content at path.
	Delete(ctx context.Context, path string) error

	// Type names the backend for logging.
	Type() string
}
