package domain

import (
	"context"
	"io"
	"time"
)

// BlobInfo is metadata for one archived object.
type BlobInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
}

// BlobWriter uploads archive objects to blob storage. Archive objects are
// small and immutable, so the whole payload is handed over at once.
type BlobWriter interface {
	Put(ctx context.Context, path string, data []byte) error
}

// BlobReader retrieves and lists objects in blob storage.
type BlobReader interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]BlobInfo, error)
	Exists(ctx context.Context, path string) (bool, error)
}
