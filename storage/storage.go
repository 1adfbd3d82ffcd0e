package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned by Download when the object does not exist.
var ErrNotFound = errors.New("storage: object not found")

// Storage defines the object storage operations used for the results sink
// and for object-store ingress.
type Storage interface {
	// Upload writes data from reader to the given path.
	Upload(ctx context.Context, path string, reader io.Reader, contentType string) error

	// Download returns a reader for the object at the given path.
	// The caller is responsible for closing the returned ReadCloser.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the object at the given path.
	// Returns nil if the object does not exist.
	Delete(ctx context.Context, path string) error

	// Exists checks whether an object exists at the given path.
	Exists(ctx context.Context, path string) (bool, error)

	// Location returns the canonical address recorded for an uploaded object,
	// e.g. s3://bucket/key.
	Location(path string) string
}

// Pinger is optionally implemented by backends that can verify access to
// their bucket or root.
type Pinger interface {
	Ping(ctx context.Context) error
}
