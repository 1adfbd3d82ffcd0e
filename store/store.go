package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the store answered and the key is absent.
	ErrNotFound = errors.New("store: key not found")
	// ErrUnavailable means the store could not be reached.
	ErrUnavailable = errors.New("store: unavailable")
	// ErrVersionConflict means the document changed since it was read.
	ErrVersionConflict = errors.New("store: version conflict")
	// ErrCorrupt means a stored document could not be decoded.
	ErrCorrupt = errors.New("store: corrupt document")
)

// Store is a durable key -> JSON document map with optimistic versioning.
//
// Every document carries a top-level integer "version" field. Put and Delete
// take the version the caller last read (0 for "must not exist") and fail
// with ErrVersionConflict when the stored version differs. Put expects the
// new document to carry expected+1. The store does not look at any other
// field.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, doc []byte, expected int64) error
	// Delete removes key if its version still equals expected. An absent key is not an error.
	Delete(ctx context.Context, key string, expected int64) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	Ping(ctx context.Context) error
}

type envelope struct {
	Version *int64 `json:"version"`
}

// documentVersion reads the version field of a stored document. Documents
// written before versioning have no field and count as version 0.
func documentVersion(doc []byte) (int64, error) {
	var env envelope
	if err := json.Unmarshal(doc, &env); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if env.Version == nil {
		return 0, nil
	}
	return *env.Version, nil
}

func checkNextVersion(doc []byte, expected int64) error {
	v, err := documentVersion(doc)
	if err != nil {
		return err
	}
	if v != expected+1 {
		return fmt.Errorf("store: document carries version %d, want %d", v, expected+1)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUnavailable, op, err)
}
