// Package blobstore abstracts storage of page assets (encoded page images
// and document bundles) behind a small whole-object interface.
//
// Page assets are small and read in one piece, so there is no block-level
// API: Get returns the whole object. Implementations must be safe for
// concurrent use; concurrent Preload is the normal access pattern.
package blobstore

import (
	"context"
	"os"
)

// ErrNotFound is returned when an object does not exist.
//
// Implementations should return an error that satisfies
// `errors.Is(err, ErrNotFound)`. The default maps to `os.ErrNotExist`.
var ErrNotFound = os.ErrNotExist

// Store is a flat keyed object store.
type Store interface {
	// Get returns the object's contents. The returned slice is owned by
	// the caller.
	Get(ctx context.Context, name string) ([]byte, error)

	// Put writes an object, replacing any existing one atomically.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all objects with the given prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
}
