// Package storage defines the byte-blob backend contract and its three
// implementations: local filesystem, blob-in-database, and S3-compatible
// object store. Backend selection is a deployment-time choice made at startup —
// all three satisfy identical store/retrieve/delete semantics.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a reference does not resolve to stored bytes.
var ErrNotFound = errors.New("storage: reference not found")

// ErrTransient is returned when the backend is reachable in principle but the
// operation failed for infrastructure reasons (network, service outage).
// Callers must not confuse it with ErrNotFound: the bytes may well exist.
var ErrTransient = errors.New("storage: transient backend failure")

// Backend stores and retrieves opaque byte blobs.
//
// Store is the only durable-write operation. It is NOT transactional with any
// metadata write the caller performs afterwards; callers must write bytes
// first and tolerate an orphaned blob if they crash before writing metadata.
type Backend interface {
	// Store writes data and returns an opaque reference. References are
	// collision-free under concurrent calls, even for identical originalName.
	Store(ctx context.Context, data []byte, originalName string) (string, error)
	// Retrieve returns the bytes for a reference, or ErrNotFound.
	Retrieve(ctx context.Context, ref string) ([]byte, error)
	// Delete removes the bytes for a reference, or returns ErrNotFound.
	Delete(ctx context.Context, ref string) error
	// Name returns the backend discriminator persisted on media records.
	Name() string
}
