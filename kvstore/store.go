// Package kvstore provides the key-value backends session state is persisted in.
//
// A Store holds opaque byte values under string keys. Implementations must treat a
// missing key as ErrNotFound on Get and as a no-op on Delete.
package kvstore

import (
	"context"

	apperrors "github.com/jrsteele09/wydely-client/internal/errors"
)

var (
	// ErrNotFound is returned by Get when the key has no value.
	ErrNotFound = apperrors.ErrNotFound

	// ErrStorageUnavailable marks failures of the underlying medium.
	ErrStorageUnavailable = apperrors.ErrStorageUnavailable
)

// Store defines the key-value operations the client persists state with.
type Store interface {
	// Get returns the value stored under key or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set replaces the value stored under key
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key; removing an absent key is not an error
	Delete(ctx context.Context, key string) error
}
