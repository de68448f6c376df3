package types

import (
	"context"
	"errors"
)

// Store defines backend-agnostic access to a set of named document
// collections. Callers attach to a backend, bootstrap the collections they
// need, work through Collection handles, and detach when done.
type Store interface {
	// Attach connects the Store to the backend described by config.
	// Returns ErrAlreadyAttached if called while already attached.
	Attach(ctx context.Context, config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, collection operations return ErrStoreDetached.
	Detach(ctx context.Context) error

	// Collection returns a handle for the named collection. The handle is
	// lazy; operations on a collection that was never bootstrapped return
	// ErrCollectionNotFound on backends that track collections explicitly.
	Collection(name string) (Collection, error)

	// CollectionExists reports whether the named collection has been created.
	CollectionExists(ctx context.Context, name string) (bool, error)

	// EnsureCollection creates the named collection if it does not exist.
	// It reports whether a collection was created. Idempotent.
	EnsureCollection(ctx context.Context, name string) (bool, error)
}

// Store lifecycle errors.
var (
	ErrStoreDetached      = errors.New("store is detached")
	ErrAlreadyAttached    = errors.New("store is already attached")
	ErrCollectionNotFound = errors.New("collection not found")
	ErrStoreUnavailable   = errors.New("store unavailable")
)
