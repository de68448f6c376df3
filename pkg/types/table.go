package types

import (
	"context"
	"errors"
)

// Collection provides uniform document operations over one named collection.
// Documents carry their store-assigned identifier under IDField.
type Collection interface {
	// Name returns the collection name.
	Name() string

	// Insert stores doc and returns the identifier the store assigned to it.
	// Returns ErrInvalidDocument if doc already carries an identifier.
	Insert(ctx context.Context, doc Document) (string, error)

	// Get retrieves the document with the given identifier.
	// Returns ErrNotFound if no document exists with that identifier.
	Get(ctx context.Context, id string) (Document, error)

	// Find returns the documents matching q in insertion order. No match is
	// an empty slice, never an error.
	Find(ctx context.Context, q Query) ([]Document, error)

	// First returns the first document matching q. found is false when
	// nothing matches.
	First(ctx context.Context, q Query) (doc Document, found bool, err error)

	// Update sets the given top-level fields on the document with the given
	// identifier and returns the document as it was before the change.
	// Returns ErrNotFound if no document exists with that identifier.
	Update(ctx context.Context, id string, changes Document) (Document, error)

	// Delete removes the document with the given identifier.
	// Returns ErrNotFound if no document exists with that identifier.
	Delete(ctx context.Context, id string) error

	// Clear removes every document and returns how many were removed.
	Clear(ctx context.Context) (int64, error)
}

// Collection operation errors.
var (
	ErrNotFound        = errors.New("document not found")
	ErrInvalidID       = errors.New("invalid document ID")
	ErrInvalidDocument = errors.New("invalid document")
	ErrInvalidQuery    = errors.New("invalid query")
)
