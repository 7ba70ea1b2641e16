package store

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned by Create when the id is taken.
	ErrAlreadyExists = errors.New("document already exists")
)

// UpdateFunc receives the current encoded document and returns its replacement.
// Returning an error aborts the update and leaves the document untouched.
// Optimistic backends may call it more than once.
type UpdateFunc func(current []byte) ([]byte, error)

// DocumentStore is a collection-scoped JSON document store.
type DocumentStore interface {
	// Get returns the encoded document or ErrNotFound.
	Get(ctx context.Context, collection, id string) ([]byte, error)

	// Create stores a document only if the id is free, else ErrAlreadyExists.
	Create(ctx context.Context, collection, id string, doc []byte) error

	// Put creates or replaces a document.
	Put(ctx context.Context, collection, id string, doc []byte) error

	// Delete removes a document. Deleting a missing document is not an error.
	Delete(ctx context.Context, collection, id string) error

	// List returns every document in a collection, in no particular order.
	List(ctx context.Context, collection string) ([][]byte, error)

	// Update atomically replaces a single document using fn.
	// It returns ErrNotFound if the document does not exist.
	Update(ctx context.Context, collection, id string, fn UpdateFunc) error
}

// EventStoreInterface defines the interface for event stores
type EventStoreInterface interface {
	Append(ctx context.Context, aggregateID, aggregateType, eventType string, data any) (*Event, error)
	GetEvents(ctx context.Context, aggregateID string) ([]Event, error)
	GetAllEvents(ctx context.Context) ([]Event, error)
}
