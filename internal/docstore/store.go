// Package docstore defines the document store boundary used to mirror live
// match state between a scorekeeper and its observers.
package docstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a document key has no value.
var ErrNotFound = errors.New("docstore: document not found")

// Document is a JSON-shaped document value.
type Document map[string]any

// Fields is a partial set of top-level document fields for merge updates.
type Fields map[string]any

// OnChange is invoked with the full document after every observed change.
type OnChange func(doc Document)

// Unsubscribe tears down a subscription created by Subscribe.
type Unsubscribe func()

// Store is the key/document interface the synchronizer writes through.
// Implementations guarantee last-write-wins per key; no transactions or
// multi-document atomicity are required.
type Store interface {
	// Get returns the document at key, or ErrNotFound.
	Get(ctx context.Context, key string) (Document, error)

	// Put replaces the document at key wholesale, creating it if absent.
	Put(ctx context.Context, key string, doc Document) error

	// Merge updates the given top-level fields, creating the document from
	// the fields alone when it is absent.
	Merge(ctx context.Context, key string, fields Fields) error

	// AppendToArray appends value to the named array field. Returns
	// ErrNotFound when the document does not exist.
	AppendToArray(ctx context.Context, key string, field string, value any) error

	// Subscribe registers fn to be called after every change to key.
	Subscribe(ctx context.Context, key string, fn OnChange) (Unsubscribe, error)
}
