package db

import (
	"context"
	"errors"
	"time"
)

// ErrDocumentNotFound is returned by UpdateField when the trip document has not been created yet.
var ErrDocumentNotFound = errors.New("document not found")

// ErrIteratorStopped is returned by SnapshotIterator.Next after Stop.
var ErrIteratorStopped = errors.New("snapshot iterator stopped")

// DocumentSnapshot is one observed state of the trip document.
// Exists is false when the document has not been created; Data is then nil.
type DocumentSnapshot struct {
	Exists     bool
	Data       map[string]interface{}
	UpdateTime time.Time
}

// Field returns the value stored under name and whether it is present.
func (s *DocumentSnapshot) Field(name string) (interface{}, bool) {
	if s == nil || !s.Exists || s.Data == nil {
		return nil, false
	}
	v, ok := s.Data[name]
	return v, ok
}

// SnapshotIterator delivers the document's state on every remote change.
// The first call to Next returns the current state.
type SnapshotIterator interface {
	Next() (*DocumentSnapshot, error)
	Stop()
}

// TripDocumentStore is the backing store for the single shared trip document.
type TripDocumentStore interface {
	// Get reads the current document. A missing document is not an error.
	Get(ctx context.Context) (*DocumentSnapshot, error)
	// UpdateField sets one field on the existing document.
	// It returns an error wrapping ErrDocumentNotFound if the document does not exist.
	UpdateField(ctx context.Context, field string, value interface{}) error
	// MergeField writes one field, creating the document if needed and leaving other fields untouched.
	MergeField(ctx context.Context, field string, value interface{}) error
	// Watch opens a live subscription to the document until ctx is cancelled or Stop is called.
	Watch(ctx context.Context) SnapshotIterator
	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}
