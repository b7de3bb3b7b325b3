package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// MemoryTripStore is an in-process TripDocumentStore with Firestore's field semantics.
// Values are normalised through JSON so readers see the same loosely typed maps and
// slices that Firestore returns. Used by tests and by the "memory" store backend.
type MemoryTripStore struct {
	mu          sync.Mutex
	exists      bool
	data        map[string]interface{}
	updateTime  time.Time
	unavailable error
	watchers    map[*memoryIterator]struct{}
}

// NewMemoryTripStore returns an empty store; the document does not exist until the first merge.
func NewMemoryTripStore() *MemoryTripStore {
	return &MemoryTripStore{watchers: map[*memoryIterator]struct{}{}}
}

// SetUnavailable makes every call fail with err, simulating a lost connection.
// Passing nil restores the store.
func (s *MemoryTripStore) SetUnavailable(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unavailable = err
}

// Get returns a copy of the current document. A missing document is not an error.
func (s *MemoryTripStore) Get(_ context.Context) (*DocumentSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable != nil {
		return nil, s.unavailable
	}
	return s.snapshotLocked(), nil
}

// UpdateField sets one field of an existing document and fails with ErrDocumentNotFound
// otherwise, like Firestore's Update.
func (s *MemoryTripStore) UpdateField(_ context.Context, field string, value interface{}) error {
	// Encode outside the lock; a value that cannot be encoded never reaches the document.
	normalized, err := normalize(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable != nil {
		return s.unavailable
	}
	if !s.exists {
		return fmt.Errorf("field '%s': %w", field, ErrDocumentNotFound)
	}
	s.data[field] = normalized
	s.touchLocked()
	return nil
}

// MergeField sets one field, creating the document if needed. Other fields are untouched.
func (s *MemoryTripStore) MergeField(_ context.Context, field string, value interface{}) error {
	normalized, err := normalize(value)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unavailable != nil {
		return s.unavailable
	}
	if !s.exists {
		// First write creates the document with just this field.
		s.exists = true
		s.data = map[string]interface{}{}
	}
	s.data[field] = normalized
	s.touchLocked()
	return nil
}

// Watch returns an iterator whose first Next yields the current state and every later
// Next the state after one or more writes.
func (s *MemoryTripStore) Watch(ctx context.Context) SnapshotIterator {
	it := &memoryIterator{
		store:  s,
		ctx:    ctx,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	// Prime the iterator so the first Next returns immediately.
	it.notify <- struct{}{}
	s.mu.Lock()
	s.watchers[it] = struct{}{}
	s.mu.Unlock()
	return it
}

// Ping fails only while the store is marked unavailable.
func (s *MemoryTripStore) Ping(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unavailable
}

// Watchers reports how many iterators are still open.
func (s *MemoryTripStore) Watchers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.watchers)
}

func (s *MemoryTripStore) touchLocked() {
	s.updateTime = time.Now().UTC()
	// Non-blocking: a watcher that has not read the last notification
	// will see this write on its next Next anyway.
	for w := range s.watchers {
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
}

func (s *MemoryTripStore) snapshotLocked() *DocumentSnapshot {
	if !s.exists {
		return &DocumentSnapshot{Exists: false}
	}
	data := make(map[string]interface{}, len(s.data))
	for k, v := range s.data {
		data[k] = v
	}
	return &DocumentSnapshot{Exists: true, Data: data, UpdateTime: s.updateTime}
}

type memoryIterator struct {
	store    *MemoryTripStore
	ctx      context.Context
	notify   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

// Next coalesces bursts of writes: it always returns the latest state.
func (i *memoryIterator) Next() (*DocumentSnapshot, error) {
	select {
	case <-i.done:
		return nil, ErrIteratorStopped
	case <-i.ctx.Done():
		return nil, i.ctx.Err()
	case <-i.notify:
	}
	i.store.mu.Lock()
	defer i.store.mu.Unlock()
	return i.store.snapshotLocked(), nil
}

// Stop is idempotent and unblocks a pending Next.
func (i *memoryIterator) Stop() {
	i.stopOnce.Do(func() {
		close(i.done)
		i.store.mu.Lock()
		delete(i.store.watchers, i)
		i.store.mu.Unlock()
	})
}

// normalize round-trips value through JSON, turning structs into map[string]interface{}
// and slices into []interface{} the way Firestore hands data back.
func normalize(value interface{}) (interface{}, error) {
	b, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode value: %w", err)
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("failed to decode value: %w", err)
	}
	return out, nil
}
