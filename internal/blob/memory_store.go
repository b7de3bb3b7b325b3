package blob

import (
	"context"
	"strings"
	"sync"
)

// Object is a stored payload.
type Object struct {
	ContentType string
	Data        []byte
}

// MemoryStore keeps objects in process. Used by tests and the "memory" blob backend.
type MemoryStore struct {
	baseURL string

	mu      sync.RWMutex
	objects map[string]Object
}

// NewMemoryStore creates an empty MemoryStore whose URLs start with baseURL.
func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = "memory://blobs"
	}
	return &MemoryStore{baseURL: strings.TrimRight(baseURL, "/"), objects: map[string]Object{}}
}

func (s *MemoryStore) Put(_ context.Context, key, contentType string, data []byte) (string, error) {
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.objects[key] = Object{ContentType: contentType, Data: buf}
	s.mu.Unlock()
	return s.baseURL + "/" + key, nil
}

// Get returns the object stored at key.
func (s *MemoryStore) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj, ok
}

// Len reports how many objects are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
