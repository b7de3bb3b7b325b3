package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cindy0891101/nordictrip.fi.sw/internal/db"
	"github.com/cindy0891101/nordictrip.fi.sw/internal/imageutil"
)

type fakeIdentityProvider struct {
	mu    sync.Mutex
	calls int
	err   error

	// release, when set, holds every sign-in until it is closed.
	release chan struct{}
}

func (f *fakeIdentityProvider) SignInAnonymously(_ context.Context) (Identity, error) {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return Identity{}, f.err
	}
	return Identity{UID: "anon-1", Anonymous: true}, nil
}

func (f *fakeIdentityProvider) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeBlobStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	err     error
}

func newFakeBlobStore() *fakeBlobStore {
	return &fakeBlobStore{objects: map[string][]byte{}, types: map[string]string{}}
}

func (f *fakeBlobStore) Put(_ context.Context, key, contentType string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.objects[key] = data
	f.types[key] = contentType
	return "https://blobs.test/" + key, nil
}

func (f *fakeBlobStore) Keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for k := range f.objects {
		keys = append(keys, k)
	}
	return keys
}

// funcStore is a TripDocumentStore whose behaviour is set per test.
type funcStore struct {
	GetFn         func(ctx context.Context) (*db.DocumentSnapshot, error)
	UpdateFieldFn func(ctx context.Context, field string, value interface{}) error
	MergeFieldFn  func(ctx context.Context, field string, value interface{}) error
	WatchFn       func(ctx context.Context) db.SnapshotIterator
}

func (s *funcStore) Get(ctx context.Context) (*db.DocumentSnapshot, error) {
	if s.GetFn == nil {
		return &db.DocumentSnapshot{}, nil
	}
	return s.GetFn(ctx)
}

func (s *funcStore) UpdateField(ctx context.Context, field string, value interface{}) error {
	if s.UpdateFieldFn == nil {
		return nil
	}
	return s.UpdateFieldFn(ctx, field, value)
}

func (s *funcStore) MergeField(ctx context.Context, field string, value interface{}) error {
	if s.MergeFieldFn == nil {
		return nil
	}
	return s.MergeFieldFn(ctx, field, value)
}

func (s *funcStore) Watch(ctx context.Context) db.SnapshotIterator {
	return s.WatchFn(ctx)
}

func (s *funcStore) Ping(ctx context.Context) error {
	_, err := s.Get(ctx)
	return err
}

type failingIterator struct{ err error }

func (i failingIterator) Next() (*db.DocumentSnapshot, error) { return nil, i.err }
func (i failingIterator) Stop()                               {}

type mapCache struct {
	mu     sync.Mutex
	values map[string]interface{}
	exists map[string]bool
}

func newMapCache() *mapCache {
	return &mapCache{values: map[string]interface{}{}, exists: map[string]bool{}}
}

func (c *mapCache) PutField(_ context.Context, field string, value interface{}, exists bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[field] = value
	c.exists[field] = exists
}

func (c *mapCache) GetField(_ context.Context, field string) (interface{}, bool, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	exists, ok := c.exists[field]
	if !ok {
		return nil, false, false
	}
	return c.values[field], exists, true
}

type recordedChange struct {
	field string
	path  string
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []recordedChange
}

func (n *recordingNotifier) FieldChanged(_ context.Context, field, path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, recordedChange{field: field, path: path})
}

func (n *recordingNotifier) Changes() []recordedChange {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]recordedChange(nil), n.changes...)
}

type testEnv struct {
	store    *db.MemoryTripStore
	identity *fakeIdentityProvider
	blobs    *fakeBlobStore
	cache    *mapCache
	notifier *recordingNotifier
	sync     *SyncService
}

var fixedNow = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		store:    db.NewMemoryTripStore(),
		identity: &fakeIdentityProvider{},
		blobs:    newFakeBlobStore(),
		cache:    newMapCache(),
		notifier: &recordingNotifier{},
	}
	svc, err := NewSyncService(SyncServiceConfig{
		Store:    env.store,
		Identity: env.identity,
		Blobs:    env.blobs,
		Cache:    env.cache,
		Notifier: env.notifier,
		Now:      func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	env.sync = svc
	return env
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, h/2, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func pngFile(t *testing.T, w, h int) imageutil.File {
	return imageutil.File{Name: "photo.png", ContentType: "image/png", Data: pngBytes(t, w, h)}
}

func receive(t *testing.T, sub *Subscription) FieldValue {
	t.Helper()
	select {
	case v, ok := <-sub.Values():
		require.True(t, ok, "subscription closed early")
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for field value")
	}
	return FieldValue{}
}

var errUnavailable = errors.New("unavailable")

func wrapNotFound(field string) error {
	return fmt.Errorf("field '%s': %w", field, db.ErrDocumentNotFound)
}
