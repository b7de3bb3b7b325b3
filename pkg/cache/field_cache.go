package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
)

// DefaultFieldTTL bounds how stale a fallback read can be.
const DefaultFieldTTL = 7 * 24 * time.Hour

type fieldEntry struct {
	Exists   bool            `json:"exists"`
	Value    json.RawMessage `json:"value,omitempty"`
	CachedAt time.Time       `json:"cachedAt"`
}

// FieldCache keeps the last seen value of every trip field so reads can be answered
// while the document store is unreachable. It is best effort: failures are logged and
// never returned.
type FieldCache struct {
	cache  Cache
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewFieldCache creates a FieldCache whose keys are scoped to tripID.
func NewFieldCache(c Cache, tripID string, ttl time.Duration, logger *zap.Logger) *FieldCache {
	if ttl <= 0 {
		ttl = DefaultFieldTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FieldCache{
		cache:  c,
		prefix: "nordictrip:" + tripID + ":field:",
		ttl:    ttl,
		logger: logger,
	}
}

// PutField records the latest value of field. exists=false records an absent field.
func (f *FieldCache) PutField(ctx context.Context, field string, value interface{}, exists bool) {
	entry := fieldEntry{Exists: exists, CachedAt: time.Now().UTC()}
	if exists {
		raw, err := json.Marshal(value)
		if err != nil {
			f.logger.Warn("Field cache: cannot encode value", zap.String("field", field), zap.Error(err))
			return
		}
		entry.Value = raw
	}
	b, err := json.Marshal(entry)
	if err != nil {
		f.logger.Warn("Field cache: cannot encode entry", zap.String("field", field), zap.Error(err))
		return
	}
	if err := f.cache.Set(ctx, f.prefix+field, b, f.ttl); err != nil {
		f.logger.Warn("Field cache: write failed", zap.String("field", field), zap.Error(err))
	}
}

// GetField returns the cached value of field. ok is false on a miss or any cache error.
func (f *FieldCache) GetField(ctx context.Context, field string) (interface{}, bool, bool) {
	s, err := f.cache.Get(ctx, f.prefix+field)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			f.logger.Warn("Field cache: read failed", zap.String("field", field), zap.Error(err))
		}
		return nil, false, false
	}
	var entry fieldEntry
	if err := json.Unmarshal([]byte(s), &entry); err != nil {
		f.logger.Warn("Field cache: corrupt entry", zap.String("field", field), zap.Error(err))
		return nil, false, false
	}
	if !entry.Exists {
		return nil, false, true
	}
	var value interface{}
	if err := json.Unmarshal(entry.Value, &value); err != nil {
		f.logger.Warn("Field cache: corrupt value", zap.String("field", field), zap.Error(err))
		return nil, false, false
	}
	return value, true, true
}
