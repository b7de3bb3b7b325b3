package core

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/cindy0891101/nordictrip.fi.sw/internal/db"
	"github.com/cindy0891101/nordictrip.fi.sw/internal/models"
)

// subscriptionBuffer is how many undelivered values a slow reader may lag behind.
const subscriptionBuffer = 8

// FieldValue is one delivery of a field subscription.
// Exists is false when the document (or the field) does not exist: the explicit absent signal.
type FieldValue struct {
	Field  models.Field `json:"field"`
	Value  interface{}  `json:"value"`
	Exists bool         `json:"exists"`
}

// Decode converts Value into out. It is a no-op for absent values.
func (v FieldValue) Decode(out interface{}) error {
	if !v.Exists {
		return nil
	}
	return models.Decode(v.Value, out)
}

func fieldFromSnapshot(field models.Field, snap *db.DocumentSnapshot) FieldValue {
	value, ok := snap.Field(string(field))
	return FieldValue{Field: field, Value: value, Exists: ok}
}

// Subscription is a live stream of one field's value.
type Subscription struct {
	field  models.Field
	values chan FieldValue
	done   chan struct{}
	cancel context.CancelFunc
	once   sync.Once

	mu  sync.Mutex
	err error
}

// Field returns the subscribed field.
func (s *Subscription) Field() models.Field { return s.field }

// Values delivers the field's value on every remote change. It is closed when the
// subscription ends.
func (s *Subscription) Values() <-chan FieldValue { return s.values }

// Done is closed once delivery has stopped and the underlying listener is released.
func (s *Subscription) Done() <-chan struct{} { return s.done }

// Err returns the terminal error, if the subscription ended for a reason other than Cancel.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Cancel stops delivery and releases the subscription. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}

func (s *Subscription) run(ctx context.Context, it db.SnapshotIterator, svc *SyncService) {
	defer func() {
		it.Stop()
		close(s.values)
		close(s.done)
		svc.metrics.SubscriptionClosed()
	}()

	for {
		snap, err := it.Next()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, db.ErrIteratorStopped) {
				return
			}
			svc.logger.Error("Field subscription ended", zap.String("field", s.field.String()), zap.Error(err))
			s.mu.Lock()
			s.err = err
			s.mu.Unlock()
			return
		}

		fv := fieldFromSnapshot(s.field, snap)
		if svc.cache != nil {
			svc.cache.PutField(ctx, fv.Field.String(), fv.Value, fv.Exists)
		}

		select {
		case s.values <- fv:
		case <-ctx.Done():
			return
		}
	}
}
