package messagequeue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	queue string
	body  []byte
}

type fakeQueue struct {
	published []published
	err       error
}

func (q *fakeQueue) Publish(queueName string, body []byte) error {
	if q.err != nil {
		return q.err
	}
	q.published = append(q.published, published{queue: queueName, body: body})
	return nil
}

func (q *fakeQueue) Close() error { return nil }

func TestFieldEventPublisher_PublishesEvent(t *testing.T) {
	q := &fakeQueue{}
	p := NewFieldEventPublisher(q, "", "trip_2025_nordic_master", nil)
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return at }

	p.FieldChanged(context.Background(), "members", "merge-create")

	require.Len(t, q.published, 1)
	assert.Equal(t, DefaultFieldEventsQueue, q.published[0].queue)

	var ev FieldChanged
	require.NoError(t, json.Unmarshal(q.published[0].body, &ev))
	assert.Equal(t, FieldChanged{TripID: "trip_2025_nordic_master", Field: "members", Path: "merge-create", At: at}, ev)
}

func TestFieldEventPublisher_DropsOnFailure(t *testing.T) {
	q := &fakeQueue{err: errors.New("channel closed")}
	p := NewFieldEventPublisher(q, "custom", "trip", nil)

	assert.NotPanics(t, func() { p.FieldChanged(context.Background(), "schedule", "update") })
	assert.Empty(t, q.published)
}
