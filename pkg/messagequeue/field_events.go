// Package messagequeue publishes trip change events to RabbitMQ.
package messagequeue

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// DefaultFieldEventsQueue is the queue FieldChanged events go to when none is configured.
const DefaultFieldEventsQueue = "nordictrip.field-changed"

// Publisher sends a message body to a named queue. *RabbitMQService implements it.
type Publisher interface {
	Publish(queueName string, body []byte) error
}

// FieldChanged announces a successful write of one trip field.
type FieldChanged struct {
	TripID string    `json:"tripId"`
	Field  string    `json:"field"`
	Path   string    `json:"path"` // "update" or "merge-create"
	At     time.Time `json:"at"`
}

// FieldEventPublisher publishes a FieldChanged event per write. Publishing is best
// effort: failures are logged and dropped.
type FieldEventPublisher struct {
	mq     Publisher
	queue  string
	tripID string
	now    func() time.Time
	logger *zap.Logger
}

// NewFieldEventPublisher creates a FieldEventPublisher.
func NewFieldEventPublisher(mq Publisher, queue, tripID string, logger *zap.Logger) *FieldEventPublisher {
	if queue == "" {
		queue = DefaultFieldEventsQueue
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FieldEventPublisher{mq: mq, queue: queue, tripID: tripID, now: time.Now, logger: logger}
}

func (p *FieldEventPublisher) FieldChanged(_ context.Context, field, writePath string) {
	body, err := json.Marshal(FieldChanged{
		TripID: p.tripID,
		Field:  field,
		Path:   writePath,
		At:     p.now().UTC(),
	})
	if err != nil {
		p.logger.Warn("Cannot encode field change event", zap.String("field", field), zap.Error(err))
		return
	}
	if err := p.mq.Publish(p.queue, body); err != nil {
		p.logger.Warn("Field change event dropped", zap.String("field", field), zap.Error(err))
	}
}
