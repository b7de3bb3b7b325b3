package messagequeue

import (
	"fmt"
	"sync"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// RabbitMQService publishes to durable RabbitMQ queues over a single channel.
type RabbitMQService struct {
	conn   *amqp.Connection
	logger *zap.Logger

	// amqp channels are not safe for concurrent publishing.
	mu       sync.Mutex
	channel  *amqp.Channel
	declared map[string]bool
}

// NewRabbitMQServiceConfig contains options for creating a new RabbitMQService.
type NewRabbitMQServiceConfig struct {
	URL string
}

// NewRabbitMQService creates a new instance of RabbitMQService.
func NewRabbitMQService(cfg NewRabbitMQServiceConfig, logger *zap.Logger) (*RabbitMQService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close() // Close connection if channel opening fails
		return nil, fmt.Errorf("failed to open a RabbitMQ channel: %w", err)
	}

	logger.Info("Successfully connected to RabbitMQ and opened a channel")
	return &RabbitMQService{conn: conn, channel: ch, logger: logger, declared: map[string]bool{}}, nil
}

// Publish sends a persistent JSON message to a durable queue, declaring it on first use.
func (s *RabbitMQService) Publish(queueName string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.declared[queueName] {
		_, err := s.channel.QueueDeclare(
			queueName, // name
			true,      // durable
			false,     // delete when unused
			false,     // exclusive
			false,     // no-wait
			nil,       // arguments
		)
		if err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queueName, err)
		}
		s.declared[queueName] = true
	}

	err := s.channel.Publish(
		"",        // exchange
		queueName, // routing key (queue name)
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent, // Make message persistent
		})
	if err != nil {
		return fmt.Errorf("failed to publish to queue %s: %w", queueName, err)
	}
	s.logger.Debug("Published message", zap.String("queue", queueName), zap.Int("bytes", len(body)))
	return nil
}

// Close closes the RabbitMQ channel and connection.
func (s *RabbitMQService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lastErr error
	if s.channel != nil {
		if err := s.channel.Close(); err != nil {
			s.logger.Warn("Error closing RabbitMQ channel", zap.Error(err))
			lastErr = err
		}
	}
	if s.conn != nil {
		if err := s.conn.Close(); err != nil {
			s.logger.Warn("Error closing RabbitMQ connection", zap.Error(err))
			lastErr = err
		}
	}
	if lastErr == nil {
		s.logger.Info("RabbitMQ channel and connection closed successfully")
	}
	return lastErr
}
