package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/spec-kit/cityfix-service/internal/config"
)

// Publisher forwards domain events to a durable RabbitMQ queue for external
// consumers (notification dispatchers, analytics). A nil Publisher is a no-op.
type Publisher struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// NewPublisher connects to RabbitMQ and declares the event queue. Returns nil
// without error when no URL is configured.
func NewPublisher(cfg config.AMQPConfig, logger *zap.Logger) (*Publisher, error) {
	if cfg.URL == "" {
		logger.Info("AMQP_URL not provided; event publishing disabled")
		return nil, nil
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := channel.QueueDeclare(cfg.QueueName, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	logger.Info("connected to rabbitmq", zap.String("queue", cfg.QueueName))
	return &Publisher{conn: conn, channel: channel, queueName: cfg.QueueName, logger: logger}, nil
}

// Publish sends a JSON payload to the queue with a bounded timeout.
func (p *Publisher) Publish(ctx context.Context, payload any) error {
	if p == nil {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err = p.channel.PublishWithContext(ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	if p.channel != nil {
		_ = p.channel.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
}
