package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Sink delivers one message.
type Sink interface {
	Send(ctx context.Context, m Message) error
}

// RabbitPublisher publishes JSON messages to a durable queue on the default
// exchange. A consumer on the other side renders and mails them.
type RabbitPublisher struct {
	mu      sync.Mutex
	channel *amqp091.Channel
	queue   string
}

func NewRabbitPublisher(conn *amqp091.Connection, queue string) (*RabbitPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &RabbitPublisher{channel: ch, queue: queue}, nil
}

func (p *RabbitPublisher) Send(ctx context.Context, m Message) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp091.Persistent,
		Type:         string(m.Kind),
		Timestamp:    m.CreatedAt,
		Headers: amqp091.Table{
			"message_type":     "JSON",
			"requeue_strategy": "DROP",
		},
	}

	// amqp091 channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.channel.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}

func (p *RabbitPublisher) Close() error {
	return p.channel.Close()
}

// LogSink only logs messages. It is used when no broker is configured.
type LogSink struct {
	log *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Send(_ context.Context, m Message) error {
	s.log.Info("notification",
		zap.String("kind", string(m.Kind)),
		zap.String("recipient", m.Recipient),
		zap.String("appointment_id", m.Payload.AppointmentID),
	)
	return nil
}
