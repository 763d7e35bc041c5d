package queue

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPSender publishes persistent messages to a durable RabbitMQ queue with
// publisher confirms. RabbitMQ assigns no message id, so the deduplication
// id doubles as the AMQP message-id and is what Send returns.
type AMQPSender struct {
	conn *amqp.Connection

	// amqp channels are not safe for concurrent publishing with confirms
	mu sync.Mutex
	ch *amqp.Channel
}

// NewAMQPSender dials cfg.URL and declares cfg.Target as a durable queue.
func NewAMQPSender(_ context.Context, cfg Config) (*AMQPSender, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connecting to amqp broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening amqp channel: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enabling publisher confirms: %w", err)
	}
	if _, err := ch.QueueDeclare(cfg.Target, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declaring queue %s: %w", cfg.Target, err)
	}

	return &AMQPSender{conn: conn, ch: ch}, nil
}

// Backend implements Sender.
func (s *AMQPSender) Backend() string { return BackendAMQP }

// Send implements Sender and waits for the broker confirm.
func (s *AMQPSender) Send(ctx context.Context, msg Message) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	confirm, err := s.ch.PublishWithDeferredConfirmWithContext(ctx, "", msg.Target, false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    msg.DeduplicationID,
			Headers:      amqp.Table{GroupHeader: msg.GroupID},
			Body:         msg.Body,
		})
	if err != nil {
		return "", fmt.Errorf("publishing to %s: %w", msg.Target, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return "", fmt.Errorf("waiting for confirm from %s: %w", msg.Target, err)
	}
	if !acked {
		return "", fmt.Errorf("broker rejected message for %s", msg.Target)
	}
	return msg.DeduplicationID, nil
}

// Close closes the channel and connection.
func (s *AMQPSender) Close() error {
	s.ch.Close()
	return s.conn.Close()
}
