// Package queue submits ETL job messages to a durable message queue.
package queue

import (
	"context"
	"fmt"
	"io"
	"time"
)

// Message is one job submission.
type Message struct {
	// Target is the queue URL, subject or queue name, depending on backend.
	Target string
	// GroupID constrains ordering to messages sharing the same value.
	GroupID string
	// DeduplicationID collapses repeated sends within the broker's window.
	DeduplicationID string
	Body            []byte
}

// Sender submits messages. A returned message id means the broker accepted
// the message durably. Implementations are safe for concurrent use.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
	Backend() string
}

// Backend names accepted by configuration.
const (
	BackendSQS  = "sqs"
	BackendNATS = "nats"
	BackendAMQP = "amqp"
)

// Config selects and configures a backend.
type Config struct {
	Backend string
	// URL is the SQS queue URL, NATS server URL or AMQP broker URL.
	URL string
	// Target is the default destination: the SQS queue URL, NATS subject or
	// AMQP queue name.
	Target string

	// SQS
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string

	// NATS: the stream created to capture Target, and its dedup window.
	Stream          string
	DuplicateWindow time.Duration
}

// New creates the backend selected by cfg.
func New(ctx context.Context, cfg Config) (Sender, error) {
	switch cfg.Backend {
	case BackendSQS:
		return NewSQSSender(ctx, cfg)
	case BackendNATS:
		return NewNATSSender(ctx, cfg)
	case BackendAMQP:
		return NewAMQPSender(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown queue backend %q", cfg.Backend)
	}
}

// Close releases backend resources when the sender holds any.
func Close(s Sender) error {
	if c, ok := s.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
