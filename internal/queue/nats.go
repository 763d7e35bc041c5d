package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// GroupHeader carries Message.GroupID on NATS and AMQP messages.
const GroupHeader = "Job-Group-Id"

const defaultDuplicateWindow = 5 * time.Minute

// NATSSender publishes to a JetStream stream. The deduplication id is sent
// as Nats-Msg-Id so the stream drops repeats inside its duplicate window.
type NATSSender struct {
	conn *nats.Conn
	js   jetstream.JetStream
}

// NewNATSSender connects to cfg.URL and makes sure a stream named
// cfg.Stream captures cfg.Target.
func NewNATSSender(ctx context.Context, cfg Config) (*NATSSender, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name("taxi-api-queue"))
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating jetstream context: %w", err)
	}

	window := cfg.DuplicateWindow
	if window <= 0 {
		window = defaultDuplicateWindow
	}
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       cfg.Stream,
		Subjects:   []string{cfg.Target},
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.WorkQueuePolicy,
		Duplicates: window,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating stream %s: %w", cfg.Stream, err)
	}

	return &NATSSender{conn: conn, js: js}, nil
}

// Backend implements Sender.
func (s *NATSSender) Backend() string { return BackendNATS }

// Send implements Sender. The message id is "<stream>:<sequence>".
func (s *NATSSender) Send(ctx context.Context, msg Message) (string, error) {
	m := nats.NewMsg(msg.Target)
	m.Data = msg.Body
	m.Header.Set(GroupHeader, msg.GroupID)

	ack, err := s.js.PublishMsg(ctx, m, jetstream.WithMsgID(msg.DeduplicationID))
	if err != nil {
		return "", fmt.Errorf("publishing to %s: %w", msg.Target, err)
	}
	return fmt.Sprintf("%s:%d", ack.Stream, ack.Sequence), nil
}

// Close drains the connection.
func (s *NATSSender) Close() error {
	return s.conn.Drain()
}
