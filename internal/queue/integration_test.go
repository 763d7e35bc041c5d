//go:build integration

package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taxi-insights/backend/internal/queue"
	"github.com/taxi-insights/backend/internal/testutil"
)

func TestIntegration_NATSSender(t *testing.T) {
	ctx := context.Background()
	url := testutil.StartNATS(t)

	sender, err := queue.New(ctx, queue.Config{
		Backend: queue.BackendNATS,
		URL:     url,
		Target:  "etl.jobs",
		Stream:  "ETL_JOBS",
	})
	require.NoError(t, err)
	defer queue.Close(sender)

	msg := queue.Message{Target: "etl.jobs", GroupID: "etl-job", DeduplicationID: "dedup-a", Body: []byte(`{"s3_key":"a"}`)}
	first, err := sender.Send(ctx, msg)
	require.NoError(t, err)

	// same dedup id inside the window is collapsed onto the first message
	again, err := sender.Send(ctx, msg)
	require.NoError(t, err)
	assert.Equal(t, first, again)

	msg.DeduplicationID = "dedup-b"
	second, err := sender.Send(ctx, msg)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	conn, err := nats.Connect(url)
	require.NoError(t, err)
	defer conn.Close()
	js, err := jetstream.New(conn)
	require.NoError(t, err)
	stream, err := js.Stream(ctx, "ETL_JOBS")
	require.NoError(t, err)
	raw, err := stream.GetMsg(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "etl-job", raw.Header.Get(queue.GroupHeader))
	assert.JSONEq(t, `{"s3_key":"a"}`, string(raw.Data))
}

func TestIntegration_AMQPSender(t *testing.T) {
	ctx := context.Background()
	url := testutil.StartRabbitMQ(t)

	sender, err := queue.New(ctx, queue.Config{Backend: queue.BackendAMQP, URL: url, Target: "etl-jobs"})
	require.NoError(t, err)
	defer queue.Close(sender)

	id, err := sender.Send(ctx, queue.Message{Target: "etl-jobs", GroupID: "etl-job", DeduplicationID: "dedup-1", Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, "dedup-1", id)

	conn, err := amqp.Dial(url)
	require.NoError(t, err)
	defer conn.Close()
	ch, err := conn.Channel()
	require.NoError(t, err)

	var delivery amqp.Delivery
	require.Eventually(t, func() bool {
		d, ok, err := ch.Get("etl-jobs", true)
		if err != nil || !ok {
			return false
		}
		delivery = d
		return true
	}, 5*time.Second, 100*time.Millisecond)
	assert.Equal(t, "dedup-1", delivery.MessageId)
	assert.Equal(t, "etl-job", delivery.Headers[queue.GroupHeader])
}
