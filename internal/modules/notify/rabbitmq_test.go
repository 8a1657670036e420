package notify

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

func TestAMQPPublisher(t *testing.T) {
	url := os.Getenv("DISPATCH_TEST_AMQP")
	if url == "" {
		t.Skip("DISPATCH_TEST_AMQP not set; skipping RabbitMQ test")
	}

	pub, err := NewAMQPPublisher(url, zerolog.Nop())
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	t.Cleanup(func() { _ = pub.Close() })

	conn, err := amqp.Dial(url)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	ch, err := conn.Channel()
	if err != nil {
		t.Fatalf("channel: %v", err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		t.Fatalf("declare queue: %v", err)
	}
	if err := ch.QueueBind(q.Name, "call.*", Exchange, false, nil); err != nil {
		t.Fatalf("bind queue: %v", err)
	}
	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pub.Publish(ctx, "call.completed", map[string]string{"id": "c9"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case d := <-deliveries:
		if d.RoutingKey != "call.completed" {
			t.Fatalf("unexpected routing key %s", d.RoutingKey)
		}
		var body map[string]string
		if err := json.Unmarshal(d.Body, &body); err != nil || body["id"] != "c9" {
			t.Fatalf("unexpected body %s (%v)", d.Body, err)
		}
	case <-ctx.Done():
		t.Fatalf("no delivery received")
	}
}
