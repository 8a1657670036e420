package notify

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisPublisher(t *testing.T) {
	addr := os.Getenv("DISPATCH_TEST_REDIS")
	if addr == "" {
		t.Skip("DISPATCH_TEST_REDIS not set; skipping Redis pub/sub test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	sub := client.PSubscribe(ctx, RedisChannelPrefix+"call.*")
	t.Cleanup(func() { _ = sub.Close() })
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	pub := NewRedisPublisher(client)
	if err := pub.Publish(ctx, "call.accepted", map[string]string{"id": "c1"}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msg, err := sub.ReceiveMessage(ctx)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if msg.Channel != "dispatch:call.accepted" {
		t.Fatalf("unexpected channel %s", msg.Channel)
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(msg.Payload), &body); err != nil || body["id"] != "c1" {
		t.Fatalf("unexpected payload %q (%v)", msg.Payload, err)
	}
}
