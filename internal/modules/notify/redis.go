// README: Lifecycle notification publishers (Redis pub/sub, RabbitMQ topic exchange).
package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// RedisChannelPrefix prefixes every topic; subscribers use PSUBSCRIBE dispatch:call.*.
const RedisChannelPrefix = "dispatch:"

type RedisPublisher struct {
	redis *redis.Client
}

func NewRedisPublisher(redis *redis.Client) *RedisPublisher {
	return &RedisPublisher{redis: redis}
}

func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.redis.Publish(ctx, RedisChannelPrefix+topic, body).Err()
}
