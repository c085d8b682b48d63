package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/notification/entity"
)

// ChannelPrefix is followed by the recipient account id.
const ChannelPrefix = "notifications"

func Channel(accountID int64) string {
	return fmt.Sprintf("%s:%d", ChannelPrefix, accountID)
}

// RedisPublisher fans a stored notification out to the recipient's channel.
type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher {
	return &RedisPublisher{rdb: rdb}
}

func (p *RedisPublisher) Publish(ctx context.Context, n entity.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.rdb.Publish(ctx, Channel(n.RecipientID), payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
