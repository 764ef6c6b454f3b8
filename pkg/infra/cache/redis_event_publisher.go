package cache

import (
	"context"

	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache/channel"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache/event"
	"github.com/go-redis/redis/v8"
)

type redisEventPublisher struct {
	redisClient *redis.Client
}

func NewRedisEventPublisher(redisClient *redis.Client) EventPublisher {
	return &redisEventPublisher{
		redisClient: redisClient,
	}
}

func (p *redisEventPublisher) Publish(ctx context.Context, ch channel.Channel, ev event.Event) error {
	data, err := newRedisMessage(ev)
	if err != nil {
		return err
	}
	return p.redisClient.Publish(ctx, string(ch), data).Err()
}
