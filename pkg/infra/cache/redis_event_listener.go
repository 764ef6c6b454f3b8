package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache/channel"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

type handlerRegistry struct {
	mu       sync.RWMutex
	handlers map[string][]eventHandler
}

func (r *handlerRegistry) Register(eventType string, handler eventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.handlers == nil {
		r.handlers = make(map[string][]eventHandler)
	}
	r.handlers[eventType] = append(r.handlers[eventType], handler)
}

func (r *handlerRegistry) dispatch(ctx context.Context, logger *logrus.Logger, msg RedisMessage) {
	r.mu.RLock()
	handlers := r.handlers[msg.Type]
	r.mu.RUnlock()

	if len(handlers) == 0 {
		logger.WithField("type", msg.Type).Debug("no subscriber for event type")
		return
	}
	for _, handle := range handlers {
		if err := handle(ctx, msg.Event); err != nil {
			logger.WithError(err).WithField("type", msg.Type).Error("error executing event subscriber")
		}
	}
}

type redisEventListener struct {
	handlerRegistry
	logger      *logrus.Logger
	redisClient *redis.Client
}

func NewRedisEventListener(logger *logrus.Logger, redisClient *redis.Client) EventListener {
	return &redisEventListener{
		logger:      logger,
		redisClient: redisClient,
	}
}

func (r *redisEventListener) Listen(ctx context.Context, channels ...channel.Channel) {
	var channelNames []string
	for _, ch := range channels {
		channelNames = append(channelNames, string(ch))
	}

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("redis pubsub listener shutting down")
			return
		default:
		}

		r.listenWithReconnect(ctx, channelNames)

		if ctx.Err() != nil {
			return
		}

		r.logger.Warn("redis pubsub disconnected, reconnecting in 1s...")
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

func (r *redisEventListener) listenWithReconnect(ctx context.Context, channelNames []string) {
	pubSub := r.redisClient.Subscribe(ctx, channelNames...)
	defer func() { _ = pubSub.Close() }()

	r.logger.WithField("channels", channelNames).Debug("redis pubsub connected")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = pubSub.Close()
		case <-done:
		}
	}()

	for msg := range pubSub.Channel() {
		if ctx.Err() != nil {
			return
		}
		r.handleMessage(ctx, msg.Payload)
	}
}

func (r *redisEventListener) handleMessage(ctx context.Context, payload string) {
	var envelope RedisMessage
	if err := json.Unmarshal([]byte(payload), &envelope); err != nil {
		r.logger.WithError(err).Error("error decoding redis message")
		return
	}
	r.dispatch(ctx, r.logger, envelope)
}
