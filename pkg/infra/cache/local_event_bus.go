package cache

import (
	"context"
	"encoding/json"

	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache/channel"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache/event"
	"github.com/sirupsen/logrus"
)

// LocalEventBus delivers events to subscribers of the same process. It stands in
// for redis pub/sub when the node runs on the memory backend.
type LocalEventBus struct {
	handlerRegistry
	logger *logrus.Logger
}

func NewLocalEventBus(logger *logrus.Logger) *LocalEventBus {
	return &LocalEventBus{logger: logger}
}

// Publish runs every subscriber synchronously before returning.
func (b *LocalEventBus) Publish(ctx context.Context, _ channel.Channel, ev event.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	envelope := RedisMessage{Type: ev.Type(), Event: data}
	b.dispatch(ctx, b.logger, envelope)
	return nil
}

// Listen blocks until ctx is done; delivery happens in Publish.
func (b *LocalEventBus) Listen(ctx context.Context, _ ...channel.Channel) {
	<-ctx.Done()
}
