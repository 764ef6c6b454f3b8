package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache/channel"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache/event"
)

// eventHandler decodes a raw event payload and hands it to one subscriber.
type eventHandler func(ctx context.Context, payload json.RawMessage) error

type EventListener interface {
	Listen(ctx context.Context, channels ...channel.Channel)
	Register(eventType string, handler eventHandler)
}

func RegisterEventSubscriber[T event.Event](l EventListener, subscriber EventSubscriber[T]) {
	var zero T
	l.Register(zero.Type(), func(ctx context.Context, payload json.RawMessage) error {
		var ev T
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("error unmarshalling %s: %w", zero.Type(), err)
		}
		return subscriber.OnEvent(ctx, ev)
	})
}
