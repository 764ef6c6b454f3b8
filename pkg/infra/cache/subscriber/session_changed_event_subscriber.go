package subscriber

import (
	"context"

	infraCache "github.com/NeuralTrust/RecruitGate/pkg/infra/cache"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/cache/event"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/websocket"
)

// SessionChangedEventSubscriber fans session changes out to local feed clients.
type SessionChangedEventSubscriber struct {
	hub *websocket.Hub
}

func NewSessionChangedEventSubscriber(hub *websocket.Hub) infraCache.EventSubscriber[event.SessionChangedEvent] {
	return &SessionChangedEventSubscriber{hub: hub}
}

func (s SessionChangedEventSubscriber) OnEvent(_ context.Context, evt event.SessionChangedEvent) error {
	if evt.Session == nil {
		return nil
	}
	s.hub.Broadcast(evt.ScopeID, websocket.FeedMessage{
		Change:  string(evt.Change),
		Session: evt.Session,
	})
	return nil
}
