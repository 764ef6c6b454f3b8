package websocket

import (
	"sync"

	"github.com/sirupsen/logrus"
)

const subscriberBuffer = 32

// Subscription receives feed messages for one scope until Close is called.
type Subscription struct {
	C       <-chan FeedMessage
	scopeID string
	ch      chan FeedMessage
	hub     *Hub
	once    sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// Hub fans session changes out to the feed subscribers of each scope.
// Slow subscribers lose messages instead of blocking the publisher.
type Hub struct {
	logger *logrus.Logger
	mu     sync.RWMutex
	scopes map[string]map[*Subscription]struct{}
}

func NewHub(logger *logrus.Logger) *Hub {
	return &Hub{
		logger: logger,
		scopes: make(map[string]map[*Subscription]struct{}),
	}
}

func (h *Hub) Subscribe(scopeID string) *Subscription {
	ch := make(chan FeedMessage, subscriberBuffer)
	sub := &Subscription{C: ch, scopeID: scopeID, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.scopes[scopeID]
	if !ok {
		subs = make(map[*Subscription]struct{})
		h.scopes[scopeID] = subs
	}
	subs[sub] = struct{}{}
	return sub
}

func (h *Hub) Broadcast(scopeID string, msg FeedMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.scopes[scopeID] {
		select {
		case sub.ch <- msg:
		default:
			h.logger.WithField("scope_id", scopeID).Warn("feed subscriber is slow, dropping message")
		}
	}
}

func (h *Hub) Subscribers(scopeID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.scopes[scopeID])
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs := h.scopes[sub.scopeID]
	delete(subs, sub)
	if len(subs) == 0 {
		delete(h.scopes, sub.scopeID)
	}
	close(sub.ch)
}
