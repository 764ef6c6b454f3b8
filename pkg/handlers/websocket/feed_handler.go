package websocket

import (
	"time"

	"github.com/NeuralTrust/RecruitGate/pkg/common"
	"github.com/NeuralTrust/RecruitGate/pkg/infra/prometheus"
	infraWebsocket "github.com/NeuralTrust/RecruitGate/pkg/infra/websocket"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

type Handler interface {
	Handle(c *websocket.Conn)
}

type feedHandler struct {
	logger *logrus.Logger
	hub    *infraWebsocket.Hub
}

// NewFeedHandler streams the changes of one scope to a websocket client. The
// client only listens; anything it sends is discarded.
func NewFeedHandler(logger *logrus.Logger, hub *infraWebsocket.Hub) Handler {
	return &feedHandler{
		logger: logger,
		hub:    hub,
	}
}

// Route wraps the handler for registration on a fiber router.
func Route(h Handler) fiber.Handler {
	return websocket.New(h.Handle)
}

func (h *feedHandler) Handle(c *websocket.Conn) {
	if sem, ok := c.Locals(string(common.FeedSemaphoreKey)).(*infraWebsocket.Semaphore); ok && sem != nil {
		defer sem.Release()
	}
	scopeID := c.Params("scope")
	log := h.logger.WithField("scope_id", scopeID)

	sub := h.hub.Subscribe(scopeID)
	defer sub.Close()
	prometheus.FeedConnections.Inc()
	defer prometheus.FeedConnections.Dec()
	log.Debug("feed client connected")

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			log.Debug("feed client disconnected")
			return
		case msg, ok := <-sub.C:
			if !ok {
				return
			}
			_ = c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteJSON(msg); err != nil {
				log.WithError(err).Debug("failed to write feed message")
				return
			}
		case <-ticker.C:
			_ = c.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
