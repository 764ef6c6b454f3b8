package router

import (
	"errors"

	handlers "github.com/NeuralTrust/RecruitGate/pkg/handlers/http"
	wsHandlers "github.com/NeuralTrust/RecruitGate/pkg/handlers/websocket"
	"github.com/NeuralTrust/RecruitGate/pkg/middleware"
	"github.com/gofiber/fiber/v2"
)

var ErrInvalidHandlerTransport = errors.New("invalid handler transport")

type apiRouter struct {
	middlewareTransport *middleware.Transport
	handlerTransport    *handlers.HandlerTransport
	feedHandler         wsHandlers.Handler
}

func NewAPIRouter(
	middlewareTransport *middleware.Transport,
	handlerTransport *handlers.HandlerTransport,
	feedHandler wsHandlers.Handler,
) ServerRouter {
	return &apiRouter{
		middlewareTransport: middlewareTransport,
		handlerTransport:    handlerTransport,
		feedHandler:         feedHandler,
	}
}

func (r *apiRouter) BuildRoutes(router *fiber.App) error {
	if r.handlerTransport == nil || r.middlewareTransport == nil {
		return ErrInvalidHandlerTransport
	}
	h := r.handlerTransport
	m := r.middlewareTransport

	router.Use(m.PanicRecoverMiddleware.Middleware(), m.MetricsMiddleware.Middleware())

	router.Get("/health", h.HealthHandler.Handle)
	router.Get("/version", h.VersionHandler.Handle)

	if r.feedHandler != nil {
		ws := router.Group("/ws", m.FeedMiddleware.Middleware())
		ws.Get("/sessions/:scope", wsHandlers.Route(r.feedHandler))
	}

	v1 := router.Group("/api/v1", m.RequesterMiddleware.Middleware())
	{
		v1.Get("/version", h.VersionHandler.Handle)

		sessions := v1.Group("/sessions")
		{
			sessions.Post("", h.CreateSessionHandler.Handle)
			sessions.Get("", h.ListSessionsHandler.Handle)
			sessions.Get("/:session_id", h.GetSessionHandler.Handle)
			sessions.Patch("/:session_id", h.UpdateSessionHandler.Handle)
			sessions.Delete("/:session_id", h.DeleteSessionHandler.Handle)
			sessions.Post("/:session_id/close", h.CloseSessionHandler.Handle)
			sessions.Post("/:session_id/join", h.JoinSessionHandler.Handle)
			sessions.Post("/:session_id/leave", h.LeaveSessionHandler.Handle)
			sessions.Get("/:session_id/history", h.SessionHistoryHandler.Handle)
		}

		cooldowns := v1.Group("/cooldowns")
		{
			cooldowns.Get("/:scope", h.GetCooldownHandler.Handle)
			cooldowns.Put("/:scope", h.ArmCooldownHandler.Handle)
		}

		sideChannels := v1.Group("/side-channels")
		{
			sideChannels.Put("/:session_id", h.BindSideChannelHandler.Handle)
			sideChannels.Get("/:session_id", h.GetSideChannelHandler.Handle)
			sideChannels.Delete("/:session_id", h.DeleteSideChannelHandler.Handle)
		}
	}
	return nil
}
