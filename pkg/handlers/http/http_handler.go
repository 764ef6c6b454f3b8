package http

import "github.com/gofiber/fiber/v2"

type Handler interface {
	Handle(ctx *fiber.Ctx) error
}

type HandlerTransport struct {
	// Session
	CreateSessionHandler  Handler
	ListSessionsHandler   Handler
	GetSessionHandler     Handler
	UpdateSessionHandler  Handler
	DeleteSessionHandler  Handler
	CloseSessionHandler   Handler
	JoinSessionHandler    Handler
	LeaveSessionHandler   Handler
	SessionHistoryHandler Handler

	// Cooldown
	GetCooldownHandler Handler
	ArmCooldownHandler Handler

	// Side channel
	BindSideChannelHandler   Handler
	GetSideChannelHandler    Handler
	DeleteSideChannelHandler Handler

	// System
	HealthHandler  Handler
	VersionHandler Handler
}
