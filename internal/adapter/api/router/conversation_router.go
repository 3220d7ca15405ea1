package router

import (
	"github.com/labstack/echo/v4"

	"tradechat/internal/adapter/api/handler"
	"tradechat/internal/adapter/api/middleware"
	"tradechat/internal/infrastructure/ratelimit"
)

func SetupConversationRouter(e *echo.Echo, conversationHandler *handler.ConversationHandler, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter) {
	messages := e.Group("/messages")
	messages.Use(authMiddleware.Authenticate)
	messages.Use(middleware.RateLimit(limiter, ratelimit.ActionRequest))

	// :id is the conversation id
	messages.POST("/new", conversationHandler.StartConversation)
	messages.GET("", conversationHandler.ListConversations)
	messages.GET("/:id", conversationHandler.GetConversation)
	messages.POST("/:id", conversationHandler.SendMessage)
	messages.PUT("/:id/read", conversationHandler.MarkRead)
	messages.POST("/:id/accept-offer/:messageId", conversationHandler.AcceptOffer)
	messages.POST("/:id/reject-offer/:messageId", conversationHandler.RejectOffer)
}
