package router

import (
	"github.com/labstack/echo/v4"

	"mercadito/internal/adapter/api/handler"
	"mercadito/internal/adapter/api/middleware"
)

// SetupChatRouter sets up all chat-related routes (excluding WebSocket)
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	chatGroup := e.Group("/v1/chats")
	chatGroup.Use(authMiddleware.Authenticate)

	chatGroup.POST("", chatHandler.ResolveChat)    // POST /v1/chats - Find or create a chat
	chatGroup.GET("", chatHandler.GetUserChats)    // GET /v1/chats - List user's chats
	chatGroup.GET("/:id", chatHandler.GetChatByID) // GET /v1/chats/:id

	chatGroup.POST("/:id/messages", chatHandler.SendMessage)    // POST /v1/chats/:id/messages
	chatGroup.GET("/:id/messages", chatHandler.GetChatMessages) // GET /v1/chats/:id/messages
}
