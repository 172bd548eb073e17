package handler

import (
	"github.com/labstack/echo/v4"

	"mercadito/internal/usecase"
	"mercadito/pkg/response"
	"mercadito/pkg/utils"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type resolveChatRequest struct {
	RecipientID    string `json:"recipient_id"`
	ProductID      string `json:"product_id"`
	InitialMessage string `json:"initial_message"`
}

type sendMessageRequest struct {
	Text string `json:"text" validate:"required"`
}

// ResolveChat finds or creates the chat with the recipient, optionally
// scoped to a product.
func (h *ChatHandler) ResolveChat(c echo.Context) error {
	var req resolveChatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)

	chat, err := h.chatUseCase.ResolveChat(c.Request().Context(), uid, usecase.ResolveChatInput{
		RecipientID:    req.RecipientID,
		ProductID:      req.ProductID,
		InitialMessage: req.InitialMessage,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, chat)
}

// GetUserChats lists the authenticated user's chats by recency
func (h *ChatHandler) GetUserChats(c echo.Context) error {
	uid := c.Get("uid").(string)
	params := utils.GetListParams(c, 20)

	chats, total, err := h.chatUseCase.GetUserChats(c.Request().Context(), uid, params.Limit, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, chats, total, params.Limit, params.Offset)
}

func (h *ChatHandler) GetChatByID(c echo.Context) error {
	uid := c.Get("uid").(string)

	chat, err := h.chatUseCase.GetChatByID(c.Request().Context(), uid, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}

func (h *ChatHandler) GetChatMessages(c echo.Context) error {
	uid := c.Get("uid").(string)

	// Default is the full history; clients page only when they ask to.
	params := utils.GetListParams(c, 0)

	messages, total, err := h.chatUseCase.GetChatMessages(c.Request().Context(), uid, c.Param("id"), params.Limit, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.SuccessPaginated(c, messages, total, params.Limit, params.Offset)
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	uid := c.Get("uid").(string)

	message, err := h.chatUseCase.SendMessage(c.Request().Context(), uid, c.Param("id"), req.Text)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}
