package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"firebase.google.com/go/v4/auth"
	gorilla "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"mercadito/internal/domain/entity"
	ws "mercadito/internal/infrastructure/websocket"
	"mercadito/internal/usecase"
	"mercadito/pkg/logger"
)

// WebSocketHandler is the live view layer: it bridges the chat and message
// streams onto a per-user socket. Each logical view holds at most one
// subscription; subscribing again cancels the previous one so duplicate
// update callbacks cannot pile up.
type WebSocketHandler struct {
	wsManager   *ws.Manager
	authClient  *auth.Client
	chatUseCase *usecase.ChatUseCase
	upgrader    gorilla.Upgrader
}

func NewWebSocketHandler(wsManager *ws.Manager, authClient *auth.Client, chatUseCase *usecase.ChatUseCase) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:   wsManager,
		authClient:  authClient,
		chatUseCase: chatUseCase,
		upgrader: gorilla.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *WebSocketHandler) Handle(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "Token query parameter is required")
	}

	verified, err := h.authClient.VerifyIDToken(c.Request().Context(), token)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := ws.NewClient(verified.UID, conn)
	h.wsManager.Register <- client
	go client.WritePump()

	h.readLoop(client)
	return nil
}

func (h *WebSocketHandler) readLoop(client *ws.Client) {
	connCtx, cancelConn := context.WithCancel(context.Background())
	defer func() {
		cancelConn()
		h.wsManager.Unregister <- client
		client.Conn.Close()
	}()

	var cancelChats, cancelMessages context.CancelFunc

	for {
		_, raw, err := client.Conn.ReadMessage()
		if err != nil {
			if gorilla.IsUnexpectedCloseError(err, gorilla.CloseGoingAway, gorilla.CloseNormalClosure) {
				logger.Debug("Socket read for %s failed: %v", client.UserID, err)
			}
			return
		}

		var event ws.Event
		if err := json.Unmarshal(raw, &event); err != nil {
			h.send(client, ws.NewEvent(ws.EventError, "malformed event"))
			continue
		}

		switch event.Type {
		case ws.EventPing:
			h.send(client, ws.NewEvent(ws.EventPong, nil))

		case ws.EventSubscribeChats:
			if cancelChats != nil {
				cancelChats()
			}
			streamCtx, cancel := context.WithCancel(connCtx)
			cancelChats = cancel

			stream, err := h.chatUseCase.StreamChats(streamCtx, client.UserID)
			if err != nil {
				cancel()
				h.sendError(client, err)
				continue
			}
			go h.forwardChats(streamCtx, client, stream)

		case ws.EventSubscribeMessages:
			if event.ChatID == "" {
				h.send(client, ws.NewEvent(ws.EventError, "chat_id is required"))
				continue
			}
			// Switching chats tears down the previous subscription first.
			if cancelMessages != nil {
				cancelMessages()
			}
			streamCtx, cancel := context.WithCancel(connCtx)
			cancelMessages = cancel

			stream, err := h.chatUseCase.StreamMessages(streamCtx, client.UserID, event.ChatID)
			if err != nil {
				cancel()
				h.sendError(client, err)
				continue
			}
			go h.forwardMessages(streamCtx, client, event.ChatID, stream)

		case ws.EventUnsubscribeMessages:
			if cancelMessages != nil {
				cancelMessages()
				cancelMessages = nil
			}

		case ws.EventSendMessage:
			if _, err := h.chatUseCase.SendMessage(connCtx, client.UserID, event.ChatID, event.Text); err != nil {
				h.sendError(client, err)
			}

		default:
			h.send(client, ws.NewEvent(ws.EventError, "unknown event type"))
		}
	}
}

func (h *WebSocketHandler) forwardChats(ctx context.Context, client *ws.Client, stream <-chan []*entity.Chat) {
	for {
		select {
		case chats, ok := <-stream:
			if !ok {
				return
			}
			h.send(client, ws.NewEvent(ws.EventChats, chats))
		case <-ctx.Done():
			return
		}
	}
}

func (h *WebSocketHandler) forwardMessages(ctx context.Context, client *ws.Client, chatID string, stream <-chan []*entity.Message) {
	for {
		select {
		case messages, ok := <-stream:
			if !ok {
				return
			}
			event := ws.NewEvent(ws.EventMessages, messages)
			event.ChatID = chatID
			h.send(client, event)
		case <-ctx.Done():
			return
		}
	}
}

func (h *WebSocketHandler) send(client *ws.Client, event ws.Event) {
	if !client.TrySend(event.Encode()) {
		logger.Warn("Dropping frame for slow client %s", client.UserID)
	}
}

func (h *WebSocketHandler) sendError(client *ws.Client, err error) {
	h.send(client, ws.NewEvent(ws.EventError, err.Error()))
}
