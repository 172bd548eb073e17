package websocket

import (
	"encoding/json"
	"time"
)

// Client-to-server event types
const (
	EventSubscribeChats      = "subscribe_chats"
	EventSubscribeMessages   = "subscribe_messages"
	EventUnsubscribeMessages = "unsubscribe_messages"
	EventSendMessage         = "send_message"
	EventPing                = "ping"
)

// Server-to-client event types
const (
	EventChats    = "chats"
	EventMessages = "messages"
	EventMessage  = "message"
	EventError    = "error"
	EventPong     = "pong"
)

// Event is the frame exchanged over the live view connection.
type Event struct {
	Type      string      `json:"type"`
	ChatID    string      `json:"chat_id,omitempty"`
	Text      string      `json:"text,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}

func NewEvent(eventType string, data interface{}) Event {
	return Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

func (e Event) Encode() []byte {
	b, _ := json.Marshal(e)
	return b
}
