package websocket

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"mercadito/pkg/logger"
)

// Client represents a WebSocket connection client. Frames go through TrySend
// so a sender racing the connection's teardown can never hit a closed channel.
type Client struct {
	UserID string
	Conn   *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID: userID,
		Conn:   conn,
		send:   make(chan []byte, 16),
	}
}

// TrySend queues a frame without blocking. It reports false when the client
// is closed or its queue is full; delivery is best-effort either way.
func (c *Client) TrySend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// Close shuts the client's queue down. Safe to call more than once; late
// senders see the closed flag instead of a closed channel.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// Manager manages all active WebSocket connections
type Manager struct {
	clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Start runs the manager's main loop in a goroutine
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				previous := m.clients[client.UserID]
				m.clients[client.UserID] = client
				m.mutex.Unlock()
				if previous != nil {
					previous.Close()
				}
				logger.Info("Client registered: %s", client.UserID)

			case client := <-m.Unregister:
				m.mutex.Lock()
				if current, ok := m.clients[client.UserID]; ok && current == client {
					delete(m.clients, client.UserID)
				}
				m.mutex.Unlock()
				client.Close()
				logger.Info("Client unregistered: %s", client.UserID)

			case <-ctx.Done():
				return
			}
		}
	}()
}

// SendToUser delivers a frame to a connected user. Users without an open
// connection are skipped; delivery is best-effort.
func (m *Manager) SendToUser(userID string, message []byte) {
	m.mutex.RLock()
	client, ok := m.clients[userID]
	m.mutex.RUnlock()

	if !ok {
		return
	}

	if !client.TrySend(message) {
		logger.Warn("Dropping frame for slow client %s", userID)
	}
}

// WritePump sends queued frames to the WebSocket connection
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for message := range c.send {
		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logger.Debug("Write to %s failed: %v", c.UserID, err)
			return
		}
	}
	c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
}
