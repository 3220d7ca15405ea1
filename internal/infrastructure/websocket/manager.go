package websocket

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"tradechat/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096

	userChannelPrefix         = "user:"
	conversationChannelPrefix = "conversation:"
)

func UserChannel(userID string) string {
	return userChannelPrefix + userID
}

func ConversationChannel(conversationID string) string {
	return conversationChannelPrefix + conversationID
}

// ConversationAuthorizer decides whether a user may join a conversation
// channel.
type ConversationAuthorizer interface {
	CanSubscribe(ctx context.Context, userID, conversationID string) error
}

// AuthorizerFunc adapts a function to ConversationAuthorizer.
type AuthorizerFunc func(ctx context.Context, userID, conversationID string) error

func (f AuthorizerFunc) CanSubscribe(ctx context.Context, userID, conversationID string) error {
	return f(ctx, userID, conversationID)
}

// Client is one authenticated websocket session. A user may hold several.
type Client struct {
	ID     string
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	channels map[string]struct{}
}

func NewClient(userID string, conn *websocket.Conn, buffer int) *Client {
	return &Client{
		ID:       uuid.New().String(),
		UserID:   userID,
		Conn:     conn,
		Send:     make(chan []byte, buffer),
		channels: make(map[string]struct{}),
	}
}

// Manager tracks sessions and which channels they are subscribed to.
type Manager struct {
	clients    map[*Client]struct{}
	channels   map[string]map[*Client]struct{}
	Register   chan *Client
	Unregister chan *Client
	authorizer ConversationAuthorizer
	mutex      sync.RWMutex
	done       chan struct{}
}

func NewManager(authorizer ConversationAuthorizer) *Manager {
	return &Manager{
		clients:    make(map[*Client]struct{}),
		channels:   make(map[string]map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		authorizer: authorizer,
		done:       make(chan struct{}),
	}
}

// Start runs the registration loop until ctx is done.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.add(client)
				logger.Debug("Client registered: %s (session %s)", client.UserID, client.ID)

			case client := <-m.Unregister:
				m.remove(client)
				logger.Debug("Client unregistered: %s (session %s)", client.UserID, client.ID)

			case <-ctx.Done():
				close(m.done)
				m.closeAll()
				return
			}
		}
	}()
}

func (m *Manager) add(c *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.clients[c] = struct{}{}
	m.subscribeLocked(c, UserChannel(c.UserID))
}

// remove is idempotent; Send is closed exactly once.
func (m *Manager) remove(c *Client) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.clients[c]; !ok {
		return
	}
	for channel := range c.channels {
		m.unsubscribeLocked(c, channel)
	}
	delete(m.clients, c)
	close(c.Send)
}

func (m *Manager) closeAll() {
	m.mutex.Lock()
	clients := make([]*Client, 0, len(m.clients))
	for c := range m.clients {
		clients = append(clients, c)
	}
	m.mutex.Unlock()

	for _, c := range clients {
		m.remove(c)
	}
}

func (m *Manager) subscribeLocked(c *Client, channel string) {
	subs, ok := m.channels[channel]
	if !ok {
		subs = make(map[*Client]struct{})
		m.channels[channel] = subs
	}
	subs[c] = struct{}{}
	c.channels[channel] = struct{}{}
}

func (m *Manager) unsubscribeLocked(c *Client, channel string) {
	if subs, ok := m.channels[channel]; ok {
		delete(subs, c)
		if len(subs) == 0 {
			delete(m.channels, channel)
		}
	}
	delete(c.channels, channel)
}

// Subscribe joins c to a conversation channel after checking membership.
// Private channels of other users are never joinable.
func (m *Manager) Subscribe(ctx context.Context, c *Client, channel string) error {
	switch {
	case channel == UserChannel(c.UserID):
		return nil
	case strings.HasPrefix(channel, conversationChannelPrefix):
		conversationID := strings.TrimPrefix(channel, conversationChannelPrefix)
		if m.authorizer == nil {
			return errSubscriptionDenied
		}
		if err := m.authorizer.CanSubscribe(ctx, c.UserID, conversationID); err != nil {
			return err
		}
	default:
		return errSubscriptionDenied
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.clients[c]; !ok {
		return errSessionClosed
	}
	m.subscribeLocked(c, channel)
	return nil
}

func (m *Manager) Unsubscribe(c *Client, channel string) {
	if channel == UserChannel(c.UserID) {
		return
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.unsubscribeLocked(c, channel)
}

// Publish delivers payload to every session on channel without blocking.
// Sessions whose buffer is full are disconnected and must resync.
func (m *Manager) Publish(channel string, payload []byte) {
	var slow []*Client

	m.mutex.RLock()
	for c := range m.channels[channel] {
		select {
		case c.Send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	m.mutex.RUnlock()

	for _, c := range slow {
		logger.Warn("Dropping slow websocket session %s for user %s", c.ID, c.UserID)
		m.remove(c)
	}
}

// SendToUser delivers payload to every session of userID.
func (m *Manager) SendToUser(userID string, payload []byte) {
	m.Publish(UserChannel(userID), payload)
}

func (m *Manager) Subscribers(channel string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.channels[channel])
}

func (m *Manager) IsSubscribed(c *Client, channel string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := m.channels[channel][c]
	return ok
}

// ReadPump reads frames until the connection fails, then unregisters.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		select {
		case m.Unregister <- c:
		case <-m.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("websocket read error for %s: %v", c.UserID, err)
			}
			break
		}
		m.HandleClientMessage(c, message)
	}
}

// WritePump drains Send to the connection and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("websocket write error for %s: %v", c.UserID, err)
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
