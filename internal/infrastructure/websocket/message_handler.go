package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	apperrors "tradechat/pkg/errors"
	"tradechat/pkg/logger"
)

// Client frame types
const (
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
	MessageTypeSubscribe   = "subscribe"
	MessageTypeUnsubscribe = "unsubscribe"
	MessageTypeSubscribed  = "subscribed"
	MessageTypeError       = "error"
)

// Server event types
const (
	EventNewMessage      = "new-message"
	EventNewNotification = "new-notification"
	EventOfferAccepted   = "offer-accepted"
)

const subscribeTimeout = 5 * time.Second

var (
	errSubscriptionDenied = apperrors.Forbidden("Cannot subscribe to this channel", nil)
	errSessionClosed      = errors.New("session closed")
)

// WSMessage is the envelope for every frame in both directions.
type WSMessage struct {
	Type           string      `json:"type"`
	Channel        string      `json:"channel,omitempty"`
	ConversationID string      `json:"conversationId,omitempty"`
	Data           interface{} `json:"data,omitempty"`
	Timestamp      string      `json:"timestamp"`
}

func newEnvelope(eventType, channel string, data interface{}) WSMessage {
	return WSMessage{
		Type:      eventType,
		Channel:   channel,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Join registers a new session. It reports false once the manager stopped.
func (m *Manager) Join(c *Client) bool {
	select {
	case m.Register <- c:
		return true
	case <-m.done:
		return false
	}
}

// HandleClientMessage processes one frame read from a session.
func (m *Manager) HandleClientMessage(client *Client, messageBytes []byte) {
	var wsMessage WSMessage
	if err := json.Unmarshal(messageBytes, &wsMessage); err != nil {
		m.sendErrorToClient(client, "Invalid message format")
		return
	}

	switch wsMessage.Type {
	case MessageTypePing:
		m.sendToClient(client, newEnvelope(MessageTypePong, "", map[string]string{"status": "alive"}))

	case MessageTypeSubscribe:
		channel := requestedChannel(wsMessage)
		if channel == "" {
			m.sendErrorToClient(client, "channel is required")
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), subscribeTimeout)
		defer cancel()
		if err := m.Subscribe(ctx, client, channel); err != nil {
			logger.Debug("WebSocket: %s refused subscription to %s: %v", client.UserID, channel, err)
			m.sendErrorToClient(client, subscribeErrorMessage(err))
			return
		}
		m.sendToClient(client, newEnvelope(MessageTypeSubscribed, channel, nil))

	case MessageTypeUnsubscribe:
		if channel := requestedChannel(wsMessage); channel != "" {
			m.Unsubscribe(client, channel)
		}

	default:
		logger.Debug("WebSocket: Unknown message type '%s' from client %s", wsMessage.Type, client.UserID)
		m.sendErrorToClient(client, "Unknown message type")
	}
}

func requestedChannel(msg WSMessage) string {
	if msg.Channel != "" {
		return msg.Channel
	}
	if msg.ConversationID != "" {
		return ConversationChannel(msg.ConversationID)
	}
	return ""
}

func subscribeErrorMessage(err error) string {
	if appErr, ok := apperrors.As(err); ok {
		return appErr.Message
	}
	return "Subscription failed"
}

func (m *Manager) sendErrorToClient(client *Client, message string) {
	m.sendToClient(client, newEnvelope(MessageTypeError, "", map[string]string{"message": message}))
}

// sendToClient writes a direct reply. It holds the read lock so the send
// cannot race with the session being closed.
func (m *Manager) sendToClient(client *Client, msg WSMessage) {
	payload, err := json.Marshal(msg)
	if err != nil {
		logger.Error("WebSocket: failed to encode %s frame: %v", msg.Type, err)
		return
	}

	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if _, ok := m.clients[client]; !ok {
		return
	}
	select {
	case client.Send <- payload:
	default:
		logger.Warn("WebSocket: reply to %s dropped, buffer full", client.UserID)
	}
}
