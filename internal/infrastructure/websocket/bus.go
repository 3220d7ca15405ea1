package websocket

import (
	"context"
	"encoding/json"
	"time"

	"tradechat/internal/domain/entity"
	"tradechat/internal/usecase"
	"tradechat/pkg/logger"
)

// Publisher delivers an encoded frame to every session on a channel.
type Publisher interface {
	Publish(channel string, payload []byte)
}

// Bus decides which channels each domain event reaches.
type Bus struct {
	publisher Publisher
}

func NewBus(publisher Publisher) *Bus {
	return &Bus{publisher: publisher}
}

var _ usecase.EventPublisher = (*Bus)(nil)

type conversationDelta struct {
	LastMessage     string         `json:"lastMessage"`
	LastMessageTime time.Time      `json:"lastMessageTime"`
	UnreadCount     map[string]int `json:"unreadCount"`
}

type newMessagePayload struct {
	ConversationID string              `json:"conversationId"`
	Message        usecase.MessageView `json:"message"`
	Conversation   conversationDelta   `json:"conversation"`
}

type offerAcceptedPayload struct {
	ConversationID string               `json:"conversationId"`
	Message        usecase.MessageView  `json:"message"`
	TradeDetails   usecase.TradeDetails `json:"tradeDetails"`
}

// PublishNewMessage reaches the conversation channel and the private
// channel of every participant except the sender.
func (b *Bus) PublishNewMessage(_ context.Context, conv *entity.Conversation, msg *entity.Message) {
	data := newMessagePayload{
		ConversationID: conv.ID,
		Message:        usecase.NewMessageView(msg, ""),
		Conversation: conversationDelta{
			LastMessage:     conv.LastMessage,
			LastMessageTime: conv.LastMessageAt,
			UnreadCount:     conv.UnreadCount,
		},
	}

	channels := []string{ConversationChannel(conv.ID)}
	for _, p := range conv.Participants {
		if p != msg.SenderID {
			channels = append(channels, UserChannel(p))
		}
	}
	b.send(EventNewMessage, conv.ID, data, channels)
}

func (b *Bus) PublishNotification(_ context.Context, n *entity.Notification) {
	b.send(EventNewNotification, "", entity.ToDisplay(n, time.Now()), []string{UserChannel(n.RecipientID)})
}

// PublishOfferAccepted reaches both parties privately.
func (b *Bus) PublishOfferAccepted(_ context.Context, conv *entity.Conversation, msg *entity.Message, details usecase.TradeDetails) {
	data := offerAcceptedPayload{
		ConversationID: conv.ID,
		Message:        usecase.NewMessageView(msg, ""),
		TradeDetails:   details,
	}

	channels := make([]string, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		channels = append(channels, UserChannel(p))
	}
	b.send(EventOfferAccepted, conv.ID, data, channels)
}

func (b *Bus) send(eventType, conversationID string, data interface{}, channels []string) {
	for _, channel := range channels {
		envelope := newEnvelope(eventType, channel, data)
		envelope.ConversationID = conversationID

		payload, err := json.Marshal(envelope)
		if err != nil {
			logger.Error("Failed to encode %s event for %s: %v", eventType, channel, err)
			continue
		}
		b.publisher.Publish(channel, payload)
	}
}
