package usecase

import (
	"time"

	"tradechat/internal/domain/entity"
)

type OfferView struct {
	Type       entity.OfferType   `json:"type"`
	Athlete    string             `json:"athlete"`
	Quantity   int64              `json:"quantity"`
	Price      string             `json:"price"`
	Total      string             `json:"total"`
	Status     entity.OfferStatus `json:"status"`
	ResolvedBy string             `json:"resolvedBy,omitempty"`
	ResolvedAt *time.Time         `json:"resolvedAt,omitempty"`
}

type MessageView struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversationId"`
	Text           string     `json:"text"`
	SenderID       string     `json:"senderId"`
	Sent           bool       `json:"sent"`
	System         bool       `json:"system,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
	Offer          *OfferView `json:"offer,omitempty"`
}

// NewMessageView renders msg for viewerID. Sent is true only for the
// viewer's own messages; pass "" for a viewer-neutral copy.
func NewMessageView(msg *entity.Message, viewerID string) MessageView {
	view := MessageView{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		Text:           msg.Text,
		SenderID:       msg.SenderID,
		Sent:           viewerID != "" && msg.SenderID == viewerID,
		System:         msg.System,
		Timestamp:      msg.CreatedAt,
	}
	if o := msg.Offer; o != nil {
		view.Offer = &OfferView{
			Type:       o.Type,
			Athlete:    o.Athlete,
			Quantity:   o.Quantity,
			Price:      o.Price.String(),
			Total:      o.Total.String(),
			Status:     o.Status,
			ResolvedBy: o.ResolvedBy,
			ResolvedAt: o.ResolvedAt,
		}
	}
	return view
}

func NewMessageViews(msgs []*entity.Message, viewerID string) []MessageView {
	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, NewMessageView(m, viewerID))
	}
	return views
}

// ConversationSummary is a conversation as listed for one participant.
type ConversationSummary struct {
	ID              string        `json:"id"`
	ParticipantID   string        `json:"participantId"`
	Username        string        `json:"username"`
	Name            string        `json:"name"`
	Avatar          string        `json:"avatar,omitempty"`
	LastMessage     string        `json:"lastMessage"`
	LastMessageTime time.Time     `json:"lastMessageTime"`
	Time            string        `json:"time"`
	Unread          int           `json:"unread"`
	Messages        []MessageView `json:"messages"`
}

type TradeDetails struct {
	AthleteName string           `json:"athleteName"`
	Quantity    int64            `json:"quantity"`
	TotalAmount string           `json:"totalAmount"`
	Type        entity.OfferType `json:"type"`
}

// TradeResult is what a successful settlement returns to the caller.
type TradeResult struct {
	Athlete  string
	Quantity int64
	Total    entity.Money
	Type     entity.OfferType
	Message  *entity.Message
	Trade    *entity.Trade
}

func (r *TradeResult) Details() TradeDetails {
	return TradeDetails{
		AthleteName: r.Athlete,
		Quantity:    r.Quantity,
		TotalAmount: r.Total.String(),
		Type:        r.Type,
	}
}
