package entity

import (
	"time"
	"unicode/utf8"
)

const (
	MaxMessageLength = 1000
	SystemSenderID   = "system"
)

type OfferType string

const (
	OfferBuy  OfferType = "buy"
	OfferSell OfferType = "sell"
)

type OfferStatus string

const (
	OfferOpen     OfferStatus = "open"
	OfferAccepted OfferStatus = "accepted"
	OfferRejected OfferStatus = "rejected"
)

type Message struct {
	ID             string    `json:"id" firestore:"id"`
	ConversationID string    `json:"conversation_id" firestore:"conversationId"`
	SenderID       string    `json:"sender_id" firestore:"senderId"`
	Text           string    `json:"text" firestore:"text"`
	Seq            int64     `json:"seq" firestore:"seq"`
	System         bool      `json:"system,omitempty" firestore:"system,omitempty"`
	Offer          *Offer    `json:"offer,omitempty" firestore:"offer,omitempty"`
	CreatedAt      time.Time `json:"created_at" firestore:"createdAt"`
}

// Offer is a trade proposal embedded in a message. Only the status fields
// change after the message is appended, and only through a version check.
type Offer struct {
	Type       OfferType   `json:"type" firestore:"type"`
	Athlete    string      `json:"athlete" firestore:"athlete"`
	Quantity   int64       `json:"quantity" firestore:"quantity"`
	Price      Money       `json:"price" firestore:"price"`
	Total      Money       `json:"total" firestore:"total"`
	Status     OfferStatus `json:"status" firestore:"status"`
	Version    int64       `json:"version" firestore:"version"`
	ResolvedBy string      `json:"resolved_by,omitempty" firestore:"resolvedBy,omitempty"`
	ResolvedAt *time.Time  `json:"resolved_at,omitempty" firestore:"resolvedAt,omitempty"`
}

func (o *Offer) Resolved() bool {
	return o.Status != "" && o.Status != OfferOpen
}

// Validate checks the offer shape and returns per-field problems.
func (o *Offer) Validate() map[string]string {
	fields := map[string]string{}
	if o.Type != OfferBuy && o.Type != OfferSell {
		fields["type"] = "must be one of: buy sell"
	}
	if o.Athlete == "" {
		fields["athlete"] = "is required"
	}
	if o.Quantity <= 0 {
		fields["quantity"] = "must be a positive integer"
	}
	if o.Price <= 0 {
		fields["price"] = "must be a positive amount"
	}
	if o.Quantity > 0 && o.Price > 0 {
		want, err := o.Price.Mul(o.Quantity)
		switch {
		case err != nil:
			fields["total"] = "is too large"
		case o.Total != want:
			fields["total"] = "must equal quantity x price (" + want.String() + ")"
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// ValidateText checks message text length in runes.
func ValidateText(text string) string {
	n := utf8.RuneCountInString(text)
	switch {
	case n == 0:
		return "is required"
	case n > MaxMessageLength:
		return "must be at most 1000 characters"
	}
	return ""
}
