package repository

import (
	"context"
	"time"

	"tradechat/internal/domain/entity"
)

type ConversationRepository interface {
	// Create stores a new conversation and returns a Conflict error when one
	// with the same id already exists.
	Create(ctx context.Context, conv *entity.Conversation) error
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error)

	// AppendMessage assigns msg the next sequence number, stores it, updates
	// the conversation's last message and increments unread counters for
	// every id in unreadFor. Both writes happen in one storage transaction.
	AppendMessage(ctx context.Context, msg *entity.Message, unreadFor []string) (*entity.Conversation, error)
	ResetUnread(ctx context.Context, conversationID, userID string) (*entity.Conversation, error)

	GetMessageByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error)
	// ListMessages returns up to limit most recent messages in ascending
	// sequence order. limit <= 0 means all.
	ListMessages(ctx context.Context, conversationID string, limit int) ([]*entity.Message, error)

	// ResolveOffer moves an open offer to status if its version still equals
	// expectedVersion, returning Conflict otherwise.
	ResolveOffer(ctx context.Context, conversationID, messageID string, expectedVersion int64, status entity.OfferStatus, by string, at time.Time) (*entity.Message, error)
	// ReopenOffer undoes ResolveOffer for a failed settlement.
	ReopenOffer(ctx context.Context, conversationID, messageID string) error
}
