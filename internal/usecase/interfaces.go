//go:generate go run go.uber.org/mock/mockgen -source=interfaces.go -destination=../mocks/mock_usecase.go -package=mocks
package usecase

import (
	"context"

	"tradechat/internal/domain/entity"
)

// EventPublisher pushes committed changes to connected sessions. Calls are
// fire-and-forget; implementations log and drop failures.
type EventPublisher interface {
	PublishNewMessage(ctx context.Context, conv *entity.Conversation, msg *entity.Message)
	PublishNotification(ctx context.Context, n *entity.Notification)
	PublishOfferAccepted(ctx context.Context, conv *entity.Conversation, msg *entity.Message, details TradeDetails)
}

// Notifier creates notifications for chat and trade events.
type Notifier interface {
	Create(ctx context.Context, input CreateNotificationInput) (*entity.Notification, error)
}
