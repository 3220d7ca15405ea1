package repository

import (
	"context"
	"time"

	"tradechat/internal/domain/entity"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	GetByID(ctx context.Context, id string) (*entity.Notification, error)
	// FindRecent returns the newest notification with dedupKey created at or
	// after since, or nil when there is none.
	FindRecent(ctx context.Context, dedupKey string, since time.Time) (*entity.Notification, error)
	ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]*entity.Notification, int64, error)
	CountUnread(ctx context.Context, recipientID string) (int64, error)
	// MarkAsRead sets IsRead and ReadAt unless already read. It reports
	// whether the record changed.
	MarkAsRead(ctx context.Context, id string, at time.Time) (*entity.Notification, bool, error)
	MarkAllAsRead(ctx context.Context, recipientID string, at time.Time) (int, error)
}
