package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"tradechat/internal/domain/entity"
	"tradechat/internal/domain/repository"
	"tradechat/internal/infrastructure/lock"
	"tradechat/internal/infrastructure/ratelimit"
	"tradechat/pkg/errors"
	"tradechat/pkg/logger"
)

const DefaultDedupWindow = 5 * time.Minute

type NotificationUseCase struct {
	notificationRepo repository.NotificationRepository
	userRepo         repository.UserRepository
	publisher        EventPublisher
	locks            *lock.KeyedMutex
	rateLimiter      *ratelimit.RateLimiter
	dedupWindow      time.Duration
	now              func() time.Time
}

func NewNotificationUseCase(
	notificationRepo repository.NotificationRepository,
	userRepo repository.UserRepository,
	publisher EventPublisher,
	locks *lock.KeyedMutex,
	rateLimiter *ratelimit.RateLimiter,
	dedupWindow time.Duration,
) *NotificationUseCase {
	if dedupWindow <= 0 {
		dedupWindow = DefaultDedupWindow
	}
	return &NotificationUseCase{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		publisher:        publisher,
		locks:            locks,
		rateLimiter:      rateLimiter,
		dedupWindow:      dedupWindow,
		now:              time.Now,
	}
}

type CreateNotificationInput struct {
	RecipientID string
	ActorID     string
	Type        entity.NotificationType
	Action      string
	Target      *entity.NotificationTarget
	Data        map[string]interface{}
}

// Create stores a notification unless it targets its own actor (nil, nil)
// or an identical trigger fired inside the dedup window, in which case the
// earlier record is returned. Only new records are published.
func (uc *NotificationUseCase) Create(ctx context.Context, input CreateNotificationInput) (*entity.Notification, error) {
	if input.RecipientID == "" || input.ActorID == "" {
		return nil, errors.Validation("Recipient and actor are required", nil)
	}
	if !input.Type.Valid() {
		return nil, errors.Validation("Unknown notification type", map[string]string{"type": "is not a known notification type"})
	}
	if input.RecipientID == input.ActorID {
		return nil, nil
	}

	dedupKey := entity.NotificationDedupKey(input.RecipientID, input.ActorID, input.Type, input.Target)
	unlock := uc.locks.Lock("notification:" + dedupKey)
	defer unlock()

	now := uc.now()
	existing, err := uc.notificationRepo.FindRecent(ctx, dedupKey, now.Add(-uc.dedupWindow))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		logger.Debug("Notification %s suppressed as duplicate of %s", dedupKey, existing.ID)
		return existing, nil
	}

	action := input.Action
	if action == "" {
		action = input.Type.DefaultAction()
	}

	n := &entity.Notification{
		ID:          uuid.New().String(),
		RecipientID: input.RecipientID,
		ActorID:     input.ActorID,
		Type:        input.Type,
		Action:      action,
		Target:      input.Target,
		Data:        input.Data,
		DedupKey:    dedupKey,
		Actor:       uc.summary(ctx, input.ActorID),
		Recipient:   uc.summary(ctx, input.RecipientID),
		CreatedAt:   now,
	}
	if err := uc.notificationRepo.Create(ctx, n); err != nil {
		return nil, err
	}

	uc.publisher.PublishNotification(ctx, n)
	return n, nil
}

type SocialTriggerInput struct {
	RecipientID string
	Type        entity.NotificationType
	Action      string
	Target      *entity.NotificationTarget
	Data        map[string]interface{}
}

// Trigger records a social feed event performed by actorID. Chat and trade
// types are reserved for the engine itself.
func (uc *NotificationUseCase) Trigger(ctx context.Context, actorID string, input SocialTriggerInput) (*entity.Notification, error) {
	if !input.Type.Social() {
		return nil, errors.Validation("Notification type cannot be triggered directly", map[string]string{"type": "must be a social notification type"})
	}
	if allowed, wait := uc.rateLimiter.Allow(actorID, ratelimit.ActionCreateNotification); !allowed {
		return nil, errors.TooManyRequests("Too many notifications, retry in " + wait.Round(time.Second).String())
	}

	if _, err := uc.userRepo.GetByID(ctx, input.RecipientID); err != nil {
		return nil, err
	}

	return uc.Create(ctx, CreateNotificationInput{
		RecipientID: input.RecipientID,
		ActorID:     actorID,
		Type:        input.Type,
		Action:      input.Action,
		Target:      input.Target,
		Data:        input.Data,
	})
}

// MarkAsRead is idempotent; a second call leaves ReadAt unchanged.
func (uc *NotificationUseCase) MarkAsRead(ctx context.Context, id, userID string) (*entity.DisplayNotification, error) {
	n, err := uc.notificationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != userID {
		return nil, errors.Forbidden("You cannot modify this notification", nil)
	}

	n, _, err = uc.notificationRepo.MarkAsRead(ctx, id, uc.now())
	if err != nil {
		return nil, err
	}
	display := entity.ToDisplay(n, uc.now())
	return &display, nil
}

func (uc *NotificationUseCase) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	return uc.notificationRepo.MarkAllAsRead(ctx, userID, uc.now())
}

func (uc *NotificationUseCase) List(ctx context.Context, userID string, limit, offset int) ([]entity.DisplayNotification, int64, error) {
	list, total, err := uc.notificationRepo.ListByRecipient(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	now := uc.now()
	return lo.Map(list, func(n *entity.Notification, _ int) entity.DisplayNotification {
		return entity.ToDisplay(n, now)
	}), total, nil
}

func (uc *NotificationUseCase) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return uc.notificationRepo.CountUnread(ctx, userID)
}

func (uc *NotificationUseCase) summary(ctx context.Context, userID string) entity.UserSummary {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		logger.Debug("No profile for %s: %v", userID, err)
		return entity.UnknownUser(userID)
	}
	return user.Summary()
}

// notifySafely runs a notification trigger whose failure must not affect
// the action that caused it.
func notifySafely(ctx context.Context, notifier Notifier, input CreateNotificationInput) {
	if notifier == nil {
		return
	}
	if _, err := notifier.Create(ctx, input); err != nil {
		logger.Warn("Failed to create %s notification for %s: %v", input.Type, input.RecipientID, err)
	}
}
