package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"tradechat/internal/domain/entity"
	"tradechat/internal/domain/repository"
	"tradechat/internal/infrastructure/lock"
	"tradechat/internal/infrastructure/ratelimit"
	"tradechat/pkg/errors"
	"tradechat/pkg/logger"
)

const (
	DefaultRequestTimeout = 10 * time.Second
	DefaultPreviewSize    = 20
)

type ConversationUseCase struct {
	convRepo    repository.ConversationRepository
	userRepo    repository.UserRepository
	notifier    Notifier
	publisher   EventPublisher
	locks       *lock.KeyedMutex
	rateLimiter *ratelimit.RateLimiter
	timeout     time.Duration
	previewSize int
	now         func() time.Time
}

func NewConversationUseCase(
	convRepo repository.ConversationRepository,
	userRepo repository.UserRepository,
	notifier Notifier,
	publisher EventPublisher,
	locks *lock.KeyedMutex,
	rateLimiter *ratelimit.RateLimiter,
	timeout time.Duration,
	previewSize int,
) *ConversationUseCase {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if previewSize <= 0 {
		previewSize = DefaultPreviewSize
	}
	return &ConversationUseCase{
		convRepo:    convRepo,
		userRepo:    userRepo,
		notifier:    notifier,
		publisher:   publisher,
		locks:       locks,
		rateLimiter: rateLimiter,
		timeout:     timeout,
		previewSize: previewSize,
		now:         time.Now,
	}
}

func conversationLockKey(id string) string {
	return "conversation:" + id
}

// FindOrCreate returns the single conversation between two users, creating
// it on first contact. Concurrent callers converge on the same record.
func (uc *ConversationUseCase) FindOrCreate(ctx context.Context, userA, userB string) (*entity.Conversation, error) {
	if userA == "" || userB == "" {
		return nil, errors.Validation("Both participants are required", nil)
	}
	if userA == userB {
		return nil, errors.Validation("Cannot start a conversation with yourself", map[string]string{"username": "must be another user"})
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	id := entity.ConversationIDFor(userA, userB)
	conv, err := uc.convRepo.GetByID(ctx, id)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, errors.CodeNotFound) {
		return nil, err
	}

	conv = entity.NewConversation(userA, userB, uc.now().UTC())
	if err := uc.convRepo.Create(ctx, conv); err != nil {
		if errors.Is(err, errors.CodeConflict) {
			return uc.convRepo.GetByID(ctx, id)
		}
		return nil, err
	}

	logger.Info("Conversation %s created between %s and %s", conv.ID, conv.Participants[0], conv.Participants[1])
	return conv, nil
}

// StartConversation opens the conversation between userID and the owner
// of username.
func (uc *ConversationUseCase) StartConversation(ctx context.Context, userID, username string) (*ConversationSummary, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, errors.Validation("Username is required", map[string]string{"username": "is required"})
	}

	other, err := uc.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if other.ID == userID {
		return nil, errors.Validation("Cannot start a conversation with yourself", map[string]string{"username": "must be another user"})
	}

	if _, err := uc.convRepo.GetByID(ctx, entity.ConversationIDFor(userID, other.ID)); errors.Is(err, errors.CodeNotFound) {
		if allowed, wait := uc.rateLimiter.Allow(userID, ratelimit.ActionCreateChat); !allowed {
			return nil, errors.TooManyRequests("Too many new conversations, retry in " + wait.Round(time.Second).String())
		}
	}

	conv, err := uc.FindOrCreate(ctx, userID, other.ID)
	if err != nil {
		return nil, err
	}
	return uc.summarize(ctx, conv, userID, nil), nil
}

type OfferInput struct {
	Type     entity.OfferType
	Athlete  string
	Quantity int64
	Price    string
	Total    string
}

type SendMessageInput struct {
	ConversationID string
	SenderID       string
	Text           string
	Offer          *OfferInput
}

// AppendMessage stores a message from a participant, bumps the unread
// counter of every other participant and publishes the result.
func (uc *ConversationUseCase) AppendMessage(ctx context.Context, input SendMessageInput) (*entity.Message, error) {
	if allowed, wait := uc.rateLimiter.Allow(input.SenderID, ratelimit.ActionSendMessage); !allowed {
		return nil, errors.TooManyRequests("Too many messages, retry in " + wait.Round(time.Second).String())
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	unlock := uc.locks.Lock(conversationLockKey(input.ConversationID))
	conv, err := uc.convRepo.GetByID(ctx, input.ConversationID)
	if err != nil {
		unlock()
		return nil, err
	}
	if !conv.HasParticipant(input.SenderID) {
		unlock()
		return nil, errors.Forbidden("You are not a participant in this conversation", nil)
	}

	msg, err := uc.buildMessage(input)
	if err != nil {
		unlock()
		return nil, err
	}

	unreadFor := othersThan(conv, input.SenderID)
	conv, err = uc.convRepo.AppendMessage(ctx, msg, unreadFor)
	unlock()
	if err != nil {
		return nil, err
	}

	uc.publisher.PublishNewMessage(ctx, conv, msg)
	uc.notifyRecipients(ctx, msg, unreadFor)
	return msg, nil
}

func (uc *ConversationUseCase) buildMessage(input SendMessageInput) (*entity.Message, error) {
	text := strings.TrimSpace(input.Text)
	fields := map[string]string{}
	if problem := entity.ValidateText(text); problem != "" {
		fields["text"] = problem
	}

	var offer *entity.Offer
	if input.Offer != nil {
		var offerFields map[string]string
		offer, offerFields = parseOffer(input.Offer)
		for k, v := range offerFields {
			fields["offer."+k] = v
		}
	}
	if len(fields) > 0 {
		return nil, errors.Validation("Invalid message", fields)
	}

	return &entity.Message{
		ID:             uuid.New().String(),
		ConversationID: input.ConversationID,
		SenderID:       input.SenderID,
		Text:           text,
		Offer:          offer,
		CreatedAt:      uc.now().UTC(),
	}, nil
}

func parseOffer(in *OfferInput) (*entity.Offer, map[string]string) {
	fields := map[string]string{}
	price, err := entity.ParseMoney(in.Price)
	if err != nil {
		fields["price"] = "must be a dollar amount"
	}
	total, err := entity.ParseMoney(in.Total)
	if err != nil {
		fields["total"] = "must be a dollar amount"
	}

	offer := &entity.Offer{
		Type:     in.Type,
		Athlete:  strings.TrimSpace(in.Athlete),
		Quantity: in.Quantity,
		Price:    price,
		Total:    total,
		Status:   entity.OfferOpen,
	}
	if len(fields) == 0 {
		fields = offer.Validate()
	}
	if len(fields) > 0 {
		return nil, fields
	}
	return offer, nil
}

// appendSystemMessage writes a system message. The caller must already
// hold the conversation lock.
func (uc *ConversationUseCase) appendSystemMessage(ctx context.Context, conv *entity.Conversation, text, actorID string) (*entity.Message, *entity.Conversation, error) {
	msg := &entity.Message{
		ID:             uuid.New().String(),
		ConversationID: conv.ID,
		SenderID:       entity.SystemSenderID,
		Text:           text,
		System:         true,
		CreatedAt:      uc.now().UTC(),
	}
	updated, err := uc.convRepo.AppendMessage(ctx, msg, othersThan(conv, actorID))
	if err != nil {
		return nil, nil, err
	}
	return msg, updated, nil
}

func (uc *ConversationUseCase) notifyRecipients(ctx context.Context, msg *entity.Message, recipients []string) {
	notificationType := entity.NotificationMessage
	target := &entity.NotificationTarget{Type: "conversation", ID: msg.ConversationID}
	data := map[string]interface{}{
		"conversationId": msg.ConversationID,
		"preview":        preview(msg.Text),
	}
	if msg.Offer != nil {
		notificationType = entity.NotificationOfferReceived
		target = &entity.NotificationTarget{Type: "message", ID: msg.ID}
		data["athlete"] = msg.Offer.Athlete
		data["quantity"] = msg.Offer.Quantity
		data["total"] = msg.Offer.Total.String()
		data["offerType"] = string(msg.Offer.Type)
	}

	for _, recipient := range recipients {
		notifySafely(ctx, uc.notifier, CreateNotificationInput{
			RecipientID: recipient,
			ActorID:     msg.SenderID,
			Type:        notificationType,
			Target:      target,
			Data:        data,
		})
	}
}

// MarkRead resets participantID's unread counter. Calling it again is a
// no-op.
func (uc *ConversationUseCase) MarkRead(ctx context.Context, conversationID, participantID string) error {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	unlock := uc.locks.Lock(conversationLockKey(conversationID))
	defer unlock()

	conv, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(participantID) {
		return errors.Forbidden("You are not a participant in this conversation", nil)
	}
	if conv.UnreadFor(participantID) == 0 {
		return nil
	}
	_, err = uc.convRepo.ResetUnread(ctx, conversationID, participantID)
	return err
}

func (uc *ConversationUseCase) Get(ctx context.Context, conversationID, requesterID string) (*entity.Conversation, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	conv, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(requesterID) {
		return nil, errors.Forbidden("You are not a participant in this conversation", nil)
	}
	return conv, nil
}

// CanSubscribe lets realtime sessions join a conversation channel.
func (uc *ConversationUseCase) CanSubscribe(ctx context.Context, userID, conversationID string) error {
	_, err := uc.Get(ctx, conversationID, userID)
	return err
}

func (uc *ConversationUseCase) Messages(ctx context.Context, conversationID, requesterID string) ([]*entity.Message, error) {
	if _, err := uc.Get(ctx, conversationID, requesterID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	return uc.convRepo.ListMessages(ctx, conversationID, 0)
}

// Open returns the full conversation for requesterID and marks it read.
func (uc *ConversationUseCase) Open(ctx context.Context, conversationID, requesterID string) (*ConversationSummary, error) {
	msgs, err := uc.Messages(ctx, conversationID, requesterID)
	if err != nil {
		return nil, err
	}
	if err := uc.MarkRead(ctx, conversationID, requesterID); err != nil {
		return nil, err
	}

	conv, err := uc.Get(ctx, conversationID, requesterID)
	if err != nil {
		return nil, err
	}
	return uc.summarize(ctx, conv, requesterID, msgs), nil
}

// List returns requesterID's conversations, most recently active first,
// each with a preview of its latest messages.
func (uc *ConversationUseCase) List(ctx context.Context, userID string, limit, offset int) ([]*ConversationSummary, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	convs, total, err := uc.convRepo.ListByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, err
	}

	summaries := make([]*ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		msgs, err := uc.convRepo.ListMessages(ctx, conv.ID, uc.previewSize)
		if err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, uc.summarize(ctx, conv, userID, msgs))
	}
	return summaries, total, nil
}

func (uc *ConversationUseCase) summarize(ctx context.Context, conv *entity.Conversation, viewerID string, msgs []*entity.Message) *ConversationSummary {
	otherID := conv.OtherParticipant(viewerID)
	other := entity.UnknownUser(otherID)
	if user, err := uc.userRepo.GetByID(ctx, otherID); err == nil {
		other = user.Summary()
	}

	return &ConversationSummary{
		ID:              conv.ID,
		ParticipantID:   otherID,
		Username:        other.Username,
		Name:            other.Name,
		Avatar:          other.Avatar,
		LastMessage:     conv.LastMessage,
		LastMessageTime: conv.LastMessageAt,
		Time:            entity.RelativeTime(conv.LastMessageAt, uc.now()),
		Unread:          conv.UnreadFor(viewerID),
		Messages:        NewMessageViews(msgs, viewerID),
	}
}

func othersThan(conv *entity.Conversation, userID string) []string {
	others := make([]string, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		if p != userID {
			others = append(others, p)
		}
	}
	return others
}

func preview(text string) string {
	const previewRunes = 80
	runes := []rune(text)
	if len(runes) <= previewRunes {
		return text
	}
	return string(runes[:previewRunes]) + "..."
}
