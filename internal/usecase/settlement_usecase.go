package usecase

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"

	"tradechat/internal/domain/entity"
	"tradechat/internal/domain/repository"
	"tradechat/internal/domain/service"
	"tradechat/internal/infrastructure/lock"
	"tradechat/pkg/errors"
	"tradechat/pkg/logger"
)

// SettlementUseCase turns accepted offers into balance and share transfers.
type SettlementUseCase struct {
	convRepo      repository.ConversationRepository
	accountRepo   repository.AccountRepository
	tradeRepo     repository.TradeRepository
	athletes      repository.AthleteCatalog
	portfolio     service.PortfolioService
	conversations *ConversationUseCase
	notifier      Notifier
	publisher     EventPublisher
	locks         *lock.KeyedMutex
	timeout       time.Duration
	now           func() time.Time
}

func NewSettlementUseCase(
	convRepo repository.ConversationRepository,
	accountRepo repository.AccountRepository,
	tradeRepo repository.TradeRepository,
	athletes repository.AthleteCatalog,
	portfolio service.PortfolioService,
	conversations *ConversationUseCase,
	notifier Notifier,
	publisher EventPublisher,
	locks *lock.KeyedMutex,
	timeout time.Duration,
) *SettlementUseCase {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &SettlementUseCase{
		convRepo:      convRepo,
		accountRepo:   accountRepo,
		tradeRepo:     tradeRepo,
		athletes:      athletes,
		portfolio:     portfolio,
		conversations: conversations,
		notifier:      notifier,
		publisher:     publisher,
		locks:         locks,
		timeout:       timeout,
		now:           time.Now,
	}
}

func accountLockKey(userID string) string {
	return "account:" + userID
}

// loadOffer returns the conversation and offer message after checking that
// actorID may resolve it. The conversation lock must be held.
func (uc *SettlementUseCase) loadOffer(ctx context.Context, conversationID, messageID, actorID string) (*entity.Conversation, *entity.Message, error) {
	conv, err := uc.convRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	msg, err := uc.convRepo.GetMessageByID(ctx, conversationID, messageID)
	if err != nil {
		return nil, nil, err
	}
	if msg.Offer == nil {
		return nil, nil, errors.NotFound("Offer", nil)
	}
	if !conv.HasParticipant(actorID) {
		return nil, nil, errors.Forbidden("You are not a participant in this conversation", nil)
	}
	if msg.SenderID == actorID {
		return nil, nil, errors.Validation("You cannot respond to your own offer", nil)
	}
	return conv, msg, nil
}

// AcceptOffer settles an open offer between its sender and acceptingUserID.
// Either every effect is applied or, after compensation, none is.
func (uc *SettlementUseCase) AcceptOffer(ctx context.Context, conversationID, messageID, acceptingUserID string) (*TradeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	unlockConv := uc.locks.Lock(conversationLockKey(conversationID))
	conv, msg, err := uc.loadOffer(ctx, conversationID, messageID, acceptingUserID)
	if err != nil {
		unlockConv()
		return nil, err
	}
	offer := msg.Offer

	athlete, err := uc.athletes.GetByName(ctx, offer.Athlete)
	if err != nil {
		unlockConv()
		return nil, err
	}
	if offer.Resolved() {
		unlockConv()
		return nil, errors.Conflict("Offer has already been resolved")
	}

	now := uc.now().UTC()
	trade := &entity.Trade{
		ID:              uuid.New().String(),
		ConversationID:  conversationID,
		MessageID:       messageID,
		OfferingUserID:  msg.SenderID,
		AcceptingUserID: acceptingUserID,
		Type:            offer.Type,
		Athlete:         athlete.Name, // holdings are keyed by the catalog spelling
		Quantity:        offer.Quantity,
		Total:           offer.Total,
		Status:          entity.TradePending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	offeringDelta, acceptingDelta := trade.Deltas()

	unlockAccounts := uc.locks.LockAll(accountLockKey(trade.OfferingUserID), accountLockKey(trade.AcceptingUserID))
	unlock := func() {
		unlockAccounts()
		unlockConv()
	}

	// the seller's shares are checked before the buyer's balance
	sellerDelta, buyerDelta := acceptingDelta, offeringDelta
	if trade.Type == entity.OfferSell {
		sellerDelta, buyerDelta = offeringDelta, acceptingDelta
	}
	if err := uc.checkFunds(ctx, sellerDelta, buyerDelta); err != nil {
		unlock()
		return nil, err
	}

	confirmation, conv, err := uc.settle(ctx, conv, msg, trade, acceptingDelta, offeringDelta)
	unlock()
	if err != nil {
		return nil, err
	}

	logger.Info("Trade %s completed: %s %d %s for %s", trade.ID, trade.Type, trade.Quantity, trade.Athlete, trade.Total)

	result := &TradeResult{
		Athlete:  trade.Athlete,
		Quantity: trade.Quantity,
		Total:    trade.Total,
		Type:     trade.Type,
		Message:  confirmation,
		Trade:    trade,
	}
	uc.afterSettlement(ctx, conv, confirmation, trade, result.Details())
	return result, nil
}

// checkFunds verifies every delta against a copy of the current account so
// that nothing is written when a party cannot cover the trade.
func (uc *SettlementUseCase) checkFunds(ctx context.Context, deltas ...entity.AccountDelta) error {
	for _, delta := range deltas {
		account, err := uc.accountRepo.GetByUserID(ctx, delta.UserID)
		if err != nil {
			return err
		}
		probe := *account
		probe.Holdings = maps.Clone(account.Holdings)
		if err := probe.Apply(delta); err != nil {
			return err
		}
	}
	return nil
}

// settle runs the write steps of a settlement. On failure the completed
// steps are undone in reverse order and the original error is returned.
func (uc *SettlementUseCase) settle(
	ctx context.Context,
	conv *entity.Conversation,
	msg *entity.Message,
	trade *entity.Trade,
	acceptingDelta, offeringDelta entity.AccountDelta,
) (*entity.Message, *entity.Conversation, error) {
	if err := uc.tradeRepo.Create(ctx, trade); err != nil {
		return nil, nil, err
	}

	var undo []func(context.Context) error
	fail := func(step string, err error) (*entity.Message, *entity.Conversation, error) {
		logger.LogTradeError(trade.ID, step, err)
		uc.compensate(ctx, trade, undo, err)
		return nil, nil, err
	}

	if _, err := uc.convRepo.ResolveOffer(ctx, conv.ID, msg.ID, msg.Offer.Version, entity.OfferAccepted, trade.AcceptingUserID, uc.now().UTC()); err != nil {
		return fail("resolve_offer", err)
	}
	undo = append(undo, func(ctx context.Context) error {
		return uc.convRepo.ReopenOffer(ctx, conv.ID, msg.ID)
	})

	for _, delta := range []entity.AccountDelta{acceptingDelta, offeringDelta} {
		if _, err := uc.accountRepo.ApplyDelta(ctx, delta); err != nil {
			return fail("apply_delta", err)
		}
		inverse := delta.Inverse()
		undo = append(undo, func(ctx context.Context) error {
			_, err := uc.accountRepo.ApplyDelta(ctx, inverse)
			return err
		})
	}

	confirmation, updated, err := uc.conversations.appendSystemMessage(ctx, conv, confirmationText(trade), trade.AcceptingUserID)
	if err != nil {
		return fail("confirmation_message", err)
	}

	trade.Status = entity.TradeCompleted
	if err := uc.tradeRepo.UpdateStatus(ctx, trade.ID, entity.TradeCompleted, ""); err != nil {
		logger.LogTradeError(trade.ID, "mark_completed", err)
	}
	return confirmation, updated, nil
}

func (uc *SettlementUseCase) compensate(ctx context.Context, trade *entity.Trade, undo []func(context.Context) error, cause error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), uc.timeout)
	defer cancel()

	for i := len(undo) - 1; i >= 0; i-- {
		if err := undo[i](ctx); err != nil {
			logger.LogTradeError(trade.ID, "compensate", err)
		}
	}

	trade.Status = entity.TradeCompensated
	trade.FailureReason = cause.Error()
	if err := uc.tradeRepo.UpdateStatus(ctx, trade.ID, entity.TradeCompensated, cause.Error()); err != nil {
		logger.LogTradeError(trade.ID, "mark_compensated", err)
	}
}

func (uc *SettlementUseCase) afterSettlement(ctx context.Context, conv *entity.Conversation, confirmation *entity.Message, trade *entity.Trade, details TradeDetails) {
	for _, userID := range []string{trade.OfferingUserID, trade.AcceptingUserID} {
		if _, err := uc.portfolio.Recalculate(ctx, userID); err != nil {
			logger.Warn("Portfolio stats for %s not refreshed after trade %s: %v", userID, trade.ID, err)
		}
	}

	notifySafely(ctx, uc.notifier, CreateNotificationInput{
		RecipientID: trade.OfferingUserID,
		ActorID:     trade.AcceptingUserID,
		Type:        entity.NotificationOfferAccepted,
		Target:      &entity.NotificationTarget{Type: "message", ID: trade.MessageID},
		Data: map[string]interface{}{
			"conversationId": trade.ConversationID,
			"tradeId":        trade.ID,
			"athleteName":    details.AthleteName,
			"quantity":       details.Quantity,
			"totalAmount":    details.TotalAmount,
			"type":           string(details.Type),
		},
	})

	uc.publisher.PublishOfferAccepted(ctx, conv, confirmation, details)
}

func confirmationText(trade *entity.Trade) string {
	verb := "bought"
	if trade.Type == entity.OfferSell {
		verb = "sold"
	}
	return fmt.Sprintf("Offer accepted: %s %d shares of %s for %s", verb, trade.Quantity, trade.Athlete, trade.Total)
}

// RejectOffer closes an open offer without moving any funds.
func (uc *SettlementUseCase) RejectOffer(ctx context.Context, conversationID, messageID, userID string) (*entity.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	unlock := uc.locks.Lock(conversationLockKey(conversationID))
	conv, msg, err := uc.loadOffer(ctx, conversationID, messageID, userID)
	if err != nil {
		unlock()
		return nil, err
	}
	if msg.Offer.Resolved() {
		unlock()
		return nil, errors.Conflict("Offer has already been resolved")
	}

	resolved, err := uc.convRepo.ResolveOffer(ctx, conversationID, messageID, msg.Offer.Version, entity.OfferRejected, userID, uc.now().UTC())
	if err != nil {
		unlock()
		return nil, err
	}

	text := fmt.Sprintf("Offer declined: %s %d shares of %s for %s", msg.Offer.Type, msg.Offer.Quantity, msg.Offer.Athlete, msg.Offer.Total)
	notice, updated, err := uc.conversations.appendSystemMessage(ctx, conv, text, userID)
	unlock()
	if err != nil {
		// the offer stays rejected; only the notice is missing
		logger.Warn("Rejection notice for offer %s not stored: %v", messageID, err)
		return resolved, nil
	}

	uc.publisher.PublishNewMessage(ctx, updated, notice)
	return resolved, nil
}
