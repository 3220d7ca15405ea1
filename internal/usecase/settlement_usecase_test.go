package usecase_test

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"tradechat/internal/domain/entity"
	domainrepo "tradechat/internal/domain/repository"
	"tradechat/internal/mocks"
	"tradechat/internal/usecase"
	"tradechat/pkg/errors"
)

func Test_AcceptOffer_Buy_Moves_Cash_And_Shares(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness(t, nil)
	h.seedTraders(t, 100000)

	conv := h.openConversation(t)
	h.publisher.EXPECT().PublishNewMessage(gomock.Any(), gomock.Any(), gomock.Any()).Times(1)
	h.publisher.EXPECT().PublishNotification(gomock.Any(), gomock.Any()).AnyTimes()
	h.publisher.EXPECT().PublishOfferAccepted(gomock.Any(), gomock.Any(), gomock.Any(), usecase.TradeDetails{
		AthleteName: "LeBron James",
		Quantity:    10,
		TotalAmount: "$50.00",
		Type:        entity.OfferBuy,
	}).Times(1)
	h.portfolio.EXPECT().Recalculate(gomock.Any(), "alice").Return(&entity.PortfolioStats{}, nil)
	h.portfolio.EXPECT().Recalculate(gomock.Any(), "bob").Return(&entity.PortfolioStats{}, nil)

	offer := h.sendOffer(t, conv.ID, "alice", buyOffer(10, "$5.00", "$50.00"))

	result, err := h.settlement.AcceptOffer(ctx, conv.ID, offer.ID, "bob")
	req.NoError(err)
	req.Equal("LeBron James", result.Athlete)
	req.EqualValues(10, result.Quantity)
	req.Equal(entity.Money(5000), result.Total)
	req.Equal(entity.OfferBuy, result.Type)
	req.True(result.Message.System)

	alice := h.account(t, "alice")
	bob := h.account(t, "bob")
	req.Equal(entity.Money(95000), alice.Balance)
	req.EqualValues(10, alice.SharesOf("LeBron James"))
	req.Equal(entity.Money(5000), bob.Balance)
	req.Zero(bob.SharesOf("LeBron James"))

	// conservation
	req.Equal(entity.Money(100000), alice.Balance+bob.Balance)
	req.EqualValues(10, alice.SharesOf("LeBron James")+bob.SharesOf("LeBron James"))

	stored, err := h.convRepo.GetMessageByID(ctx, conv.ID, offer.ID)
	req.NoError(err)
	req.Equal(entity.OfferAccepted, stored.Offer.Status)
	req.Equal("bob", stored.Offer.ResolvedBy)

	trade, err := h.tradeRepo.GetByID(ctx, result.Trade.ID)
	req.NoError(err)
	req.Equal(entity.TradeCompleted, trade.Status)

	// the confirmation is unread for the offering side only
	updated, err := h.convRepo.GetByID(ctx, conv.ID)
	req.NoError(err)
	req.Equal(2, updated.UnreadFor("alice")+updated.UnreadFor("bob"))
	req.Equal(1, updated.UnreadFor("alice"))

	notifications, _, err := h.notifications.List(ctx, "alice", 10, 0)
	req.NoError(err)
	req.Len(notifications, 1)
	req.Equal(entity.NotificationOfferAccepted, notifications[0].Type)
}

func Test_AcceptOffer_Sell_Swaps_Roles(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness(t, nil)
	h.seedTraders(t, 100000)
	h.quiet()

	conv := h.openConversation(t)
	sell := &usecase.OfferInput{Type: entity.OfferSell, Athlete: "LeBron James", Quantity: 4, Price: "2.50", Total: "10"}
	offer := h.sendOffer(t, conv.ID, "bob", sell)

	_, err := h.settlement.AcceptOffer(ctx, conv.ID, offer.ID, "alice")
	req.NoError(err)

	req.Equal(entity.Money(99000), h.account(t, "alice").Balance)
	req.EqualValues(4, h.account(t, "alice").SharesOf("LeBron James"))
	req.Equal(entity.Money(1000), h.account(t, "bob").Balance)
	req.EqualValues(6, h.account(t, "bob").SharesOf("LeBron James"))
}

func Test_AcceptOffer_Twice_Conflicts_Without_Changes(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness(t, nil)
	h.seedTraders(t, 100000)
	h.quiet()

	conv := h.openConversation(t)
	offer := h.sendOffer(t, conv.ID, "alice", buyOffer(2, "$5.00", "$10.00"))

	_, err := h.settlement.AcceptOffer(ctx, conv.ID, offer.ID, "bob")
	req.NoError(err)
	before := h.account(t, "alice")

	_, err = h.settlement.AcceptOffer(ctx, conv.ID, offer.ID, "bob")
	req.True(errors.Is(err, errors.CodeConflict))
	req.Equal(before.Balance, h.account(t, "alice").Balance)
	req.Equal(before.SharesOf("LeBron James"), h.account(t, "alice").SharesOf("LeBron James"))
}

func Test_AcceptOffer_Concurrent_Settles_Once(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness(t, nil)
	h.seedTraders(t, 100000)
	h.quiet()

	conv := h.openConversation(t)
	offer := h.sendOffer(t, conv.ID, "alice", buyOffer(1, "$5.00", "$5.00"))

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.settlement.AcceptOffer(ctx, conv.ID, offer.ID, "bob")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, errors.CodeConflict):
				conflicts++
			}
		}()
	}
	wg.Wait()

	req.Equal(1, succeeded)
	req.Equal(7, conflicts)
	req.Equal(entity.Money(99500), h.account(t, "alice").Balance)
	req.EqualValues(9, h.account(t, "bob").SharesOf("LeBron James"))
}

func Test_AcceptOffer_Own_Offer_Is_Rejected(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness(t, nil)
	h.seedTraders(t, 100000)
	h.quiet()

	conv := h.openConversation(t)
	offer := h.sendOffer(t, conv.ID, "alice", buyOffer(10, "$5.00", "$50.00"))

	_, err := h.settlement.AcceptOffer(ctx, conv.ID, offer.ID, "alice")
	req.True(errors.Is(err, errors.CodeValidation))

	req.Equal(entity.Money(100000), h.account(t, "alice").Balance)
	req.EqualValues(10, h.account(t, "bob").SharesOf("LeBron James"))
	stored, err := h.convRepo.GetMessageByID(ctx, conv.ID, offer.ID)
	req.NoError(err)
	req.Equal(entity.OfferOpen, stored.Offer.Status)
}

func Test_AcceptOffer_Precondition_Errors(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, nil)
	h.seedTraders(t, 100000)
	h.quiet()

	conv := h.openConversation(t)
	offer := h.sendOffer(t, conv.ID, "alice", buyOffer(1, "$5.00", "$5.00"))
	plain, err := h.conversations.AppendMessage(ctx, usecase.SendMessageInput{ConversationID: conv.ID, SenderID: "alice", Text: "hello"})
	require.NoError(t, err)
	ghost := h.sendOffer(t, conv.ID, "alice", &usecase.OfferInput{Type: entity.OfferBuy, Athlete: "Nobody", Quantity: 1, Price: "1", Total: "1"})

	tests := []struct {
		name      string
		convID    string
		messageID string
		userID    string
		code      string
	}{
		{"missing conversation", "nope", offer.ID, "bob", errors.CodeNotFound},
		{"missing message", conv.ID, "nope", "bob", errors.CodeNotFound},
		{"message without offer", conv.ID, plain.ID, "bob", errors.CodeNotFound},
		{"outsider", conv.ID, offer.ID, "carol", errors.CodeForbidden},
		{"unknown athlete", conv.ID, ghost.ID, "bob", errors.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.settlement.AcceptOffer(ctx, tt.convID, tt.messageID, tt.userID)
			require.True(t, errors.Is(err, tt.code), "got %v", err)
		})
	}
}

func Test_AcceptOffer_Insufficient_Balance(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness(t, nil)
	h.seedTraders(t, 1000)
	h.quiet()

	conv := h.openConversation(t)
	offer := h.sendOffer(t, conv.ID, "alice", buyOffer(10, "$5.00", "$50.00"))

	_, err := h.settlement.AcceptOffer(ctx, conv.ID, offer.ID, "bob")
	req.True(errors.Is(err, errors.CodeFailedPrecondition))
	appErr, ok := errors.As(err)
	req.True(ok)
	req.Equal("insufficient balance: has $10.00, needs $50.00", appErr.Message)

	req.EqualValues(10, h.account(t, "bob").SharesOf("LeBron James"))
	stored, err := h.convRepo.GetMessageByID(ctx, conv.ID, offer.ID)
	req.NoError(err)
	req.Equal(entity.OfferOpen, stored.Offer.Status)

	pending, err := h.tradeRepo.ListByStatus(ctx, entity.TradePending)
	req.NoError(err)
	req.Empty(pending)
}

func Test_AcceptOffer_Insufficient_Shares(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness(t, nil)
	h.seedTraders(t, 100000)
	h.quiet()

	conv := h.openConversation(t)
	offer := h.sendOffer(t, conv.ID, "alice", buyOffer(11, "$5.00", "$55.00"))

	_, err := h.settlement.AcceptOffer(ctx, conv.ID, offer.ID, "bob")
	appErr, ok := errors.As(err)
	req.True(ok)
	req.Equal(errors.CodeFailedPrecondition, appErr.Code)
	req.Equal("insufficient shares of LeBron James: has 10, needs 11", appErr.Message)
}

func Test_AcceptOffer_Seller_Shares_Checked_First(t *testing.T) {
	tests := []struct {
		name    string
		sender  string
		offer   *usecase.OfferInput
		accepts string
	}{
		{
			name:    "buy",
			sender:  "alice",
			offer:   buyOffer(11, "$5.00", "$55.00"),
			accepts: "bob",
		},
		{
			name:    "sell",
			sender:  "bob",
			offer:   &usecase.OfferInput{Type: entity.OfferSell, Athlete: "LeBron James", Quantity: 11, Price: "$5.00", Total: "$55.00"},
			accepts: "alice",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			h := newHarness(t, nil)
			h.seedTraders(t, 1000)
			h.quiet()

			conv := h.openConversation(t)
			offer := h.sendOffer(t, conv.ID, tt.sender, tt.offer)

			// both parties fall short; the shares shortfall is reported
			_, err := h.settlement.AcceptOffer(context.Background(), conv.ID, offer.ID, tt.accepts)
			appErr, ok := errors.As(err)
			req.True(ok)
			req.Equal(errors.CodeFailedPrecondition, appErr.Code)
			req.Equal("insufficient shares of LeBron James: has 10, needs 11", appErr.Message)
		})
	}
}

func Test_AcceptOffer_Uses_Catalog_Athlete_Name(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness(t, nil)
	h.seedTraders(t, 100000)
	h.quiet()

	conv := h.openConversation(t)
	offer := buyOffer(10, "$5.00", "$50.00")
	offer.Athlete = "lebron james"
	msg := h.sendOffer(t, conv.ID, "alice", offer)

	result, err := h.settlement.AcceptOffer(ctx, conv.ID, msg.ID, "bob")
	req.NoError(err)
	req.Equal("LeBron James", result.Athlete)
	req.Equal("LeBron James", result.Trade.Athlete)
	req.Contains(result.Message.Text, "10 shares of LeBron James")

	alice := h.account(t, "alice")
	bob := h.account(t, "bob")
	req.Equal(map[string]int64{"LeBron James": 10}, alice.Holdings)
	req.Empty(bob.Holdings)
	req.Equal(entity.Money(5000), bob.Balance)
}

func Test_AcceptOffer_Survives_Notification_Failure(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	notifier := mocks.NewMockNotifier(gomock.NewController(t))
	h := newHarness(t, nil, withNotifier(notifier))
	h.seedTraders(t, 100000)

	notifier.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, stderrors.New("notification store down")).Times(2)
	h.publisher.EXPECT().PublishNewMessage(gomock.Any(), gomock.Any(), gomock.Any()).Times(1)
	h.publisher.EXPECT().PublishOfferAccepted(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(1)
	h.portfolio.EXPECT().Recalculate(gomock.Any(), gomock.Any()).Return(&entity.PortfolioStats{}, nil).Times(2)

	conv := h.openConversation(t)
	msg := h.sendOffer(t, conv.ID, "alice", buyOffer(10, "$5.00", "$50.00"))

	result, err := h.settlement.AcceptOffer(ctx, conv.ID, msg.ID, "bob")
	req.NoError(err)
	req.True(result.Message.System)

	req.Equal(entity.Money(95000), h.account(t, "alice").Balance)
	req.EqualValues(10, h.account(t, "alice").SharesOf("LeBron James"))

	trade, err := h.tradeRepo.GetByID(ctx, result.Trade.ID)
	req.NoError(err)
	req.Equal(entity.TradeCompleted, trade.Status)
}

type failingSystemMessages struct {
	domainrepo.ConversationRepository
	err error
}

func (r *failingSystemMessages) AppendMessage(ctx context.Context, msg *entity.Message, unreadFor []string) (*entity.Conversation, error) {
	if msg.System {
		return nil, r.err
	}
	return r.ConversationRepository.AppendMessage(ctx, msg, unreadFor)
}

func Test_AcceptOffer_Compensates_On_Failure(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	boom := stderrors.New("storage unavailable")
	h := newHarness(t, nil, withConversationRepo(func(inner domainrepo.ConversationRepository) domainrepo.ConversationRepository {
		return &failingSystemMessages{ConversationRepository: inner, err: boom}
	}))
	h.seedTraders(t, 100000)
	h.publisher.EXPECT().PublishNewMessage(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	h.publisher.EXPECT().PublishNotification(gomock.Any(), gomock.Any()).AnyTimes()
	h.publisher.EXPECT().PublishOfferAccepted(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
	h.portfolio.EXPECT().Recalculate(gomock.Any(), gomock.Any()).Times(0)

	conv := h.openConversation(t)
	offer := h.sendOffer(t, conv.ID, "alice", buyOffer(10, "$5.00", "$50.00"))

	_, err := h.settlement.AcceptOffer(ctx, conv.ID, offer.ID, "bob")
	req.ErrorIs(err, boom)

	req.Equal(entity.Money(100000), h.account(t, "alice").Balance)
	req.Zero(h.account(t, "alice").SharesOf("LeBron James"))
	req.Zero(h.account(t, "bob").Balance)
	req.EqualValues(10, h.account(t, "bob").SharesOf("LeBron James"))

	stored, err := h.convRepo.GetMessageByID(ctx, conv.ID, offer.ID)
	req.NoError(err)
	req.Equal(entity.OfferOpen, stored.Offer.Status)

	compensated, err := h.tradeRepo.ListByStatus(ctx, entity.TradeCompensated)
	req.NoError(err)
	req.Len(compensated, 1)
	req.Equal("storage unavailable", compensated[0].FailureReason)

	// a reopened offer can still be settled once storage recovers
	pending, err := h.tradeRepo.ListByStatus(ctx, entity.TradePending)
	req.NoError(err)
	req.Empty(pending)
}

func Test_RejectOffer(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()
	h := newHarness(t, nil)
	h.seedTraders(t, 100000)
	h.quiet()

	conv := h.openConversation(t)
	offer := h.sendOffer(t, conv.ID, "alice", buyOffer(1, "$5.00", "$5.00"))

	_, err := h.settlement.RejectOffer(ctx, conv.ID, offer.ID, "alice")
	req.True(errors.Is(err, errors.CodeValidation))

	rejected, err := h.settlement.RejectOffer(ctx, conv.ID, offer.ID, "bob")
	req.NoError(err)
	req.Equal(entity.OfferRejected, rejected.Offer.Status)

	_, err = h.settlement.AcceptOffer(ctx, conv.ID, offer.ID, "bob")
	req.True(errors.Is(err, errors.CodeConflict))
	req.Equal(entity.Money(100000), h.account(t, "alice").Balance)

	msgs, err := h.conversations.Messages(ctx, conv.ID, "bob")
	req.NoError(err)
	req.Len(msgs, 2)
	req.True(msgs[1].System)
}
