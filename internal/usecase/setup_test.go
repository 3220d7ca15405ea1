package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"tradechat/internal/adapter/repository"
	"tradechat/internal/domain/entity"
	domainrepo "tradechat/internal/domain/repository"
	"tradechat/internal/infrastructure/lock"
	"tradechat/internal/infrastructure/ratelimit"
	"tradechat/internal/mocks"
	"tradechat/internal/usecase"
)

type harness struct {
	convRepo      domainrepo.ConversationRepository
	accountRepo   domainrepo.AccountRepository
	tradeRepo     domainrepo.TradeRepository
	notifRepo     domainrepo.NotificationRepository
	userRepo      domainrepo.UserRepository
	athletes      domainrepo.AthleteCatalog
	publisher     *mocks.MockEventPublisher
	portfolio     *mocks.MockPortfolioService
	notifications *usecase.NotificationUseCase
	conversations *usecase.ConversationUseCase
	settlement    *usecase.SettlementUseCase
	notifier      usecase.Notifier
}

var generousPolicies = map[string]ratelimit.Policy{
	ratelimit.ActionSendMessage:        {Burst: 1000, Refill: time.Millisecond},
	ratelimit.ActionCreateChat:         {Burst: 1000, Refill: time.Millisecond},
	ratelimit.ActionCreateNotification: {Burst: 1000, Refill: time.Millisecond},
}

type harnessOption func(h *harness)

// withNotifier replaces the notification service seen by the conversation
// and settlement usecases.
func withNotifier(n usecase.Notifier) harnessOption {
	return func(h *harness) { h.notifier = n }
}

func withConversationRepo(wrap func(domainrepo.ConversationRepository) domainrepo.ConversationRepository) harnessOption {
	return func(h *harness) { h.convRepo = wrap(h.convRepo) }
}

func newHarness(t *testing.T, policies map[string]ratelimit.Policy, opts ...harnessOption) *harness {
	t.Helper()
	db, err := repository.OpenBadger("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	ctrl := gomock.NewController(t)
	h := &harness{
		convRepo:    repository.NewBadgerConversationRepository(db),
		accountRepo: repository.NewBadgerAccountRepository(db),
		tradeRepo:   repository.NewBadgerTradeRepository(db),
		notifRepo:   repository.NewBadgerNotificationRepository(db),
		userRepo:    repository.NewBadgerUserRepository(db),
		athletes:    repository.NewBadgerAthleteCatalog(db),
		publisher:   mocks.NewMockEventPublisher(ctrl),
		portfolio:   mocks.NewMockPortfolioService(ctrl),
	}
	for _, opt := range opts {
		opt(h)
	}
	if policies == nil {
		policies = generousPolicies
	}

	locks := lock.NewKeyedMutex()
	limiter := ratelimit.NewRateLimiterWithPolicies(policies)
	h.notifications = usecase.NewNotificationUseCase(h.notifRepo, h.userRepo, h.publisher, locks, limiter, 5*time.Minute)
	notifier := h.notifier
	if notifier == nil {
		notifier = h.notifications
	}
	h.conversations = usecase.NewConversationUseCase(h.convRepo, h.userRepo, notifier, h.publisher, locks, limiter, time.Second, 5)
	h.settlement = usecase.NewSettlementUseCase(h.convRepo, h.accountRepo, h.tradeRepo, h.athletes, h.portfolio, h.conversations, notifier, h.publisher, locks, time.Second)
	return h
}

// seedTraders creates alice with $1,000.00 and bob holding 10 shares of
// LeBron James, plus the athlete itself.
func (h *harness) seedTraders(t *testing.T, aliceBalance entity.Money) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.userRepo.Create(ctx, &entity.User{ID: "alice", Username: "alice", FullName: "Alice A"}))
	require.NoError(t, h.userRepo.Create(ctx, &entity.User{ID: "bob", Username: "bob", FullName: "Bob B"}))
	require.NoError(t, h.userRepo.Create(ctx, &entity.User{ID: "carol", Username: "carol"}))
	require.NoError(t, h.athletes.Upsert(ctx, &entity.Athlete{Name: "LeBron James", Team: "LAL", Sport: "NBA", CurrentPrice: 600}))
	require.NoError(t, h.accountRepo.Save(ctx, &entity.Account{UserID: "alice", Balance: aliceBalance, Holdings: map[string]int64{}}))
	require.NoError(t, h.accountRepo.Save(ctx, &entity.Account{UserID: "bob", Holdings: map[string]int64{"LeBron James": 10}}))
}

// quiet accepts any side-effect calls not under test.
func (h *harness) quiet() {
	h.publisher.EXPECT().PublishNewMessage(gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	h.publisher.EXPECT().PublishNotification(gomock.Any(), gomock.Any()).AnyTimes()
	h.publisher.EXPECT().PublishOfferAccepted(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()
	h.portfolio.EXPECT().Recalculate(gomock.Any(), gomock.Any()).AnyTimes()
}

func buyOffer(quantity int64, price, total string) *usecase.OfferInput {
	return &usecase.OfferInput{
		Type:     entity.OfferBuy,
		Athlete:  "LeBron James",
		Quantity: quantity,
		Price:    price,
		Total:    total,
	}
}

func (h *harness) openConversation(t *testing.T) *entity.Conversation {
	t.Helper()
	conv, err := h.conversations.FindOrCreate(context.Background(), "alice", "bob")
	require.NoError(t, err)
	return conv
}

func (h *harness) sendOffer(t *testing.T, convID, sender string, offer *usecase.OfferInput) *entity.Message {
	t.Helper()
	msg, err := h.conversations.AppendMessage(context.Background(), usecase.SendMessageInput{
		ConversationID: convID,
		SenderID:       sender,
		Text:           "deal?",
		Offer:          offer,
	})
	require.NoError(t, err)
	return msg
}

func (h *harness) account(t *testing.T, userID string) *entity.Account {
	t.Helper()
	acct, err := h.accountRepo.GetByUserID(context.Background(), userID)
	require.NoError(t, err)
	return acct
}
