package entity

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tradechat/pkg/errors"
)

func TestConversationIDFor_OrderIndependent(t *testing.T) {
	req := require.New(t)
	req.Equal(ConversationIDFor("alice", "bob"), ConversationIDFor("bob", "alice"))
	req.NotEqual(ConversationIDFor("alice", "bob"), ConversationIDFor("alice", "carol"))

	conv := NewConversation("bob", "alice", time.Now())
	req.Equal([]string{"alice", "bob"}, conv.Participants)
	req.Equal("bob", conv.OtherParticipant("alice"))
	req.Equal("", conv.OtherParticipant("mallory"))
	req.Zero(conv.UnreadFor("alice"))
}

func TestOffer_Validate(t *testing.T) {
	req := require.New(t)

	ok := &Offer{Type: OfferBuy, Athlete: "X", Quantity: 10, Price: 500, Total: 5000}
	req.Nil(ok.Validate())

	bad := &Offer{Type: "swap", Quantity: 0, Price: -1}
	fields := bad.Validate()
	req.Contains(fields, "type")
	req.Contains(fields, "athlete")
	req.Contains(fields, "quantity")
	req.Contains(fields, "price")

	wrongTotal := &Offer{Type: OfferSell, Athlete: "X", Quantity: 3, Price: 500, Total: 1000}
	req.Contains(wrongTotal.Validate()["total"], "$15.00")
}

func TestValidateText(t *testing.T) {
	req := require.New(t)
	req.NotEmpty(ValidateText(""))
	req.Empty(ValidateText("hi"))
	req.Empty(ValidateText(strings.Repeat("é", MaxMessageLength)))
	req.NotEmpty(ValidateText(strings.Repeat("a", MaxMessageLength+1)))
}

func TestAccount_Apply(t *testing.T) {
	req := require.New(t)
	acct := &Account{UserID: "a", Balance: 1000, Holdings: map[string]int64{"X": 5}}

	req.NoError(acct.Apply(AccountDelta{Balance: -400, Athlete: "X", Shares: -5}))
	req.Equal(Money(600), acct.Balance)
	req.NotContains(acct.Holdings, "X")

	err := acct.Apply(AccountDelta{Balance: -700})
	req.True(errors.Is(err, errors.CodeFailedPrecondition))
	req.Contains(err.Error(), "$6.00")
	req.Equal(Money(600), acct.Balance)

	err = acct.Apply(AccountDelta{Athlete: "Y", Shares: -1})
	req.True(errors.Is(err, errors.CodeFailedPrecondition))

	d := AccountDelta{UserID: "a", Balance: 50, Athlete: "X", Shares: -2}
	req.Equal(AccountDelta{UserID: "a", Balance: -50, Athlete: "X", Shares: 2}, d.Inverse())
}

func TestTrade_Deltas(t *testing.T) {
	req := require.New(t)

	buy := &Trade{Type: OfferBuy, OfferingUserID: "a", AcceptingUserID: "b", Athlete: "X", Quantity: 10, Total: 5000}
	offering, accepting := buy.Deltas()
	req.Equal(AccountDelta{UserID: "a", Balance: -5000, Athlete: "X", Shares: 10}, offering)
	req.Equal(AccountDelta{UserID: "b", Balance: 5000, Athlete: "X", Shares: -10}, accepting)

	sell := &Trade{Type: OfferSell, OfferingUserID: "a", AcceptingUserID: "b", Athlete: "X", Quantity: 2, Total: 300}
	offering, accepting = sell.Deltas()
	req.Equal(AccountDelta{UserID: "a", Balance: 300, Athlete: "X", Shares: -2}, offering)
	req.Equal(AccountDelta{UserID: "b", Balance: -300, Athlete: "X", Shares: 2}, accepting)

	req.Zero(offering.Balance + accepting.Balance)
	req.Zero(offering.Shares + accepting.Shares)
}

func TestToDisplay_Tables(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for _, typ := range NotificationTypes {
		n := &Notification{ID: "n1", Type: typ, CreatedAt: now.Add(-2 * time.Hour)}
		d := ToDisplay(n, now)

		switch typ {
		case NotificationMessage:
			require.Equal(t, CategoryMessages, d.Category)
			require.Equal(t, "Reply", d.ButtonText)
		case NotificationOfferMade, NotificationOfferReceived:
			require.Equal(t, CategoryOffers, d.Category)
			require.Equal(t, "View Offer", d.ButtonText)
		case NotificationOfferAccepted:
			require.Equal(t, CategoryOffers, d.Category)
			require.False(t, d.HasActionButton)
		case NotificationNewFollow:
			require.Equal(t, CategorySocial, d.Category)
			require.Equal(t, "Follow Back", d.ButtonText)
		default:
			require.Equal(t, CategorySocial, d.Category)
			require.False(t, d.HasActionButton)
			require.Empty(t, d.ButtonText)
		}
		require.Equal(t, "2 hours ago", d.Time)
		require.NotEmpty(t, typ.DefaultAction())
	}
}

func TestRelativeTime_JustNow(t *testing.T) {
	now := time.Now()
	require.Equal(t, "just now", RelativeTime(now.Add(-10*time.Second), now))
}

func TestNotificationDedupKey(t *testing.T) {
	req := require.New(t)
	target := &NotificationTarget{Type: "post", ID: "p1"}
	req.Equal("r|a|post_liked|p1", NotificationDedupKey("r", "a", NotificationPostLiked, target))
	req.Equal("r|a|new_follow|", NotificationDedupKey("r", "a", NotificationNewFollow, nil))
	req.True(NotificationPostLiked.Social())
	req.False(NotificationOfferAccepted.Social())
}
