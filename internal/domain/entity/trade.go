package entity

import "time"

type TradeStatus string

const (
	TradePending     TradeStatus = "pending"
	TradeCompleted   TradeStatus = "completed"
	TradeCompensated TradeStatus = "compensated"
)

// Trade records a settlement before any balances move, so an interrupted
// settlement can be found and audited.
type Trade struct {
	ID              string      `json:"id" firestore:"id"`
	ConversationID  string      `json:"conversation_id" firestore:"conversationId"`
	MessageID       string      `json:"message_id" firestore:"messageId"`
	OfferingUserID  string      `json:"offering_user_id" firestore:"offeringUserId"`
	AcceptingUserID string      `json:"accepting_user_id" firestore:"acceptingUserId"`
	Type            OfferType   `json:"type" firestore:"type"`
	Athlete         string      `json:"athlete" firestore:"athlete"`
	Quantity        int64       `json:"quantity" firestore:"quantity"`
	Total           Money       `json:"total" firestore:"total"`
	Status          TradeStatus `json:"status" firestore:"status"`
	FailureReason   string      `json:"failure_reason,omitempty" firestore:"failureReason,omitempty"`
	CreatedAt       time.Time   `json:"created_at" firestore:"createdAt"`
	UpdatedAt       time.Time   `json:"updated_at" firestore:"updatedAt"`
}

// Deltas returns the account changes for the offering and accepting user.
// For a buy the offering user pays and receives shares; for a sell the
// roles are swapped.
func (t *Trade) Deltas() (offering, accepting AccountDelta) {
	buyer, seller := t.OfferingUserID, t.AcceptingUserID
	if t.Type == OfferSell {
		buyer, seller = seller, buyer
	}

	buyerDelta := AccountDelta{UserID: buyer, Balance: -t.Total, Athlete: t.Athlete, Shares: t.Quantity}
	sellerDelta := AccountDelta{UserID: seller, Balance: t.Total, Athlete: t.Athlete, Shares: -t.Quantity}

	if t.Type == OfferSell {
		return sellerDelta, buyerDelta
	}
	return buyerDelta, sellerDelta
}
