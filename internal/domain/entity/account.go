package entity

import (
	"fmt"
	"time"

	"tradechat/pkg/errors"
)

// Account is the balance and share holdings of one user.
type Account struct {
	UserID    string           `json:"user_id" firestore:"userId"`
	Balance   Money            `json:"balance" firestore:"balance"`
	Holdings  map[string]int64 `json:"holdings" firestore:"holdings"` // athlete name -> shares
	Stats     PortfolioStats   `json:"stats" firestore:"stats"`
	UpdatedAt time.Time        `json:"updated_at" firestore:"updatedAt"`
}

type PortfolioStats struct {
	TotalShares   int64     `json:"total_shares" firestore:"totalShares"`
	PositionCount int       `json:"position_count" firestore:"positionCount"`
	HoldingsValue Money     `json:"holdings_value" firestore:"holdingsValue"`
	NetWorth      Money     `json:"net_worth" firestore:"netWorth"`
	UpdatedAt     time.Time `json:"updated_at" firestore:"updatedAt"`
}

// AccountDelta is a signed change to one account.
type AccountDelta struct {
	UserID  string
	Balance Money
	Athlete string
	Shares  int64
}

func (d AccountDelta) Inverse() AccountDelta {
	return AccountDelta{
		UserID:  d.UserID,
		Balance: -d.Balance,
		Athlete: d.Athlete,
		Shares:  -d.Shares,
	}
}

func NewAccount(userID string) *Account {
	return &Account{UserID: userID, Holdings: map[string]int64{}}
}

func (a *Account) SharesOf(athlete string) int64 {
	if a.Holdings == nil {
		return 0
	}
	return a.Holdings[athlete]
}

// Apply mutates the account by d, refusing any result that would leave the
// balance or a holding negative. The account is untouched on error.
func (a *Account) Apply(d AccountDelta) error {
	balance := a.Balance + d.Balance
	if balance < 0 {
		return errors.FailedPrecondition(fmt.Sprintf(
			"insufficient balance: has %s, needs %s", a.Balance, -d.Balance))
	}

	shares := a.SharesOf(d.Athlete) + d.Shares
	if d.Shares != 0 && shares < 0 {
		return errors.FailedPrecondition(fmt.Sprintf(
			"insufficient shares of %s: has %d, needs %d", d.Athlete, a.SharesOf(d.Athlete), -d.Shares))
	}

	a.Balance = balance
	if d.Shares != 0 {
		if a.Holdings == nil {
			a.Holdings = map[string]int64{}
		}
		if shares == 0 {
			delete(a.Holdings, d.Athlete)
		} else {
			a.Holdings[d.Athlete] = shares
		}
	}
	return nil
}
