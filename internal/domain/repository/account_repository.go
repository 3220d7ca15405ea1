package repository

import (
	"context"

	"tradechat/internal/domain/entity"
)

type AccountRepository interface {
	// GetByUserID returns an empty account for users without a record.
	GetByUserID(ctx context.Context, userID string) (*entity.Account, error)
	// ApplyDelta atomically applies delta and refuses negative results with
	// a FailedPrecondition error.
	ApplyDelta(ctx context.Context, delta entity.AccountDelta) (*entity.Account, error)
	UpdateStats(ctx context.Context, userID string, stats entity.PortfolioStats) error
	Save(ctx context.Context, account *entity.Account) error
}
