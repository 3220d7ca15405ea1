//go:generate go run go.uber.org/mock/mockgen -source=portfolio_service.go -destination=../../mocks/mock_portfolio_service.go -package=mocks
package service

import (
	"context"
	"time"

	"tradechat/internal/domain/entity"
	"tradechat/internal/domain/repository"
	"tradechat/pkg/errors"
	"tradechat/pkg/logger"
)

// PortfolioService recomputes the aggregate stats stored on an account.
type PortfolioService interface {
	Recalculate(ctx context.Context, userID string) (*entity.PortfolioStats, error)
}

type portfolioService struct {
	accounts repository.AccountRepository
	athletes repository.AthleteCatalog
}

func NewPortfolioService(accounts repository.AccountRepository, athletes repository.AthleteCatalog) PortfolioService {
	return &portfolioService{
		accounts: accounts,
		athletes: athletes,
	}
}

func (s *portfolioService) Recalculate(ctx context.Context, userID string) (*entity.PortfolioStats, error) {
	account, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := entity.PortfolioStats{UpdatedAt: time.Now()}
	for athlete, shares := range account.Holdings {
		if shares <= 0 {
			continue
		}
		stats.PositionCount++
		stats.TotalShares += shares

		a, err := s.athletes.GetByName(ctx, athlete)
		if err != nil {
			if errors.Is(err, errors.CodeNotFound) {
				logger.Warn("Portfolio for %s holds unknown athlete %s", userID, athlete)
				continue
			}
			return nil, err
		}
		value, err := a.CurrentPrice.Mul(shares)
		if err != nil {
			return nil, errors.Internal("Holding value overflows", err)
		}
		stats.HoldingsValue += value
	}
	stats.NetWorth = account.Balance + stats.HoldingsValue

	if err := s.accounts.UpdateStats(ctx, userID, stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
