package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"tradechat/internal/adapter/repository"
	"tradechat/internal/domain/entity"
	"tradechat/internal/domain/service"
)

func Test_Recalculate(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	db, err := repository.OpenBadger("")
	req.NoError(err)
	defer db.Close()

	accounts := repository.NewBadgerAccountRepository(db)
	athletes := repository.NewBadgerAthleteCatalog(db)
	req.NoError(athletes.Upsert(ctx, &entity.Athlete{Name: "X", CurrentPrice: 500}))
	req.NoError(athletes.Upsert(ctx, &entity.Athlete{Name: "Y", CurrentPrice: 1250}))
	req.NoError(accounts.Save(ctx, &entity.Account{
		UserID:   "u1",
		Balance:  10000,
		Holdings: map[string]int64{"X": 10, "Y": 2, "Retired": 4},
	}))

	stats, err := service.NewPortfolioService(accounts, athletes).Recalculate(ctx, "u1")
	req.NoError(err)
	req.EqualValues(16, stats.TotalShares)
	req.Equal(3, stats.PositionCount)
	req.Equal(entity.Money(7500), stats.HoldingsValue)
	req.Equal(entity.Money(17500), stats.NetWorth)

	stored, err := accounts.GetByUserID(ctx, "u1")
	req.NoError(err)
	req.Equal(stats.NetWorth, stored.Stats.NetWorth)
	req.Equal(entity.Money(10000), stored.Balance)
}

func Test_Recalculate_Empty_Account(t *testing.T) {
	req := require.New(t)
	db, err := repository.OpenBadger("")
	req.NoError(err)
	defer db.Close()

	svc := service.NewPortfolioService(repository.NewBadgerAccountRepository(db), repository.NewBadgerAthleteCatalog(db))
	stats, err := svc.Recalculate(context.Background(), "newcomer")
	req.NoError(err)
	req.Zero(stats.PositionCount)
	req.Zero(stats.NetWorth)
}
