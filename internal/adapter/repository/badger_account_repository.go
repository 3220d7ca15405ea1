package repository

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"tradechat/internal/domain/entity"
	"tradechat/internal/domain/repository"
	"tradechat/pkg/errors"
)

type badgerAccountRepository struct {
	db *badger.DB
}

func NewBadgerAccountRepository(db *badger.DB) repository.AccountRepository {
	return &badgerAccountRepository{db: db}
}

func loadAccount(txn *badger.Txn, userID string) (*entity.Account, error) {
	account := entity.NewAccount(userID)
	err := getJSON(txn, []byte(prefixAccount+userID), account)
	if isNotFound(err) {
		return entity.NewAccount(userID), nil
	}
	if err != nil {
		return nil, err
	}
	if account.Holdings == nil {
		account.Holdings = map[string]int64{}
	}
	return account, nil
}

func (r *badgerAccountRepository) GetByUserID(ctx context.Context, userID string) (*entity.Account, error) {
	var account *entity.Account
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		account, err = loadAccount(txn, userID)
		return err
	})
	if err != nil {
		return nil, errors.Internal("Failed to get account", err)
	}
	return account, nil
}

func (r *badgerAccountRepository) ApplyDelta(ctx context.Context, delta entity.AccountDelta) (*entity.Account, error) {
	var account *entity.Account
	err := update(r.db, func(txn *badger.Txn) error {
		var err error
		account, err = loadAccount(txn, delta.UserID)
		if err != nil {
			return err
		}
		if err := account.Apply(delta); err != nil {
			return err
		}
		account.UpdatedAt = time.Now()
		return setJSON(txn, []byte(prefixAccount+delta.UserID), account)
	})
	if err != nil {
		return nil, wrapStorageErr("Failed to update account", err)
	}
	return account, nil
}

func (r *badgerAccountRepository) UpdateStats(ctx context.Context, userID string, stats entity.PortfolioStats) error {
	err := update(r.db, func(txn *badger.Txn) error {
		account, err := loadAccount(txn, userID)
		if err != nil {
			return err
		}
		account.Stats = stats
		return setJSON(txn, []byte(prefixAccount+userID), account)
	})
	return wrapStorageErr("Failed to update portfolio stats", err)
}

func (r *badgerAccountRepository) Save(ctx context.Context, account *entity.Account) error {
	account.UpdatedAt = time.Now()
	err := update(r.db, func(txn *badger.Txn) error {
		return setJSON(txn, []byte(prefixAccount+account.UserID), account)
	})
	return wrapStorageErr("Failed to save account", err)
}
