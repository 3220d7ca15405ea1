package repository

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"tradechat/internal/domain/entity"
	"tradechat/internal/domain/repository"
	"tradechat/pkg/errors"
)

type badgerTradeRepository struct {
	db *badger.DB
}

func NewBadgerTradeRepository(db *badger.DB) repository.TradeRepository {
	return &badgerTradeRepository{db: db}
}

func (r *badgerTradeRepository) Create(ctx context.Context, trade *entity.Trade) error {
	err := update(r.db, func(txn *badger.Txn) error {
		return setJSON(txn, []byte(prefixTrade+trade.ID), trade)
	})
	return wrapStorageErr("Failed to record trade", err)
}

func (r *badgerTradeRepository) UpdateStatus(ctx context.Context, id string, status entity.TradeStatus, reason string) error {
	key := []byte(prefixTrade + id)
	err := update(r.db, func(txn *badger.Txn) error {
		var trade entity.Trade
		if err := getJSON(txn, key, &trade); err != nil {
			if isNotFound(err) {
				return errors.NotFound("Trade", err)
			}
			return err
		}
		trade.Status = status
		trade.FailureReason = reason
		trade.UpdatedAt = time.Now()
		return setJSON(txn, key, &trade)
	})
	return wrapStorageErr("Failed to update trade", err)
}

func (r *badgerTradeRepository) GetByID(ctx context.Context, id string) (*entity.Trade, error) {
	var trade entity.Trade
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(prefixTrade+id), &trade)
	})
	if isNotFound(err) {
		return nil, errors.NotFound("Trade", err)
	}
	if err != nil {
		return nil, errors.Internal("Failed to get trade", err)
	}
	return &trade, nil
}

func (r *badgerTradeRepository) ListByStatus(ctx context.Context, status entity.TradeStatus) ([]*entity.Trade, error) {
	var trades []*entity.Trade
	err := r.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, prefixTrade, false, false, func(item *badger.Item) (bool, error) {
			var trade entity.Trade
			if err := item.Value(func(val []byte) error {
				return unmarshalJSON(val, &trade)
			}); err != nil {
				return false, err
			}
			if trade.Status == status {
				trades = append(trades, &trade)
			}
			return true, nil
		})
	})
	if err != nil {
		return nil, errors.Internal("Failed to list trades", err)
	}
	return trades, nil
}
