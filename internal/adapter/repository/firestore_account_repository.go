package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"tradechat/internal/domain/entity"
	"tradechat/internal/domain/repository"
	"tradechat/pkg/errors"
)

type firestoreAccountRepository struct {
	client *firestore.Client
}

func NewFirestoreAccountRepository(client *firestore.Client) repository.AccountRepository {
	return &firestoreAccountRepository{
		client: client,
	}
}

func (r *firestoreAccountRepository) doc(userID string) *firestore.DocumentRef {
	return r.client.Collection("accounts").Doc(userID)
}

func decodeAccount(doc *firestore.DocumentSnapshot, err error, userID string) (*entity.Account, error) {
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return entity.NewAccount(userID), nil
		}
		return nil, err
	}
	account := entity.NewAccount(userID)
	if err := doc.DataTo(account); err != nil {
		return nil, err
	}
	if account.Holdings == nil {
		account.Holdings = map[string]int64{}
	}
	return account, nil
}

func (r *firestoreAccountRepository) GetByUserID(ctx context.Context, userID string) (*entity.Account, error) {
	doc, err := r.doc(userID).Get(ctx)
	account, err := decodeAccount(doc, err, userID)
	if err != nil {
		return nil, errors.Internal("Failed to get account", err)
	}
	return account, nil
}

func (r *firestoreAccountRepository) ApplyDelta(ctx context.Context, delta entity.AccountDelta) (*entity.Account, error) {
	ref := r.doc(delta.UserID)
	var account *entity.Account

	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := tx.Get(ref)
		account, err = decodeAccount(doc, err, delta.UserID)
		if err != nil {
			return err
		}
		if err := account.Apply(delta); err != nil {
			return err
		}
		account.UpdatedAt = time.Now()
		return tx.Set(ref, account)
	})
	if err != nil {
		return nil, wrapStorageErr("Failed to update account", err)
	}
	return account, nil
}

func (r *firestoreAccountRepository) UpdateStats(ctx context.Context, userID string, stats entity.PortfolioStats) error {
	_, err := r.doc(userID).Set(ctx, map[string]interface{}{
		"userId": userID,
		"stats":  stats,
	}, firestore.MergeAll)
	if err != nil {
		return errors.Internal("Failed to update portfolio stats", err)
	}
	return nil
}

func (r *firestoreAccountRepository) Save(ctx context.Context, account *entity.Account) error {
	account.UpdatedAt = time.Now()
	if _, err := r.doc(account.UserID).Set(ctx, account); err != nil {
		return errors.Internal("Failed to save account", err)
	}
	return nil
}

type firestoreTradeRepository struct {
	client *firestore.Client
}

func NewFirestoreTradeRepository(client *firestore.Client) repository.TradeRepository {
	return &firestoreTradeRepository{
		client: client,
	}
}

func (r *firestoreTradeRepository) Create(ctx context.Context, trade *entity.Trade) error {
	if _, err := r.client.Collection("trades").Doc(trade.ID).Set(ctx, trade); err != nil {
		return errors.Internal("Failed to record trade", err)
	}
	return nil
}

func (r *firestoreTradeRepository) UpdateStatus(ctx context.Context, id string, tradeStatus entity.TradeStatus, reason string) error {
	_, err := r.client.Collection("trades").Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: tradeStatus},
		{Path: "failureReason", Value: reason},
		{Path: "updatedAt", Value: time.Now()},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Trade", err)
		}
		return errors.Internal("Failed to update trade", err)
	}
	return nil
}

func (r *firestoreTradeRepository) GetByID(ctx context.Context, id string) (*entity.Trade, error) {
	doc, err := r.client.Collection("trades").Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Trade", err)
		}
		return nil, errors.Internal("Failed to get trade", err)
	}
	var trade entity.Trade
	if err := doc.DataTo(&trade); err != nil {
		return nil, errors.Internal("Failed to parse trade data", err)
	}
	return &trade, nil
}

func (r *firestoreTradeRepository) ListByStatus(ctx context.Context, tradeStatus entity.TradeStatus) ([]*entity.Trade, error) {
	iter := r.client.Collection("trades").Where("status", "==", tradeStatus).Documents(ctx)
	defer iter.Stop()

	var trades []*entity.Trade
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to list trades", err)
		}
		var trade entity.Trade
		if err := doc.DataTo(&trade); err != nil {
			return nil, errors.Internal("Failed to parse trade data", err)
		}
		trades = append(trades, &trade)
	}
	return trades, nil
}
