package repository

import (
	"context"

	"tradechat/internal/domain/entity"
)

type TradeRepository interface {
	Create(ctx context.Context, trade *entity.Trade) error
	UpdateStatus(ctx context.Context, id string, status entity.TradeStatus, reason string) error
	GetByID(ctx context.Context, id string) (*entity.Trade, error)
	ListByStatus(ctx context.Context, status entity.TradeStatus) ([]*entity.Trade, error)
}
