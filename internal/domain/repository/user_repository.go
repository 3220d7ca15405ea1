package repository

import (
	"context"

	"tradechat/internal/domain/entity"
)

type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByUsername(ctx context.Context, username string) (*entity.User, error)
}

// AthleteCatalog is read-only; pricing lives elsewhere.
type AthleteCatalog interface {
	GetByName(ctx context.Context, name string) (*entity.Athlete, error)
	Upsert(ctx context.Context, athlete *entity.Athlete) error
}
