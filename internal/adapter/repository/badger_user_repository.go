package repository

import (
	"context"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"tradechat/internal/domain/entity"
	"tradechat/internal/domain/repository"
	"tradechat/pkg/errors"
)

type badgerUserRepository struct {
	db *badger.DB
}

func NewBadgerUserRepository(db *badger.DB) repository.UserRepository {
	return &badgerUserRepository{db: db}
}

func (r *badgerUserRepository) Create(ctx context.Context, user *entity.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	nameKey := []byte(prefixUsername + strings.ToLower(user.Username))
	err := update(r.db, func(txn *badger.Txn) error {
		if item, err := txn.Get(nameKey); err == nil {
			owner, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if string(owner) != user.ID {
				return errors.Conflict("Username already taken")
			}
		} else if !isNotFound(err) {
			return err
		}
		if err := setJSON(txn, []byte(prefixUser+user.ID), user); err != nil {
			return err
		}
		return txn.Set(nameKey, []byte(user.ID))
	})
	return wrapStorageErr("Failed to create user", err)
}

func (r *badgerUserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(prefixUser+id), &user)
	})
	if isNotFound(err) {
		return nil, errors.NotFound("User", err)
	}
	if err != nil {
		return nil, errors.Internal("Failed to get user", err)
	}
	return &user, nil
}

func (r *badgerUserRepository) GetByUsername(ctx context.Context, username string) (*entity.User, error) {
	var user entity.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixUsername + strings.ToLower(username)))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return getJSON(txn, []byte(prefixUser+string(id)), &user)
	})
	if isNotFound(err) {
		return nil, errors.NotFound("User", err)
	}
	if err != nil {
		return nil, errors.Internal("Failed to get user", err)
	}
	return &user, nil
}

type badgerAthleteCatalog struct {
	db *badger.DB
}

func NewBadgerAthleteCatalog(db *badger.DB) repository.AthleteCatalog {
	return &badgerAthleteCatalog{db: db}
}

func (r *badgerAthleteCatalog) GetByName(ctx context.Context, name string) (*entity.Athlete, error) {
	var athlete entity.Athlete
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(prefixAthlete+strings.ToLower(name)), &athlete)
	})
	if isNotFound(err) {
		return nil, errors.NotFound("Athlete", err)
	}
	if err != nil {
		return nil, errors.Internal("Failed to get athlete", err)
	}
	return &athlete, nil
}

func (r *badgerAthleteCatalog) Upsert(ctx context.Context, athlete *entity.Athlete) error {
	if athlete.ID == "" {
		athlete.ID = uuid.New().String()
	}
	err := update(r.db, func(txn *badger.Txn) error {
		return setJSON(txn, []byte(prefixAthlete+strings.ToLower(athlete.Name)), athlete)
	})
	return wrapStorageErr("Failed to save athlete", err)
}
