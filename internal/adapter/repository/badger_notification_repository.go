package repository

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"tradechat/internal/domain/entity"
	"tradechat/internal/domain/repository"
	"tradechat/pkg/errors"
)

type badgerNotificationRepository struct {
	db *badger.DB
}

func NewBadgerNotificationRepository(db *badger.DB) repository.NotificationRepository {
	return &badgerNotificationRepository{db: db}
}

func recipientIndexKey(n *entity.Notification) []byte {
	return []byte(scoped(prefixUserNotification, n.RecipientID) + padded(n.CreatedAt.UnixNano()) + ":" + n.ID)
}

func (r *badgerNotificationRepository) Create(ctx context.Context, n *entity.Notification) error {
	err := update(r.db, func(txn *badger.Txn) error {
		if err := setJSON(txn, []byte(prefixNotification+n.ID), n); err != nil {
			return err
		}
		if err := txn.Set(recipientIndexKey(n), []byte(n.ID)); err != nil {
			return err
		}
		return txn.Set([]byte(prefixNotificationDup+n.DedupKey), []byte(n.ID))
	})
	return wrapStorageErr("Failed to create notification", err)
}

func (r *badgerNotificationRepository) GetByID(ctx context.Context, id string) (*entity.Notification, error) {
	var n entity.Notification
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(prefixNotification+id), &n)
	})
	if isNotFound(err) {
		return nil, errors.NotFound("Notification", err)
	}
	if err != nil {
		return nil, errors.Internal("Failed to get notification", err)
	}
	return &n, nil
}

func (r *badgerNotificationRepository) FindRecent(ctx context.Context, dedupKey string, since time.Time) (*entity.Notification, error) {
	var found *entity.Notification
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(prefixNotificationDup + dedupKey))
		if err != nil {
			return err
		}
		id, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		var n entity.Notification
		if err := getJSON(txn, []byte(prefixNotification+string(id)), &n); err != nil {
			return err
		}
		if !n.CreatedAt.Before(since) {
			found = &n
		}
		return nil
	})
	if isNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Internal("Failed to look up recent notification", err)
	}
	return found, nil
}

func (r *badgerNotificationRepository) ListByRecipient(ctx context.Context, recipientID string, limit, offset int) ([]*entity.Notification, int64, error) {
	var (
		list  []*entity.Notification
		total int64
	)
	err := r.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, scoped(prefixUserNotification, recipientID), true, false, func(item *badger.Item) (bool, error) {
			total++
			if total <= int64(offset) || (limit > 0 && len(list) == limit) {
				return true, nil
			}
			id, err := item.ValueCopy(nil)
			if err != nil {
				return false, err
			}
			var n entity.Notification
			if err := getJSON(txn, []byte(prefixNotification+string(id)), &n); err != nil {
				return false, err
			}
			list = append(list, &n)
			return true, nil
		})
	})
	if err != nil {
		return nil, 0, errors.Internal("Failed to list notifications", err)
	}
	return list, total, nil
}

func (r *badgerNotificationRepository) CountUnread(ctx context.Context, recipientID string) (int64, error) {
	var count int64
	err := r.db.View(func(txn *badger.Txn) error {
		return r.eachForRecipient(txn, recipientID, func(n *entity.Notification) error {
			if !n.IsRead {
				count++
			}
			return nil
		})
	})
	if err != nil {
		return 0, errors.Internal("Failed to count unread notifications", err)
	}
	return count, nil
}

func (r *badgerNotificationRepository) MarkAsRead(ctx context.Context, id string, at time.Time) (*entity.Notification, bool, error) {
	var (
		n       entity.Notification
		changed bool
	)
	key := []byte(prefixNotification + id)
	err := update(r.db, func(txn *badger.Txn) error {
		n = entity.Notification{}
		changed = false
		if err := getJSON(txn, key, &n); err != nil {
			if isNotFound(err) {
				return errors.NotFound("Notification", err)
			}
			return err
		}
		if n.IsRead {
			return nil
		}
		n.IsRead = true
		n.ReadAt = &at
		changed = true
		return setJSON(txn, key, &n)
	})
	if err != nil {
		return nil, false, wrapStorageErr("Failed to mark notification as read", err)
	}
	return &n, changed, nil
}

func (r *badgerNotificationRepository) MarkAllAsRead(ctx context.Context, recipientID string, at time.Time) (int, error) {
	var updated int
	err := update(r.db, func(txn *badger.Txn) error {
		updated = 0
		return r.eachForRecipient(txn, recipientID, func(n *entity.Notification) error {
			if n.IsRead {
				return nil
			}
			n.IsRead = true
			n.ReadAt = &at
			updated++
			return setJSON(txn, []byte(prefixNotification+n.ID), n)
		})
	})
	if err != nil {
		return 0, wrapStorageErr("Failed to mark notifications as read", err)
	}
	return updated, nil
}

func (r *badgerNotificationRepository) eachForRecipient(txn *badger.Txn, recipientID string, fn func(n *entity.Notification) error) error {
	var ids []string
	err := scanPrefix(txn, scoped(prefixUserNotification, recipientID), false, false, func(item *badger.Item) (bool, error) {
		id, err := item.ValueCopy(nil)
		if err != nil {
			return false, err
		}
		ids = append(ids, string(id))
		return true, nil
	})
	if err != nil {
		return err
	}
	for _, id := range ids {
		var n entity.Notification
		if err := getJSON(txn, []byte(prefixNotification+id), &n); err != nil {
			return err
		}
		if err := fn(&n); err != nil {
			return err
		}
	}
	return nil
}
