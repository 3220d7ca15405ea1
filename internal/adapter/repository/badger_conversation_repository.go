package repository

import (
	"context"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"tradechat/internal/domain/entity"
	"tradechat/internal/domain/repository"
	"tradechat/pkg/errors"
)

type badgerConversationRepository struct {
	db *badger.DB
}

func NewBadgerConversationRepository(db *badger.DB) repository.ConversationRepository {
	return &badgerConversationRepository{db: db}
}

func (r *badgerConversationRepository) Create(ctx context.Context, conv *entity.Conversation) error {
	key := []byte(prefixConversation + conv.ID)
	err := update(r.db, func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return errors.Conflict("Conversation already exists")
		} else if !isNotFound(err) {
			return err
		}
		if err := setJSON(txn, key, conv); err != nil {
			return err
		}
		for _, p := range conv.Participants {
			if err := txn.Set([]byte(scoped(prefixUserConversation, p)+conv.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
	return wrapStorageErr("Failed to create conversation", err)
}

func (r *badgerConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := r.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, []byte(prefixConversation+id), &conv)
	})
	if isNotFound(err) {
		return nil, errors.NotFound("Conversation", err)
	}
	if err != nil {
		return nil, errors.Internal("Failed to get conversation", err)
	}
	return &conv, nil
}

func (r *badgerConversationRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*entity.Conversation, int64, error) {
	var convs []*entity.Conversation
	prefix := scoped(prefixUserConversation, userID)

	err := r.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, prefix, false, true, func(item *badger.Item) (bool, error) {
			id := strings.TrimPrefix(string(item.Key()), prefix)
			var conv entity.Conversation
			if err := getJSON(txn, []byte(prefixConversation+id), &conv); err != nil {
				return false, err
			}
			convs = append(convs, &conv)
			return true, nil
		})
	})
	if err != nil {
		return nil, 0, errors.Internal("Failed to fetch conversations", err)
	}

	sort.SliceStable(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})

	total := int64(len(convs))
	return paginate(convs, limit, offset), total, nil
}

func (r *badgerConversationRepository) AppendMessage(ctx context.Context, msg *entity.Message, unreadFor []string) (*entity.Conversation, error) {
	var conv entity.Conversation
	convKey := []byte(prefixConversation + msg.ConversationID)

	err := update(r.db, func(txn *badger.Txn) error {
		conv = entity.Conversation{}
		if err := getJSON(txn, convKey, &conv); err != nil {
			if isNotFound(err) {
				return errors.NotFound("Conversation", err)
			}
			return err
		}

		conv.MessageCount++
		msg.Seq = conv.MessageCount
		if err := setJSON(txn, messageKey(msg.ConversationID, msg.Seq), msg); err != nil {
			return err
		}
		if err := txn.Set([]byte(scoped(prefixMessageID, msg.ConversationID)+msg.ID), []byte(padded(msg.Seq))); err != nil {
			return err
		}

		applyAppend(&conv, msg, unreadFor)
		return setJSON(txn, convKey, &conv)
	})
	if err != nil {
		return nil, wrapStorageErr("Failed to append message", err)
	}
	return &conv, nil
}

func (r *badgerConversationRepository) ResetUnread(ctx context.Context, conversationID, userID string) (*entity.Conversation, error) {
	var conv entity.Conversation
	convKey := []byte(prefixConversation + conversationID)

	err := update(r.db, func(txn *badger.Txn) error {
		conv = entity.Conversation{}
		if err := getJSON(txn, convKey, &conv); err != nil {
			if isNotFound(err) {
				return errors.NotFound("Conversation", err)
			}
			return err
		}
		if conv.UnreadFor(userID) == 0 {
			return nil
		}
		conv.UnreadCount[userID] = 0
		return setJSON(txn, convKey, &conv)
	})
	if err != nil {
		return nil, wrapStorageErr("Failed to reset unread count", err)
	}
	return &conv, nil
}

func (r *badgerConversationRepository) GetMessageByID(ctx context.Context, conversationID, messageID string) (*entity.Message, error) {
	var msg entity.Message
	err := r.db.View(func(txn *badger.Txn) error {
		return r.getMessage(txn, conversationID, messageID, &msg)
	})
	if isNotFound(err) {
		return nil, errors.NotFound("Message", err)
	}
	if err != nil {
		return nil, errors.Internal("Failed to get message", err)
	}
	return &msg, nil
}

func (r *badgerConversationRepository) ListMessages(ctx context.Context, conversationID string, limit int) ([]*entity.Message, error) {
	var messages []*entity.Message
	err := r.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, scoped(prefixMessage, conversationID), true, false, func(item *badger.Item) (bool, error) {
			if limit > 0 && len(messages) == limit {
				return false, nil
			}
			var msg entity.Message
			if err := item.Value(func(val []byte) error {
				return unmarshalJSON(val, &msg)
			}); err != nil {
				return false, err
			}
			messages = append(messages, &msg)
			return true, nil
		})
	})
	if err != nil {
		return nil, errors.Internal("Failed to list messages", err)
	}
	slices.Reverse(messages)
	return messages, nil
}

func (r *badgerConversationRepository) ResolveOffer(ctx context.Context, conversationID, messageID string, expectedVersion int64, status entity.OfferStatus, by string, at time.Time) (*entity.Message, error) {
	var msg entity.Message
	err := update(r.db, func(txn *badger.Txn) error {
		msg = entity.Message{}
		if err := r.getMessage(txn, conversationID, messageID, &msg); err != nil {
			if isNotFound(err) {
				return errors.NotFound("Message", err)
			}
			return err
		}
		if err := resolveOffer(&msg, expectedVersion, status, by, at); err != nil {
			return err
		}
		return setJSON(txn, messageKey(conversationID, msg.Seq), &msg)
	})
	if err != nil {
		return nil, wrapStorageErr("Failed to resolve offer", err)
	}
	return &msg, nil
}

func (r *badgerConversationRepository) ReopenOffer(ctx context.Context, conversationID, messageID string) error {
	err := update(r.db, func(txn *badger.Txn) error {
		var msg entity.Message
		if err := r.getMessage(txn, conversationID, messageID, &msg); err != nil {
			return err
		}
		if msg.Offer == nil {
			return nil
		}
		reopenOffer(&msg)
		return setJSON(txn, messageKey(conversationID, msg.Seq), &msg)
	})
	return wrapStorageErr("Failed to reopen offer", err)
}

func (r *badgerConversationRepository) getMessage(txn *badger.Txn, conversationID, messageID string, msg *entity.Message) error {
	item, err := txn.Get([]byte(scoped(prefixMessageID, conversationID) + messageID))
	if err != nil {
		return err
	}
	seqKey, err := item.ValueCopy(nil)
	if err != nil {
		return err
	}
	return getJSON(txn, []byte(scoped(prefixMessage, conversationID)+string(seqKey)), msg)
}

// applyAppend updates conversation metadata for a newly stored message.
func applyAppend(conv *entity.Conversation, msg *entity.Message, unreadFor []string) {
	conv.LastMessage = msg.Text
	conv.LastMessageAt = msg.CreatedAt
	conv.UpdatedAt = msg.CreatedAt
	if conv.UnreadCount == nil {
		conv.UnreadCount = map[string]int{}
	}
	for _, p := range unreadFor {
		conv.UnreadCount[p]++
	}
}

// resolveOffer is the compare-and-swap shared by both stores.
func resolveOffer(msg *entity.Message, expectedVersion int64, status entity.OfferStatus, by string, at time.Time) error {
	if msg.Offer == nil {
		return errors.NotFound("Offer", nil)
	}
	if msg.Offer.Resolved() || msg.Offer.Version != expectedVersion {
		return errors.Conflict("Offer has already been resolved")
	}
	msg.Offer.Status = status
	msg.Offer.ResolvedBy = by
	msg.Offer.ResolvedAt = &at
	msg.Offer.Version++
	return nil
}

func reopenOffer(msg *entity.Message) {
	msg.Offer.Status = entity.OfferOpen
	msg.Offer.ResolvedBy = ""
	msg.Offer.ResolvedAt = nil
	msg.Offer.Version++
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
