package repository

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dgraph-io/badger/v4"

	"tradechat/pkg/errors"
	"tradechat/pkg/logger"
)

const maxConflictRetries = 5

// Key layout. Sequence and time components are zero padded to 19 digits so
// lexicographic order matches numeric order.
const (
	prefixConversation     = "conv:"
	prefixUserConversation = "convuser:"
	prefixMessage          = "msg:"
	prefixMessageID        = "msgid:"
	prefixNotification     = "notif:"
	prefixUserNotification = "notifuser:"
	prefixNotificationDup  = "notifdedup:"
	prefixAccount          = "acct:"
	prefixTrade            = "trade:"
	prefixUser             = "user:"
	prefixUsername         = "username:"
	prefixAthlete          = "athlete:"
)

// OpenBadger opens the embedded store. An empty path opens an in-memory
// database, which is what tests use.
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).WithLoggingLevel(badger.ERROR)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return db, nil
}

func padded(n int64) string {
	return fmt.Sprintf("%019d", n)
}

// scoped builds the key prefix for every record owned by id. The id is
// length-prefixed so an id containing ':' never shares a range with another.
func scoped(prefix, id string) string {
	return prefix + strconv.Itoa(len(id)) + "." + id + ":"
}

func messageKey(conversationID string, seq int64) []byte {
	return []byte(scoped(prefixMessage, conversationID) + padded(seq))
}

func getJSON(txn *badger.Txn, key []byte, out interface{}) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return unmarshalJSON(val, out)
	})
}

func unmarshalJSON(val []byte, out interface{}) error {
	return json.Unmarshal(val, out)
}

func setJSON(txn *badger.Txn, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, data)
}

func isNotFound(err error) bool {
	return stderrors.Is(err, badger.ErrKeyNotFound)
}

// update runs fn in a read-write transaction and retries when badger
// detects a conflicting concurrent commit.
func update(db *badger.DB, fn func(txn *badger.Txn) error) error {
	var err error
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		err = db.Update(fn)
		if !stderrors.Is(err, badger.ErrConflict) {
			return err
		}
		logger.Debug("badger transaction conflict, retrying (attempt %d)", attempt+1)
		time.Sleep(time.Duration(attempt+1) * time.Millisecond)
	}
	return errors.Internal("Storage is busy, try again", err)
}

// wrapStorageErr passes AppErrors through and wraps anything else.
func wrapStorageErr(message string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := errors.As(err); ok {
		return err
	}
	return errors.Internal(message, err)
}

// scanPrefix visits keys under prefix in ascending order, or descending when
// reverse is set.
func scanPrefix(txn *badger.Txn, prefix string, reverse, keysOnly bool, visit func(item *badger.Item) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Reverse = reverse
	opts.PrefetchValues = !keysOnly
	opts.Prefix = []byte(prefix)

	it := txn.NewIterator(opts)
	defer it.Close()

	seek := []byte(prefix)
	if reverse {
		seek = append([]byte(prefix), 0xFF)
	}
	for it.Seek(seek); it.ValidForPrefix([]byte(prefix)); it.Next() {
		more, err := visit(it.Item())
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}
