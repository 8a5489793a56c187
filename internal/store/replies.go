package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/reciprocityapp/reciprocity-server/internal/domain"
)

// Key prefixes for reply storage.
const (
	replyPrefix    = "reply:"             // reply:{id} → Reply JSON
	replyParentIdx = "idx:replies:parent:" // idx:replies:parent:{kind}:{parentID}:{replyID} → empty
)

// CreateReply persists a new reply and its parent index key.
func (s *Store) CreateReply(ctx context.Context, r *domain.Reply) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.ReplyTo.IsZero() {
		return fmt.Errorf("reply must reference a parent")
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(replyPrefix + r.ID)
		if _, err := txn.Get(key); err == nil {
			return ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return storeErr(err, "check reply key")
		}

		if err := txn.Set(key, data); err != nil {
			return storeErr(err, "set reply")
		}
		idxKey := []byte(replyParentIdx + r.ReplyTo.String() + ":" + r.ID)
		return txn.Set(idxKey, []byte{})
	})
}

// GetReply retrieves a reply by ID.
func (s *Store) GetReply(ctx context.Context, replyID string) (*domain.Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var r domain.Reply
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(replyPrefix + replyID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return storeErr(err, "get reply")
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		})
	})
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// UpdateReply overwrites an existing reply. The parent reference is
// immutable, so the index key stays.
func (s *Store) UpdateReply(ctx context.Context, r *domain.Reply) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal reply: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(replyPrefix + r.ID)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return storeErr(err, "get reply")
		}
		return txn.Set(key, data)
	})
}

// DeleteReply removes a reply and its index key. Idempotent.
func (s *Store) DeleteReply(ctx context.Context, replyID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(replyPrefix + replyID)

		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return storeErr(err, "get reply")
		}

		var r domain.Reply
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &r)
		}); err != nil {
			return err
		}

		idxKey := []byte(replyParentIdx + r.ReplyTo.String() + ":" + r.ID)
		if err := txn.Delete(idxKey); err != nil {
			return storeErr(err, "delete reply index")
		}
		return txn.Delete(key)
	})
}

// ListRepliesForParent returns a post's replies oldest-update-first, the
// order the feed renders threads in.
func (s *Store) ListRepliesForParent(ctx context.Context, parent domain.Ref) ([]*domain.Reply, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids, err := s.replyIDsForParent(parent)
	if err != nil {
		return nil, err
	}

	replies := make([]*domain.Reply, 0, len(ids))
	for _, replyID := range ids {
		r, err := s.GetReply(ctx, replyID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		replies = append(replies, r)
	}

	sort.Slice(replies, func(i, j int) bool {
		return replies[i].UpdatedAt.Before(replies[j].UpdatedAt)
	})
	return replies, nil
}

// DeleteRepliesForParent removes every reply under the parent and returns
// the deleted reply IDs so the caller can cascade their notifications.
func (s *Store) DeleteRepliesForParent(ctx context.Context, parent domain.Ref) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids, err := s.replyIDsForParent(parent)
	if err != nil {
		return nil, err
	}

	deleted := make([]string, 0, len(ids))
	for _, replyID := range ids {
		if err := s.DeleteReply(ctx, replyID); err != nil {
			return deleted, err
		}
		deleted = append(deleted, replyID)
	}
	return deleted, nil
}

// replyIDsForParent scans the parent index for reply IDs.
func (s *Store) replyIDsForParent(parent domain.Ref) ([]string, error) {
	var ids []string
	prefix := []byte(replyParentIdx + parent.String() + ":")

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ids = append(ids, string(it.Item().Key())[len(prefix):])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
