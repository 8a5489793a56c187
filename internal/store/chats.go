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

// Key prefixes for chat storage.
const (
	chatPrefix = "chat:"        // chat:{id} → Chat JSON
	chatToIdx  = "idx:chats:to:" // idx:chats:to:{userID}:{chatID} → empty
)

// CreateChat persists a new direct message and its recipient index key.
func (s *Store) CreateChat(ctx context.Context, c *domain.Chat) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal chat: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(chatPrefix + c.ID)
		if _, err := txn.Get(key); err == nil {
			return ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return storeErr(err, "check chat key")
		}

		if err := txn.Set(key, data); err != nil {
			return storeErr(err, "set chat")
		}
		return txn.Set([]byte(chatToIdx+c.ToID+":"+c.ID), []byte{})
	})
}

// GetChat retrieves a chat by ID.
func (s *Store) GetChat(ctx context.Context, chatID string) (*domain.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var c domain.Chat
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(chatPrefix + chatID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return storeErr(err, "get chat")
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &c)
		})
	})
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateChat overwrites an existing chat (read receipts). Sender and
// recipient are immutable, so the index key stays.
func (s *Store) UpdateChat(ctx context.Context, c *domain.Chat) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal chat: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(chatPrefix + c.ID)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return storeErr(err, "get chat")
		}
		return txn.Set(key, data)
	})
}

// DeleteChat removes a chat and its index key. Idempotent.
func (s *Store) DeleteChat(ctx context.Context, chatID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(chatPrefix + chatID)

		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return storeErr(err, "get chat")
		}

		var c domain.Chat
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &c)
		}); err != nil {
			return err
		}

		if err := txn.Delete([]byte(chatToIdx + c.ToID + ":" + c.ID)); err != nil {
			return storeErr(err, "delete chat index")
		}
		return txn.Delete(key)
	})
}

// ListChatsForRecipient returns a user's received chats newest-first.
func (s *Store) ListChatsForRecipient(ctx context.Context, toID string) ([]*domain.Chat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ids []string
	prefix := []byte(chatToIdx + toID + ":")

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

	chats := make([]*domain.Chat, 0, len(ids))
	for _, chatID := range ids {
		c, err := s.GetChat(ctx, chatID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}

	sort.Slice(chats, func(i, j int) bool {
		return chats[i].CreatedAt.After(chats[j].CreatedAt)
	})
	return chats, nil
}

// UnreadChatSenders returns the distinct users with unread messages to
// the recipient. The presentation layer surfaces the count as a badge.
func (s *Store) UnreadChatSenders(ctx context.Context, toID string) ([]string, error) {
	chats, err := s.ListChatsForRecipient(ctx, toID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var senders []string
	for _, c := range chats {
		if c.IsRead() {
			continue
		}
		if !seen[c.FromID] {
			seen[c.FromID] = true
			senders = append(senders, c.FromID)
		}
	}
	return senders, nil
}
