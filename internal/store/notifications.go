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

// Key prefixes for notification storage. The subject index keys cascades:
// deleting an ask/offer/reply finds its notifications by prefix scan.
const (
	notifPrefix     = "notification:"              // notification:{id} → Notification JSON
	notifOwnerIdx   = "idx:notifications:owner:"   // idx:notifications:owner:{ownerID}:{notifID} → empty
	notifSubjectIdx = "idx:notifications:subject:" // idx:notifications:subject:{kind}:{subjectID}:{notifID} → empty
)

func notifIndexKeys(n *domain.Notification) [][]byte {
	keys := [][]byte{
		[]byte(notifOwnerIdx + n.OwnerID + ":" + n.ID),
	}
	if !n.Subject.IsZero() {
		keys = append(keys, []byte(notifSubjectIdx+n.Subject.String()+":"+n.ID))
	}
	return keys
}

// CreateNotification persists a new notification and its index keys.
func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(notifPrefix + n.ID)
		if _, err := txn.Get(key); err == nil {
			return ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return storeErr(err, "check notification key")
		}

		if err := txn.Set(key, data); err != nil {
			return storeErr(err, "set notification")
		}
		for _, idxKey := range notifIndexKeys(n) {
			if err := txn.Set(idxKey, []byte{}); err != nil {
				return storeErr(err, "set notification index")
			}
		}
		return nil
	})
}

// UpdateNotification overwrites an existing notification in place. Its
// owner and subject are immutable, so index keys are left untouched.
func (s *Store) UpdateNotification(ctx context.Context, n *domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(notifPrefix + n.ID)
		if _, err := txn.Get(key); errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		} else if err != nil {
			return storeErr(err, "get notification")
		}
		return txn.Set(key, data)
	})
}

// GetNotification retrieves a notification by ID.
func (s *Store) GetNotification(ctx context.Context, notifID string) (*domain.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var n domain.Notification
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(notifPrefix + notifID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return storeErr(err, "get notification")
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &n)
		})
	})
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// GetNotificationByOwnerAndSubject finds the one notification a user has
// for a given subject. Upsert target for match refreshes: re-matching the
// same pair updates the existing notification instead of stacking new ones.
func (s *Store) GetNotificationByOwnerAndSubject(ctx context.Context, ownerID string, subject domain.Ref) (*domain.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids, err := s.notifIDsForSubject(subject)
	if err != nil {
		return nil, err
	}

	for _, notifID := range ids {
		n, err := s.GetNotification(ctx, notifID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if n.OwnerID == ownerID {
			return n, nil
		}
	}
	return nil, ErrNotFound
}

// ListNotificationsForOwner returns a user's notifications newest-first.
func (s *Store) ListNotificationsForOwner(ctx context.Context, ownerID string) ([]*domain.Notification, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ids []string
	prefix := []byte(notifOwnerIdx + ownerID + ":")

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

	notifs := make([]*domain.Notification, 0, len(ids))
	for _, notifID := range ids {
		n, err := s.GetNotification(ctx, notifID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		notifs = append(notifs, n)
	}

	sort.Slice(notifs, func(i, j int) bool {
		return notifs[i].CreatedAt.After(notifs[j].CreatedAt)
	})
	return notifs, nil
}

// DeleteNotification removes a notification and its index keys. Idempotent.
func (s *Store) DeleteNotification(ctx context.Context, notifID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(notifPrefix + notifID)

		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return storeErr(err, "get notification")
		}

		var n domain.Notification
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &n)
		}); err != nil {
			return err
		}

		for _, idxKey := range notifIndexKeys(&n) {
			if err := txn.Delete(idxKey); err != nil {
				return storeErr(err, "delete notification index")
			}
		}
		return txn.Delete(key)
	})
}

// DeleteNotificationsForSubject removes every notification referencing the
// subject. Returns the number removed.
func (s *Store) DeleteNotificationsForSubject(ctx context.Context, subject domain.Ref) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	ids, err := s.notifIDsForSubject(subject)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, notifID := range ids {
		if err := s.DeleteNotification(ctx, notifID); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// notifIDsForSubject scans the subject index for notification IDs.
func (s *Store) notifIDsForSubject(subject domain.Ref) ([]string, error) {
	var ids []string
	prefix := []byte(notifSubjectIdx + subject.String() + ":")

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
