package store

import (
	"context"
	"encoding/json/v2"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/reciprocityapp/reciprocity-server/internal/domain"
	"github.com/reciprocityapp/reciprocity-server/internal/id"
)

// Key prefixes for match storage. The pair index is the uniqueness
// guarantee: one (ask, offer) pair maps to exactly one match document.
const (
	matchPrefix   = "match:"            // match:{id} → Match JSON
	matchPairIdx  = "idx:matches:pair:" // idx:matches:pair:{askID}:{offerID} → matchID
	matchAskIdx   = "idx:matches:ask:"  // idx:matches:ask:{askID}:{matchID} → empty
	matchOfferIdx = "idx:matches:offer:" // idx:matches:offer:{offerID}:{matchID} → empty
)

// UpsertMatch writes a match keyed by its (ask, offer) pair: if a match
// for the pair exists its fields are refreshed in place, otherwise a new
// document is created. Find-and-modify inside one transaction, so a
// concurrent upsert of the same pair resolves to a single record.
// Returns the stored match and whether it was newly created.
func (s *Store) UpsertMatch(ctx context.Context, m *domain.Match) (*domain.Match, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if m.AskID == "" || m.OfferID == "" {
		return nil, false, fmt.Errorf("match must reference both an ask and an offer")
	}

	created := false
	stored := *m

	err := s.db.Update(func(txn *badger.Txn) error {
		pairKey := []byte(matchPairIdx + m.AskID + ":" + m.OfferID)

		item, err := txn.Get(pairKey)
		switch {
		case err == nil:
			// Pair exists: keep identity and creation time, refresh the rest.
			var existingID string
			if err := item.Value(func(val []byte) error {
				existingID = string(val)
				return nil
			}); err != nil {
				return err
			}

			matchItem, err := txn.Get([]byte(matchPrefix + existingID))
			if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
				return storeErr(err, "get match")
			}
			if err == nil {
				var old domain.Match
				if err := matchItem.Value(func(val []byte) error {
					return json.Unmarshal(val, &old)
				}); err != nil {
					return err
				}
				stored.ID = old.ID
				stored.CreatedAt = old.CreatedAt
			} else {
				// Dangling pair index: treat as create under the old ID.
				stored.ID = existingID
				stored.CreatedAt = time.Now()
			}

		case errors.Is(err, badger.ErrKeyNotFound):
			created = true
			newID, err := id.Generate("match")
			if err != nil {
				return err
			}
			stored.ID = newID
			stored.CreatedAt = time.Now()

		default:
			return storeErr(err, "get match pair index")
		}

		stored.UpdatedAt = time.Now()

		data, err := json.Marshal(&stored)
		if err != nil {
			return fmt.Errorf("failed to marshal match: %w", err)
		}

		if err := txn.Set([]byte(matchPrefix+stored.ID), data); err != nil {
			return storeErr(err, "set match")
		}
		if err := txn.Set(pairKey, []byte(stored.ID)); err != nil {
			return storeErr(err, "set match pair index")
		}
		if err := txn.Set([]byte(matchAskIdx+stored.AskID+":"+stored.ID), []byte{}); err != nil {
			return storeErr(err, "set match ask index")
		}
		return txn.Set([]byte(matchOfferIdx+stored.OfferID+":"+stored.ID), []byte{})
	})
	if err != nil {
		return nil, false, err
	}
	return &stored, created, nil
}

// GetMatch retrieves a match by ID.
func (s *Store) GetMatch(ctx context.Context, matchID string) (*domain.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var m domain.Match
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(matchPrefix + matchID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return storeErr(err, "get match")
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		})
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMatchByPair retrieves the match for an (ask, offer) pair.
func (s *Store) GetMatchByPair(ctx context.Context, askID, offerID string) (*domain.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var matchID string
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(matchPairIdx + askID + ":" + offerID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return storeErr(err, "get match pair index")
		}
		return item.Value(func(val []byte) error {
			matchID = string(val)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetMatch(ctx, matchID)
}

// ListMatchesForPost returns every match where the post is the ask or the
// offer side.
func (s *Store) ListMatchesForPost(ctx context.Context, postID string) ([]*domain.Match, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ids, err := s.matchIDsForPost(postID)
	if err != nil {
		return nil, err
	}

	matches := make([]*domain.Match, 0, len(ids))
	for _, matchID := range ids {
		m, err := s.GetMatch(ctx, matchID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, nil
}

// DeleteMatchesForPost removes every match referencing the post on either
// side, including pair and side indexes. Returns the number removed.
func (s *Store) DeleteMatchesForPost(ctx context.Context, postID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	ids, err := s.matchIDsForPost(postID)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, matchID := range ids {
		err := s.deleteMatch(matchID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// matchIDsForPost scans both side indexes for match IDs.
func (s *Store) matchIDsForPost(postID string) ([]string, error) {
	var ids []string
	seen := make(map[string]bool)

	err := s.db.View(func(txn *badger.Txn) error {
		for _, idxPrefix := range []string{matchAskIdx, matchOfferIdx} {
			prefix := []byte(idxPrefix + postID + ":")
			opts := badger.DefaultIteratorOptions
			opts.Prefix = prefix
			opts.PrefetchValues = false

			it := txn.NewIterator(opts)
			for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
				matchID := string(it.Item().Key())[len(prefix):]
				if !seen[matchID] {
					seen[matchID] = true
					ids = append(ids, matchID)
				}
			}
			it.Close()
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// deleteMatch removes one match document and all of its index keys.
func (s *Store) deleteMatch(matchID string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(matchPrefix + matchID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return storeErr(err, "get match")
		}

		var m domain.Match
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		}); err != nil {
			return err
		}

		for _, key := range [][]byte{
			[]byte(matchPairIdx + m.AskID + ":" + m.OfferID),
			[]byte(matchAskIdx + m.AskID + ":" + m.ID),
			[]byte(matchOfferIdx + m.OfferID + ":" + m.ID),
			[]byte(matchPrefix + m.ID),
		} {
			if err := txn.Delete(key); err != nil {
				return storeErr(err, "delete match key")
			}
		}
		return nil
	})
}
