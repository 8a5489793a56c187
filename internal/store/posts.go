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

// Key prefixes for post storage. Posts carry multi-value secondary
// indexes (tags, communities, owner) as composite keys, one key per
// member, so membership queries are prefix scans.
const (
	postPrefix       = "post:"                // post:{id} → Post JSON
	postTagIdx       = "idx:posts:tag:"       // idx:posts:tag:{tagKey}:{postID} → kind
	postCommunityIdx = "idx:posts:community:" // idx:posts:community:{communityID}:{postID} → empty
	postOwnerIdx     = "idx:posts:owner:"     // idx:posts:owner:{ownerID}:{postID} → empty
)

// PostFilter selects posts for query and bulk-delete operations.
// Zero-valued fields match everything.
type PostFilter struct {
	Kind        domain.PostKind
	OwnerID     string
	CommunityID string
	TagKey      string
	IsActive    *bool
}

// Matches reports whether the post satisfies every set field.
func (f PostFilter) Matches(p *domain.Post) bool {
	if f.Kind != "" && p.Kind != f.Kind {
		return false
	}
	if f.OwnerID != "" && p.OwnerID != f.OwnerID {
		return false
	}
	if f.CommunityID != "" {
		found := false
		for _, c := range p.Communities {
			if c == f.CommunityID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.TagKey != "" && !p.HasTag(f.TagKey) {
		return false
	}
	if f.IsActive != nil && p.IsActive != *f.IsActive {
		return false
	}
	return true
}

// postIndexKeys returns every secondary index key for the post.
func postIndexKeys(p *domain.Post) [][]byte {
	keys := make([][]byte, 0, len(p.Tags)+len(p.Communities)+1)
	for _, tag := range p.Tags {
		keys = append(keys, []byte(postTagIdx+tag+":"+p.ID))
	}
	for _, c := range p.Communities {
		keys = append(keys, []byte(postCommunityIdx+c+":"+p.ID))
	}
	keys = append(keys, []byte(postOwnerIdx+p.OwnerID+":"+p.ID))
	return keys
}

// CreatePost persists a new post and its index keys.
// Returns ErrAlreadyExists if the ID is taken.
func (s *Store) CreatePost(ctx context.Context, p *domain.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal post: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(postPrefix + p.ID)
		if _, err := txn.Get(key); err == nil {
			return ErrAlreadyExists
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return storeErr(err, "check post key")
		}

		if err := txn.Set(key, data); err != nil {
			return storeErr(err, "set post")
		}
		// Tag index values carry the kind so scans can skip loading
		// same-kind posts.
		for _, tag := range p.Tags {
			idxKey := []byte(postTagIdx + tag + ":" + p.ID)
			if err := txn.Set(idxKey, []byte(p.Kind)); err != nil {
				return storeErr(err, "set post tag index")
			}
		}
		for _, c := range p.Communities {
			if err := txn.Set([]byte(postCommunityIdx+c+":"+p.ID), []byte{}); err != nil {
				return storeErr(err, "set post community index")
			}
		}
		if err := txn.Set([]byte(postOwnerIdx+p.OwnerID+":"+p.ID), []byte{}); err != nil {
			return storeErr(err, "set post owner index")
		}
		return nil
	})
}

// GetPost retrieves a post by ID.
// Returns ErrNotFound if the post does not exist.
func (s *Store) GetPost(ctx context.Context, id string) (*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var p domain.Post
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(postPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return storeErr(err, "get post")
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		})
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdatePost overwrites an existing post, rebuilding its index keys.
// Returns ErrNotFound if the post does not exist.
func (s *Store) UpdatePost(ctx context.Context, p *domain.Post) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal post: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(postPrefix + p.ID)

		var old domain.Post
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return storeErr(err, "get post")
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &old)
		}); err != nil {
			return err
		}

		for _, idxKey := range postIndexKeys(&old) {
			if err := txn.Delete(idxKey); err != nil {
				return storeErr(err, "delete old post index")
			}
		}

		if err := txn.Set(key, data); err != nil {
			return storeErr(err, "set post")
		}
		for _, tag := range p.Tags {
			idxKey := []byte(postTagIdx + tag + ":" + p.ID)
			if err := txn.Set(idxKey, []byte(p.Kind)); err != nil {
				return storeErr(err, "set post tag index")
			}
		}
		for _, c := range p.Communities {
			if err := txn.Set([]byte(postCommunityIdx+c+":"+p.ID), []byte{}); err != nil {
				return storeErr(err, "set post community index")
			}
		}
		return txn.Set([]byte(postOwnerIdx+p.OwnerID+":"+p.ID), []byte{})
	})
}

// DeletePost removes a post and its index keys. Idempotent: deleting a
// missing post is not an error. Dependent Matches, Replies and
// Notifications are NOT touched here; that is the cascade manager's job.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		key := []byte(postPrefix + id)

		var p domain.Post
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return storeErr(err, "get post")
		}
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &p)
		}); err != nil {
			return err
		}

		for _, idxKey := range postIndexKeys(&p) {
			if err := txn.Delete(idxKey); err != nil {
				return storeErr(err, "delete post index")
			}
		}
		return txn.Delete(key)
	})
}

// ListPostsByTag returns posts of the given kind carrying the tag key.
// Index scan only; no relevance scoring involved.
func (s *Store) ListPostsByTag(ctx context.Context, kind domain.PostKind, tagKey string) ([]*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ids []string
	prefix := []byte(postTagIdx + tagKey + ":")

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var entryKind string
			if err := item.Value(func(val []byte) error {
				entryKind = string(val)
				return nil
			}); err != nil {
				return err
			}
			if kind != "" && entryKind != string(kind) {
				continue
			}
			ids = append(ids, string(item.Key())[len(prefix):])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	posts := make([]*domain.Post, 0, len(ids))
	for _, id := range ids {
		p, err := s.GetPost(ctx, id)
		if errors.Is(err, ErrNotFound) {
			// Index entry raced a delete. Skip.
			continue
		}
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// FindPosts returns all posts matching the filter, oldest first.
func (s *Store) FindPosts(ctx context.Context, filter PostFilter) ([]*domain.Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	prefix := []byte(postPrefix)
	var posts []*domain.Post

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var p domain.Post
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				return err
			}
			if filter.Matches(&p) {
				posts = append(posts, &p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt.Before(posts[j].CreatedAt)
	})
	return posts, nil
}

// FindPostIDs resolves a filter to the IDs of every matching post.
// Bulk deletions resolve their full target set through this before any
// cascade runs.
func (s *Store) FindPostIDs(ctx context.Context, filter PostFilter) ([]string, error) {
	posts, err := s.FindPosts(ctx, filter)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(posts))
	for i, p := range posts {
		ids[i] = p.ID
	}
	return ids, nil
}
