// Package cascade removes a post together with everything that hangs
// off it. Dependent documents never outlive their post: matches on
// either side, the reply thread, notifications pointing at the post,
// and notifications pointing at the deleted replies all go with it.
package cascade

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/reciprocityapp/reciprocity-server/internal/domain"
	"github.com/reciprocityapp/reciprocity-server/internal/store"
)

// maxConcurrentCascades bounds parallel per-post cascades in bulk
// deletes.
const maxConcurrentCascades = 4

// Manager orchestrates dependent-document deletion for posts.
type Manager struct {
	store   *store.Store
	indexer store.SearchIndexer
	logger  *slog.Logger
}

// NewManager creates a cascade manager.
func NewManager(s *store.Store, indexer store.SearchIndexer, logger *slog.Logger) *Manager {
	if indexer == nil {
		indexer = store.NoopSearchIndexer{}
	}
	return &Manager{
		store:   s,
		indexer: indexer,
		logger:  logger,
	}
}

// CascadeDelete removes every document that references the given post:
// matches on either side, replies and their notifications, and
// notifications about the post itself. The post record is left alone,
// so this is safe to run for a post that is already gone. Idempotent.
func (m *Manager) CascadeDelete(ctx context.Context, kind domain.PostKind, postID string) error {
	return m.cascade(ctx, domain.NewRef(kind.RefKind(), postID))
}

// DeletePost removes a post by ID along with its dependents. Deleting
// a post that is already gone is a no-op: its cascade ran when it was
// deleted.
func (m *Manager) DeletePost(ctx context.Context, kind domain.PostKind, postID string) error {
	post, err := m.store.GetPost(ctx, postID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if post.Kind != kind {
		return store.ErrNotFound
	}

	return m.deleteOne(ctx, post)
}

// DeletePostWhere removes the first post matching the filter, with its
// dependents. No match is a no-op.
func (m *Manager) DeletePostWhere(ctx context.Context, filter store.PostFilter) error {
	ids, err := m.store.FindPostIDs(ctx, filter)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	post, err := m.store.GetPost(ctx, ids[0])
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	return m.deleteOne(ctx, post)
}

// DeletePostsWhere removes every post matching the filter and returns
// the IDs it acted on. The full ID set is resolved before any deletion
// starts, then per-post cascades run concurrently. A post that
// disappears mid-flight counts as done. Callers announcing removals
// must use the returned set, not a second filter resolution.
func (m *Manager) DeletePostsWhere(ctx context.Context, filter store.PostFilter) ([]string, error) {
	ids, err := m.store.FindPostIDs(ctx, filter)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentCascades)
	for _, id := range ids {
		g.Go(func() error {
			post, err := m.store.GetPost(gctx, id)
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			return m.deleteOne(gctx, post)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return ids, nil
}

// deleteOne runs the cascade for a single post, then deletes the post
// itself and its search document.
func (m *Manager) deleteOne(ctx context.Context, post *domain.Post) error {
	if err := m.cascade(ctx, post.Ref()); err != nil {
		return err
	}

	if err := m.store.DeletePost(ctx, post.ID); err != nil {
		return err
	}

	if err := m.indexer.DeletePost(post.ID); err != nil {
		// The document is orphaned but harmless; reconciles re-check
		// the store before trusting a hit.
		m.logger.Warn("failed to remove post from search index",
			"post_id", post.ID,
			"error", err,
		)
	}

	m.logger.Info("post deleted", "post_id", post.ID, "kind", post.Kind)
	return nil
}

// cascade deletes the dependents of the given post: matches on either
// side, the reply thread plus notifications about those replies, and
// notifications whose subject is the post itself. The three branches
// are independent and run concurrently.
func (m *Manager) cascade(ctx context.Context, ref domain.Ref) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		n, err := m.store.DeleteMatchesForPost(gctx, ref.ID)
		if err != nil {
			return err
		}
		if n > 0 {
			m.logger.Debug("cascaded matches", "post_id", ref.ID, "count", n)
		}
		return nil
	})

	g.Go(func() error {
		replyIDs, err := m.store.DeleteRepliesForParent(gctx, ref)
		if err != nil {
			return err
		}
		for _, replyID := range replyIDs {
			replyRef := domain.NewRef(domain.RefReply, replyID)
			if _, err := m.store.DeleteNotificationsForSubject(gctx, replyRef); err != nil {
				return err
			}
		}
		if len(replyIDs) > 0 {
			m.logger.Debug("cascaded replies", "post_id", ref.ID, "count", len(replyIDs))
		}
		return nil
	})

	g.Go(func() error {
		n, err := m.store.DeleteNotificationsForSubject(gctx, ref)
		if err != nil {
			return err
		}
		if n > 0 {
			m.logger.Debug("cascaded notifications", "post_id", ref.ID, "count", n)
		}
		return nil
	})

	return g.Wait()
}
