package matcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/reciprocityapp/reciprocity-server/internal/domain"
	"github.com/reciprocityapp/reciprocity-server/internal/store"
)

// MatchNotifier delivers notifications for upserted matches.
type MatchNotifier interface {
	NotifyMatch(ctx context.Context, match *domain.Match) error
}

// Service keeps a post's stored matches consistent with the engine's
// current view of it. A reconcile is a full replace: every stored match
// for the post is invalidated first, then the surviving pairings are
// written back, so a match that no longer scores simply never returns.
type Service struct {
	store    *store.Store
	engine   *Engine
	notifier MatchNotifier
	logger   *slog.Logger
}

// NewService creates a reconcile service.
func NewService(store *store.Store, engine *Engine, notifier MatchNotifier, logger *slog.Logger) *Service {
	return &Service{
		store:    store,
		engine:   engine,
		notifier: notifier,
		logger:   logger,
	}
}

// ReconcileAsk recomputes the stored matches for an ask.
func (s *Service) ReconcileAsk(ctx context.Context, askID string) error {
	return s.Reconcile(ctx, askID)
}

// ReconcileOffer recomputes the stored matches for an offer.
func (s *Service) ReconcileOffer(ctx context.Context, offerID string) error {
	return s.Reconcile(ctx, offerID)
}

// Reconcile recomputes and rewrites the matches for the given post.
// A post that no longer exists is treated as already cleaned up.
// Per-candidate failures are logged and skipped so one bad record
// cannot wedge the rest of the batch.
func (s *Service) Reconcile(ctx context.Context, postID string) error {
	post, err := s.store.GetPost(ctx, postID)
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Debug("reconcile skipped, post gone", "post_id", postID)
		return nil
	}
	if err != nil {
		return err
	}

	// Invalidate before upserting. The delete must complete first so a
	// pairing that dropped below the threshold does not survive.
	deleted, err := s.store.DeleteMatchesForPost(ctx, post.ID)
	if err != nil {
		return err
	}

	candidates, err := s.engine.ComputeMatches(ctx, post)
	if err != nil {
		return err
	}

	upserted := 0
	for _, c := range candidates.TextMatches {
		match := buildMatch(post, c)

		stored, _, err := s.store.UpsertMatch(ctx, match)
		if err != nil {
			s.logger.Warn("match upsert failed, skipping candidate",
				"post_id", post.ID,
				"candidate_id", c.Post.ID,
				"error", err,
			)
			continue
		}
		upserted++

		if s.notifier != nil {
			if err := s.notifier.NotifyMatch(ctx, stored); err != nil {
				s.logger.Warn("match notification failed",
					"match_id", stored.ID,
					"error", err,
				)
			}
		}
	}

	s.logger.Info("reconciled matches",
		"post_id", post.ID,
		"kind", post.Kind,
		"invalidated", deleted,
		"tag_candidates", len(candidates.TagMatches),
		"matches", upserted,
	)
	return nil
}

// buildMatch assembles the match record for a scored candidate. The
// source post's side initiates; the candidate is always the opposite
// kind.
func buildMatch(post *domain.Post, c ScoredCandidate) *domain.Match {
	now := time.Now()
	match := &domain.Match{
		InitiatedBy:    domain.MatchInitiator(post.Kind),
		MatchType:      domain.MatchTypeTextSearch,
		TextMatchScore: c.Score,
		Communities:    post.SharedCommunities(c.Post),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if post.Kind == domain.PostAsk {
		match.AskID = post.ID
		match.AskOwnerID = post.OwnerID
		match.OfferID = c.Post.ID
		match.OfferOwnerID = c.Post.OwnerID
	} else {
		match.OfferID = post.ID
		match.OfferOwnerID = post.OwnerID
		match.AskID = c.Post.ID
		match.AskOwnerID = c.Post.OwnerID
	}

	return match
}
