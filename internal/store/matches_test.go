package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reciprocityapp/reciprocity-server/internal/domain"
	"github.com/reciprocityapp/reciprocity-server/internal/store"
)

func newTestMatch(askID, offerID string) *domain.Match {
	return &domain.Match{
		AskID:          askID,
		AskOwnerID:     "usr_ask",
		OfferID:        offerID,
		OfferOwnerID:   "usr_offer",
		InitiatedBy:    domain.InitiatedByAsk,
		MatchType:      domain.MatchTypeTextSearch,
		TextMatchScore: 7.5,
		Communities:    []string{"comm_1"},
	}
}

func TestUpsertMatch_Create(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	m, created, err := s.UpsertMatch(ctx, newTestMatch("ask_1", "offer_1"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, m.ID)
	assert.False(t, m.CreatedAt.IsZero())

	got, err := s.GetMatch(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "ask_1", got.AskID)
	assert.Equal(t, "offer_1", got.OfferID)
	assert.InDelta(t, 7.5, got.TextMatchScore, 0.001)
}

func TestUpsertMatch_PairUniqueness(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	first, created, err := s.UpsertMatch(ctx, newTestMatch("ask_1", "offer_1"))
	require.NoError(t, err)
	require.True(t, created)

	// Second upsert of the same pair refreshes in place.
	update := newTestMatch("ask_1", "offer_1")
	update.TextMatchScore = 9.9
	update.InitiatedBy = domain.InitiatedByOffer

	second, created, err := s.UpsertMatch(ctx, update)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt.Unix(), second.CreatedAt.Unix())
	assert.InDelta(t, 9.9, second.TextMatchScore, 0.001)
	assert.Equal(t, domain.InitiatedByOffer, second.InitiatedBy)

	// Exactly one record exists for the post.
	matches, err := s.ListMatchesForPost(ctx, "ask_1")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestUpsertMatch_RequiresBothSides(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	_, _, err := s.UpsertMatch(context.Background(), newTestMatch("", "offer_1"))
	require.Error(t, err)

	_, _, err = s.UpsertMatch(context.Background(), newTestMatch("ask_1", ""))
	require.Error(t, err)
}

func TestGetMatchByPair(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	stored, _, err := s.UpsertMatch(ctx, newTestMatch("ask_1", "offer_1"))
	require.NoError(t, err)

	got, err := s.GetMatchByPair(ctx, "ask_1", "offer_1")
	require.NoError(t, err)
	assert.Equal(t, stored.ID, got.ID)

	_, err = s.GetMatchByPair(ctx, "ask_1", "offer_2")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestListMatchesForPost_BothSides(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	// ask_1 appears as ask side in two matches; offer_1 as offer side in one.
	_, _, err := s.UpsertMatch(ctx, newTestMatch("ask_1", "offer_1"))
	require.NoError(t, err)
	_, _, err = s.UpsertMatch(ctx, newTestMatch("ask_1", "offer_2"))
	require.NoError(t, err)
	_, _, err = s.UpsertMatch(ctx, newTestMatch("ask_2", "offer_1"))
	require.NoError(t, err)

	forAsk, err := s.ListMatchesForPost(ctx, "ask_1")
	require.NoError(t, err)
	assert.Len(t, forAsk, 2)

	forOffer, err := s.ListMatchesForPost(ctx, "offer_1")
	require.NoError(t, err)
	assert.Len(t, forOffer, 2)
}

func TestDeleteMatchesForPost(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	_, _, err := s.UpsertMatch(ctx, newTestMatch("ask_1", "offer_1"))
	require.NoError(t, err)
	_, _, err = s.UpsertMatch(ctx, newTestMatch("ask_1", "offer_2"))
	require.NoError(t, err)
	kept, _, err := s.UpsertMatch(ctx, newTestMatch("ask_2", "offer_3"))
	require.NoError(t, err)

	deleted, err := s.DeleteMatchesForPost(ctx, "ask_1")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	remaining, err := s.ListMatchesForPost(ctx, "ask_1")
	require.NoError(t, err)
	assert.Empty(t, remaining)

	// The pair index is swept too: a fresh upsert creates a new record.
	refreshed, created, err := s.UpsertMatch(ctx, newTestMatch("ask_1", "offer_1"))
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEmpty(t, refreshed.ID)

	// Unrelated matches survive.
	got, err := s.GetMatch(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, "ask_2", got.AskID)
}

func TestDeleteMatchesForPost_NoMatches(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	deleted, err := s.DeleteMatchesForPost(context.Background(), "ask_none")
	require.NoError(t, err)
	assert.Zero(t, deleted)
}
