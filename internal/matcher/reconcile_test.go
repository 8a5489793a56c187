package matcher_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reciprocityapp/reciprocity-server/internal/domain"
	"github.com/reciprocityapp/reciprocity-server/internal/logger"
	"github.com/reciprocityapp/reciprocity-server/internal/matcher"
)

// recordingNotifier captures matches as they are dispatched.
type recordingNotifier struct {
	matches []*domain.Match
}

func (n *recordingNotifier) NotifyMatch(_ context.Context, match *domain.Match) error {
	n.matches = append(n.matches, match)
	return nil
}

func setupReconcile(t *testing.T) (*matchFixture, *matcher.Service, *recordingNotifier) {
	t.Helper()
	f := setupEngine(t, matcher.Config{ScoreThreshold: 0.01, CandidateLimit: 10})
	notifier := &recordingNotifier{}
	svc := matcher.NewService(f.store, f.engine, notifier, logger.Discard().Logger)
	return f, svc, notifier
}

func TestReconcile_PersistsTextMatches(t *testing.T) {
	f, svc, notifier := setupReconcile(t)
	ctx := context.Background()

	ask := buildPost("ask_1", domain.PostAsk, "usr_1",
		"need fundraising help for my startup", []string{"fundraising"}, []string{"comm_1"})
	f.addPost(t, ask)

	offer := buildPost("offer_1", domain.PostOffer, "usr_2",
		"I can help with fundraising and pitch decks", []string{"fundraising"}, []string{"comm_1"})
	f.addPost(t, offer)

	require.NoError(t, svc.ReconcileAsk(ctx, "ask_1"))

	match, err := f.store.GetMatchByPair(ctx, "ask_1", "offer_1")
	require.NoError(t, err)
	assert.Equal(t, domain.InitiatedByAsk, match.InitiatedBy)
	assert.Equal(t, domain.MatchTypeTextSearch, match.MatchType)
	assert.Equal(t, "usr_1", match.AskOwnerID)
	assert.Equal(t, "usr_2", match.OfferOwnerID)
	assert.Equal(t, []string{"comm_1"}, match.Communities)
	assert.Greater(t, match.TextMatchScore, 0.0)

	require.Len(t, notifier.matches, 1)
	assert.Equal(t, match.ID, notifier.matches[0].ID)
}

func TestReconcile_DefaultConfigEndToEnd(t *testing.T) {
	f := setupEngine(t, matcher.DefaultConfig())
	notifier := &recordingNotifier{}
	svc := matcher.NewService(f.store, f.engine, notifier, logger.Discard().Logger)
	ctx := context.Background()

	ask := buildPost("ask_1", domain.PostAsk, "usr_1",
		"need fundraising help for my startup", []string{"fundraising"}, []string{"comm_1"})
	f.addPost(t, ask)

	offer := buildPost("offer_1", domain.PostOffer, "usr_2",
		"I can help with fundraising and pitch decks", []string{"fundraising"}, []string{"comm_1"})
	f.addPost(t, offer)

	// Production defaults must carry a real pairing all the way
	// through: one persisted text match and one notification.
	require.NoError(t, svc.ReconcileAsk(ctx, "ask_1"))

	match, err := f.store.GetMatchByPair(ctx, "ask_1", "offer_1")
	require.NoError(t, err)
	assert.Equal(t, domain.MatchTypeTextSearch, match.MatchType)
	assert.GreaterOrEqual(t, match.TextMatchScore, matcher.DefaultConfig().ScoreThreshold)
	require.Len(t, notifier.matches, 1)
}

func TestReconcile_OfferInitiates(t *testing.T) {
	f, svc, _ := setupReconcile(t)
	ctx := context.Background()

	ask := buildPost("ask_1", domain.PostAsk, "usr_1",
		"need fundraising help", []string{"fundraising"}, []string{"comm_1"})
	f.addPost(t, ask)

	offer := buildPost("offer_1", domain.PostOffer, "usr_2",
		"I can help with fundraising", []string{"fundraising"}, []string{"comm_1"})
	f.addPost(t, offer)

	require.NoError(t, svc.ReconcileOffer(ctx, "offer_1"))

	match, err := f.store.GetMatchByPair(ctx, "ask_1", "offer_1")
	require.NoError(t, err)
	assert.Equal(t, domain.InitiatedByOffer, match.InitiatedBy)
	assert.Equal(t, "ask_1", match.AskID)
	assert.Equal(t, "offer_1", match.OfferID)
}

func TestReconcile_Idempotent(t *testing.T) {
	f, svc, _ := setupReconcile(t)
	ctx := context.Background()

	ask := buildPost("ask_1", domain.PostAsk, "usr_1",
		"need fundraising help", []string{"fundraising"}, []string{"comm_1"})
	f.addPost(t, ask)

	offer := buildPost("offer_1", domain.PostOffer, "usr_2",
		"I can help with fundraising", []string{"fundraising"}, []string{"comm_1"})
	f.addPost(t, offer)

	require.NoError(t, svc.ReconcileAsk(ctx, "ask_1"))
	require.NoError(t, svc.ReconcileAsk(ctx, "ask_1"))

	matches, err := f.store.ListMatchesForPost(ctx, "ask_1")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestReconcile_InvalidatesStaleMatches(t *testing.T) {
	f, svc, _ := setupReconcile(t)
	ctx := context.Background()

	ask := buildPost("ask_1", domain.PostAsk, "usr_1",
		"need fundraising help", []string{"fundraising"}, []string{"comm_1"})
	f.addPost(t, ask)

	first := buildPost("offer_1", domain.PostOffer, "usr_2",
		"I can help with fundraising", []string{"fundraising"}, []string{"comm_1"})
	f.addPost(t, first)

	second := buildPost("offer_2", domain.PostOffer, "usr_3",
		"fundraising support available", []string{"fundraising"}, []string{"comm_2"})
	f.addPost(t, second)

	require.NoError(t, svc.ReconcileAsk(ctx, "ask_1"))

	matches, err := f.store.ListMatchesForPost(ctx, "ask_1")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "offer_1", matches[0].OfferID)

	// Moving the ask to comm_2 flips the eligible offer.
	ask.Communities = []string{"comm_2"}
	require.NoError(t, f.store.UpdatePost(ctx, ask))
	require.NoError(t, f.index.IndexPost(ask, ask.Tags))

	require.NoError(t, svc.ReconcileAsk(ctx, "ask_1"))

	matches, err = f.store.ListMatchesForPost(ctx, "ask_1")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "offer_2", matches[0].OfferID)

	_, err = f.store.GetMatchByPair(ctx, "ask_1", "offer_1")
	assert.Error(t, err)
}

func TestReconcile_MissingPostIsNoop(t *testing.T) {
	f, svc, notifier := setupReconcile(t)
	ctx := context.Background()

	require.NoError(t, svc.Reconcile(ctx, "ask_ghost"))
	assert.Empty(t, notifier.matches)

	matches, err := f.store.ListMatchesForPost(ctx, "ask_ghost")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestReconcile_NotifierFailureDoesNotBlock(t *testing.T) {
	f := setupEngine(t, matcher.Config{ScoreThreshold: 0.01, CandidateLimit: 10})
	svc := matcher.NewService(f.store, f.engine, failingNotifier{}, logger.Discard().Logger)
	ctx := context.Background()

	ask := buildPost("ask_1", domain.PostAsk, "usr_1",
		"need fundraising help", []string{"fundraising"}, []string{"comm_1"})
	f.addPost(t, ask)

	offer := buildPost("offer_1", domain.PostOffer, "usr_2",
		"I can help with fundraising", []string{"fundraising"}, []string{"comm_1"})
	f.addPost(t, offer)

	require.NoError(t, svc.ReconcileAsk(ctx, "ask_1"))

	matches, err := f.store.ListMatchesForPost(ctx, "ask_1")
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

type failingNotifier struct{}

func (failingNotifier) NotifyMatch(context.Context, *domain.Match) error {
	return assert.AnError
}
