package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reciprocityapp/reciprocity-server/internal/domain"
	"github.com/reciprocityapp/reciprocity-server/internal/store"
)

func newTestReply(id, ownerID string, parent domain.Ref, at time.Time) *domain.Reply {
	return &domain.Reply{
		ID:        id,
		OwnerID:   ownerID,
		ReplyTo:   parent,
		Body:      "reply body " + id,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestCreateReply_Roundtrip(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	parent := domain.NewRef(domain.RefAsk, "ask_1")
	r := newTestReply("reply_1", "usr_1", parent, time.Now())
	require.NoError(t, s.CreateReply(ctx, r))

	got, err := s.GetReply(ctx, "reply_1")
	require.NoError(t, err)
	assert.Equal(t, parent, got.ReplyTo)
	assert.Equal(t, r.Body, got.Body)
}

func TestListRepliesForParent_Ordered(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	parent := domain.NewRef(domain.RefAsk, "ask_1")
	base := time.Now()
	require.NoError(t, s.CreateReply(ctx, newTestReply("reply_b", "usr_2", parent, base.Add(time.Minute))))
	require.NoError(t, s.CreateReply(ctx, newTestReply("reply_a", "usr_1", parent, base)))
	// Same ID under a different parent kind must not leak in.
	other := domain.NewRef(domain.RefOffer, "ask_1")
	require.NoError(t, s.CreateReply(ctx, newTestReply("reply_c", "usr_3", other, base)))

	replies, err := s.ListRepliesForParent(ctx, parent)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, "reply_a", replies[0].ID)
	assert.Equal(t, "reply_b", replies[1].ID)
}

func TestDeleteRepliesForParent_ReturnsIDs(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	parent := domain.NewRef(domain.RefOffer, "offer_1")
	now := time.Now()
	require.NoError(t, s.CreateReply(ctx, newTestReply("reply_1", "usr_1", parent, now)))
	require.NoError(t, s.CreateReply(ctx, newTestReply("reply_2", "usr_2", parent, now)))

	deleted, err := s.DeleteRepliesForParent(ctx, parent)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"reply_1", "reply_2"}, deleted)

	_, err = s.GetReply(ctx, "reply_1")
	require.ErrorIs(t, err, store.ErrNotFound)

	remaining, err := s.ListRepliesForParent(ctx, parent)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestDeleteReply_Idempotent(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()

	require.NoError(t, s.DeleteReply(context.Background(), "nonexistent"))
}
