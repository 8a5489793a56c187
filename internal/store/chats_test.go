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

func newTestChat(id, fromID, toID string, at time.Time) *domain.Chat {
	return &domain.Chat{
		ID:        id,
		FromID:    fromID,
		ToID:      toID,
		Message:   "hello from " + fromID,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestCreateChat_Roundtrip(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	c := newTestChat("chat_1", "usr_1", "usr_2", time.Now())
	require.NoError(t, s.CreateChat(ctx, c))

	got, err := s.GetChat(ctx, "chat_1")
	require.NoError(t, err)
	assert.Equal(t, "usr_1", got.FromID)
	assert.Equal(t, "usr_2", got.ToID)
	assert.False(t, got.IsRead())
}

func TestListChatsForRecipient_NewestFirst(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	base := time.Now()
	require.NoError(t, s.CreateChat(ctx, newTestChat("chat_a", "usr_1", "usr_9", base)))
	require.NoError(t, s.CreateChat(ctx, newTestChat("chat_b", "usr_2", "usr_9", base.Add(time.Minute))))
	// Sent chats never show up in the recipient listing.
	require.NoError(t, s.CreateChat(ctx, newTestChat("chat_c", "usr_9", "usr_1", base)))

	chats, err := s.ListChatsForRecipient(ctx, "usr_9")
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, "chat_b", chats[0].ID)
	assert.Equal(t, "chat_a", chats[1].ID)
}

func TestUnreadChatSenders_Distinct(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, s.CreateChat(ctx, newTestChat("chat_1", "usr_1", "usr_9", now)))
	require.NoError(t, s.CreateChat(ctx, newTestChat("chat_2", "usr_1", "usr_9", now)))
	require.NoError(t, s.CreateChat(ctx, newTestChat("chat_3", "usr_2", "usr_9", now)))

	read := newTestChat("chat_4", "usr_3", "usr_9", now)
	read.MarkRead()
	require.NoError(t, s.CreateChat(ctx, read))

	senders, err := s.UnreadChatSenders(ctx, "usr_9")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"usr_1", "usr_2"}, senders)
}

func TestUpdateChat_MarkRead(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	c := newTestChat("chat_1", "usr_1", "usr_2", time.Now())
	require.NoError(t, s.CreateChat(ctx, c))

	require.True(t, c.MarkRead())
	require.NoError(t, s.UpdateChat(ctx, c))

	got, err := s.GetChat(ctx, "chat_1")
	require.NoError(t, err)
	assert.True(t, got.IsRead())

	// Second read is a no-op on the domain object.
	assert.False(t, got.MarkRead())
}

func TestDeleteChat_Idempotent(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	c := newTestChat("chat_1", "usr_1", "usr_2", time.Now())
	require.NoError(t, s.CreateChat(ctx, c))

	require.NoError(t, s.DeleteChat(ctx, "chat_1"))
	_, err := s.GetChat(ctx, "chat_1")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.DeleteChat(ctx, "chat_1"))
}
