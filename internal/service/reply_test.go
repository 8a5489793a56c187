package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reciprocityapp/reciprocity-server/internal/domain"
	apperrors "github.com/reciprocityapp/reciprocity-server/internal/errors"
	"github.com/reciprocityapp/reciprocity-server/internal/service"
	"github.com/reciprocityapp/reciprocity-server/internal/store"
)

func TestCreateReply(t *testing.T) {
	f := setupServices(t)
	ctx := context.Background()
	f.seedUser(t, "usr_owner", "comm_1")
	f.seedUser(t, "usr_author", "comm_1")

	post, err := f.posts.CreateAsk(ctx, service.CreatePostRequest{
		OwnerID: "usr_owner",
		Body:    "need interview prep partners",
	})
	require.NoError(t, err)

	reply, err := f.replies.CreateReply(ctx, service.CreateReplyRequest{
		OwnerID:  "usr_author",
		ParentID: post.ID,
		Kind:     domain.PostAsk,
		Body:     "count me in",
	})
	require.NoError(t, err)
	assert.Equal(t, post.Ref(), reply.ReplyTo)

	thread, err := f.replies.ListReplies(ctx, domain.PostAsk, post.ID)
	require.NoError(t, err)
	require.Len(t, thread, 1)
	assert.Equal(t, reply.ID, thread[0].ID)

	// The owner was notified about the reply.
	notifs, err := f.store.ListNotificationsForOwner(ctx, "usr_owner")
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Equal(t, domain.NotificationAskReplyAdded, notifs[0].Type)
}

func TestCreateReply_KindMismatch(t *testing.T) {
	f := setupServices(t)
	ctx := context.Background()
	f.seedUser(t, "usr_owner", "comm_1")

	post, err := f.posts.CreateAsk(ctx, service.CreatePostRequest{
		OwnerID: "usr_owner",
		Body:    "an ask, not an offer",
	})
	require.NoError(t, err)

	_, err = f.replies.CreateReply(ctx, service.CreateReplyRequest{
		OwnerID:  "usr_owner",
		ParentID: post.ID,
		Kind:     domain.PostOffer,
		Body:     "wrong door",
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCreateReply_MissingParent(t *testing.T) {
	f := setupServices(t)
	f.seedUser(t, "usr_author", "comm_1")

	_, err := f.replies.CreateReply(context.Background(), service.CreateReplyRequest{
		OwnerID:  "usr_author",
		ParentID: "ask_ghost",
		Kind:     domain.PostAsk,
		Body:     "hello?",
	})
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateReply_RefreshesBlob(t *testing.T) {
	f := setupServices(t)
	ctx := context.Background()
	f.seedUser(t, "usr_owner", "comm_1")
	f.seedUser(t, "usr_author", "comm_1")

	post, err := f.posts.CreateAsk(ctx, service.CreatePostRequest{
		OwnerID: "usr_owner",
		Body:    "need a venue",
	})
	require.NoError(t, err)

	reply, err := f.replies.CreateReply(ctx, service.CreateReplyRequest{
		OwnerID:  "usr_author",
		ParentID: post.ID,
		Kind:     domain.PostAsk,
		Body:     "first suggestion",
	})
	require.NoError(t, err)

	_, err = f.replies.UpdateReply(ctx, reply.ID, "Better Suggestion")
	require.NoError(t, err)

	stored, err := f.store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "better suggestion", stored.RepliesSearchBlob)
}

func TestDeleteReply_CleansUp(t *testing.T) {
	f := setupServices(t)
	ctx := context.Background()
	f.seedUser(t, "usr_owner", "comm_1")
	f.seedUser(t, "usr_author", "comm_1")

	post, err := f.posts.CreateAsk(ctx, service.CreatePostRequest{
		OwnerID: "usr_owner",
		Body:    "need movers",
	})
	require.NoError(t, err)

	reply, err := f.replies.CreateReply(ctx, service.CreateReplyRequest{
		OwnerID:  "usr_author",
		ParentID: post.ID,
		Kind:     domain.PostAsk,
		Body:     "I have a truck",
	})
	require.NoError(t, err)

	require.NoError(t, f.replies.DeleteReply(ctx, reply.ID))

	_, err = f.store.GetReply(ctx, reply.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	// The owner's reply notification went with it.
	notifs, err := f.store.ListNotificationsForOwner(ctx, "usr_owner")
	require.NoError(t, err)
	assert.Empty(t, notifs)

	stored, err := f.store.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.RepliesSearchBlob)
}

func TestReplyUpvote_Idempotent(t *testing.T) {
	f := setupServices(t)
	ctx := context.Background()
	f.seedUser(t, "usr_owner", "comm_1")
	f.seedUser(t, "usr_author", "comm_1")

	post, err := f.posts.CreateAsk(ctx, service.CreatePostRequest{
		OwnerID: "usr_owner",
		Body:    "best CRM for a small team",
	})
	require.NoError(t, err)

	reply, err := f.replies.CreateReply(ctx, service.CreateReplyRequest{
		OwnerID:  "usr_author",
		ParentID: post.ID,
		Kind:     domain.PostAsk,
		Body:     "we like Attio",
	})
	require.NoError(t, err)

	_, err = f.replies.Upvote(ctx, reply.ID, "usr_owner")
	require.NoError(t, err)
	updated, err := f.replies.Upvote(ctx, reply.ID, "usr_owner")
	require.NoError(t, err)
	assert.Equal(t, []string{"usr_owner"}, updated.Upvotes)
}
