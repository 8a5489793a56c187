package notify_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reciprocityapp/reciprocity-server/internal/domain"
)

func TestListFeed_ResolvesSubjects(t *testing.T) {
	s, d := setupDispatcher(t)
	ctx := context.Background()

	now := time.Now()
	owner := &domain.User{
		ID:    "usr_poster",
		Email: "poster@example.com",
		Profile: domain.Profile{
			Name: "Jordan Chen",
			Bio:  "founder",
		},
		Communities: []string{"comm_1"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.Users.Create(ctx, owner.ID, owner))

	post := &domain.Post{
		ID:          "ask_1",
		Kind:        domain.PostAsk,
		OwnerID:     "usr_poster",
		Body:        "need intros",
		Visibility:  domain.VisibilityAllCommunities,
		Communities: []string{"comm_1"},
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.CreatePost(ctx, post))

	match := testMatch(domain.InitiatedByAsk)
	match.AskOwnerID = "usr_poster"
	require.NoError(t, d.NotifyMatch(ctx, match))

	feed, err := d.ListFeed(ctx, "usr_offerer")
	require.NoError(t, err)
	require.Len(t, feed, 1)

	item := feed[0]
	require.NotNil(t, item.Post)
	assert.Equal(t, "ask_1", item.Post.ID)
	assert.Nil(t, item.Reply)
	assert.Nil(t, item.Chat)
	require.NotNil(t, item.SubjectOwner)
	assert.Equal(t, "Jordan Chen", item.SubjectOwner.Name)
}

func TestListFeed_DropsMissingSubjects(t *testing.T) {
	_, d := setupDispatcher(t)
	ctx := context.Background()

	// The subject post was never created: its cascade is lagging.
	require.NoError(t, d.NotifyMatch(ctx, testMatch(domain.InitiatedByAsk)))

	feed, err := d.ListFeed(ctx, "usr_offerer")
	require.NoError(t, err)
	assert.Empty(t, feed)
}

func TestListFeed_NewestFirst(t *testing.T) {
	s, d := setupDispatcher(t)
	ctx := context.Background()

	now := time.Now()
	for i, id := range []string{"ask_1", "ask_2"} {
		at := now.Add(time.Duration(i) * time.Minute)
		post := &domain.Post{
			ID:          id,
			Kind:        domain.PostAsk,
			OwnerID:     "usr_poster",
			Visibility:  domain.VisibilityAllCommunities,
			Communities: []string{"comm_1"},
			IsActive:    true,
			CreatedAt:   at,
			UpdatedAt:   at,
		}
		require.NoError(t, s.CreatePost(ctx, post))

		match := testMatch(domain.InitiatedByAsk)
		match.AskID = id
		require.NoError(t, d.NotifyMatch(ctx, match))
		// Badger key ordering needs distinct creation instants.
		time.Sleep(5 * time.Millisecond)
	}

	feed, err := d.ListFeed(ctx, "usr_offerer")
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, "ask_2", feed[0].Post.ID)
	assert.Equal(t, "ask_1", feed[1].Post.ID)
}

func TestListFeed_ServesEmptyCommunityRecords(t *testing.T) {
	s, d := setupDispatcher(t)
	ctx := context.Background()

	now := time.Now()
	post := &domain.Post{
		ID:          "ask_1",
		Kind:        domain.PostAsk,
		OwnerID:     "usr_poster",
		Visibility:  domain.VisibilityAllCommunities,
		Communities: []string{"comm_1"},
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.CreatePost(ctx, post))

	match := testMatch(domain.InitiatedByAsk)
	match.Communities = nil
	require.NoError(t, d.NotifyMatch(ctx, match))

	// Corrupt but still served; repair happens offline.
	feed, err := d.ListFeed(ctx, "usr_offerer")
	require.NoError(t, err)
	assert.Len(t, feed, 1)
}

func TestListFeed_ChatSubject(t *testing.T) {
	s, d := setupDispatcher(t)
	ctx := context.Background()

	now := time.Now()
	sender := &domain.User{
		ID:          "usr_from",
		Email:       "from@example.com",
		Profile:     domain.Profile{Name: "Sam Taylor"},
		Communities: []string{"comm_1"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.Users.Create(ctx, sender.ID, sender))

	recipient := &domain.User{
		ID:          "usr_to",
		Email:       "to@example.com",
		Communities: []string{"comm_1"},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.Users.Create(ctx, recipient.ID, recipient))

	chat := &domain.Chat{
		ID:        "chat_1",
		FromID:    "usr_from",
		ToID:      "usr_to",
		Message:   "hello",
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, s.CreateChat(ctx, chat))
	require.NoError(t, d.NotifyChat(ctx, chat))

	feed, err := d.ListFeed(ctx, "usr_to")
	require.NoError(t, err)
	require.Len(t, feed, 1)
	require.NotNil(t, feed[0].Chat)
	assert.Equal(t, "chat_1", feed[0].Chat.ID)
	require.NotNil(t, feed[0].SubjectOwner)
	assert.Equal(t, "Sam Taylor", feed[0].SubjectOwner.Name)
}
