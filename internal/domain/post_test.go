package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPostKind_Opposite(t *testing.T) {
	assert.Equal(t, PostOffer, PostAsk.Opposite())
	assert.Equal(t, PostAsk, PostOffer.Opposite())
}

func TestPostKind_Valid(t *testing.T) {
	assert.True(t, PostAsk.Valid())
	assert.True(t, PostOffer.Valid())
	assert.False(t, PostKind("book").Valid())
	assert.False(t, PostKind("").Valid())
}

func TestVisibility_Valid(t *testing.T) {
	assert.True(t, VisibilityPublic.Valid())
	assert.True(t, VisibilityAllCommunities.Valid())
	assert.True(t, VisibilitySpecificCommunities.Valid())
	assert.False(t, Visibility("friends-only").Valid())
}

func TestPost_Ref(t *testing.T) {
	ask := &Post{ID: "ask_1", Kind: PostAsk}
	assert.Equal(t, Ref{Kind: RefAsk, ID: "ask_1"}, ask.Ref())

	offer := &Post{ID: "offer_1", Kind: PostOffer}
	assert.Equal(t, Ref{Kind: RefOffer, ID: "offer_1"}, offer.Ref())
}

func TestPost_SharesCommunityWith(t *testing.T) {
	a := &Post{Communities: []string{"comm_1", "comm_2"}}
	b := &Post{Communities: []string{"comm_2", "comm_3"}}
	c := &Post{Communities: []string{"comm_4"}}
	empty := &Post{}

	assert.True(t, a.SharesCommunityWith(b))
	assert.True(t, b.SharesCommunityWith(a))
	assert.False(t, a.SharesCommunityWith(c))
	assert.False(t, a.SharesCommunityWith(empty))
	assert.False(t, empty.SharesCommunityWith(empty))
}

func TestPost_SharedCommunities(t *testing.T) {
	a := &Post{Communities: []string{"comm_1", "comm_2"}}
	b := &Post{Communities: []string{"comm_2", "comm_3"}}

	assert.Equal(t, []string{"comm_1", "comm_2", "comm_3"}, a.SharedCommunities(b))
}

func TestPost_UpvoteAndFollow_Idempotent(t *testing.T) {
	p := &Post{}

	p.Upvote("usr_1")
	p.Upvote("usr_1")
	p.Upvote("usr_2")
	assert.Equal(t, []string{"usr_1", "usr_2"}, p.Upvotes)

	p.Follow("usr_1")
	p.Follow("usr_1")
	assert.Equal(t, []string{"usr_1"}, p.Followers)
}
