package domain

import (
	"slices"
	"time"
)

// PostKind discriminates the two symmetric post collections.
type PostKind string

const (
	PostAsk   PostKind = "ask"
	PostOffer PostKind = "offer"
)

// Valid checks if the kind is ask or offer.
func (k PostKind) Valid() bool {
	return k == PostAsk || k == PostOffer
}

// Opposite returns the kind a post of this kind is matched against.
func (k PostKind) Opposite() PostKind {
	if k == PostAsk {
		return PostOffer
	}
	return PostAsk
}

// RefKind returns the reference kind for posts of this kind.
func (k PostKind) RefKind() RefKind {
	if k == PostAsk {
		return RefAsk
	}
	return RefOffer
}

// Visibility controls which communities can see a post.
type Visibility string

const (
	VisibilityPublic              Visibility = "public"
	VisibilityAllCommunities      Visibility = "all-communities"
	VisibilitySpecificCommunities Visibility = "specific-communities"
)

// Valid checks if the visibility is a known scope.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPublic, VisibilityAllCommunities, VisibilitySpecificCommunities:
		return true
	default:
		return false
	}
}

// LookingFor categorizes what an ask is after.
type LookingFor string

const (
	LookingForAdvice         LookingFor = "advice"
	LookingForRecommendation LookingFor = "recommendation"
	LookingForConnection     LookingFor = "connection"
	LookingForPartner        LookingFor = "partner"
	LookingForOther          LookingFor = "other"
)

// ResponseType categorizes how the poster wants to be answered.
type ResponseType string

const (
	ResponseQuickReply ResponseType = "quick-reply"
	ResponseChat       ResponseType = "chat"
	ResponseOther      ResponseType = "other"
)

// Post is an Ask (request for help) or an Offer (help available),
// discriminated by Kind. The two collections are symmetric: the matching
// engine pairs a post against the opposite kind.
type Post struct {
	ID      string   `json:"id"`
	Kind    PostKind `json:"kind"`
	OwnerID string   `json:"owner_id"`

	Body string `json:"body"`

	// Tags holds canonical tag keys only, never raw user text.
	// Order is first-seen order from the owner's input.
	Tags []string `json:"tags,omitempty"`

	LookingFor   LookingFor   `json:"looking_for,omitempty"`
	ResponseType ResponseType `json:"response_type,omitempty"`

	Visibility Visibility `json:"visibility"`

	// Communities the post is visible to. For non-public posts with no
	// explicit selection this defaults to the owner's memberships at
	// creation time.
	Communities []string `json:"communities,omitempty"`

	Upvotes   []string `json:"upvotes,omitempty"`
	Followers []string `json:"followers,omitempty"`

	// RepliesSearchBlob is the lowercased concatenation of all reply
	// bodies, kept as relevance-scoring context for text matching.
	RepliesSearchBlob string `json:"replies_search_blob,omitempty"`

	SelectedResponseID string `json:"selected_response_id,omitempty"`

	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (p *Post) Touch() {
	p.UpdatedAt = time.Now()
}

// Ref returns a typed reference to this post.
func (p *Post) Ref() Ref {
	return NewRef(p.Kind.RefKind(), p.ID)
}

// HasTag reports whether the post carries the given canonical tag key.
func (p *Post) HasTag(key string) bool {
	return slices.Contains(p.Tags, key)
}

// SharesCommunityWith reports whether the two posts are visible to at
// least one community in common.
func (p *Post) SharesCommunityWith(other *Post) bool {
	for _, c := range p.Communities {
		if slices.Contains(other.Communities, c) {
			return true
		}
	}
	return false
}

// SharedCommunities returns the union of both posts' community sets,
// deduplicated, preserving this post's order first.
func (p *Post) SharedCommunities(other *Post) []string {
	union := make([]string, 0, len(p.Communities)+len(other.Communities))
	seen := make(map[string]bool, cap(union))
	for _, c := range p.Communities {
		if !seen[c] {
			seen[c] = true
			union = append(union, c)
		}
	}
	for _, c := range other.Communities {
		if !seen[c] {
			seen[c] = true
			union = append(union, c)
		}
	}
	return union
}

// Upvote records an upvote by the given user. Idempotent.
func (p *Post) Upvote(userID string) {
	if !slices.Contains(p.Upvotes, userID) {
		p.Upvotes = append(p.Upvotes, userID)
	}
}

// Follow records the given user as a follower. Idempotent.
func (p *Post) Follow(userID string) {
	if !slices.Contains(p.Followers, userID) {
		p.Followers = append(p.Followers, userID)
	}
}
