package domain

import (
	"slices"
	"time"
)

// Reply is a response to an Ask or Offer. ReplyTo carries the parent's
// kind so cascades and search-blob rebuilds can resolve it without
// guessing the collection.
type Reply struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`

	ReplyTo Ref `json:"reply_to"`

	Body string `json:"body"`

	Upvotes []string `json:"upvotes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Touch updates the UpdatedAt timestamp.
func (r *Reply) Touch() {
	r.UpdatedAt = time.Now()
}

// Upvote records an upvote by the given user. Idempotent.
func (r *Reply) Upvote(userID string) {
	if !slices.Contains(r.Upvotes, userID) {
		r.Upvotes = append(r.Upvotes, userID)
	}
}
