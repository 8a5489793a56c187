package domain

import "time"

// MatchInitiator records which side's edit triggered the match.
type MatchInitiator string

const (
	InitiatedByAsk   MatchInitiator = "ask"
	InitiatedByOffer MatchInitiator = "offer"
)

// MatchType records how the pairing was found.
type MatchType string

const (
	// MatchTypeTag marks an exact tag-set intersection.
	MatchTypeTag MatchType = "tagMatch"
	// MatchTypeTextSearch marks a relevance-scored text pairing.
	MatchTypeTextSearch MatchType = "textSearch"
)

// Match pairs exactly one Ask with one Offer. At most one Match exists per
// (ask, offer) pair; writes go through an upsert keyed by the pair, never
// a bare insert.
type Match struct {
	ID string `json:"id"`

	AskID      string `json:"ask_id"`
	AskOwnerID string `json:"ask_owner_id"`

	OfferID      string `json:"offer_id"`
	OfferOwnerID string `json:"offer_owner_id"`

	InitiatedBy MatchInitiator `json:"initiated_by"`
	MatchType   MatchType      `json:"match_type"`

	// TextMatchScore is set only for textSearch matches.
	TextMatchScore float64 `json:"text_match_score,omitempty"`

	// Communities is the union of both sides' community sets.
	Communities []string `json:"communities"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RecipientOwnerID returns the owner to notify about this match: the side
// that did not initiate it.
func (m *Match) RecipientOwnerID() string {
	if m.InitiatedBy == InitiatedByAsk {
		return m.OfferOwnerID
	}
	return m.AskOwnerID
}

// SubjectRef returns the post the notification recipient should be shown:
// the initiating side's post.
func (m *Match) SubjectRef() Ref {
	if m.InitiatedBy == InitiatedByAsk {
		return NewRef(RefAsk, m.AskID)
	}
	return NewRef(RefOffer, m.OfferID)
}

// Touch updates the UpdatedAt timestamp.
func (m *Match) Touch() {
	m.UpdatedAt = time.Now()
}
