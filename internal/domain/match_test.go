package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch_RecipientOwnerID(t *testing.T) {
	m := &Match{
		AskID:        "ask_1",
		AskOwnerID:   "usr_asker",
		OfferID:      "offer_1",
		OfferOwnerID: "usr_offerer",
	}

	m.InitiatedBy = InitiatedByAsk
	assert.Equal(t, "usr_offerer", m.RecipientOwnerID())

	m.InitiatedBy = InitiatedByOffer
	assert.Equal(t, "usr_asker", m.RecipientOwnerID())
}

func TestMatch_SubjectRef(t *testing.T) {
	m := &Match{AskID: "ask_1", OfferID: "offer_1"}

	m.InitiatedBy = InitiatedByAsk
	assert.Equal(t, Ref{Kind: RefAsk, ID: "ask_1"}, m.SubjectRef())

	m.InitiatedBy = InitiatedByOffer
	assert.Equal(t, Ref{Kind: RefOffer, ID: "offer_1"}, m.SubjectRef())
}
