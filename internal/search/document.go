// Package search provides full-text relevance scoring using Bleve.
// Posts are indexed with their body, tag names, and a blob of reply
// text so that an ask can surface offers whose wording only appears in
// the conversation under them.
package search

import (
	"github.com/reciprocityapp/reciprocity-server/internal/domain"
)

// PostDocument is the document structure for the Bleve index.
//
// Design note: tag display names are denormalized into the document so
// a single query scores body, replies, and tags together with per-field
// boosts instead of joining against the tag directory at query time.
type PostDocument struct {
	// Identity
	ID   string `json:"id"`
	Kind string `json:"kind"` // ask or offer, for result scoping

	// Searchable text
	Body        string   `json:"body"`
	Tags        []string `json:"tags,omitempty"`         // Denormalized display names
	RepliesBlob string   `json:"replies_blob,omitempty"` // Concatenated reply bodies

	// Scoping fields (exact match only)
	OwnerID     string   `json:"owner_id"`
	Communities []string `json:"communities,omitempty"`

	// Timestamps for sorting
	CreatedAt int64 `json:"created_at"` // Unix millis
	UpdatedAt int64 `json:"updated_at"` // Unix millis
}

// ToMap converts the document to a map with lowercase field names.
// Bleve by default uses Go struct field names (capitalized), but our
// mapping uses lowercase names, so we convert explicitly.
func (d *PostDocument) ToMap() map[string]interface{} {
	m := map[string]interface{}{
		"id":         d.ID,
		"kind":       d.Kind,
		"body":       d.Body,
		"owner_id":   d.OwnerID,
		"created_at": d.CreatedAt,
		"updated_at": d.UpdatedAt,
	}

	if len(d.Tags) > 0 {
		m["tags"] = d.Tags
	}
	if d.RepliesBlob != "" {
		m["replies_blob"] = d.RepliesBlob
	}
	if len(d.Communities) > 0 {
		m["communities"] = d.Communities
	}

	return m
}

// PostToDocument converts a domain Post to a PostDocument.
// Tag display names must be provided by the caller, as the search
// package shouldn't depend on store.
func PostToDocument(post *domain.Post, tagNames []string) *PostDocument {
	return &PostDocument{
		ID:          post.ID,
		Kind:        string(post.Kind),
		Body:        post.Body,
		Tags:        tagNames,
		RepliesBlob: post.RepliesSearchBlob,
		OwnerID:     post.OwnerID,
		Communities: post.Communities,
		CreatedAt:   post.CreatedAt.UnixMilli(),
		UpdatedAt:   post.UpdatedAt.UnixMilli(),
	}
}
