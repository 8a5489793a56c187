// Package service orchestrates the content lifecycle: posts, replies,
// and chats. Services normalize and validate input, keep the search
// index in step with the store, and publish lifecycle events for the
// matching and cascade subsystems.
package service

import (
	"context"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/reciprocityapp/reciprocity-server/internal/cascade"
	"github.com/reciprocityapp/reciprocity-server/internal/domain"
	apperrors "github.com/reciprocityapp/reciprocity-server/internal/errors"
	"github.com/reciprocityapp/reciprocity-server/internal/events"
	"github.com/reciprocityapp/reciprocity-server/internal/id"
	"github.com/reciprocityapp/reciprocity-server/internal/store"
	"github.com/reciprocityapp/reciprocity-server/internal/tags"
)

// validate is a shared validator instance for request validation.
var validate = func() *validator.Validate {
	v := validator.New()
	// Use JSON tag names for field names in error messages
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := fld.Tag.Get("json")
		if name == "" {
			return fld.Name
		}
		// Remove any options (like omitempty, -)
		for i := range len(name) {
			if name[i] == ',' {
				return name[:i]
			}
		}
		return name
	})
	return v
}()

// PostService handles the ask/offer lifecycle.
type PostService struct {
	store     *store.Store
	directory *tags.Directory
	indexer   store.SearchIndexer
	cascades  *cascade.Manager
	bus       *events.Bus
	logger    *slog.Logger
}

// NewPostService creates a post service.
func NewPostService(
	s *store.Store,
	directory *tags.Directory,
	indexer store.SearchIndexer,
	cascades *cascade.Manager,
	bus *events.Bus,
	logger *slog.Logger,
) *PostService {
	if indexer == nil {
		indexer = store.NoopSearchIndexer{}
	}
	return &PostService{
		store:     s,
		directory: directory,
		indexer:   indexer,
		cascades:  cascades,
		bus:       bus,
		logger:    logger,
	}
}

// CreatePostRequest carries the fields for a new ask or offer.
type CreatePostRequest struct {
	OwnerID string   `json:"owner_id" validate:"required"`
	Body    string   `json:"body" validate:"required"`
	Tags    []string `json:"tags"`

	LookingFor   domain.LookingFor   `json:"looking_for"`
	ResponseType domain.ResponseType `json:"response_type"`

	Visibility  domain.Visibility `json:"visibility"`
	Communities []string          `json:"communities"`
}

// CreateAsk creates a new ask.
func (s *PostService) CreateAsk(ctx context.Context, req CreatePostRequest) (*domain.Post, error) {
	return s.create(ctx, domain.PostAsk, req)
}

// CreateOffer creates a new offer.
func (s *PostService) CreateOffer(ctx context.Context, req CreatePostRequest) (*domain.Post, error) {
	return s.create(ctx, domain.PostOffer, req)
}

func (s *PostService) create(ctx context.Context, kind domain.PostKind, req CreatePostRequest) (*domain.Post, error) {
	if err := validate.Struct(req); err != nil {
		return nil, apperrors.Validation("invalid post").WithCause(err)
	}

	owner, err := s.store.Users.Get(ctx, req.OwnerID)
	if err != nil {
		return nil, err
	}

	visibility := req.Visibility
	if visibility == "" {
		visibility = domain.VisibilityAllCommunities
	}
	if !visibility.Valid() {
		return nil, apperrors.Validationf("unknown visibility %q", visibility)
	}

	// Non-public posts with no explicit scope default to every
	// community the owner belongs to.
	communities := req.Communities
	if visibility != domain.VisibilityPublic && len(communities) == 0 {
		communities = owner.Communities
	}

	tagKeys, err := s.canonicalize(ctx, req.Tags)
	if err != nil {
		return nil, err
	}

	postID, err := id.Generate(string(kind))
	if err != nil {
		return nil, err
	}

	now := time.Now()
	post := &domain.Post{
		ID:           postID,
		Kind:         kind,
		OwnerID:      owner.ID,
		Body:         req.Body,
		Tags:         tagKeys,
		LookingFor:   req.LookingFor,
		ResponseType: req.ResponseType,
		Visibility:   visibility,
		Communities:  communities,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreatePost(ctx, post); err != nil {
		return nil, err
	}

	s.index(ctx, post)
	s.bus.PublishSaved(ctx, events.DocumentSaved{
		Kind:        kind,
		ID:          post.ID,
		IsNew:       true,
		BodyChanged: true,
	})

	s.logger.Info("post created",
		"post_id", post.ID,
		"kind", kind,
		"owner_id", owner.ID,
		"tags", len(tagKeys),
	)
	return post, nil
}

// UpdatePostRequest carries the mutable fields of a post. Nil pointers
// leave the field untouched.
type UpdatePostRequest struct {
	ID string `json:"id" validate:"required"`

	Body *string   `json:"body,omitempty"`
	Tags *[]string `json:"tags,omitempty"`

	LookingFor   *domain.LookingFor   `json:"looking_for,omitempty"`
	ResponseType *domain.ResponseType `json:"response_type,omitempty"`

	Visibility  *domain.Visibility `json:"visibility,omitempty"`
	Communities *[]string          `json:"communities,omitempty"`

	IsActive *bool `json:"is_active,omitempty"`
}

// UpdatePost applies an edit to a post. Match reconciliation is keyed
// off the published BodyChanged flag, not the save itself.
func (s *PostService) UpdatePost(ctx context.Context, req UpdatePostRequest) (*domain.Post, error) {
	if err := validate.Struct(req); err != nil {
		return nil, apperrors.Validation("invalid post update").WithCause(err)
	}

	post, err := s.store.GetPost(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	bodyChanged := false
	if req.Body != nil && *req.Body != post.Body {
		post.Body = *req.Body
		bodyChanged = true
	}
	if req.Tags != nil {
		tagKeys, err := s.canonicalize(ctx, *req.Tags)
		if err != nil {
			return nil, err
		}
		post.Tags = tagKeys
	}
	if req.LookingFor != nil {
		post.LookingFor = *req.LookingFor
	}
	if req.ResponseType != nil {
		post.ResponseType = *req.ResponseType
	}
	if req.Visibility != nil {
		if !req.Visibility.Valid() {
			return nil, apperrors.Validationf("unknown visibility %q", *req.Visibility)
		}
		post.Visibility = *req.Visibility
	}
	if req.Communities != nil {
		post.Communities = *req.Communities
	}
	if req.IsActive != nil {
		post.IsActive = *req.IsActive
	}
	post.Touch()

	if err := s.store.UpdatePost(ctx, post); err != nil {
		return nil, err
	}

	s.index(ctx, post)
	s.bus.PublishSaved(ctx, events.DocumentSaved{
		Kind:        post.Kind,
		ID:          post.ID,
		BodyChanged: bodyChanged,
	})

	s.logger.Info("post updated",
		"post_id", post.ID,
		"kind", post.Kind,
		"body_changed", bodyChanged,
	)
	return post, nil
}

// GetPost returns a post by ID.
func (s *PostService) GetPost(ctx context.Context, postID string) (*domain.Post, error) {
	return s.store.GetPost(ctx, postID)
}

// FindPosts returns posts matching the filter, oldest first.
func (s *PostService) FindPosts(ctx context.Context, filter store.PostFilter) ([]*domain.Post, error) {
	return s.store.FindPosts(ctx, filter)
}

// Upvote records an upvote by the given user. Idempotent.
func (s *PostService) Upvote(ctx context.Context, postID, userID string) (*domain.Post, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	post.Upvote(userID)
	post.Touch()
	if err := s.store.UpdatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// Follow subscribes the given user to the post's reply notifications.
// Idempotent.
func (s *PostService) Follow(ctx context.Context, postID, userID string) (*domain.Post, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	post.Follow(userID)
	post.Touch()
	if err := s.store.UpdatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// SelectResponse marks a reply as the post's accepted response. The
// reply must belong to the post.
func (s *PostService) SelectResponse(ctx context.Context, postID, replyID string) (*domain.Post, error) {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return nil, err
	}

	reply, err := s.store.GetReply(ctx, replyID)
	if err != nil {
		return nil, err
	}
	if reply.ReplyTo != post.Ref() {
		return nil, apperrors.Validationf("reply %s does not belong to post %s", replyID, postID)
	}

	post.SelectedResponseID = replyID
	post.Touch()
	if err := s.store.UpdatePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// RefreshSearchBlob recomputes the post's reply blob from its current
// reply thread and reindexes. Reply writes call this so text matching
// can see conversation content.
func (s *PostService) RefreshSearchBlob(ctx context.Context, postID string) error {
	post, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return err
	}

	replies, err := s.store.ListRepliesForParent(ctx, post.Ref())
	if err != nil {
		return err
	}

	pieces := make([]string, 0, len(replies))
	for _, reply := range replies {
		pieces = append(pieces, reply.Body)
	}
	post.RepliesSearchBlob = strings.ToLower(strings.Join(pieces, " "))
	post.Touch()

	if err := s.store.UpdatePost(ctx, post); err != nil {
		return err
	}
	s.index(ctx, post)
	return nil
}

// DeletePost removes a post and everything that references it, then
// announces the removal. Deleting an already-deleted post is a no-op.
func (s *PostService) DeletePost(ctx context.Context, kind domain.PostKind, postID string) error {
	if err := s.cascades.DeletePost(ctx, kind, postID); err != nil {
		return err
	}
	s.bus.PublishRemoved(ctx, events.DocumentRemoved{Kind: kind, ID: postID})
	return nil
}

// DeletePostsWhere removes every post matching the filter, cascades
// included.
func (s *PostService) DeletePostsWhere(ctx context.Context, filter store.PostFilter) (int, error) {
	// The cascade resolves the affected set once; removal events come
	// from that same set so a post created or deleted mid-sweep never
	// gets an event without a cascade.
	ids, err := s.cascades.DeletePostsWhere(ctx, filter)
	if err != nil {
		return 0, err
	}

	for _, postID := range ids {
		s.bus.PublishRemoved(ctx, events.DocumentRemoved{Kind: filter.Kind, ID: postID})
	}
	return len(ids), nil
}

// ReindexAll rebuilds the search index from the document store. Used
// at startup when the index is empty or its mapping version changed.
func (s *PostService) ReindexAll(ctx context.Context) (int, error) {
	posts, err := s.store.FindPosts(ctx, store.PostFilter{})
	if err != nil {
		return 0, err
	}

	for _, post := range posts {
		names := s.directory.DisplayNames(ctx, post.Tags)
		if err := s.indexer.IndexPost(post, names); err != nil {
			return 0, err
		}
	}
	return len(posts), nil
}

// canonicalize resolves raw tag input to canonical keys.
func (s *PostService) canonicalize(ctx context.Context, raw []string) ([]string, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	resolved, err := s.directory.Canonicalize(ctx, raw)
	if err != nil {
		return nil, err
	}
	return tags.Keys(resolved), nil
}

// index pushes the post into the search index, best effort. A failed
// index write degrades text matching but never fails the save.
func (s *PostService) index(ctx context.Context, post *domain.Post) {
	names := s.directory.DisplayNames(ctx, post.Tags)
	if err := s.indexer.IndexPost(post, names); err != nil {
		s.logger.Warn("failed to index post",
			"post_id", post.ID,
			"error", err,
		)
	}
}
