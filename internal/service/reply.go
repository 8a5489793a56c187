package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/reciprocityapp/reciprocity-server/internal/domain"
	apperrors "github.com/reciprocityapp/reciprocity-server/internal/errors"
	"github.com/reciprocityapp/reciprocity-server/internal/id"
	"github.com/reciprocityapp/reciprocity-server/internal/notify"
	"github.com/reciprocityapp/reciprocity-server/internal/store"
)

// ReplyService handles the reply thread under asks and offers. Every
// reply write refreshes the parent's search blob so text matching sees
// the conversation.
type ReplyService struct {
	store      *store.Store
	posts      *PostService
	dispatcher *notify.Dispatcher
	logger     *slog.Logger
}

// NewReplyService creates a reply service.
func NewReplyService(s *store.Store, posts *PostService, dispatcher *notify.Dispatcher, logger *slog.Logger) *ReplyService {
	return &ReplyService{
		store:      s,
		posts:      posts,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// CreateReplyRequest carries the fields for a new reply.
type CreateReplyRequest struct {
	OwnerID  string          `json:"owner_id" validate:"required"`
	ParentID string          `json:"parent_id" validate:"required"`
	Kind     domain.PostKind `json:"kind" validate:"required"`
	Body     string          `json:"body" validate:"required"`
}

// CreateReply adds a reply to a post and notifies the post's owner and
// followers.
func (s *ReplyService) CreateReply(ctx context.Context, req CreateReplyRequest) (*domain.Reply, error) {
	if err := validate.Struct(req); err != nil {
		return nil, apperrors.Validation("invalid reply").WithCause(err)
	}
	if !req.Kind.Valid() {
		return nil, apperrors.Validationf("unknown post kind %q", req.Kind)
	}

	parent, err := s.store.GetPost(ctx, req.ParentID)
	if err != nil {
		return nil, err
	}
	if parent.Kind != req.Kind {
		return nil, apperrors.NotFoundf("no %s with id %s", req.Kind, req.ParentID)
	}

	replyID, err := id.Generate("reply")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	reply := &domain.Reply{
		ID:        replyID,
		OwnerID:   req.OwnerID,
		ReplyTo:   parent.Ref(),
		Body:      req.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateReply(ctx, reply); err != nil {
		return nil, err
	}

	if err := s.posts.RefreshSearchBlob(ctx, parent.ID); err != nil {
		s.logger.Warn("failed to refresh search blob",
			"post_id", parent.ID,
			"error", err,
		)
	}

	if err := s.dispatcher.NotifyReply(ctx, reply, parent); err != nil {
		s.logger.Warn("reply notification failed",
			"reply_id", reply.ID,
			"error", err,
		)
	}

	s.logger.Info("reply created",
		"reply_id", reply.ID,
		"parent", reply.ReplyTo.String(),
		"owner_id", reply.OwnerID,
	)
	return reply, nil
}

// UpdateReply edits a reply's body and refreshes the parent's blob.
func (s *ReplyService) UpdateReply(ctx context.Context, replyID, body string) (*domain.Reply, error) {
	reply, err := s.store.GetReply(ctx, replyID)
	if err != nil {
		return nil, err
	}

	reply.Body = body
	reply.Touch()
	if err := s.store.UpdateReply(ctx, reply); err != nil {
		return nil, err
	}

	if err := s.posts.RefreshSearchBlob(ctx, reply.ReplyTo.ID); err != nil {
		s.logger.Warn("failed to refresh search blob",
			"post_id", reply.ReplyTo.ID,
			"error", err,
		)
	}
	return reply, nil
}

// DeleteReply removes a reply, its notifications, and its trace in the
// parent's search blob.
func (s *ReplyService) DeleteReply(ctx context.Context, replyID string) error {
	reply, err := s.store.GetReply(ctx, replyID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteReply(ctx, replyID); err != nil {
		return err
	}

	replyRef := domain.NewRef(domain.RefReply, replyID)
	if _, err := s.store.DeleteNotificationsForSubject(ctx, replyRef); err != nil {
		s.logger.Warn("failed to delete reply notifications",
			"reply_id", replyID,
			"error", err,
		)
	}

	if err := s.posts.RefreshSearchBlob(ctx, reply.ReplyTo.ID); err != nil {
		s.logger.Warn("failed to refresh search blob",
			"post_id", reply.ReplyTo.ID,
			"error", err,
		)
	}
	return nil
}

// Upvote records an upvote on a reply. Idempotent.
func (s *ReplyService) Upvote(ctx context.Context, replyID, userID string) (*domain.Reply, error) {
	reply, err := s.store.GetReply(ctx, replyID)
	if err != nil {
		return nil, err
	}

	reply.Upvote(userID)
	reply.Touch()
	if err := s.store.UpdateReply(ctx, reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// ListReplies returns a post's reply thread in posting order.
func (s *ReplyService) ListReplies(ctx context.Context, kind domain.PostKind, postID string) ([]*domain.Reply, error) {
	return s.store.ListRepliesForParent(ctx, domain.NewRef(kind.RefKind(), postID))
}
