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

// ChatService handles direct messages between matched users.
type ChatService struct {
	store      *store.Store
	dispatcher *notify.Dispatcher
	logger     *slog.Logger
}

// NewChatService creates a chat service.
func NewChatService(s *store.Store, dispatcher *notify.Dispatcher, logger *slog.Logger) *ChatService {
	return &ChatService{
		store:      s,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// SendChatRequest carries the fields for a new direct message.
type SendChatRequest struct {
	FromID  string `json:"from_id" validate:"required"`
	ToID    string `json:"to_id" validate:"required"`
	Message string `json:"message" validate:"required"`
}

// SendChat delivers a direct message and notifies the recipient.
func (s *ChatService) SendChat(ctx context.Context, req SendChatRequest) (*domain.Chat, error) {
	if err := validate.Struct(req); err != nil {
		return nil, apperrors.Validation("invalid chat").WithCause(err)
	}
	if req.FromID == req.ToID {
		return nil, apperrors.Validation("cannot chat with yourself")
	}

	// Both ends must exist.
	if _, err := s.store.Users.Get(ctx, req.FromID); err != nil {
		return nil, err
	}
	if _, err := s.store.Users.Get(ctx, req.ToID); err != nil {
		return nil, err
	}

	chatID, err := id.Generate("chat")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	chat := &domain.Chat{
		ID:        chatID,
		FromID:    req.FromID,
		ToID:      req.ToID,
		Message:   req.Message,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateChat(ctx, chat); err != nil {
		return nil, err
	}

	if err := s.dispatcher.NotifyChat(ctx, chat); err != nil {
		s.logger.Warn("chat notification failed",
			"chat_id", chat.ID,
			"error", err,
		)
	}

	s.logger.Info("chat sent",
		"chat_id", chat.ID,
		"from_id", chat.FromID,
		"to_id", chat.ToID,
	)
	return chat, nil
}

// MarkRead stamps a chat as read by its recipient. Only the recipient
// may mark it, and only the first call changes anything.
func (s *ChatService) MarkRead(ctx context.Context, chatID, userID string) (*domain.Chat, error) {
	chat, err := s.store.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.ToID != userID {
		return nil, apperrors.Validation("only the recipient can mark a chat read")
	}

	if chat.MarkRead() {
		if err := s.store.UpdateChat(ctx, chat); err != nil {
			return nil, err
		}
	}
	return chat, nil
}

// ListReceived returns the user's received chats newest-first.
func (s *ChatService) ListReceived(ctx context.Context, userID string) ([]*domain.Chat, error) {
	return s.store.ListChatsForRecipient(ctx, userID)
}

// UnreadSenders returns the distinct users with unread messages to the
// given user.
func (s *ChatService) UnreadSenders(ctx context.Context, userID string) ([]string, error) {
	return s.store.UnreadChatSenders(ctx, userID)
}
