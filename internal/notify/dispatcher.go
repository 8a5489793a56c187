// Package notify creates and serves per-user notifications. Each
// notification points at exactly one subject (ask, offer, reply, or
// chat) and tracks two independent state axes: whether the user has
// read it, and whether its email went out.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/reciprocityapp/reciprocity-server/internal/domain"
	apperrors "github.com/reciprocityapp/reciprocity-server/internal/errors"
	"github.com/reciprocityapp/reciprocity-server/internal/id"
	"github.com/reciprocityapp/reciprocity-server/internal/store"
)

// Dispatcher creates notifications for domain events and serves the
// per-user feed.
type Dispatcher struct {
	store  *store.Store
	logger *slog.Logger
}

// NewDispatcher creates a notification dispatcher.
func NewDispatcher(s *store.Store, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		store:  s,
		logger: logger,
	}
}

// NotifyMatch records a match for the owner on the side that did not
// initiate it. One notification exists per (owner, subject) pair: a
// re-reconcile of the same pairing refreshes the existing record
// instead of stacking duplicates.
func (d *Dispatcher) NotifyMatch(ctx context.Context, match *domain.Match) error {
	recipient := match.RecipientOwnerID()
	subject := match.SubjectRef()

	notifType := domain.NotificationOfferReceived
	if match.InitiatedBy == domain.InitiatedByAsk {
		notifType = domain.NotificationAskReceived
	}

	existing, err := d.store.GetNotificationByOwnerAndSubject(ctx, recipient, subject)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return err
	}

	if existing != nil {
		existing.Type = notifType
		existing.CurrentStatus = notifType
		existing.Communities = match.Communities
		existing.Touch()
		return d.store.UpdateNotification(ctx, existing)
	}

	notif, err := d.newNotification(recipient, notifType, subject, match.Communities)
	if err != nil {
		return err
	}
	if err := d.store.CreateNotification(ctx, notif); err != nil {
		return err
	}

	d.logger.Info("match notification created",
		"notification_id", notif.ID,
		"owner_id", recipient,
		"type", notifType,
		"subject", subject.String(),
	)
	return nil
}

// NotifyReply records a reply for the parent post's owner and for its
// followers. The reply author never hears about their own reply.
func (d *Dispatcher) NotifyReply(ctx context.Context, reply *domain.Reply, parent *domain.Post) error {
	subject := domain.NewRef(domain.RefReply, reply.ID)

	ownerType := domain.NotificationOfferReplyAdded
	if parent.Kind == domain.PostAsk {
		ownerType = domain.NotificationAskReplyAdded
	}

	if parent.OwnerID != reply.OwnerID {
		if err := d.create(ctx, parent.OwnerID, ownerType, subject, parent.Communities); err != nil {
			return err
		}
	}

	for _, followerID := range parent.Followers {
		if followerID == reply.OwnerID || followerID == parent.OwnerID {
			continue
		}
		if err := d.create(ctx, followerID, domain.NotificationFollowedPostReplyAdded, subject, parent.Communities); err != nil {
			d.logger.Warn("follower notification failed",
				"follower_id", followerID,
				"reply_id", reply.ID,
				"error", err,
			)
		}
	}

	return nil
}

// NotifyChat records an incoming direct message for its recipient. The
// recipient's own community memberships scope the notification since a
// chat has no visibility scope of its own.
func (d *Dispatcher) NotifyChat(ctx context.Context, chat *domain.Chat) error {
	recipient, err := d.store.Users.Get(ctx, chat.ToID)
	if err != nil {
		return err
	}

	subject := domain.NewRef(domain.RefChat, chat.ID)
	return d.create(ctx, chat.ToID, domain.NotificationChatReceived, subject, recipient.Communities)
}

// UpdateStatus records a status transition on a notification. Any
// transition updates CurrentStatus; a read-type status additionally
// stamps ReadAt the first time. The email axis is untouched.
func (d *Dispatcher) UpdateStatus(ctx context.Context, notifID string, status domain.NotificationType) (*domain.Notification, error) {
	if !status.Valid() {
		return nil, apperrors.Validationf("unknown notification status %q", status)
	}

	notif, err := d.store.GetNotification(ctx, notifID)
	if err != nil {
		return nil, err
	}

	notif.CurrentStatus = status
	notif.Touch()
	if status.IsReadEvent() {
		notif.MarkRead()
	}

	if err := d.store.UpdateNotification(ctx, notif); err != nil {
		return nil, err
	}
	return notif, nil
}

// MarkEmailSent stamps the email axis, once. Returns false if the
// email was already recorded as sent.
func (d *Dispatcher) MarkEmailSent(ctx context.Context, notifID string) (bool, error) {
	notif, err := d.store.GetNotification(ctx, notifID)
	if err != nil {
		return false, err
	}

	if !notif.MarkEmailSent() {
		return false, nil
	}
	if err := d.store.UpdateNotification(ctx, notif); err != nil {
		return false, err
	}
	return true, nil
}

// UnreadChatSenders returns the distinct users with unread messages to
// the given user, for the unread-chat badge.
func (d *Dispatcher) UnreadChatSenders(ctx context.Context, userID string) ([]string, error) {
	return d.store.UnreadChatSenders(ctx, userID)
}

// create persists a fresh notification.
func (d *Dispatcher) create(ctx context.Context, ownerID string, notifType domain.NotificationType, subject domain.Ref, communities []string) error {
	notif, err := d.newNotification(ownerID, notifType, subject, communities)
	if err != nil {
		return err
	}
	return d.store.CreateNotification(ctx, notif)
}

// newNotification assembles a notification record.
func (d *Dispatcher) newNotification(ownerID string, notifType domain.NotificationType, subject domain.Ref, communities []string) (*domain.Notification, error) {
	notifID, err := id.Generate("notif")
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &domain.Notification{
		ID:            notifID,
		OwnerID:       ownerID,
		Type:          notifType,
		CurrentStatus: notifType,
		Subject:       subject,
		Communities:   communities,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}
