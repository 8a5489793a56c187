package notify

import (
	"context"
	"errors"

	"github.com/reciprocityapp/reciprocity-server/internal/domain"
	"github.com/reciprocityapp/reciprocity-server/internal/store"
)

// FeedItem is one notification with its subject eagerly resolved.
// Exactly one of Post, Reply, Chat is set, per the subject's kind, and
// SubjectOwner carries the public profile of whoever produced the
// subject (the post's owner, the reply's author, the chat's sender).
type FeedItem struct {
	Notification *domain.Notification `json:"notification"`

	Post  *domain.Post  `json:"post,omitempty"`
	Reply *domain.Reply `json:"reply,omitempty"`
	Chat  *domain.Chat  `json:"chat,omitempty"`

	SubjectOwner *domain.Profile `json:"subject_owner,omitempty"`
}

// ListFeed returns the user's notifications newest-first with subjects
// and subject-owner profiles resolved. A notification whose subject is
// gone is dropped from the feed (its cascade is lagging); one with an
// empty community set is logged as corrupt but still served, since
// repair happens offline.
func (d *Dispatcher) ListFeed(ctx context.Context, userID string) ([]*FeedItem, error) {
	notifs, err := d.store.ListNotificationsForOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	feed := make([]*FeedItem, 0, len(notifs))
	for _, notif := range notifs {
		if len(notif.Communities) == 0 {
			d.logger.Warn("notification has no communities",
				"notification_id", notif.ID,
				"owner_id", notif.OwnerID,
			)
		}

		item, err := d.resolveSubject(ctx, notif)
		if errors.Is(err, store.ErrNotFound) {
			d.logger.Debug("dropping notification with missing subject",
				"notification_id", notif.ID,
				"subject", notif.Subject.String(),
			)
			continue
		}
		if err != nil {
			return nil, err
		}
		feed = append(feed, item)
	}

	return feed, nil
}

// resolveSubject loads the subject document and its producer's profile.
func (d *Dispatcher) resolveSubject(ctx context.Context, notif *domain.Notification) (*FeedItem, error) {
	item := &FeedItem{Notification: notif}

	var producerID string
	switch notif.Subject.Kind {
	case domain.RefAsk, domain.RefOffer:
		post, err := d.store.GetPost(ctx, notif.Subject.ID)
		if err != nil {
			return nil, err
		}
		item.Post = post
		producerID = post.OwnerID

	case domain.RefReply:
		reply, err := d.store.GetReply(ctx, notif.Subject.ID)
		if err != nil {
			return nil, err
		}
		item.Reply = reply
		producerID = reply.OwnerID

	case domain.RefChat:
		chat, err := d.store.GetChat(ctx, notif.Subject.ID)
		if err != nil {
			return nil, err
		}
		item.Chat = chat
		producerID = chat.FromID

	default:
		return nil, store.ErrNotFound
	}

	if producerID != "" {
		owner, err := d.store.Users.Get(ctx, producerID)
		if err == nil {
			item.SubjectOwner = &owner.Profile
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	return item, nil
}
