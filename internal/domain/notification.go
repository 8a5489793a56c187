package domain

import "time"

// NotificationType enumerates the events a notification can record.
type NotificationType string

const (
	NotificationAskReceived            NotificationType = "ask_received"
	NotificationOfferReceived          NotificationType = "offer_received"
	NotificationAskReplyAdded          NotificationType = "ask_reply_added"
	NotificationOfferReplyAdded        NotificationType = "offer_reply_added"
	NotificationFollowedPostReplyAdded NotificationType = "followed_post_reply_added"
	NotificationAskRead                NotificationType = "ask_read"
	NotificationOfferRead              NotificationType = "offer_read"
	NotificationChatReceived           NotificationType = "chat_received"
	NotificationChatRead               NotificationType = "chat_read"
)

// Valid checks if the type is a known notification event.
func (t NotificationType) Valid() bool {
	switch t {
	case NotificationAskReceived, NotificationOfferReceived,
		NotificationAskReplyAdded, NotificationOfferReplyAdded,
		NotificationFollowedPostReplyAdded,
		NotificationAskRead, NotificationOfferRead,
		NotificationChatReceived, NotificationChatRead:
		return true
	default:
		return false
	}
}

// IsReadEvent reports whether the type marks the subject as read.
func (t NotificationType) IsReadEvent() bool {
	switch t {
	case NotificationAskRead, NotificationOfferRead, NotificationChatRead:
		return true
	default:
		return false
	}
}

// Notification records an event relevant to one user. It references at
// most one of {ask, offer, reply, chat} as its subject via Subject.
//
// Two independent state axes:
//   - read axis: ReadAt nil → set once via a read-status update
//   - email axis: EmailSentAt nil → set once when the digest mailer sends
//
// Reading a notification says nothing about its email and vice versa.
type Notification struct {
	ID      string `json:"id"`
	OwnerID string `json:"owner_id"`

	Type          NotificationType `json:"type"`
	CurrentStatus NotificationType `json:"current_status"`

	Subject Ref `json:"subject"`

	ReadAt      *time.Time `json:"read_at,omitempty"`
	EmailSentAt *time.Time `json:"email_sent_at,omitempty"`

	// Communities is inherited from the subject's visibility scope.
	// An empty set is a corrupt record: feed listing flags it for repair.
	Communities []string `json:"communities"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsRead reports whether the notification has been read.
func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}

// IsEmailSent reports whether the email for this notification went out.
func (n *Notification) IsEmailSent() bool {
	return n.EmailSentAt != nil
}

// MarkRead sets ReadAt if not already set. Returns true on first read.
func (n *Notification) MarkRead() bool {
	if n.ReadAt != nil {
		return false
	}
	now := time.Now()
	n.ReadAt = &now
	n.UpdatedAt = now
	return true
}

// MarkEmailSent sets EmailSentAt if not already set.
func (n *Notification) MarkEmailSent() bool {
	if n.EmailSentAt != nil {
		return false
	}
	now := time.Now()
	n.EmailSentAt = &now
	n.UpdatedAt = now
	return true
}

// Touch updates the UpdatedAt timestamp.
func (n *Notification) Touch() {
	n.UpdatedAt = time.Now()
}
