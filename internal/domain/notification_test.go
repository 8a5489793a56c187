package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNotificationType_Valid(t *testing.T) {
	for _, typ := range []NotificationType{
		NotificationAskReceived, NotificationOfferReceived,
		NotificationAskReplyAdded, NotificationOfferReplyAdded,
		NotificationFollowedPostReplyAdded,
		NotificationAskRead, NotificationOfferRead,
		NotificationChatReceived, NotificationChatRead,
	} {
		assert.True(t, typ.Valid(), "%s should be valid", typ)
	}
	assert.False(t, NotificationType("poke").Valid())
}

func TestNotificationType_IsReadEvent(t *testing.T) {
	assert.True(t, NotificationAskRead.IsReadEvent())
	assert.True(t, NotificationOfferRead.IsReadEvent())
	assert.True(t, NotificationChatRead.IsReadEvent())
	assert.False(t, NotificationAskReceived.IsReadEvent())
	assert.False(t, NotificationChatReceived.IsReadEvent())
}

func TestNotification_ReadAndEmailAxesIndependent(t *testing.T) {
	n := &Notification{}

	assert.True(t, n.MarkRead())
	assert.False(t, n.MarkRead())
	assert.True(t, n.IsRead())
	assert.False(t, n.IsEmailSent())

	assert.True(t, n.MarkEmailSent())
	assert.False(t, n.MarkEmailSent())
	assert.True(t, n.IsEmailSent())
}

func TestChat_MarkRead_Once(t *testing.T) {
	c := &Chat{}

	assert.False(t, c.IsRead())
	assert.True(t, c.MarkRead())
	first := *c.ReadAt

	assert.False(t, c.MarkRead())
	assert.Equal(t, first, *c.ReadAt)
}
