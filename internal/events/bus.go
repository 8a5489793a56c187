// Package events carries document lifecycle notifications between the
// content services and the subsystems that react to them. Handlers run
// synchronously on the publisher's goroutine, so publish order is
// observation order.
package events

import (
	"context"
	"sync"

	"github.com/reciprocityapp/reciprocity-server/internal/domain"
)

// DocumentSaved is published after a post is created or updated.
type DocumentSaved struct {
	Kind  domain.PostKind
	ID    string
	IsNew bool

	// BodyChanged reports whether the save modified the body text.
	// Match reconciliation keys off this, not off the save itself.
	BodyChanged bool
}

// DocumentRemoved is published after a post's cascade completed.
type DocumentRemoved struct {
	Kind domain.PostKind
	ID   string
}

// SavedHandler reacts to a saved post.
type SavedHandler func(ctx context.Context, ev DocumentSaved)

// RemovedHandler reacts to a removed post.
type RemovedHandler func(ctx context.Context, ev DocumentRemoved)

// Bus fans document events out to subscribers.
type Bus struct {
	mu      sync.RWMutex
	saved   []SavedHandler
	removed []RemovedHandler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// SubscribeSaved registers a handler for saved events.
func (b *Bus) SubscribeSaved(h SavedHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.saved = append(b.saved, h)
}

// SubscribeRemoved registers a handler for removed events.
func (b *Bus) SubscribeRemoved(h RemovedHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removed = append(b.removed, h)
}

// PublishSaved delivers a saved event to every subscriber, in
// subscription order.
func (b *Bus) PublishSaved(ctx context.Context, ev DocumentSaved) {
	b.mu.RLock()
	handlers := b.saved
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, ev)
	}
}

// PublishRemoved delivers a removed event to every subscriber, in
// subscription order.
func (b *Bus) PublishRemoved(ctx context.Context, ev DocumentRemoved) {
	b.mu.RLock()
	handlers := b.removed
	b.mu.RUnlock()

	for _, h := range handlers {
		h(ctx, ev)
	}
}
