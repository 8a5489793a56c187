package providers

import (
	"github.com/samber/do/v2"

	"github.com/reciprocityapp/reciprocity-server/internal/cascade"
	"github.com/reciprocityapp/reciprocity-server/internal/events"
	"github.com/reciprocityapp/reciprocity-server/internal/logger"
	"github.com/reciprocityapp/reciprocity-server/internal/notify"
	"github.com/reciprocityapp/reciprocity-server/internal/service"
	"github.com/reciprocityapp/reciprocity-server/internal/tags"
)

// ProvidePostService provides the ask/offer service.
func ProvidePostService(i do.Injector) (*service.PostService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	directory := do.MustInvoke[*tags.Directory](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	cascades := do.MustInvoke[*cascade.Manager](i)
	bus := do.MustInvoke[*events.Bus](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewPostService(
		storeHandle.Store,
		directory,
		indexHandle.Index,
		cascades,
		bus,
		log.Logger,
	), nil
}

// ProvideReplyService provides the reply service.
func ProvideReplyService(i do.Injector) (*service.ReplyService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	posts := do.MustInvoke[*service.PostService](i)
	dispatcher := do.MustInvoke[*notify.Dispatcher](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewReplyService(storeHandle.Store, posts, dispatcher, log.Logger), nil
}

// ProvideChatService provides the direct message service.
func ProvideChatService(i do.Injector) (*service.ChatService, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	dispatcher := do.MustInvoke[*notify.Dispatcher](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewChatService(storeHandle.Store, dispatcher, log.Logger), nil
}
