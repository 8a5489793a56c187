// Package di provides dependency injection configuration for the Reciprocity server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/reciprocityapp/reciprocity-server/internal/cascade"
	"github.com/reciprocityapp/reciprocity-server/internal/config"
	"github.com/reciprocityapp/reciprocity-server/internal/di/providers"
	"github.com/reciprocityapp/reciprocity-server/internal/events"
	"github.com/reciprocityapp/reciprocity-server/internal/logger"
	"github.com/reciprocityapp/reciprocity-server/internal/matcher"
	"github.com/reciprocityapp/reciprocity-server/internal/notify"
	"github.com/reciprocityapp/reciprocity-server/internal/service"
	"github.com/reciprocityapp/reciprocity-server/internal/tags"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideEventBus)

	// Storage layer
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideSearchIndex)

	// Matching layer
	do.Provide(injector, providers.ProvideTagDirectory)
	do.Provide(injector, providers.ProvideMatchEngine)
	do.Provide(injector, providers.ProvideMatchService)
	do.Provide(injector, providers.ProvideCascadeManager)
	do.Provide(injector, providers.ProvideDispatcher)

	// Business services
	do.Provide(injector, providers.ProvidePostService)
	do.Provide(injector, providers.ProvideReplyService)
	do.Provide(injector, providers.ProvideChatService)

	return injector
}

// Bootstrap initializes all services and returns handles for lifecycle management.
// This triggers lazy initialization of all core services.
func Bootstrap(injector *do.RootScope) error {
	// Invoke core services to trigger initialization
	_ = do.MustInvoke[*config.Config](injector)
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[*events.Bus](injector)
	_ = do.MustInvoke[*providers.StoreHandle](injector)
	_ = do.MustInvoke[*providers.SearchIndexHandle](injector)
	_ = do.MustInvoke[*tags.Directory](injector)
	_ = do.MustInvoke[*matcher.Engine](injector)
	_ = do.MustInvoke[*matcher.Service](injector)
	_ = do.MustInvoke[*cascade.Manager](injector)
	_ = do.MustInvoke[*notify.Dispatcher](injector)

	// Business services
	_ = do.MustInvoke[*service.PostService](injector)
	_ = do.MustInvoke[*service.ReplyService](injector)
	_ = do.MustInvoke[*service.ChatService](injector)

	// Connect saved/removed events to reconciliation and cleanup
	providers.WireMatchSubscriptions(injector)

	// Trigger search reindex if needed
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}
