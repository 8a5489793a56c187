package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/reciprocityapp/reciprocity-server/internal/cascade"
	"github.com/reciprocityapp/reciprocity-server/internal/config"
	"github.com/reciprocityapp/reciprocity-server/internal/events"
	"github.com/reciprocityapp/reciprocity-server/internal/logger"
	"github.com/reciprocityapp/reciprocity-server/internal/matcher"
	"github.com/reciprocityapp/reciprocity-server/internal/notify"
	"github.com/reciprocityapp/reciprocity-server/internal/tags"
)

// ProvideEventBus provides the document event bus.
func ProvideEventBus(i do.Injector) (*events.Bus, error) {
	return events.NewBus(), nil
}

// ProvideTagDirectory provides the canonical tag directory.
func ProvideTagDirectory(i do.Injector) (*tags.Directory, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return tags.NewDirectory(storeHandle.Store, log.Logger), nil
}

// ProvideMatchEngine provides the candidate discovery engine.
func ProvideMatchEngine(i do.Injector) (*matcher.Engine, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return matcher.NewEngine(storeHandle.Store, indexHandle.Index, matcher.Config{
		ScoreThreshold: cfg.Match.ScoreThreshold,
		CandidateLimit: cfg.Match.CandidateLimit,
	}, log.Logger), nil
}

// ProvideMatchService provides the match reconciliation service.
func ProvideMatchService(i do.Injector) (*matcher.Service, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	engine := do.MustInvoke[*matcher.Engine](i)
	dispatcher := do.MustInvoke[*notify.Dispatcher](i)
	log := do.MustInvoke[*logger.Logger](i)

	return matcher.NewService(storeHandle.Store, engine, dispatcher, log.Logger), nil
}

// ProvideCascadeManager provides the dependent-record cleanup manager.
func ProvideCascadeManager(i do.Injector) (*cascade.Manager, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return cascade.NewManager(storeHandle.Store, indexHandle.Index, log.Logger), nil
}

// ProvideDispatcher provides the notification dispatcher.
func ProvideDispatcher(i do.Injector) (*notify.Dispatcher, error) {
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return notify.NewDispatcher(storeHandle.Store, log.Logger), nil
}

// WireMatchSubscriptions connects the bus to match reconciliation and
// cascade cleanup. Should be called once after all services are built.
//
// Reconciliation runs when the body changed, and on create only when
// MATCH_ON_CREATE is set. Reconcile failures are logged, never surfaced
// to the save path.
func WireMatchSubscriptions(i do.Injector) {
	cfg := do.MustInvoke[*config.Config](i)
	bus := do.MustInvoke[*events.Bus](i)
	matches := do.MustInvoke[*matcher.Service](i)
	cascades := do.MustInvoke[*cascade.Manager](i)
	log := do.MustInvoke[*logger.Logger](i)

	bus.SubscribeSaved(func(ctx context.Context, ev events.DocumentSaved) {
		// Creates only match when opted in; updates only on a body change.
		if ev.IsNew {
			if !cfg.Match.MatchOnCreate {
				return
			}
		} else if !ev.BodyChanged {
			return
		}
		if err := matches.Reconcile(ctx, ev.ID); err != nil {
			log.Error("Match reconciliation failed",
				"post_id", ev.ID,
				"kind", ev.Kind,
				"error", err,
			)
		}
	})

	// Cascade runs inside the delete path already. The subscription is
	// a second pass on the reference, cheap because cascades are
	// idempotent, and catches records created between delete and
	// publish.
	bus.SubscribeRemoved(func(ctx context.Context, ev events.DocumentRemoved) {
		if err := cascades.CascadeDelete(ctx, ev.Kind, ev.ID); err != nil {
			log.Error("Cascade cleanup failed",
				"post_id", ev.ID,
				"kind", ev.Kind,
				"error", err,
			)
		}
	})
}
