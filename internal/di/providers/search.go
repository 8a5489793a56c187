package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/reciprocityapp/reciprocity-server/internal/config"
	"github.com/reciprocityapp/reciprocity-server/internal/logger"
	"github.com/reciprocityapp/reciprocity-server/internal/search"
	"github.com/reciprocityapp/reciprocity-server/internal/service"
	"github.com/reciprocityapp/reciprocity-server/internal/store"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.Index
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve relevance index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewIndex(search.Options{
		DataPath: cfg.SearchPath(),
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{Index: index}, nil
}

// TriggerSearchReindexIfNeeded rebuilds the index when posts exist but
// the index is empty, which happens after a mapping version bump.
// Should be called after all services are wired.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	posts := do.MustInvoke[*service.PostService](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := indexHandle.DocumentCount()
	if docCount > 0 {
		return
	}

	ctx := context.Background()
	ids, err := storeHandle.FindPostIDs(ctx, store.PostFilter{})
	if err != nil || len(ids) == 0 {
		return
	}

	log.Info("Search index is empty but posts exist, triggering reindex",
		"post_count", len(ids),
	)

	go func() {
		n, err := posts.ReindexAll(context.Background())
		if err != nil {
			log.Error("Search reindex failed", "error", err)
			return
		}
		log.Info("Search reindex completed", "documents", n)
	}()
}
