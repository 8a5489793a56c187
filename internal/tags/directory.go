package tags

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/reciprocityapp/reciprocity-server/internal/domain"
)

// Store is the subset of the tag store the directory needs.
type Store interface {
	FindOrCreateTag(ctx context.Context, key, display string) (*domain.Tag, bool, error)
	GetTagByKey(ctx context.Context, key string) (*domain.Tag, error)
	ListTags(ctx context.Context) ([]*domain.Tag, error)
}

// Directory resolves raw user tag input to canonical tag records.
type Directory struct {
	store  Store
	logger *slog.Logger
}

// NewDirectory creates a tag directory backed by the given store.
func NewDirectory(store Store, logger *slog.Logger) *Directory {
	return &Directory{
		store:  store,
		logger: logger,
	}
}

// maxConcurrentLookups bounds parallel find-or-create calls per batch.
const maxConcurrentLookups = 8

// Canonicalize resolves a batch of raw tag strings to canonical tag
// records. Inputs that normalize to the same key collapse to one entry,
// inputs that normalize to nothing are dropped, and results keep the
// first-seen order of the input. Lookups run concurrently; an input
// whose lookup fails is logged and skipped rather than failing the
// batch.
func (d *Directory) Canonicalize(ctx context.Context, raw []string) ([]*domain.Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type pending struct {
		key     string
		display string
	}

	seen := make(map[string]bool, len(raw))
	var batch []pending
	for _, input := range raw {
		key := Key(input)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		batch = append(batch, pending{key: key, display: Display(input)})
	}

	if len(batch) == 0 {
		return nil, nil
	}

	results := make([]*domain.Tag, len(batch))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentLookups)
	for i, p := range batch {
		g.Go(func() error {
			tag, created, err := d.store.FindOrCreateTag(gctx, p.key, p.display)
			if err != nil {
				d.logger.Warn("tag lookup failed, skipping",
					"tag_key", p.key,
					"error", err,
				)
				return nil
			}
			if created {
				d.logger.Info("tag created", "tag_key", tag.Key, "display", tag.Display)
			}
			results[i] = tag
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	tags := make([]*domain.Tag, 0, len(results))
	for _, tag := range results {
		if tag != nil {
			tags = append(tags, tag)
		}
	}
	return tags, nil
}

// Keys extracts the canonical keys from a batch of tags, in order.
func Keys(tags []*domain.Tag) []string {
	keys := make([]string, len(tags))
	for i, tag := range tags {
		keys[i] = tag.Key
	}
	return keys
}

// DisplayNames resolves canonical keys back to their display spellings.
// Keys with no directory record fall back to the key itself.
func (d *Directory) DisplayNames(ctx context.Context, keys []string) []string {
	names := make([]string, len(keys))
	for i, key := range keys {
		tag, err := d.store.GetTagByKey(ctx, key)
		if err != nil {
			names[i] = key
			continue
		}
		names[i] = tag.Display
	}
	return names
}

// List returns every tag in the directory, sorted by key.
func (d *Directory) List(ctx context.Context) ([]*domain.Tag, error) {
	return d.store.ListTags(ctx)
}
