// Package matcher pairs asks with offers. Candidates come from two
// directions: exact tag intersection against the opposite collection,
// and relevance-scored free text. Only scored text pairings are
// persisted as matches; tag candidates are surfaced for browsing.
package matcher

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"

	"github.com/reciprocityapp/reciprocity-server/internal/domain"
	"github.com/reciprocityapp/reciprocity-server/internal/search"
	"github.com/reciprocityapp/reciprocity-server/internal/store"
)

// fillerRe strips words that appear in nearly every ask and would
// otherwise dominate relevance scoring.
var fillerRe = regexp.MustCompile(`\b(help|advice|recommendation)\b`)

// Config tunes candidate generation.
type Config struct {
	// ScoreThreshold is the minimum relevance score a text candidate
	// needs to become a match.
	ScoreThreshold float64

	// CandidateLimit caps text candidates per query.
	CandidateLimit int
}

// DefaultConfig returns the production defaults. The threshold lives
// on Bleve's raw tf-idf scale, where a genuine body-plus-tag overlap
// scores around 0.3 and an incidental single-word hit well under 0.1.
func DefaultConfig() Config {
	return Config{
		ScoreThreshold: 0.1,
		CandidateLimit: 50,
	}
}

// ScoredCandidate is a text candidate with its relevance score.
type ScoredCandidate struct {
	Post  *domain.Post
	Score float64
}

// CandidateSet is the result of running both candidate passes for one
// post against the opposite collection.
type CandidateSet struct {
	// TagMatches share at least one canonical tag key with the source.
	TagMatches []*domain.Post

	// TextMatches scored at or above the threshold, best first.
	TextMatches []ScoredCandidate
}

// Engine computes match candidates for a post.
type Engine struct {
	store  *store.Store
	index  *search.Index
	cfg    Config
	logger *slog.Logger
}

// NewEngine creates a match engine.
func NewEngine(store *store.Store, index *search.Index, cfg Config, logger *slog.Logger) *Engine {
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = DefaultConfig().CandidateLimit
	}
	return &Engine{
		store:  store,
		index:  index,
		cfg:    cfg,
		logger: logger,
	}
}

// ComputeMatches runs both candidate passes for the given post against
// the opposite collection. Candidates never include the owner's own
// posts and must share at least one community with the source.
func (e *Engine) ComputeMatches(ctx context.Context, post *domain.Post) (*CandidateSet, error) {
	tagMatches, err := e.tagCandidates(ctx, post)
	if err != nil {
		return nil, err
	}

	textMatches, err := e.textCandidates(ctx, post)
	if err != nil {
		return nil, err
	}

	return &CandidateSet{
		TagMatches:  tagMatches,
		TextMatches: textMatches,
	}, nil
}

// tagCandidates finds opposite-kind posts sharing a canonical tag key.
func (e *Engine) tagCandidates(ctx context.Context, post *domain.Post) ([]*domain.Post, error) {
	opposite := post.Kind.Opposite()

	seen := make(map[string]bool)
	var candidates []*domain.Post
	for _, key := range post.Tags {
		matches, err := e.store.ListPostsByTag(ctx, opposite, key)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true
			if !e.eligible(post, m) {
				continue
			}
			candidates = append(candidates, m)
		}
	}
	return candidates, nil
}

// textCandidates scores the opposite collection against the post's
// body and tags, keeping hits at or above the threshold.
func (e *Engine) textCandidates(ctx context.Context, post *domain.Post) ([]ScoredCandidate, error) {
	hits, err := e.index.Relevance(ctx, search.RelevanceParams{
		Query:          SearchText(post),
		Kind:           string(post.Kind.Opposite()),
		ExcludeOwnerID: post.OwnerID,
		Communities:    post.Communities,
		ScoreThreshold: e.cfg.ScoreThreshold,
		Limit:          e.cfg.CandidateLimit,
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]ScoredCandidate, 0, len(hits))
	for _, hit := range hits {
		candidate, err := e.store.GetPost(ctx, hit.PostID)
		if errors.Is(err, store.ErrNotFound) {
			// Stale index entry, the post is gone.
			e.logger.Debug("skipping stale search hit", "post_id", hit.PostID)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !e.eligible(post, candidate) {
			continue
		}
		candidates = append(candidates, ScoredCandidate{Post: candidate, Score: hit.Score})
	}
	return candidates, nil
}

// eligible applies the filters both passes share. The store and index
// already scope by kind; community overlap is re-checked here because
// index entries can lag behind edits.
func (e *Engine) eligible(source, candidate *domain.Post) bool {
	if candidate.OwnerID == source.OwnerID {
		return false
	}
	if !candidate.IsActive {
		return false
	}
	return source.SharesCommunityWith(candidate)
}

// SearchText builds the relevance query for a post: the body with
// filler words stripped, followed by its tag keys.
func SearchText(post *domain.Post) string {
	text := fillerRe.ReplaceAllString(post.Body, "")
	if len(post.Tags) > 0 {
		text += " " + strings.Join(post.Tags, ",")
	}
	return text
}
