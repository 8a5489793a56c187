package search

import (
	"context"
	"fmt"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// Field boosts for relevance scoring. Tag overlap is worth far more
// than a stray word in the body or reply thread.
const (
	bodyBoost    = 1.0
	tagsBoost    = 5.0
	repliesBoost = 1.0
)

// RelevanceParams configures a relevance query against the post index.
type RelevanceParams struct {
	// Query is the free text to score against: the source post's body
	// plus its tag names, with filler words already stripped.
	Query string

	// Kind restricts results to "ask" or "offer" documents.
	Kind string

	// ExcludeOwnerID drops the querying user's own posts.
	ExcludeOwnerID string

	// Communities scopes results to posts visible in at least one of
	// these communities. Empty means no community scoping.
	Communities []string

	// ScoreThreshold drops hits scoring below it. Zero keeps all hits.
	ScoreThreshold float64

	// Limit caps the number of hits. Zero uses a default of 50.
	Limit int
}

// ScoredPost is a single relevance hit.
type ScoredPost struct {
	PostID string  `json:"post_id"`
	Score  float64 `json:"score"`
}

// Relevance scores indexed posts against the given text and returns
// hits above the threshold, best first.
func (s *Index) Relevance(ctx context.Context, params RelevanceParams) ([]ScoredPost, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}

	searchQuery := buildRelevanceQuery(params)
	searchRequest := bleve.NewSearchRequestOptions(searchQuery, limit, 0, false)
	searchRequest.SortBy([]string{"-_score"})

	searchResult, err := s.index.SearchInContext(ctx, searchRequest)
	if err != nil {
		return nil, fmt.Errorf("execute search: %w", err)
	}

	hits := make([]ScoredPost, 0, len(searchResult.Hits))
	for _, hit := range searchResult.Hits {
		if params.ScoreThreshold > 0 && hit.Score < params.ScoreThreshold {
			continue
		}
		hits = append(hits, ScoredPost{PostID: hit.ID, Score: hit.Score})
	}

	return hits, nil
}

// buildRelevanceQuery constructs the Bleve query from params.
func buildRelevanceQuery(params RelevanceParams) query.Query {
	boolQuery := bleve.NewBooleanQuery()

	// Text disjunction: a hit needs at least one field to match.
	// Tags carry the highest boost so a shared tag dominates scoring.
	bodyMatch := bleve.NewMatchQuery(params.Query)
	bodyMatch.SetField("body")
	bodyMatch.SetBoost(bodyBoost)

	tagsMatch := bleve.NewMatchQuery(params.Query)
	tagsMatch.SetField("tags")
	tagsMatch.SetBoost(tagsBoost)

	repliesMatch := bleve.NewMatchQuery(params.Query)
	repliesMatch.SetField("replies_blob")
	repliesMatch.SetBoost(repliesBoost)

	boolQuery.AddMust(bleve.NewDisjunctionQuery(bodyMatch, tagsMatch, repliesMatch))

	// Kind filter
	if params.Kind != "" {
		kindQuery := bleve.NewTermQuery(params.Kind)
		kindQuery.SetField("kind")
		boolQuery.AddMust(kindQuery)
	}

	// Community scoping (match any shared community)
	if len(params.Communities) > 0 {
		communityQueries := make([]query.Query, len(params.Communities))
		for i, c := range params.Communities {
			cq := bleve.NewTermQuery(c)
			cq.SetField("communities")
			communityQueries[i] = cq
		}
		boolQuery.AddMust(bleve.NewDisjunctionQuery(communityQueries...))
	}

	// Never surface the querying user's own posts
	if params.ExcludeOwnerID != "" {
		ownerQuery := bleve.NewTermQuery(params.ExcludeOwnerID)
		ownerQuery.SetField("owner_id")
		boolQuery.AddMustNot(ownerQuery)
	}

	return boolQuery
}
