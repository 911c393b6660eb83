// Package search ranks images against a query embedding and proposes tags
// for an image from its nearest tagged neighbors. Both are linear scans over
// the embedding store.
package search

import (
	"sort"

	"github.com/timmy/phototag/internal/domain"
	apperr "github.com/timmy/phototag/internal/errors"
	"github.com/timmy/phototag/internal/store"
	"github.com/timmy/phototag/internal/vector"
)

// DefaultThreshold is the minimum score a hit must exceed.
const DefaultThreshold = 0.20

// NoQueryScore is the fixed score given to every image when no query is set.
const NoQueryScore = 1.0

// Search ranks every image in embeddings against query by cosine similarity.
// Only hits scoring strictly above threshold are returned, best first; equal
// scores keep the store's natural order.
//
// A nil query selects the browse mode: every image is returned with score
// NoQueryScore in natural order, without computing any similarity.
func Search(query domain.Embedding, embeddings *store.EmbeddingStore, threshold float64) ([]domain.Hit, error) {
	if query == nil {
		return All(embeddings), nil
	}
	if embeddings.Len() == 0 {
		return []domain.Hit{}, nil
	}
	if query.Dim() != embeddings.Dimension() {
		return nil, apperr.IncompatibleEmbedding(embeddings.Dimension(), query.Dim())
	}
	if err := query.Validate(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInvalidInput, "invalid query embedding")
	}

	hits := make([]domain.Hit, 0, embeddings.Len())
	embeddings.Range(func(id domain.ImageID, emb domain.Embedding) bool {
		score := vector.CosineSimilarity(query, emb)
		if score > threshold {
			hits = append(hits, domain.Hit{ID: id, Score: score})
		}
		return true
	})

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	return hits, nil
}

// All returns every image in natural order with score NoQueryScore.
func All(embeddings *store.EmbeddingStore) []domain.Hit {
	hits := make([]domain.Hit, 0, embeddings.Len())
	embeddings.Range(func(id domain.ImageID, _ domain.Embedding) bool {
		hits = append(hits, domain.Hit{ID: id, Score: NoQueryScore})
		return true
	})
	return hits
}

// FilterByTags keeps the hits whose image carries at least one of tags.
// Hit order is preserved. An empty tag list returns hits unchanged.
func FilterByTags(hits []domain.Hit, tags *store.TagStore, wanted []string) []domain.Hit {
	wanted = domain.NewTagSet(wanted...)
	if len(wanted) == 0 {
		return hits
	}
	filtered := make([]domain.Hit, 0, len(hits))
	for _, hit := range hits {
		if tags.Tags(hit.ID).ContainsAny(wanted) {
			filtered = append(filtered, hit)
		}
	}
	return filtered
}
