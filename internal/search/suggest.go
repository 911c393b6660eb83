package search

import (
	"sort"

	"github.com/timmy/phototag/internal/domain"
	"github.com/timmy/phototag/internal/store"
	"github.com/timmy/phototag/internal/vector"
)

const (
	DefaultNeighborCount = 5
	DefaultTagCount      = 10
)

// SuggestOptions bounds a suggestion. Zero values select the defaults.
type SuggestOptions struct {
	NeighborCount int
	TagCount      int
}

func (o SuggestOptions) withDefaults() SuggestOptions {
	if o.NeighborCount <= 0 {
		o.NeighborCount = DefaultNeighborCount
	}
	if o.TagCount <= 0 {
		o.TagCount = DefaultTagCount
	}
	return o
}

// Neighbor is a tagged image and its similarity to the suggestion target.
type Neighbor struct {
	ID    domain.ImageID
	Score float64
	Tags  domain.TagSet
}

// TagVote is a candidate tag and its accumulated weight.
type TagVote struct {
	Tag    string  `json:"tag"`
	Weight float64 `json:"weight"`
}

// NearestTagged returns up to limit images other than target that have at
// least one tag, most similar first. Equal scores keep the embedding store's
// natural order. Tagged images without an embedding cannot be compared and
// are skipped.
func NearestTagged(target domain.ImageID, embeddings *store.EmbeddingStore, tags *store.TagStore, limit int) []Neighbor {
	targetEmb, ok := embeddings.Get(target)
	if !ok {
		return nil
	}

	var neighbors []Neighbor
	embeddings.Range(func(id domain.ImageID, emb domain.Embedding) bool {
		if id == target {
			return true
		}
		set := tags.Tags(id)
		if set.Len() == 0 {
			return true
		}
		neighbors = append(neighbors, Neighbor{
			ID:    id,
			Score: vector.CosineSimilarity(targetEmb, emb),
			Tags:  set,
		})
		return true
	})

	sort.SliceStable(neighbors, func(i, j int) bool {
		return neighbors[i].Score > neighbors[j].Score
	})
	if len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	return neighbors
}

// Vote sums, per tag, the scores of the neighbors carrying it. Weights are
// not normalized by neighbor count. Votes come back heaviest first; ties keep
// the order in which tags were first met walking the neighbors.
func Vote(neighbors []Neighbor) []TagVote {
	index := make(map[string]int)
	var votes []TagVote
	for _, n := range neighbors {
		for _, tag := range n.Tags {
			i, ok := index[tag]
			if !ok {
				i = len(votes)
				index[tag] = i
				votes = append(votes, TagVote{Tag: tag})
			}
			votes[i].Weight += n.Score
		}
	}

	sort.SliceStable(votes, func(i, j int) bool {
		return votes[i].Weight > votes[j].Weight
	})
	return votes
}

// SuggestVotes runs the neighbor vote for target and returns the top
// opts.TagCount votes. A target without an embedding, or with no tagged
// neighbor, gets an empty result.
func SuggestVotes(target domain.ImageID, embeddings *store.EmbeddingStore, tags *store.TagStore, opts SuggestOptions) []TagVote {
	opts = opts.withDefaults()
	votes := Vote(NearestTagged(target, embeddings, tags, opts.NeighborCount))
	if len(votes) > opts.TagCount {
		votes = votes[:opts.TagCount]
	}
	if votes == nil {
		return []TagVote{}
	}
	return votes
}

// SuggestTags returns the suggested tags for target, most relevant first.
func SuggestTags(target domain.ImageID, embeddings *store.EmbeddingStore, tags *store.TagStore, opts SuggestOptions) []string {
	votes := SuggestVotes(target, embeddings, tags, opts)
	out := make([]string, len(votes))
	for i, v := range votes {
		out[i] = v.Tag
	}
	return out
}
