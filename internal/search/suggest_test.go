package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/phototag/internal/domain"
)

func TestSuggestTagsWeightedVote(t *testing.T) {
	embeddings, tags := buildStores(t,
		entry{id: "target.jpg", emb: domain.Embedding{1, 0}},
		entry{id: "n1.jpg", emb: unitAt(0.9), tags: []string{"A"}},
		entry{id: "n2.jpg", emb: unitAt(0.8), tags: []string{"A"}},
		entry{id: "n3.jpg", emb: unitAt(0.85), tags: []string{"B"}},
	)

	votes := SuggestVotes("target.jpg", embeddings, tags, SuggestOptions{})
	require.Len(t, votes, 2)
	assert.Equal(t, "A", votes[0].Tag)
	assert.InDelta(t, 1.7, votes[0].Weight, 1e-6)
	assert.Equal(t, "B", votes[1].Tag)
	assert.InDelta(t, 0.85, votes[1].Weight, 1e-6)

	assert.Equal(t, []string{"A", "B"}, SuggestTags("target.jpg", embeddings, tags, SuggestOptions{}))
}

func TestSuggestTagsColdStart(t *testing.T) {
	t.Run("no tagged neighbors", func(t *testing.T) {
		embeddings, tags := buildStores(t,
			entry{id: "target.jpg", emb: domain.Embedding{1, 0}, tags: []string{"own"}},
			entry{id: "other.jpg", emb: unitAt(0.9)},
		)
		assert.Equal(t, []string{}, SuggestTags("target.jpg", embeddings, tags, SuggestOptions{}))
	})

	t.Run("target has no embedding", func(t *testing.T) {
		embeddings, tags := buildStores(t,
			entry{id: "other.jpg", emb: unitAt(0.9), tags: []string{"cat"}},
		)
		assert.Equal(t, []string{}, SuggestTags("missing.jpg", embeddings, tags, SuggestOptions{}))
	})

	t.Run("empty stores", func(t *testing.T) {
		embeddings, tags := buildStores(t)
		assert.Empty(t, SuggestTags("a.jpg", embeddings, tags, SuggestOptions{}))
	})
}

func TestSuggestTagsExcludesTargetOwnTags(t *testing.T) {
	embeddings, tags := buildStores(t,
		entry{id: "target.jpg", emb: domain.Embedding{1, 0}, tags: []string{"self"}},
		entry{id: "n.jpg", emb: unitAt(0.5), tags: []string{"other"}},
	)

	assert.Equal(t, []string{"other"}, SuggestTags("target.jpg", embeddings, tags, SuggestOptions{}))
}

func TestSuggestTagsTiesKeepFirstEncounter(t *testing.T) {
	embeddings, tags := buildStores(t,
		entry{id: "target.jpg", emb: domain.Embedding{1, 0}},
		entry{id: "far.jpg", emb: unitAt(0.5), tags: []string{"z", "y"}},
		entry{id: "near.jpg", emb: unitAt(0.9), tags: []string{"x", "y"}},
	)

	// y = 0.9 + 0.5, x = 0.9, z = 0.5
	assert.Equal(t, []string{"y", "x", "z"}, SuggestTags("target.jpg", embeddings, tags, SuggestOptions{}))

	embeddings, tags = buildStores(t,
		entry{id: "target.jpg", emb: domain.Embedding{1, 0}},
		entry{id: "near.jpg", emb: unitAt(0.9), tags: []string{"q", "p"}},
	)
	assert.Equal(t, []string{"q", "p"}, SuggestTags("target.jpg", embeddings, tags, SuggestOptions{}))
}

func TestSuggestTagsLimits(t *testing.T) {
	embeddings, tags := buildStores(t,
		entry{id: "target.jpg", emb: domain.Embedding{1, 0}},
		entry{id: "n1.jpg", emb: unitAt(0.95), tags: []string{"a", "b", "c"}},
		entry{id: "n2.jpg", emb: unitAt(0.9), tags: []string{"d"}},
		entry{id: "n3.jpg", emb: unitAt(0.3), tags: []string{"e"}},
	)

	assert.Equal(t, []string{"a", "b", "c", "d"}, SuggestTags("target.jpg", embeddings, tags, SuggestOptions{NeighborCount: 2}))
	assert.Equal(t, []string{"a", "b"}, SuggestTags("target.jpg", embeddings, tags, SuggestOptions{TagCount: 2}))
}

func TestNearestTaggedSkipsTagsWithoutEmbedding(t *testing.T) {
	embeddings, tags := buildStores(t,
		entry{id: "target.jpg", emb: domain.Embedding{1, 0}},
		entry{id: "orphan.jpg", tags: []string{"lost"}},
		entry{id: "n.jpg", emb: unitAt(0.4), tags: []string{"kept"}},
	)

	neighbors := NearestTagged("target.jpg", embeddings, tags, 5)
	require.Len(t, neighbors, 1)
	assert.Equal(t, domain.ImageID("n.jpg"), neighbors[0].ID)
	assert.InDelta(t, 0.4, neighbors[0].Score, 1e-6)
}

func TestVoteDoesNotNormalize(t *testing.T) {
	votes := Vote([]Neighbor{
		{ID: "a", Score: 0.99, Tags: domain.TagSet{"solo"}},
		{ID: "b", Score: 0.6, Tags: domain.TagSet{"shared"}},
		{ID: "c", Score: 0.55, Tags: domain.TagSet{"shared"}},
	})

	require.Len(t, votes, 2)
	assert.Equal(t, "shared", votes[0].Tag)
	assert.InDelta(t, 1.15, votes[0].Weight, 1e-9)
	assert.Equal(t, "solo", votes[1].Tag)
}
