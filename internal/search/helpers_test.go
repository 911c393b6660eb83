package search

import (
	"math"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"github.com/timmy/phototag/internal/domain"
	"github.com/timmy/phototag/internal/store"
)

// unitAt returns a 2-D unit vector whose cosine similarity with (1, 0) is s.
func unitAt(s float64) domain.Embedding {
	return domain.Embedding{float32(s), float32(math.Sqrt(1 - s*s))}
}

type entry struct {
	id   domain.ImageID
	emb  domain.Embedding
	tags []string
}

func buildStores(t *testing.T, entries ...entry) (*store.EmbeddingStore, *store.TagStore) {
	t.Helper()
	embeddings := store.NewEmbeddingStore("test", 0)
	tags, err := store.LoadTagStore(afero.NewMemMapFs(), "tags.json")
	require.NoError(t, err)
	for _, e := range entries {
		if e.emb != nil {
			require.NoError(t, embeddings.Add(e.id, e.emb))
		}
		if len(e.tags) > 0 {
			tags.SetTags(e.id, e.tags)
		}
	}
	return embeddings, tags
}
