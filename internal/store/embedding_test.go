package store

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/phototag/internal/domain"
	apperr "github.com/timmy/phototag/internal/errors"
	"github.com/vmihailenco/msgpack/v5"
)

const embeddingPath = "data/embeddings.msgpack"

func TestLoadEmbeddingStoreMissingIsEmpty(t *testing.T) {
	s, err := LoadEmbeddingStore(afero.NewMemMapFs(), embeddingPath)

	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Present())
}

func TestEmbeddingStoreRoundTripKeepsOrder(t *testing.T) {
	fs := afero.NewMemMapFs()
	s := NewEmbeddingStore("jina-clip-v2", 0)
	require.NoError(t, s.Add("b.jpg", domain.Embedding{0, 1, 0}))
	require.NoError(t, s.Add("a.jpg", domain.Embedding{1, 0, 0}))
	require.NoError(t, s.Add("c/d.png", domain.Embedding{0.5, 0.5, 0.1}))
	require.NoError(t, s.Save(fs, embeddingPath))

	loaded, err := LoadEmbeddingStore(fs, embeddingPath)
	require.NoError(t, err)

	assert.True(t, loaded.Present())
	assert.Equal(t, "jina-clip-v2", loaded.Model())
	assert.Equal(t, 3, loaded.Dimension())
	assert.Equal(t, []domain.ImageID{"b.jpg", "a.jpg", "c/d.png"}, loaded.IDs())
	emb, ok := loaded.Get("c/d.png")
	require.True(t, ok)
	assert.Equal(t, domain.Embedding{0.5, 0.5, 0.1}, emb)
}

func TestEmbeddingStoreAddRejectsMixedDimensions(t *testing.T) {
	s := NewEmbeddingStore("m", 0)
	require.NoError(t, s.Add("a.jpg", domain.Embedding{1, 0}))

	err := s.Add("b.jpg", domain.Embedding{1, 0, 0})
	assert.ErrorIs(t, err, apperr.ErrIncompatibleEmbedding)
	assert.Error(t, s.Add("a.jpg", domain.Embedding{0, 1}), "duplicate id")
	assert.Error(t, s.Add("", domain.Embedding{0, 1}), "empty id")
	assert.Error(t, s.Add("z.jpg", domain.Embedding{0, 0}), "zero vector")
	assert.Equal(t, 1, s.Len())
}

func TestLoadEmbeddingStoreCorrupt(t *testing.T) {
	tests := []struct {
		name string
		data func(t *testing.T) []byte
	}{
		{
			name: "garbage bytes",
			data: func(t *testing.T) []byte { return []byte("not msgpack at all \x00\xff") },
		},
		{
			name: "empty file",
			data: func(t *testing.T) []byte { return []byte{} },
		},
		{
			name: "pickle header",
			data: func(t *testing.T) []byte { return []byte{0x80, 0x04, 0x95, 0x10, 0x00} },
		},
		{
			name: "inconsistent dimension",
			data: func(t *testing.T) []byte {
				b, err := msgpack.Marshal(&embeddingDocument{
					Model: "m",
					Dim:   2,
					Entries: &[]embeddingEntry{
						{ID: "a.jpg", Vector: []float32{1, 0}},
						{ID: "b.jpg", Vector: []float32{1, 0, 0}},
					},
				})
				require.NoError(t, err)
				return b
			},
		},
		{
			name: "missing dimension",
			data: func(t *testing.T) []byte {
				b, err := msgpack.Marshal(&embeddingDocument{
					Entries: &[]embeddingEntry{{ID: "a.jpg", Vector: []float32{1, 0}}},
				})
				require.NoError(t, err)
				return b
			},
		},
		{
			name: "duplicate id",
			data: func(t *testing.T) []byte {
				b, err := msgpack.Marshal(&embeddingDocument{
					Dim: 2,
					Entries: &[]embeddingEntry{
						{ID: "a.jpg", Vector: []float32{1, 0}},
						{ID: "a.jpg", Vector: []float32{0, 1}},
					},
				})
				require.NoError(t, err)
				return b
			},
		},
		{
			name: "nil document",
			data: func(t *testing.T) []byte { return []byte{0xc0} },
		},
		{
			name: "empty map",
			data: func(t *testing.T) []byte { return []byte{0x80} },
		},
		{
			name: "entries missing",
			data: func(t *testing.T) []byte {
				b, err := msgpack.Marshal(map[string]any{"model": "m", "dim": 2})
				require.NoError(t, err)
				return b
			},
		},
		{
			name: "entries nil",
			data: func(t *testing.T) []byte {
				b, err := msgpack.Marshal(map[string]any{"model": "m", "dim": 2, "entries": nil})
				require.NoError(t, err)
				return b
			},
		},
		{
			name: "unknown schema",
			data: func(t *testing.T) []byte {
				b, err := msgpack.Marshal(map[string]any{"a.jpg": []float32{1, 0}})
				require.NoError(t, err)
				return b
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, embeddingPath, tc.data(t), 0o644))

			s, err := LoadEmbeddingStore(fs, embeddingPath)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, apperr.ErrCorruptData)
			assert.Equal(t, apperr.CodeCorruptData, apperr.CodeOf(err))
		})
	}
}

func TestEmbeddingStoreEmptyRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, NewEmbeddingStore("m", 0).Save(fs, embeddingPath))

	loaded, err := LoadEmbeddingStore(fs, embeddingPath)
	require.NoError(t, err)
	assert.True(t, loaded.Present())
	assert.Equal(t, 0, loaded.Len())
}

func TestEmbeddingStoreSaveInterruptedKeepsPrevious(t *testing.T) {
	mem := afero.NewMemMapFs()
	prev := NewEmbeddingStore("m", 0)
	require.NoError(t, prev.Add("a.jpg", domain.Embedding{1, 0}))
	require.NoError(t, prev.Save(mem, embeddingPath))

	next := NewEmbeddingStore("m", 0)
	require.NoError(t, next.Add("b.jpg", domain.Embedding{0, 1}))
	err := next.Save(crashingFs{Fs: mem}, embeddingPath)
	require.Error(t, err)

	loaded, err := LoadEmbeddingStore(mem, embeddingPath)
	require.NoError(t, err)
	assert.Equal(t, []domain.ImageID{"a.jpg"}, loaded.IDs())
	assert.Equal(t, []string{"embeddings.msgpack"}, listDir(t, mem, "data"))
}

func TestEmbeddingStoreRangeStopsEarly(t *testing.T) {
	s := NewEmbeddingStore("m", 2)
	require.NoError(t, s.Add("a", domain.Embedding{1, 0}))
	require.NoError(t, s.Add("b", domain.Embedding{0, 1}))

	var seen []domain.ImageID
	s.Range(func(id domain.ImageID, _ domain.Embedding) bool {
		seen = append(seen, id)
		return false
	})
	assert.Equal(t, []domain.ImageID{"a"}, seen)
}
