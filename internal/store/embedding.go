// Package store holds the two persisted stores: the read-mostly embedding
// store built by offline indexing runs and the mutable tag store written on
// explicit saves. Both persist through afero so that writes can be made
// atomic and exercised against in-memory filesystems.
package store

import (
	"bytes"
	"fmt"

	"github.com/spf13/afero"
	"github.com/timmy/phototag/internal/domain"
	apperr "github.com/timmy/phototag/internal/errors"
	"github.com/vmihailenco/msgpack/v5"
)

// embeddingDocument is the on-disk msgpack layout of an embedding store.
// Entries are kept as a list so the store's iteration order survives a
// round trip. A nil Entries after decoding means the list was absent.
type embeddingDocument struct {
	Model   string            `msgpack:"model"`
	Dim     int               `msgpack:"dim"`
	Entries *[]embeddingEntry `msgpack:"entries"`
}

type embeddingEntry struct {
	ID     string    `msgpack:"id"`
	Vector []float32 `msgpack:"vector"`
}

// EmbeddingStore maps image IDs to embeddings of one fixed dimension.
// It is built once per indexing run and treated as read-only afterwards.
type EmbeddingStore struct {
	model   string
	dim     int
	ids     []domain.ImageID
	vectors map[domain.ImageID]domain.Embedding
	present bool
}

// NewEmbeddingStore creates an empty store for embeddings produced by model.
// A dim of 0 lets the first added embedding fix the dimension.
func NewEmbeddingStore(model string, dim int) *EmbeddingStore {
	return &EmbeddingStore{
		model:   model,
		dim:     dim,
		vectors: make(map[domain.ImageID]domain.Embedding),
	}
}

// LoadEmbeddingStore reads the store persisted at path. A missing file yields
// an empty store with Present() == false. Content that does not decode, or
// decodes into vectors of inconsistent dimension, fails with CorruptData.
func LoadEmbeddingStore(fs afero.Fs, path string) (*EmbeddingStore, error) {
	data, ok, err := readFile(fs, path)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorageFailure, "failed to read embedding store", apperr.FieldPath(path))
	}
	if !ok {
		return NewEmbeddingStore("", 0), nil
	}

	reader := bytes.NewReader(data)
	dec := msgpack.NewDecoder(reader)
	dec.DisallowUnknownFields(true)

	var doc embeddingDocument
	if err := dec.Decode(&doc); err != nil {
		return nil, apperr.CorruptData(path, err)
	}
	if reader.Len() != 0 {
		return nil, apperr.CorruptData(path, fmt.Errorf("%d trailing bytes after document", reader.Len()))
	}
	if doc.Entries == nil {
		return nil, apperr.CorruptData(path, fmt.Errorf("document has no entries list"))
	}
	entries := *doc.Entries
	if doc.Dim < 0 || (len(entries) > 0 && doc.Dim == 0) {
		return nil, apperr.CorruptData(path, fmt.Errorf("invalid dimension %d", doc.Dim))
	}

	s := NewEmbeddingStore(doc.Model, doc.Dim)
	for i, entry := range entries {
		if len(entry.Vector) != doc.Dim {
			return nil, apperr.CorruptData(path, fmt.Errorf("entry %d: %d values, store dimension is %d", i, len(entry.Vector), doc.Dim))
		}
		if err := s.Add(domain.ImageID(entry.ID), domain.Embedding(entry.Vector)); err != nil {
			return nil, apperr.CorruptData(path, fmt.Errorf("entry %d: %w", i, err))
		}
	}
	s.present = true
	return s, nil
}

// Add inserts an embedding. It rejects empty IDs, duplicates, invalid
// vectors and vectors whose dimension differs from the store's.
func (s *EmbeddingStore) Add(id domain.ImageID, emb domain.Embedding) error {
	if id == "" {
		return fmt.Errorf("empty image id")
	}
	if _, exists := s.vectors[id]; exists {
		return fmt.Errorf("duplicate image id %q", id)
	}
	if err := emb.Validate(); err != nil {
		return fmt.Errorf("image %q: %w", id, err)
	}
	if s.dim == 0 {
		s.dim = emb.Dim()
	}
	if emb.Dim() != s.dim {
		return apperr.IncompatibleEmbedding(s.dim, emb.Dim())
	}
	s.ids = append(s.ids, id)
	s.vectors[id] = emb
	return nil
}

// Save persists the store to path atomically.
func (s *EmbeddingStore) Save(fs afero.Fs, path string) error {
	entries := make([]embeddingEntry, 0, len(s.ids))
	for _, id := range s.ids {
		entries = append(entries, embeddingEntry{ID: string(id), Vector: s.vectors[id]})
	}
	doc := embeddingDocument{
		Model:   s.model,
		Dim:     s.dim,
		Entries: &entries,
	}

	data, err := msgpack.Marshal(&doc)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to encode embedding store")
	}
	if err := writeFileAtomic(fs, path, data, 0o644); err != nil {
		return apperr.Wrap(err, apperr.CodeStorageFailure, "failed to persist embedding store", apperr.FieldPath(path))
	}
	s.present = true
	return nil
}

// Get returns the embedding for id.
func (s *EmbeddingStore) Get(id domain.ImageID) (domain.Embedding, bool) {
	emb, ok := s.vectors[id]
	return emb, ok
}

// Range calls fn for every entry in the store's natural order until fn
// returns false.
func (s *EmbeddingStore) Range(fn func(id domain.ImageID, emb domain.Embedding) bool) {
	for _, id := range s.ids {
		if !fn(id, s.vectors[id]) {
			return
		}
	}
}

// IDs returns the image IDs in natural order.
func (s *EmbeddingStore) IDs() []domain.ImageID {
	out := make([]domain.ImageID, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *EmbeddingStore) Len() int       { return len(s.ids) }
func (s *EmbeddingStore) Dimension() int { return s.dim }
func (s *EmbeddingStore) Model() string  { return s.model }

// Present reports whether the store was loaded from, or saved to, a file.
// An absent store is the normal state before the first indexing run.
func (s *EmbeddingStore) Present() bool {
	return s.present
}
