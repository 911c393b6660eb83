package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"unicode/utf8"

	"github.com/spf13/afero"
	"github.com/timmy/phototag/internal/domain"
	apperr "github.com/timmy/phototag/internal/errors"
)

// TagStore maps image IDs to tag sets and persists them as a UTF-8 JSON
// object. The mutex only protects the in-memory map from concurrent request
// goroutines; the store assumes a single process writes the file at a time.
type TagStore struct {
	fs      afero.Fs
	path    string
	mu      sync.RWMutex
	tags    map[domain.ImageID]domain.TagSet
	present bool
}

// LoadTagStore reads the tag file at path. A missing file yields an empty
// store. Content that is not a JSON object of string lists fails with
// CorruptData. IDs that no longer exist in the corpus are kept as-is.
func LoadTagStore(fs afero.Fs, path string) (*TagStore, error) {
	s := &TagStore{
		fs:   fs,
		path: path,
		tags: make(map[domain.ImageID]domain.TagSet),
	}

	data, ok, err := readFile(fs, path)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeStorageFailure, "failed to read tag store", apperr.FieldPath(path))
	}
	if !ok {
		return s, nil
	}

	mapping, err := decodeTags(data)
	if err != nil {
		return nil, apperr.CorruptData(path, err)
	}
	for id, tags := range mapping {
		if set := domain.NewTagSet(tags...); set.Len() > 0 {
			s.tags[domain.ImageID(id)] = set
		}
	}
	s.present = true
	return s, nil
}

func decodeTags(data []byte) (map[string][]string, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("content is not valid UTF-8")
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("content is not a JSON object")
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	mapping := make(map[string][]string)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		id, _ := tok.(string)
		if id == "" {
			return nil, fmt.Errorf("empty image id")
		}
		if _, dup := mapping[id]; dup {
			return nil, fmt.Errorf("duplicate image id %q", id)
		}
		var tags []string
		if err := dec.Decode(&tags); err != nil {
			return nil, fmt.Errorf("image %q: %w", id, err)
		}
		mapping[id] = tags
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("trailing content after JSON object")
	}
	return mapping, nil
}

func encodeTags(mapping map[domain.ImageID]domain.TagSet) ([]byte, error) {
	out := make(map[string][]string, len(mapping))
	for id, set := range mapping {
		if set.Len() == 0 {
			continue
		}
		out[string(id)] = set.Strings()
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Tags returns the persisted-or-set tags for id; unknown IDs have none.
func (s *TagStore) Tags(id domain.ImageID) domain.TagSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.TagSet(s.tags[id].Strings())
}

// SetTags replaces the whole tag set of id in memory. Nothing is written
// until Save is called. An empty list removes the entry.
func (s *TagStore) SetTags(id domain.ImageID, tags []string) domain.TagSet {
	set := domain.NewTagSet(tags...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if set.Len() == 0 {
		delete(s.tags, id)
	} else {
		s.tags[id] = set
	}
	return set.Strings()
}

// Save persists the full in-memory mapping atomically.
func (s *TagStore) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persist(s.tags)
}

// Replace swaps the whole mapping and persists it. On failure the previous
// mapping stays in memory and on disk.
func (s *TagStore) Replace(mapping map[domain.ImageID]domain.TagSet) error {
	next := make(map[domain.ImageID]domain.TagSet, len(mapping))
	for id, set := range mapping {
		if normalized := domain.NewTagSet(set...); normalized.Len() > 0 {
			next[id] = normalized
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.persist(next); err != nil {
		return err
	}
	s.tags = next
	return nil
}

// Commit replaces the tag set of id and persists the full mapping in one
// step. If persisting fails the in-memory state is left unchanged.
func (s *TagStore) Commit(id domain.ImageID, tags []string) (domain.TagSet, error) {
	set := domain.NewTagSet(tags...)

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[domain.ImageID]domain.TagSet, len(s.tags)+1)
	for k, v := range s.tags {
		next[k] = v
	}
	if set.Len() == 0 {
		delete(next, id)
	} else {
		next[id] = set
	}

	if err := s.persist(next); err != nil {
		return nil, err
	}
	s.tags = next
	return set.Strings(), nil
}

// persist must be called with s.mu held.
func (s *TagStore) persist(mapping map[domain.ImageID]domain.TagSet) error {
	data, err := encodeTags(mapping)
	if err != nil {
		return apperr.Wrap(err, apperr.CodeInternal, "failed to encode tag store")
	}
	if err := writeFileAtomic(s.fs, s.path, data, 0o644); err != nil {
		return apperr.Wrap(err, apperr.CodeStorageFailure, "failed to persist tag store", apperr.FieldPath(s.path))
	}
	s.present = true
	return nil
}

// Snapshot returns a copy of the whole mapping.
func (s *TagStore) Snapshot() map[domain.ImageID]domain.TagSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[domain.ImageID]domain.TagSet, len(s.tags))
	for id, set := range s.tags {
		out[id] = set.Strings()
	}
	return out
}

// TaggedIDs returns the IDs with at least one tag, sorted.
func (s *TagStore) TaggedIDs() []domain.ImageID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]domain.ImageID, 0, len(s.tags))
	for id := range s.tags {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Len returns the number of IDs with at least one tag.
func (s *TagStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tags)
}

// Present reports whether the tag file existed when loaded or has been saved.
func (s *TagStore) Present() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.present
}

// Path returns the file the store persists to.
func (s *TagStore) Path() string {
	return s.path
}
