package domain

import (
	"fmt"
	"math"
	"strings"
)

// ImageID identifies an image across every store. It is the image's path
// relative to the image root, slash-separated (for example "trips/a.jpg").
type ImageID string

// Embedding is a fixed-length semantic vector produced by an encoder for one
// image or text query.
type Embedding []float32

// Dim returns the vector dimension.
func (e Embedding) Dim() int {
	return len(e)
}

// Validate checks that the embedding can take part in a cosine similarity:
// non-empty, finite, and of non-zero magnitude.
func (e Embedding) Validate() error {
	if len(e) == 0 {
		return fmt.Errorf("empty embedding")
	}
	var sum float64
	for i, v := range e {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("non-finite value at index %d", i)
		}
		sum += f * f
	}
	if sum == 0 {
		return fmt.Errorf("zero-magnitude embedding")
	}
	return nil
}

// TagSet is a set of normalized tags that keeps insertion order for display.
// Build one with NewTagSet; the zero value is an empty set.
type TagSet []string

// NormalizeTag trims surrounding whitespace and collapses internal runs of
// whitespace to a single space. Case and non-ASCII text are kept as given.
func NormalizeTag(tag string) string {
	return strings.Join(strings.Fields(tag), " ")
}

// NewTagSet normalizes tags, dropping empties and duplicates. The first
// occurrence of a tag decides its position.
func NewTagSet(tags ...string) TagSet {
	seen := make(map[string]struct{}, len(tags))
	set := make(TagSet, 0, len(tags))
	for _, tag := range tags {
		normalized := NormalizeTag(tag)
		if normalized == "" {
			continue
		}
		if _, ok := seen[normalized]; ok {
			continue
		}
		seen[normalized] = struct{}{}
		set = append(set, normalized)
	}
	return set
}

// Len returns the number of tags.
func (s TagSet) Len() int {
	return len(s)
}

// Contains reports whether tag (after normalization) is in the set.
func (s TagSet) Contains(tag string) bool {
	normalized := NormalizeTag(tag)
	for _, t := range s {
		if t == normalized {
			return true
		}
	}
	return false
}

// ContainsAny reports whether at least one of tags is in the set.
func (s TagSet) ContainsAny(tags []string) bool {
	for _, tag := range tags {
		if s.Contains(tag) {
			return true
		}
	}
	return false
}

// Strings returns a copy of the tags as a plain slice.
func (s TagSet) Strings() []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}
