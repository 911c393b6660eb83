package store

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/phototag/internal/domain"
	apperr "github.com/timmy/phototag/internal/errors"
)

const tagsPath = "data/tags.json"

func TestLoadTagStoreMissingIsEmpty(t *testing.T) {
	s, err := LoadTagStore(afero.NewMemMapFs(), tagsPath)

	require.NoError(t, err)
	assert.Equal(t, 0, s.Len())
	assert.False(t, s.Present())
	assert.Empty(t, s.Tags("a.jpg"))
}

func TestTagStoreRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := LoadTagStore(fs, tagsPath)
	require.NoError(t, err)

	require.NoError(t, s.Replace(map[domain.ImageID]domain.TagSet{
		"a.jpg": {"cat", "outdoor"},
	}))

	loaded, err := LoadTagStore(fs, tagsPath)
	require.NoError(t, err)
	assert.Equal(t, map[domain.ImageID]domain.TagSet{"a.jpg": {"cat", "outdoor"}}, loaded.Snapshot())
}

func TestTagStorePreservesNonASCII(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := LoadTagStore(fs, tagsPath)
	require.NoError(t, err)

	tags := []string{"café", "日落", "Straße", "🐈 <cat> & co"}
	_, err = s.Commit("été/plage.jpg", tags)
	require.NoError(t, err)

	raw, err := afero.ReadFile(fs, tagsPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "日落", "non-ASCII written raw, not escaped")
	assert.Contains(t, string(raw), "<cat> & co")

	loaded, err := LoadTagStore(fs, tagsPath)
	require.NoError(t, err)
	assert.Equal(t, domain.TagSet(tags), loaded.Tags("été/plage.jpg"))
}

func TestTagStoreSetTagsReplaces(t *testing.T) {
	s, err := LoadTagStore(afero.NewMemMapFs(), tagsPath)
	require.NoError(t, err)

	s.SetTags("a.jpg", []string{"cat", "outdoor"})
	got := s.SetTags("a.jpg", []string{"dog"})

	assert.Equal(t, domain.TagSet{"dog"}, got)
	assert.Equal(t, domain.TagSet{"dog"}, s.Tags("a.jpg"))

	s.SetTags("a.jpg", nil)
	assert.Equal(t, 0, s.Len())
}

func TestTagStoreSetTagsNotPersistedUntilSave(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := LoadTagStore(fs, tagsPath)
	require.NoError(t, err)

	s.SetTags("a.jpg", []string{"cat"})
	exists, err := afero.Exists(fs, tagsPath)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, s.Save())
	loaded, err := LoadTagStore(fs, tagsPath)
	require.NoError(t, err)
	assert.Equal(t, domain.TagSet{"cat"}, loaded.Tags("a.jpg"))
}

func TestTagStoreToleratesStaleIDs(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := `{"gone.jpg": ["old"], "a.jpg": ["  cat ", "cat", ""], "b.jpg": [], "c.jpg": null}`
	require.NoError(t, afero.WriteFile(fs, tagsPath, []byte(content), 0o644))

	s, err := LoadTagStore(fs, tagsPath)
	require.NoError(t, err)
	assert.Equal(t, domain.TagSet{"old"}, s.Tags("gone.jpg"))
	assert.Equal(t, domain.TagSet{"cat"}, s.Tags("a.jpg"))
	assert.Equal(t, []domain.ImageID{"a.jpg", "gone.jpg"}, s.TaggedIDs())
}

func TestLoadTagStoreCorrupt(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"truncated", `{"a.jpg": ["cat"`},
		{"array", `[["a.jpg", "cat"]]`},
		{"null", `null`},
		{"wrong value type", `{"a.jpg": "cat"}`},
		{"empty id", `{"": ["cat"]}`},
		{"invalid utf8", "{\"a.jpg\": [\"\xff\xfe\"]}"},
		{"duplicate id", `{"a.jpg": ["cat"], "a.jpg": ["dog"]}`},
		{"trailing content", `{"a.jpg": ["cat"]} {}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			require.NoError(t, afero.WriteFile(fs, tagsPath, []byte(tc.content), 0o644))

			s, err := LoadTagStore(fs, tagsPath)
			assert.Nil(t, s)
			assert.ErrorIs(t, err, apperr.ErrCorruptData)
		})
	}
}

func TestTagStoreSaveInterruptedKeepsPrevious(t *testing.T) {
	mem := afero.NewMemMapFs()
	s, err := LoadTagStore(mem, tagsPath)
	require.NoError(t, err)
	_, err = s.Commit("a.jpg", []string{"cat"})
	require.NoError(t, err)

	crashing, err := LoadTagStore(crashingFs{Fs: mem}, tagsPath)
	require.NoError(t, err)
	_, err = crashing.Commit("a.jpg", []string{"dog"})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeStorageFailure, apperr.CodeOf(err))
	assert.Equal(t, domain.TagSet{"cat"}, crashing.Tags("a.jpg"), "memory rolls back with the file")

	loaded, err := LoadTagStore(mem, tagsPath)
	require.NoError(t, err)
	assert.Equal(t, domain.TagSet{"cat"}, loaded.Tags("a.jpg"))

	for _, name := range listDir(t, mem, "data") {
		assert.False(t, strings.Contains(name, ".tmp-"), "temp file %s left behind", name)
	}
}

func TestTagStoreFileIsSortedAndIndented(t *testing.T) {
	fs := afero.NewMemMapFs()
	s, err := LoadTagStore(fs, tagsPath)
	require.NoError(t, err)
	require.NoError(t, s.Replace(map[domain.ImageID]domain.TagSet{
		"b.jpg": {"dog"},
		"a.jpg": {"cat"},
	}))

	raw, err := afero.ReadFile(fs, tagsPath)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a.jpg\": [\n    \"cat\"\n  ],\n  \"b.jpg\": [\n    \"dog\"\n  ]\n}\n", string(raw))
}
