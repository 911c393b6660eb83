package storage

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/timmy/phototag/internal/domain"
	apperr "github.com/timmy/phototag/internal/errors"
)

// LocalSource serves images from a directory tree. ImageIDs are paths
// relative to the root, slash-separated.
type LocalSource struct {
	fs   afero.Fs
	root string
}

// NewLocalSource creates a source rooted at root on fs.
func NewLocalSource(fs afero.Fs, root string) *LocalSource {
	return &LocalSource{fs: fs, root: filepath.Clean(root)}
}

func (s *LocalSource) Name() string {
	return "local:" + s.root
}

// List walks the root and returns every image file, skipping hidden files
// and directories.
func (s *LocalSource) List(ctx context.Context) ([]domain.ImageID, error) {
	if _, err := s.fs.Stat(s.root); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.New(apperr.CodeNotFound, "image root does not exist", apperr.FieldPath(s.root))
		}
		return nil, apperr.Wrap(err, apperr.CodeStorageFailure, "failed to stat image root", apperr.FieldPath(s.root))
	}

	var ids []domain.ImageID
	err := afero.Walk(s.fs, s.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		name := info.Name()
		if info.IsDir() {
			if p != s.root && isHidden(name) {
				return filepath.SkipDir
			}
			return nil
		}
		if isHidden(name) || imageFormat(name) == "" {
			return nil
		}

		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		ids = append(ids, domain.ImageID(filepath.ToSlash(rel)))
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apperr.Wrap(err, apperr.CodeStorageFailure, "failed to walk image root", apperr.FieldPath(s.root))
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *LocalSource) Read(ctx context.Context, id domain.ImageID) (domain.RawImage, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawImage{}, err
	}
	rel, err := cleanID(id)
	if err != nil {
		return domain.RawImage{}, err
	}

	full := filepath.Join(s.root, filepath.FromSlash(rel))
	data, err := afero.ReadFile(s.fs, full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.RawImage{}, apperr.New(apperr.CodeNotFound, "image not found", apperr.FieldImageID(string(id)))
		}
		return domain.RawImage{}, apperr.Wrap(err, apperr.CodeStorageFailure, "failed to read image", apperr.FieldImageID(string(id)))
	}

	return domain.RawImage{ID: id, Data: data, Format: imageFormat(rel)}, nil
}

// cleanID rejects ids that would escape the root.
func cleanID(id domain.ImageID) (string, error) {
	raw := string(id)
	cleaned := path.Clean("/" + raw)[1:]
	if raw == "" || cleaned == "" || cleaned != raw || strings.HasPrefix(raw, "/") {
		return "", apperr.New(apperr.CodeInvalidInput, "invalid image id", apperr.FieldImageID(raw))
	}
	return cleaned, nil
}
