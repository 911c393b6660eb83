package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/timmy/phototag/internal/domain"
	apperr "github.com/timmy/phototag/internal/errors"
)

// fakeEncoder returns fixed vectors per image ID and per query text.
type fakeEncoder struct {
	mu      sync.Mutex
	images  map[domain.ImageID]domain.Embedding
	texts   map[string]domain.Embedding
	fail    map[domain.ImageID]bool
	textErr error
	dim     int
	calls   int
}

func (f *fakeEncoder) EncodeText(_ context.Context, text string) (domain.Embedding, error) {
	if f.textErr != nil {
		return nil, f.textErr
	}
	emb, ok := f.texts[text]
	if !ok {
		return nil, apperr.Errorf(apperr.CodeEncoderUnavailable, "no vector for %q", text)
	}
	return emb, nil
}

func (f *fakeEncoder) EncodeImage(_ context.Context, img domain.RawImage) (domain.Embedding, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.fail[img.ID] {
		return nil, apperr.Errorf(apperr.CodeEncoderUnavailable, "encoder rejected %s", img.ID)
	}
	emb, ok := f.images[img.ID]
	if !ok {
		return nil, fmt.Errorf("no vector for %s", img.ID)
	}
	return emb, nil
}

func (f *fakeEncoder) Model() string   { return "fake-clip" }
func (f *fakeEncoder) Dimensions() int { return f.dim }

// memSource is an in-memory image source.
type memSource struct {
	images  map[domain.ImageID][]byte
	listErr error
}

func (m *memSource) Name() string { return "mem" }

func (m *memSource) List(context.Context) ([]domain.ImageID, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	ids := make([]domain.ImageID, 0, len(m.images))
	for id := range m.images {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (m *memSource) Read(_ context.Context, id domain.ImageID) (domain.RawImage, error) {
	data, ok := m.images[id]
	if !ok {
		return domain.RawImage{}, apperr.New(apperr.CodeNotFound, "image not found")
	}
	return domain.RawImage{ID: id, Data: data}, nil
}

// recorder captures index run records.
type recorder struct {
	created []domain.IndexRun
	updated []domain.IndexRun
}

func (r *recorder) Create(_ context.Context, run *domain.IndexRun) error {
	r.created = append(r.created, *run)
	return nil
}

func (r *recorder) Update(_ context.Context, run *domain.IndexRun) error {
	r.updated = append(r.updated, *run)
	return nil
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}
