package storage

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmy/phototag/internal/domain"
	apperr "github.com/timmy/phototag/internal/errors"
)

// fakeS3 serves a fixed key set, two keys per page.
type fakeS3 struct {
	objects map[string][]byte
	keys    []string
	gotKey  string
}

func (f *fakeS3) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	start := 0
	if in.ContinuationToken != nil {
		for i, k := range f.keys {
			if k == *in.ContinuationToken {
				start = i
			}
		}
	}
	end := start + 2
	out := &s3.ListObjectsV2Output{}
	if end < len(f.keys) {
		out.IsTruncated = aws.Bool(true)
		out.NextContinuationToken = aws.String(f.keys[end])
	} else {
		end = len(f.keys)
		out.IsTruncated = aws.Bool(false)
	}
	for _, k := range f.keys[start:end] {
		out.Contents = append(out.Contents, types.Object{Key: aws.String(k)})
	}
	return out, nil
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gotKey = aws.ToString(in.Key)
	data, ok := f.objects[f.gotKey]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func TestS3SourceList(t *testing.T) {
	fake := &fakeS3{keys: []string{
		"photos/",
		"photos/z.jpg",
		"photos/.trash/old.jpg",
		"photos/a/b.png",
		"photos/readme.md",
	}}
	src := newS3Source(fake, "bucket", "/photos/", "", StorageTypeS3)

	ids, err := src.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []domain.ImageID{"a/b.png", "z.jpg"}, ids)
}

func TestS3SourceRead(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{"photos/a/b.png": []byte("png")}}
	src := newS3Source(fake, "bucket", "photos", "", StorageTypeS3)

	img, err := src.Read(context.Background(), "a/b.png")
	require.NoError(t, err)
	assert.Equal(t, "photos/a/b.png", fake.gotKey)
	assert.Equal(t, []byte("png"), img.Data)
	assert.Equal(t, "png", img.Format)

	_, err = src.Read(context.Background(), "missing.jpg")
	assert.True(t, apperr.HasCode(err, apperr.CodeNotFound))
}

func TestEndpointHelpers(t *testing.T) {
	assert.Equal(t, "minio:9000", normalizeEndpoint("http://minio:9000/some/path"))
	assert.Equal(t, StorageTypeR2, detectStorageType("https://acct.r2.cloudflarestorage.com"))
	assert.Equal(t, StorageTypeS3, detectStorageType(""))
	assert.Equal(t, StorageTypeS3Compatible, detectStorageType("minio:9000"))
	assert.Equal(t, "", normalizePrefix("/"))
	assert.Equal(t, "a/b/", normalizePrefix("a/b"))
}
