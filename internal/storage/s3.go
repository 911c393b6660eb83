package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/timmy/phototag/internal/domain"
	apperr "github.com/timmy/phototag/internal/errors"
)

// StorageType defines the type of S3-compatible storage
type StorageType string

const (
	StorageTypeR2           StorageType = "r2"
	StorageTypeS3           StorageType = "s3"
	StorageTypeS3Compatible StorageType = "s3compatible"
)

// S3Config holds configuration for S3-compatible storage
type S3Config struct {
	Type      StorageType
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
	Prefix    string // Key prefix the corpus lives under, e.g. "photos/"
}

// s3API is the subset of the S3 client the source uses.
type s3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source serves images from an S3-compatible bucket. ImageIDs are object
// keys with the configured prefix removed.
type S3Source struct {
	client    s3API
	bucket    string
	prefix    string
	endpoint  string
	storeType StorageType
}

// NewS3Source creates a new S3-compatible image source
func NewS3Source(cfg *S3Config) (*S3Source, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 source: bucket is required")
	}
	storeType := cfg.Type
	if storeType == "" {
		storeType = detectStorageType(cfg.Endpoint)
	}

	region := cfg.Region
	if region == "" {
		if storeType == StorageTypeR2 {
			region = "auto"
		} else {
			region = "us-east-1"
		}
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	endpoint := normalizeEndpoint(cfg.Endpoint)
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint == "" {
			return
		}
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		o.BaseEndpoint = aws.String(scheme + "://" + endpoint)
		o.UsePathStyle = true
	})

	return newS3Source(client, cfg.Bucket, cfg.Prefix, endpoint, storeType), nil
}

func newS3Source(client s3API, bucket, prefix, endpoint string, storeType StorageType) *S3Source {
	return &S3Source{
		client:    client,
		bucket:    bucket,
		prefix:    normalizePrefix(prefix),
		endpoint:  endpoint,
		storeType: storeType,
	}
}

func (s *S3Source) Name() string {
	return fmt.Sprintf("%s:%s/%s", s.storeType, s.bucket, s.prefix)
}

// List pages through the bucket under the prefix and returns image keys.
func (s *S3Source) List(ctx context.Context) ([]domain.ImageID, error) {
	var ids []domain.ImageID
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, apperr.Wrapf(err, apperr.CodeStorageFailure, "failed to list bucket %s", s.bucket)
		}
		for _, obj := range page.Contents {
			id, ok := s.keyToID(aws.ToString(obj.Key))
			if ok {
				ids = append(ids, id)
			}
		}
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

func (s *S3Source) Read(ctx context.Context, id domain.ImageID) (domain.RawImage, error) {
	rel, err := cleanID(id)
	if err != nil {
		return domain.RawImage{}, err
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + rel),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return domain.RawImage{}, apperr.New(apperr.CodeNotFound, "image not found", apperr.FieldImageID(string(id)))
		}
		return domain.RawImage{}, apperr.Wrap(err, apperr.CodeStorageFailure, "failed to download image", apperr.FieldImageID(string(id)))
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return domain.RawImage{}, apperr.Wrap(err, apperr.CodeStorageFailure, "failed to read image body", apperr.FieldImageID(string(id)))
	}
	return domain.RawImage{ID: id, Data: data, Format: imageFormat(rel)}, nil
}

// keyToID strips the prefix and filters out folders, hidden objects and
// non-image keys.
func (s *S3Source) keyToID(key string) (domain.ImageID, bool) {
	rel := strings.TrimPrefix(key, s.prefix)
	if rel == "" || strings.HasSuffix(rel, "/") {
		return "", false
	}
	for _, part := range strings.Split(rel, "/") {
		if part == "" || isHidden(part) {
			return "", false
		}
	}
	if imageFormat(rel) == "" {
		return "", false
	}
	return domain.ImageID(rel), true
}

// normalizeEndpoint removes protocol prefix and path from endpoint
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")
	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}
	return endpoint
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

// detectStorageType attempts to detect the storage type from the endpoint
func detectStorageType(endpoint string) StorageType {
	endpoint = strings.ToLower(endpoint)

	switch {
	case strings.Contains(endpoint, "r2.cloudflarestorage.com"):
		return StorageTypeR2
	case endpoint == "" || strings.Contains(endpoint, "amazonaws.com"):
		return StorageTypeS3
	default:
		return StorageTypeS3Compatible
	}
}
