// Package encoder is the client side of the external embedding model. It
// maps query text and raw image bytes into the shared embedding space.
package encoder

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/timmy/phototag/internal/config"
	"github.com/timmy/phototag/internal/domain"
	apperr "github.com/timmy/phototag/internal/errors"
)

const defaultTimeout = 30 * time.Second

// Encoder produces embeddings for queries and images. Implementations must
// be safe for concurrent use; the indexer calls EncodeImage from several
// workers.
type Encoder interface {
	EncodeText(ctx context.Context, text string) (domain.Embedding, error)
	EncodeImage(ctx context.Context, img domain.RawImage) (domain.Embedding, error)
	Model() string
	// Dimensions is the configured vector size, 0 when unknown.
	Dimensions() int
}

// New builds the encoder client for cfg.Provider.
func New(cfg *config.EncoderConfig) (Encoder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("encoder: config is nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case "jina":
		return NewJinaEncoder(cfg), nil
	case "clip-server":
		return NewClipServerEncoder(cfg), nil
	default:
		return nil, fmt.Errorf("encoder: unknown provider %q", cfg.Provider)
	}
}

func newClient(cfg *config.EncoderConfig) *resty.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	return client
}

func encodeImageData(img domain.RawImage) (string, error) {
	if len(img.Data) == 0 {
		return "", apperr.New(apperr.CodeInvalidInput, "image content is empty", apperr.FieldImageID(string(img.ID)))
	}
	return base64.StdEncoding.EncodeToString(img.Data), nil
}

// checkEmbedding validates a vector returned by the service against the
// configured dimension.
func checkEmbedding(vec []float32, dimensions int) (domain.Embedding, error) {
	emb := domain.Embedding(vec)
	if err := emb.Validate(); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeEncoderUnavailable, "encoder returned an invalid embedding")
	}
	if dimensions > 0 && emb.Dim() != dimensions {
		return nil, apperr.IncompatibleEmbedding(dimensions, emb.Dim())
	}
	return emb, nil
}

func unavailable(provider string, err error) error {
	return apperr.Wrapf(err, apperr.CodeEncoderUnavailable, "failed to call %s encoder", provider)
}

func upstreamStatus(provider string, status int, detail string) error {
	if detail != "" {
		return apperr.Errorf(apperr.CodeEncoderUnavailable, "%s encoder error: %s", provider, detail)
	}
	return apperr.Errorf(apperr.CodeEncoderUnavailable, "%s encoder error: status %d", provider, status)
}
