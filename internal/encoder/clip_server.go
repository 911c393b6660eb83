package encoder

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-resty/resty/v2"

	"github.com/timmy/phototag/internal/config"
	"github.com/timmy/phototag/internal/domain"
)

// ClipServerEncoder calls a self-hosted CLIP service exposing
// POST {base_url}/encode.
type ClipServerEncoder struct {
	client     *resty.Client
	endpoint   string
	model      string
	dimensions int
}

func NewClipServerEncoder(cfg *config.EncoderConfig) *ClipServerEncoder {
	return &ClipServerEncoder{
		client:     newClient(cfg),
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + "/encode",
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

func (e *ClipServerEncoder) Model() string   { return e.model }
func (e *ClipServerEncoder) Dimensions() int { return e.dimensions }

type clipRequest struct {
	Model string `json:"model,omitempty"`
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

type clipResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

func (e *ClipServerEncoder) EncodeText(ctx context.Context, text string) (domain.Embedding, error) {
	return e.encode(ctx, clipRequest{Model: e.model, Text: text})
}

func (e *ClipServerEncoder) EncodeImage(ctx context.Context, img domain.RawImage) (domain.Embedding, error) {
	data, err := encodeImageData(img)
	if err != nil {
		return nil, err
	}
	return e.encode(ctx, clipRequest{Model: e.model, Image: data})
}

func (e *ClipServerEncoder) encode(ctx context.Context, req clipRequest) (domain.Embedding, error) {
	var resp clipResponse
	httpResp, err := e.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(e.endpoint)
	if err != nil {
		return nil, unavailable("clip-server", err)
	}
	if httpResp.StatusCode() != http.StatusOK {
		return nil, upstreamStatus("clip-server", httpResp.StatusCode(), resp.Error)
	}
	return checkEmbedding(resp.Embedding, e.dimensions)
}
