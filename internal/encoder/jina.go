package encoder

import (
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"

	"github.com/timmy/phototag/internal/config"
	"github.com/timmy/phototag/internal/domain"
)

const jinaEndpoint = "https://api.jina.ai/v1/embeddings"

// JinaEncoder calls the Jina multimodal embeddings API (jina-clip models),
// which accepts text and base64 images in the same request shape.
type JinaEncoder struct {
	client     *resty.Client
	endpoint   string
	model      string
	dimensions int
}

func NewJinaEncoder(cfg *config.EncoderConfig) *JinaEncoder {
	endpoint := cfg.BaseURL
	if endpoint == "" {
		endpoint = jinaEndpoint
	}
	return &JinaEncoder{
		client:     newClient(cfg),
		endpoint:   endpoint,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

func (e *JinaEncoder) Model() string   { return e.model }
func (e *JinaEncoder) Dimensions() int { return e.dimensions }

type jinaInput struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

type jinaRequest struct {
	Model         string      `json:"model"`
	Task          string      `json:"task,omitempty"`
	Dimensions    int         `json:"dimensions,omitempty"`
	Normalized    bool        `json:"normalized"`
	EmbeddingType string      `json:"embedding_type,omitempty"`
	Input         []jinaInput `json:"input"`
}

type jinaResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Detail string `json:"detail,omitempty"`
}

// EncodeText embeds a search query.
func (e *JinaEncoder) EncodeText(ctx context.Context, text string) (domain.Embedding, error) {
	return e.embed(ctx, "retrieval.query", jinaInput{Text: text})
}

// EncodeImage embeds one image as base64 content.
func (e *JinaEncoder) EncodeImage(ctx context.Context, img domain.RawImage) (domain.Embedding, error) {
	data, err := encodeImageData(img)
	if err != nil {
		return nil, err
	}
	return e.embed(ctx, "", jinaInput{Image: data})
}

func (e *JinaEncoder) embed(ctx context.Context, task string, input jinaInput) (domain.Embedding, error) {
	req := jinaRequest{
		Model:         e.model,
		Task:          task,
		Dimensions:    e.dimensions,
		Normalized:    true,
		EmbeddingType: "float",
		Input:         []jinaInput{input},
	}

	var resp jinaResponse
	httpResp, err := e.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&resp).
		SetError(&resp).
		Post(e.endpoint)
	if err != nil {
		return nil, unavailable("jina", err)
	}
	if httpResp.StatusCode() != http.StatusOK {
		return nil, upstreamStatus("jina", httpResp.StatusCode(), resp.Detail)
	}
	if len(resp.Data) == 0 {
		return nil, upstreamStatus("jina", httpResp.StatusCode(), "no embedding returned")
	}
	return checkEmbedding(resp.Data[0].Embedding, e.dimensions)
}
