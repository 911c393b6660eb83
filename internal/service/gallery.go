package service

import (
	"context"
	"strings"
	"time"

	"github.com/timmy/phototag/internal/domain"
	"github.com/timmy/phototag/internal/encoder"
	apperr "github.com/timmy/phototag/internal/errors"
	"github.com/timmy/phototag/internal/logger"
	"github.com/timmy/phototag/internal/search"
	"github.com/timmy/phototag/internal/store"
)

// IndexRunHistory reads recorded index runs.
type IndexRunHistory interface {
	Latest(ctx context.Context) (*domain.IndexRun, error)
}

// GalleryConfig holds the query-time settings.
type GalleryConfig struct {
	ScoreThreshold float64
	MaxResults     int
	NeighborCount  int
	TagCount       int
}

// Gallery is the process-wide context: the loaded stores, the encoder and
// the settings every request shares. Construct it once at startup.
type Gallery struct {
	embeddings *store.EmbeddingStore
	tags       *store.TagStore
	encoder    encoder.Encoder
	history    IndexRunHistory
	logger     *logger.Logger
	cfg        GalleryConfig
}

// NewGallery creates the gallery. history may be nil.
func NewGallery(
	embeddings *store.EmbeddingStore,
	tags *store.TagStore,
	enc encoder.Encoder,
	history IndexRunHistory,
	log *logger.Logger,
	cfg *GalleryConfig,
) *Gallery {
	return &Gallery{
		embeddings: embeddings,
		tags:       tags,
		encoder:    enc,
		history:    history,
		logger:     log,
		cfg:        *cfg,
	}
}

func (g *Gallery) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil {
		return l
	}
	return g.logger
}

// SearchRequest is one gallery query.
type SearchRequest struct {
	Query     string   `json:"query" form:"q"`
	Tags      []string `json:"tags"`
	Threshold *float64 `json:"threshold,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

// SearchResult is a ranked page of hits.
type SearchResult struct {
	Hits      []domain.Hit `json:"results"`
	Total     int          `json:"total"`
	NoQuery   bool         `json:"no_query"`
	Threshold float64      `json:"threshold"`
}

// Search ranks the gallery against req.Query. An empty query lists every
// indexed image with the fixed browse score. Tags, when given, keep only
// images carrying at least one of them. Before the first indexing run every
// search fails with IndexMissing.
func (g *Gallery) Search(ctx context.Context, req SearchRequest) (*SearchResult, error) {
	startTime := time.Now()

	threshold := g.cfg.ScoreThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if threshold < -1 || threshold > 1 {
		return nil, apperr.Errorf(apperr.CodeInvalidInput, "threshold %.3f is outside [-1, 1]", threshold)
	}
	if req.Limit < 0 {
		return nil, apperr.Errorf(apperr.CodeInvalidInput, "limit must not be negative")
	}

	if err := g.requireIndex(); err != nil {
		return nil, err
	}

	query := strings.TrimSpace(req.Query)
	result := &SearchResult{NoQuery: query == "", Threshold: threshold}

	var hits []domain.Hit
	if result.NoQuery {
		hits = search.All(g.embeddings)
	} else {
		emb, err := g.encoder.EncodeText(ctx, query)
		if err != nil {
			if apperr.CodeOf(err) == "" {
				err = apperr.Wrap(err, apperr.CodeEncoderUnavailable, "failed to encode query")
			}
			return nil, err
		}
		hits, err = search.Search(emb, g.embeddings, threshold)
		if err != nil {
			return nil, err
		}
	}

	hits = search.FilterByTags(hits, g.tags, req.Tags)
	result.Total = len(hits)

	limit := req.Limit
	if limit == 0 {
		limit = g.cfg.MaxResults
	}
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	result.Hits = hits

	logger.With(logger.Fields{
		logger.FieldQuery: query,
		"tags":            req.Tags,
		"threshold":       threshold,
	}).WithCount(result.Total).WithDuration(time.Since(startTime).Milliseconds()).Info(ctx, "Search completed")

	return result, nil
}

// Suggest proposes tags for id from its nearest tagged neighbors. Zero
// counts select the configured defaults. An image that is not indexed, or
// whose neighbors carry no tags, gets an empty list. Without an index it
// fails with IndexMissing.
func (g *Gallery) Suggest(ctx context.Context, id domain.ImageID, neighborCount, tagCount int) ([]search.TagVote, error) {
	if id == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "image id is required")
	}
	if neighborCount < 0 || tagCount < 0 {
		return nil, apperr.New(apperr.CodeInvalidInput, "counts must not be negative")
	}
	if neighborCount == 0 {
		neighborCount = g.cfg.NeighborCount
	}
	if tagCount == 0 {
		tagCount = g.cfg.TagCount
	}
	if err := g.requireIndex(); err != nil {
		return nil, err
	}

	votes := search.SuggestVotes(id, g.embeddings, g.tags, search.SuggestOptions{
		NeighborCount: neighborCount,
		TagCount:      tagCount,
	})

	g.log(ctx).WithFields(logger.Fields{
		logger.FieldImageID: string(id),
		logger.FieldCount:   len(votes),
	}).Debug("Suggested tags")
	return votes, nil
}

func (g *Gallery) requireIndex() error {
	if g.embeddings.Present() {
		return nil
	}
	return apperr.Wrap(apperr.ErrIndexMissing, apperr.CodeIndexMissing,
		"no embedding index has been built yet, run the indexer first")
}

// Tags returns the persisted tags of id.
func (g *Gallery) Tags(id domain.ImageID) domain.TagSet {
	return g.tags.Tags(id)
}

// SaveTags replaces the tags of id and persists the whole tag store. It
// returns the normalized set that was stored. An empty list clears the
// image's tags.
func (g *Gallery) SaveTags(ctx context.Context, id domain.ImageID, tags []string) (domain.TagSet, error) {
	if id == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "image id is required")
	}
	saved, err := g.tags.Commit(id, tags)
	if err != nil {
		g.log(ctx).WithField(logger.FieldImageID, string(id)).WithError(err).Error("Failed to save tags")
		return nil, err
	}
	g.log(ctx).WithFields(logger.Fields{
		logger.FieldImageID: string(id),
		logger.FieldCount:   saved.Len(),
	}).Info("Saved tags")
	return saved, nil
}

// Status describes the loaded state.
type Status struct {
	IndexPresent bool             `json:"index_present"`
	Images       int              `json:"images"`
	Dimension    int              `json:"dimension"`
	IndexModel   string           `json:"index_model"`
	EncoderModel string           `json:"encoder_model"`
	TaggedImages int              `json:"tagged_images"`
	TagsPresent  bool             `json:"tags_present"`
	LatestRun    *domain.IndexRun `json:"latest_run,omitempty"`
}

// Status reports the loaded stores and, when history is wired, the latest
// index run.
func (g *Gallery) Status(ctx context.Context) *Status {
	status := &Status{
		IndexPresent: g.embeddings.Present(),
		Images:       g.embeddings.Len(),
		Dimension:    g.embeddings.Dimension(),
		IndexModel:   g.embeddings.Model(),
		EncoderModel: g.encoder.Model(),
		TaggedImages: g.tags.Len(),
		TagsPresent:  g.tags.Present(),
	}
	if g.history != nil {
		run, err := g.history.Latest(ctx)
		if err != nil {
			g.log(ctx).WithError(err).Warn("Failed to load latest index run")
		} else {
			status.LatestRun = run
		}
	}
	return status
}
