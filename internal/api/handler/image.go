package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/timmy/phototag/internal/domain"
	"github.com/timmy/phototag/internal/search"
)

const noSuggestionsMessage = "No suggestions yet. Tag a few similar images first."

// ImageHandler serves per-image tags and tag suggestions. Image IDs may
// contain slashes, so routes are registered on a catch-all parameter and
// the trailing segment selects the action.
type ImageHandler struct {
	gallery Gallery
}

// NewImageHandler creates a new image handler.
func NewImageHandler(gallery Gallery) *ImageHandler {
	return &ImageHandler{gallery: gallery}
}

// TagsResponse is the body of tag reads and saves.
type TagsResponse struct {
	ID   domain.ImageID `json:"id"`
	Tags []string       `json:"tags"`
}

// SaveTagsRequest is the body of a tag save.
type SaveTagsRequest struct {
	Tags []string `json:"tags"`
}

// SuggestionsResponse is the body of a suggestion request.
type SuggestionsResponse struct {
	ID          domain.ImageID   `json:"id"`
	Suggestions []search.TagVote `json:"suggestions"`
	Message     string           `json:"message,omitempty"`
}

// Get handles GET /api/v1/images/{id}/tags and
// GET /api/v1/images/{id}/suggestions?neighbors=&limit=.
func (h *ImageHandler) Get(c *gin.Context) {
	id, action, ok := parseImagePath(c.Param("path"))
	if !ok {
		invalidInput(c, "expected /images/{id}/tags or /images/{id}/suggestions")
		return
	}

	switch action {
	case "tags":
		c.JSON(http.StatusOK, TagsResponse{ID: id, Tags: nonNil(h.gallery.Tags(id))})
	case "suggestions":
		h.suggestions(c, id)
	}
}

// Put handles PUT /api/v1/images/{id}/tags. The body replaces the whole
// tag set and is persisted immediately.
func (h *ImageHandler) Put(c *gin.Context) {
	id, action, ok := parseImagePath(c.Param("path"))
	if !ok || action != "tags" {
		invalidInput(c, "expected /images/{id}/tags")
		return
	}

	var req SaveTagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, "invalid request: %v", err)
		return
	}

	saved, err := h.gallery.SaveTags(c.Request.Context(), id, req.Tags)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, TagsResponse{ID: id, Tags: nonNil(saved)})
}

func (h *ImageHandler) suggestions(c *gin.Context, id domain.ImageID) {
	neighbors, err := intQuery(c, "neighbors")
	if err != nil {
		invalidInput(c, "invalid neighbors: %v", err)
		return
	}
	limit, err := intQuery(c, "limit")
	if err != nil {
		invalidInput(c, "invalid limit: %v", err)
		return
	}

	votes, err := h.gallery.Suggest(c.Request.Context(), id, neighbors, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := SuggestionsResponse{ID: id, Suggestions: votes}
	if len(votes) == 0 {
		resp.Suggestions = []search.TagVote{}
		resp.Message = noSuggestionsMessage
	}
	c.JSON(http.StatusOK, resp)
}

// parseImagePath splits "/{id}/{action}" where id may contain slashes.
func parseImagePath(path string) (domain.ImageID, string, bool) {
	path = strings.TrimPrefix(path, "/")
	idx := strings.LastIndex(path, "/")
	if idx <= 0 {
		return "", "", false
	}
	id, action := path[:idx], path[idx+1:]
	if action != "tags" && action != "suggestions" {
		return "", "", false
	}
	return domain.ImageID(id), action, true
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}

func nonNil(set domain.TagSet) []string {
	if set == nil {
		return []string{}
	}
	return set
}
