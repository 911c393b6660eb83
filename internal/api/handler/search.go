package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/timmy/phototag/internal/service"
)

const noResultsMessage = "No images matched the query. Try other words or a lower threshold."

// SearchHandler handles search endpoints.
type SearchHandler struct {
	gallery Gallery
}

// NewSearchHandler creates a new search handler.
// Parameters:
//   - gallery: gallery serving the query.
// Returns:
//   - *SearchHandler: initialized handler.
func NewSearchHandler(gallery Gallery) *SearchHandler {
	return &SearchHandler{gallery: gallery}
}

// SearchResponse is the body of a search.
type SearchResponse struct {
	*service.SearchResult
	Message string `json:"message,omitempty"`
}

// Search handles GET /api/v1/search?q=&tags=a,b&threshold=&limit=.
// An absent q lists every indexed image.
func (h *SearchHandler) Search(c *gin.Context) {
	req := service.SearchRequest{
		Query: c.Query("q"),
		Tags:  splitTags(c.QueryArray("tags")),
	}

	if raw := c.Query("threshold"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			invalidInput(c, "invalid threshold %q", raw)
			return
		}
		req.Threshold = &threshold
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			invalidInput(c, "invalid limit %q", raw)
			return
		}
		req.Limit = limit
	}

	h.run(c, req)
}

// SearchPost handles POST /api/v1/search with a JSON SearchRequest body.
func (h *SearchHandler) SearchPost(c *gin.Context) {
	var req service.SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidInput(c, "invalid request: %v", err)
		return
	}
	h.run(c, req)
}

func (h *SearchHandler) run(c *gin.Context, req service.SearchRequest) {
	result, err := h.gallery.Search(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := SearchResponse{SearchResult: result}
	if len(result.Hits) == 0 {
		resp.Message = noResultsMessage
	}
	c.JSON(http.StatusOK, resp)
}

// splitTags accepts both repeated tags parameters and comma-separated lists.
func splitTags(values []string) []string {
	var tags []string
	for _, v := range values {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}
