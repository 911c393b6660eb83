package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	gallery Gallery
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(gallery Gallery) *HealthHandler {
	return &HealthHandler{gallery: gallery}
}

// Health reports liveness and whether an embedding index is loaded. A
// missing index does not make the server unhealthy: browsing and tagging
// still work.
func (h *HealthHandler) Health(c *gin.Context) {
	status := h.gallery.Status(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"index_present": status.IndexPresent,
	})
}
