package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// StatusHandler reports what the server has loaded.
type StatusHandler struct {
	gallery Gallery
}

func NewStatusHandler(gallery Gallery) *StatusHandler {
	return &StatusHandler{gallery: gallery}
}

// Status handles GET /api/v1/status.
func (h *StatusHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.gallery.Status(c.Request.Context()))
}
