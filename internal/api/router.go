// Package api exposes the gallery over HTTP.
package api

import (
	"github.com/gin-gonic/gin"

	"github.com/timmy/phototag/internal/api/handler"
	"github.com/timmy/phototag/internal/api/middleware"
	"github.com/timmy/phototag/internal/config"
	"github.com/timmy/phototag/internal/logger"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(gallery handler.Gallery, cfg config.ServerConfig, log *logger.Logger) *gin.Engine {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cfg.CORS))

	healthHandler := handler.NewHealthHandler(gallery)
	searchHandler := handler.NewSearchHandler(gallery)
	imageHandler := handler.NewImageHandler(gallery)
	statusHandler := handler.NewStatusHandler(gallery)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/search", searchHandler.Search)
		v1.POST("/search", searchHandler.SearchPost)

		// /images/{id}/tags and /images/{id}/suggestions; ids may contain slashes
		v1.GET("/images/*path", imageHandler.Get)
		v1.PUT("/images/*path", imageHandler.Put)

		v1.GET("/status", statusHandler.Status)
	}

	return r
}
