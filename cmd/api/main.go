package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/timmy/phototag/internal/api"
	"github.com/timmy/phototag/internal/config"
	"github.com/timmy/phototag/internal/encoder"
	"github.com/timmy/phototag/internal/logger"
	"github.com/timmy/phototag/internal/repository"
	"github.com/timmy/phototag/internal/service"
	"github.com/timmy/phototag/internal/store"
)

func main() {
	appLogger := logger.NewFromEnv(logger.LoadFromEnv("phototag-api"))
	logger.SetDefaultLogger(appLogger)
	defer logger.Sync()

	// CONFIG_PATH selects the config file in deployments
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load config")
	}

	fs := afero.NewOsFs()

	embeddings, err := store.LoadEmbeddingStore(fs, cfg.Paths.Embeddings)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load embedding store")
	}
	if !embeddings.Present() {
		appLogger.WithField("path", cfg.Paths.Embeddings).Warn("No embedding index found, text search is disabled until the indexer runs")
	}

	tags, err := store.LoadTagStore(fs, cfg.Paths.Tags)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to load tag store")
	}

	enc, err := encoder.New(&cfg.Encoder)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize encoder")
	}
	if embeddings.Present() && embeddings.Model() != "" && embeddings.Model() != enc.Model() {
		appLogger.WithFields(logger.Fields{
			"index_model":   embeddings.Model(),
			"encoder_model": enc.Model(),
		}).Warn("Index was built with a different model, rebuild it for meaningful scores")
	}

	var history service.IndexRunHistory
	if cfg.Database.Enabled {
		db, err := repository.InitDB(&cfg.Database)
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize database")
		}
		history = repository.NewIndexRunRepository(db)
	}

	gallery := service.NewGallery(embeddings, tags, enc, history, appLogger, &service.GalleryConfig{
		ScoreThreshold: cfg.Search.ScoreThreshold,
		MaxResults:     cfg.Search.MaxResults,
		NeighborCount:  cfg.Suggest.NeighborCount,
		TagCount:       cfg.Suggest.TagCount,
	})

	router := api.SetupRouter(gallery, cfg.Server, appLogger)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		appLogger.WithFields(logger.Fields{
			"port":   cfg.Server.Port,
			"mode":   cfg.Server.Mode,
			"images": embeddings.Len(),
			"tagged": tags.Len(),
		}).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.WithError(err).Fatal("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Server forced to shutdown")
	}

	appLogger.Info("Server exited")
}
