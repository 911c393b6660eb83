package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/timmy/phototag/internal/domain"
	apperr "github.com/timmy/phototag/internal/errors"
	"github.com/timmy/phototag/internal/logger"
	"github.com/timmy/phototag/internal/search"
	"github.com/timmy/phototag/internal/service"
)

// Gallery is the subset of service.Gallery the handlers call.
type Gallery interface {
	Search(ctx context.Context, req service.SearchRequest) (*service.SearchResult, error)
	Suggest(ctx context.Context, id domain.ImageID, neighborCount, tagCount int) ([]search.TagVote, error)
	Tags(id domain.ImageID) domain.TagSet
	SaveTags(ctx context.Context, id domain.ImageID, tags []string) (domain.TagSet, error)
	Status(ctx context.Context) *service.Status
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// respondError writes err with the status its code maps to.
func respondError(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	code := apperr.CodeOf(err)
	if code == "" {
		code = apperr.CodeInternal
	}

	log := logger.FromContext(c.Request.Context()).WithField("code", string(code)).WithError(err)
	if status >= 500 {
		log.Error("Request failed")
	} else {
		log.Warn("Request rejected")
	}

	c.JSON(status, ErrorResponse{Error: err.Error(), Code: string(code)})
}

func invalidInput(c *gin.Context, format string, args ...any) {
	respondError(c, apperr.Errorf(apperr.CodeInvalidInput, format, args...))
}
