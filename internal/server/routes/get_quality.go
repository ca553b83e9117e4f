package routes

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tapestry-analytics/tapestry/internal/server/middleware"
	"github.com/tapestry-analytics/tapestry/pkg/logger"
	"github.com/tapestry-analytics/tapestry/pkg/store"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// GetDocumentQualityHandler scores one document's persisted extraction.
func GetDocumentQualityHandler(c echo.Context) error {
	type qualityParams struct {
		DocumentID string `param:"id" validate:"required"`
	}

	type qualityResponse struct {
		Message string `json:"message,omitempty"`
		Score   int    `json:"score"`
	}

	params := new(qualityParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, qualityResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, qualityResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	pipe := c.(*middleware.AppContext).App.Pipeline
	score, err := pipe.QualityScore(ctx, params.DocumentID)
	if err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			return c.JSON(http.StatusNotFound, qualityResponse{
				Message: "Document not found",
			})
		}
		logger.Error("Failed to score document", "document", params.DocumentID, "err", err)
		return c.JSON(http.StatusInternalServerError, qualityResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, qualityResponse{Score: score})
}

// GetCorpusQualityHandler scores the corpus spanned by the requested
// documents. document_ids is a comma-separated list.
func GetCorpusQualityHandler(c echo.Context) error {
	type corpusQualityQuery struct {
		DocumentIDs string `query:"document_ids" validate:"required"`
	}

	type corpusQualityResponse struct {
		Message string `json:"message,omitempty"`
		Score   int    `json:"score"`
	}

	query := new(corpusQualityQuery)
	if err := c.Bind(query); err != nil {
		return c.JSON(http.StatusBadRequest, corpusQualityResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(query); err != nil {
		return c.JSON(http.StatusBadRequest, corpusQualityResponse{
			Message: "Invalid request body",
		})
	}

	documentIDs := make([]string, 0)
	for _, id := range strings.Split(query.DocumentIDs, ",") {
		if id = strings.TrimSpace(id); id != "" {
			documentIDs = append(documentIDs, id)
		}
	}
	if len(documentIDs) == 0 {
		return c.JSON(http.StatusBadRequest, corpusQualityResponse{
			Message: "No document ids provided",
		})
	}

	ctx := c.Request().Context()
	pipe := c.(*middleware.AppContext).App.Pipeline
	score, err := pipe.CorpusQualityScore(ctx, documentIDs)
	if err != nil {
		logger.Error("Failed to score corpus", "err", err)
		return c.JSON(http.StatusInternalServerError, corpusQualityResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, corpusQualityResponse{Score: score})
}
