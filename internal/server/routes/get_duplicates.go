package routes

import (
	"errors"
	"net/http"

	"github.com/tapestry-analytics/tapestry/internal/server/middleware"
	"github.com/tapestry-analytics/tapestry/pkg/common"
	"github.com/tapestry-analytics/tapestry/pkg/logger"
	"github.com/tapestry-analytics/tapestry/pkg/store"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// GetDuplicatesHandler reports likely duplicate entity names within one
// document, ready for manual review.
func GetDuplicatesHandler(c echo.Context) error {
	type duplicatesParams struct {
		DocumentID string `param:"id" validate:"required"`
	}

	type duplicatesResponse struct {
		Message    string                      `json:"message,omitempty"`
		Candidates []common.DuplicateCandidate `json:"candidates"`
		Warnings   []string                    `json:"warnings,omitempty"`
	}

	params := new(duplicatesParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, duplicatesResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, duplicatesResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	pipe := c.(*middleware.AppContext).App.Pipeline
	candidates, warnings, err := pipe.DuplicateCandidates(ctx, params.DocumentID)
	if err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			return c.JSON(http.StatusNotFound, duplicatesResponse{
				Message: "Document not found",
			})
		}
		logger.Error("Failed to find duplicate candidates", "document", params.DocumentID, "err", err)
		return c.JSON(http.StatusInternalServerError, duplicatesResponse{
			Message: "Internal server error",
		})
	}

	if candidates == nil {
		candidates = make([]common.DuplicateCandidate, 0)
	}
	return c.JSON(http.StatusOK, duplicatesResponse{
		Candidates: candidates,
		Warnings:   warnings,
	})
}
