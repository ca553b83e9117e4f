package routes

import (
	"errors"
	"net/http"

	"github.com/tapestry-analytics/tapestry/internal/pipeline"
	"github.com/tapestry-analytics/tapestry/internal/server/middleware"
	"github.com/tapestry-analytics/tapestry/pkg/logger"
	"github.com/tapestry-analytics/tapestry/pkg/store"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// ExtractSystemsHandler runs a synchronous extraction pass over the chunks
// supplied in the request body. Nothing is persisted; the background
// extraction job is the write path.
func ExtractSystemsHandler(c echo.Context) error {
	type extractBody struct {
		DocumentID string   `param:"id" validate:"required"`
		Chunks     []string `json:"chunks" validate:"required,min=1"`
	}

	type extractResponse struct {
		Message string            `json:"message,omitempty"`
		Result  *pipeline.Preview `json:"result,omitempty"`
	}

	data := new(extractBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, extractResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, extractResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	pipe := c.(*middleware.AppContext).App.Pipeline
	preview, err := pipe.ExtractSystems(ctx, data.DocumentID, data.Chunks)
	if err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			return c.JSON(http.StatusNotFound, extractResponse{
				Message: "Document not found",
			})
		}
		logger.Error("Failed to extract systems", "document", data.DocumentID, "err", err)
		return c.JSON(http.StatusInternalServerError, extractResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, extractResponse{Result: preview})
}
