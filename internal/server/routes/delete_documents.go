package routes

import (
	"errors"
	"net/http"

	"github.com/tapestry-analytics/tapestry/internal/server/middleware"
	"github.com/tapestry-analytics/tapestry/pkg/logger"
	"github.com/tapestry-analytics/tapestry/pkg/store"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// DeleteDocumentRecordsHandler removes a document's persisted extraction
// records and returns it to the pending state. The document itself stays.
func DeleteDocumentRecordsHandler(c echo.Context) error {
	type deleteRecordsParams struct {
		DocumentID string `param:"id" validate:"required"`
	}

	type deleteRecordsResponse struct {
		Message string `json:"message"`
	}

	params := new(deleteRecordsParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteRecordsResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, deleteRecordsResponse{
			Message: "Invalid request body",
		})
	}

	ctx := c.Request().Context()
	pipe := c.(*middleware.AppContext).App.Pipeline
	if err := pipe.ClearDocumentRecords(ctx, params.DocumentID); err != nil {
		if errors.Is(err, store.ErrDocumentNotFound) {
			return c.JSON(http.StatusNotFound, deleteRecordsResponse{
				Message: "Document not found",
			})
		}
		logger.Error("Failed to delete document records", "document", params.DocumentID, "err", err)
		return c.JSON(http.StatusInternalServerError, deleteRecordsResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, deleteRecordsResponse{
		Message: "Document records deleted successfully",
	})
}
