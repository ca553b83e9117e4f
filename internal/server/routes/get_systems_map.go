package routes

import (
	"net/http"
	"strings"

	"github.com/tapestry-analytics/tapestry/internal/server/middleware"
	"github.com/tapestry-analytics/tapestry/pkg/common"
	"github.com/tapestry-analytics/tapestry/pkg/graphmap"
	"github.com/tapestry-analytics/tapestry/pkg/logger"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// GetSystemsMapHandler aggregates the consolidated records of the requested
// documents into a graph. document_ids is a comma-separated list; entity_type
// and min_confidence narrow the result.
func GetSystemsMapHandler(c echo.Context) error {
	type systemsMapQuery struct {
		DocumentIDs   string  `query:"document_ids" validate:"required"`
		EntityType    string  `query:"entity_type"`
		MinConfidence float64 `query:"min_confidence"`
	}

	type systemsMapResponse struct {
		Message string        `json:"message,omitempty"`
		Map     *graphmap.Map `json:"map,omitempty"`
	}

	query := new(systemsMapQuery)
	if err := c.Bind(query); err != nil {
		return c.JSON(http.StatusBadRequest, systemsMapResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(query); err != nil {
		return c.JSON(http.StatusBadRequest, systemsMapResponse{
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
		return c.JSON(http.StatusBadRequest, systemsMapResponse{
			Message: "No document ids provided",
		})
	}

	filters := graphmap.Filters{MinConfidence: query.MinConfidence}
	if query.EntityType != "" {
		entityType, err := common.ParseEntityType(query.EntityType)
		if err != nil {
			return c.JSON(http.StatusBadRequest, systemsMapResponse{
				Message: "Unknown entity type",
			})
		}
		filters.EntityType = entityType
	}

	ctx := c.Request().Context()
	pipe := c.(*middleware.AppContext).App.Pipeline
	m, err := pipe.SystemsMap(ctx, documentIDs, filters)
	if err != nil {
		logger.Error("Failed to build systems map", "err", err)
		return c.JSON(http.StatusInternalServerError, systemsMapResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, systemsMapResponse{Map: m})
}
