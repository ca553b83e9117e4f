package server

import (
	"github.com/tapestry-analytics/tapestry/internal/server/routes"

	"github.com/labstack/echo/v4"
)

func RegisterRoutes(e *echo.Echo) {
	// Health check route
	e.GET("/health", func(c echo.Context) error {
		return c.String(200, "OK")
	})

	apiRoutes := e.Group("/api")

	// Job routes
	apiRoutes.POST("/jobs", routes.SubmitJobHandler)
	apiRoutes.GET("/jobs/metrics", routes.GetJobMetricsHandler)
	apiRoutes.GET("/jobs/:id", routes.GetJobHandler)
	apiRoutes.DELETE("/jobs/:id", routes.CancelJobHandler)

	// Document routes
	apiRoutes.POST("/documents/:id/extract", routes.ExtractSystemsHandler)
	apiRoutes.GET("/documents/:id/duplicates", routes.GetDuplicatesHandler)
	apiRoutes.GET("/documents/:id/quality", routes.GetDocumentQualityHandler)
	apiRoutes.DELETE("/documents/:id/records", routes.DeleteDocumentRecordsHandler)

	// Corpus routes
	apiRoutes.GET("/systems-map", routes.GetSystemsMapHandler)
	apiRoutes.GET("/quality", routes.GetCorpusQualityHandler)
}
