package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/tapestry-analytics/tapestry/internal/pipeline"
	"github.com/tapestry-analytics/tapestry/pkg/scheduler"
)

// App carries the long-lived collaborators shared by all request handlers.
type App struct {
	Scheduler *scheduler.Scheduler
	Pipeline  *pipeline.Pipeline
}

type AppContext struct {
	echo.Context
	App *App
}

func AppContextMiddleware(app *App) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			return next(&AppContext{c, app})
		}
	}
}
