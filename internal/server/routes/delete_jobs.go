package routes

import (
	"errors"
	"net/http"

	"github.com/tapestry-analytics/tapestry/internal/server/middleware"
	"github.com/tapestry-analytics/tapestry/pkg/scheduler"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// CancelJobHandler cancels a queued job. Jobs that already started are not
// interrupted and report a conflict instead.
func CancelJobHandler(c echo.Context) error {
	type cancelJobParams struct {
		JobID string `param:"id" validate:"required"`
	}

	type cancelJobResponse struct {
		Message string `json:"message"`
	}

	params := new(cancelJobParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, cancelJobResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, cancelJobResponse{
			Message: "Invalid request body",
		})
	}

	sched := c.(*middleware.AppContext).App.Scheduler
	if err := sched.Cancel(params.JobID); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			return c.JSON(http.StatusNotFound, cancelJobResponse{
				Message: "Job not found",
			})
		}
		if errors.Is(err, scheduler.ErrJobNotCancellable) {
			return c.JSON(http.StatusConflict, cancelJobResponse{
				Message: "Job is already running and cannot be cancelled",
			})
		}
		return c.JSON(http.StatusInternalServerError, cancelJobResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, cancelJobResponse{
		Message: "Job cancelled successfully",
	})
}
