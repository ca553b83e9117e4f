package routes

import (
	"errors"
	"net/http"

	"github.com/tapestry-analytics/tapestry/internal/server/middleware"
	"github.com/tapestry-analytics/tapestry/pkg/scheduler"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// GetJobHandler returns the current snapshot of one job. Finished jobs stay
// queryable until the scheduler's retention window expires.
func GetJobHandler(c echo.Context) error {
	type getJobParams struct {
		JobID string `param:"id" validate:"required"`
	}

	type getJobResponse struct {
		Message string         `json:"message,omitempty"`
		Job     *scheduler.Job `json:"job,omitempty"`
	}

	params := new(getJobParams)
	if err := c.Bind(params); err != nil {
		return c.JSON(http.StatusBadRequest, getJobResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(params); err != nil {
		return c.JSON(http.StatusBadRequest, getJobResponse{
			Message: "Invalid request body",
		})
	}

	sched := c.(*middleware.AppContext).App.Scheduler
	job, err := sched.Status(params.JobID)
	if err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			return c.JSON(http.StatusNotFound, getJobResponse{
				Message: "Job not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, getJobResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusOK, getJobResponse{Job: &job})
}

// GetJobMetricsHandler returns aggregate queue metrics.
func GetJobMetricsHandler(c echo.Context) error {
	sched := c.(*middleware.AppContext).App.Scheduler
	return c.JSON(http.StatusOK, sched.Metrics())
}
