package routes

import (
	"errors"
	"net/http"

	"github.com/tapestry-analytics/tapestry/internal/server/middleware"
	"github.com/tapestry-analytics/tapestry/pkg/logger"
	"github.com/tapestry-analytics/tapestry/pkg/scheduler"

	_ "github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
)

// SubmitJobHandler enqueues a processing job and returns the receipt
// immediately, before the job runs.
func SubmitJobHandler(c echo.Context) error {
	type submitJobBody struct {
		DocumentID   string `json:"document_id" validate:"required"`
		Type         string `json:"type" validate:"required"`
		Priority     string `json:"priority" validate:"required"`
		PayloadBytes int64  `json:"payload_bytes" validate:"required,gt=0"`
	}

	type submitJobResponse struct {
		Message string             `json:"message"`
		Receipt *scheduler.Receipt `json:"receipt,omitempty"`
	}

	data := new(submitJobBody)
	if err := c.Bind(data); err != nil {
		return c.JSON(http.StatusBadRequest, submitJobResponse{
			Message: "Invalid request body",
		})
	}
	if err := c.Validate(data); err != nil {
		return c.JSON(http.StatusBadRequest, submitJobResponse{
			Message: "Invalid request body",
		})
	}

	sched := c.(*middleware.AppContext).App.Scheduler
	receipt, err := sched.Submit(scheduler.SubmitParams{
		DocumentID:   data.DocumentID,
		Type:         data.Type,
		Priority:     data.Priority,
		PayloadBytes: data.PayloadBytes,
	})
	if err != nil {
		var verr *scheduler.ValidationError
		if errors.As(err, &verr) {
			return c.JSON(http.StatusBadRequest, submitJobResponse{
				Message: verr.Error(),
			})
		}
		logger.Error("Failed to submit job", "err", err)
		return c.JSON(http.StatusInternalServerError, submitJobResponse{
			Message: "Internal server error",
		})
	}

	return c.JSON(http.StatusAccepted, submitJobResponse{
		Message: "Job submitted successfully",
		Receipt: receipt,
	})
}
