package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	apitypes "github.com/verdantlab/leafwise/pkg/api/types"
	apierr "github.com/verdantlab/leafwise/pkg/api/types/errors"
	"github.com/verdantlab/leafwise/pkg/domain"
	"github.com/verdantlab/leafwise/pkg/domain/train"
)

// Trainings is the orchestrator seen from the HTTP surface.
type Trainings interface {
	Start(name string) error
	Status() domain.TrainingJob
}

// StartTrainingHandler accepts a training request for one leaf name.
// Requests for a registered label or during an active job are refused
// with a conflict; nothing is queued.
func StartTrainingHandler(trainings Trainings) echo.HandlerFunc {
	return func(c echo.Context) error {
		name, err := leafNameFromRequest(c)
		if err != nil {
			return err
		}

		if err := trainings.Start(name); err != nil {
			switch {
			case errors.Is(err, train.ErrAlreadyTrained):
				return apierr.Conflict(err.Error(), apierr.WithAlreadyTrained())
			case errors.Is(err, train.ErrBusy):
				return apierr.Conflict(err.Error())
			default:
				return apierr.BadRequest(err.Error(), err)
			}
		}

		return c.JSON(http.StatusOK, apitypes.TrainStarted{
			Message: "Training started successfully",
		})
	}
}

// GetTrainingStatusHandler reports the current (or most recent) job.
func GetTrainingStatusHandler(trainings Trainings) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, apitypes.ComposeTrainStatus(trainings.Status()))
	}
}

// leafNameFromRequest reads "leaf_name" from a JSON body or a form field.
func leafNameFromRequest(c echo.Context) (string, error) {
	var body struct {
		LeafName string `json:"leaf_name" form:"leaf_name"`
	}
	if err := c.Bind(&body); err != nil || body.LeafName == "" {
		if name := c.FormValue("leaf_name"); name != "" {
			return name, nil
		}
		return "", apierr.BadRequest("leaf_name is required", err)
	}
	return body.LeafName, nil
}
