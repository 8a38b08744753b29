package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	apitypes "github.com/verdantlab/leafwise/pkg/api/types"
	apierr "github.com/verdantlab/leafwise/pkg/api/types/errors"
	"github.com/verdantlab/leafwise/pkg/domain/history"
)

// HistoryLister reads back archived training jobs.
type HistoryLister interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

// GetTrainingHistoryHandler lists archived training jobs, newest first.
// The "limit" query parameter caps the page; 0 or absent means the
// store's default.
func GetTrainingHistoryHandler(lister HistoryLister) echo.HandlerFunc {
	return func(c echo.Context) error {
		limit := 0
		if q := c.QueryParam("limit"); q != "" {
			n, err := strconv.Atoi(q)
			if err != nil || n < 0 {
				return apierr.BadRequest("limit should be a non-negative number", err)
			}
			limit = n
		}

		entries, err := lister.Recent(c.Request().Context(), limit)
		if err != nil {
			return apierr.InternalServerError("failed to read the training history", err)
		}

		jobs := []apitypes.TrainingRecord{}
		for _, e := range entries {
			jobs = append(jobs, apitypes.TrainingRecord{
				JobID:      e.JobID,
				Label:      e.Label,
				Status:     e.Status,
				Message:    e.Message,
				Accuracy:   e.Accuracy,
				Classes:    e.Classes,
				StartedAt:  e.StartedAt,
				FinishedAt: e.FinishedAt,
			})
		}

		return c.JSON(http.StatusOK, apitypes.TrainingHistory{
			Jobs: jobs, Count: len(jobs),
		})
	}
}
