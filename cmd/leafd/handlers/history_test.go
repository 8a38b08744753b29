package handlers_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/verdantlab/leafwise/cmd/leafd/handlers"
	httptestutil "github.com/verdantlab/leafwise/internal/testutils/http"
	apitypes "github.com/verdantlab/leafwise/pkg/api/types"
	"github.com/verdantlab/leafwise/pkg/domain/history"
)

type listerFunc func(ctx context.Context, limit int) ([]history.Entry, error)

func (f listerFunc) Recent(ctx context.Context, limit int) ([]history.Entry, error) {
	return f(ctx, limit)
}

func TestGetTrainingHistoryHandler(t *testing.T) {

	t.Run("it lists archived jobs with their count", func(t *testing.T) {
		finished := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
		var gotLimit int
		testee := handlers.GetTrainingHistoryHandler(listerFunc(
			func(_ context.Context, limit int) ([]history.Entry, error) {
				gotLimit = limit
				return []history.Entry{
					{
						JobID: "job-2", Label: "neem", Status: "completed",
						Accuracy: 0.95, Classes: 2,
						StartedAt:  finished.Add(-5 * time.Minute),
						FinishedAt: finished,
					},
					{
						JobID: "job-1", Label: "hibiscus", Status: "error",
						Message:    "image acquisition: image source is down",
						StartedAt:  finished.Add(-time.Hour),
						FinishedAt: finished.Add(-50 * time.Minute),
					},
				}, nil
			},
		))

		e := echo.New()
		ctx, resp := httptestutil.Get(e, "/train/history?limit=10")

		if err := testee(ctx); err != nil {
			t.Fatalf("handler failed: %v", err)
		}
		if gotLimit != 10 {
			t.Errorf("unexpected limit: %d", gotLimit)
		}

		actual := apitypes.TrainingHistory{}
		if err := json.Unmarshal(resp.Body.Bytes(), &actual); err != nil {
			t.Fatal(err)
		}
		if actual.Count != 2 || len(actual.Jobs) != 2 {
			t.Fatalf("unexpected body: %+v", actual)
		}
		if actual.Jobs[0].JobID != "job-2" || actual.Jobs[0].Accuracy != 0.95 {
			t.Errorf("unexpected first job: %+v", actual.Jobs[0])
		}
		if actual.Jobs[1].Status != "error" {
			t.Errorf("unexpected second job: %+v", actual.Jobs[1])
		}
	})

	t.Run("an empty archive lists as an empty array", func(t *testing.T) {
		testee := handlers.GetTrainingHistoryHandler(listerFunc(
			func(context.Context, int) ([]history.Entry, error) {
				return nil, nil
			},
		))

		e := echo.New()
		ctx, resp := httptestutil.Get(e, "/train/history")

		if err := testee(ctx); err != nil {
			t.Fatalf("handler failed: %v", err)
		}

		actual := apitypes.TrainingHistory{}
		if err := json.Unmarshal(resp.Body.Bytes(), &actual); err != nil {
			t.Fatal(err)
		}
		if actual.Jobs == nil || actual.Count != 0 {
			t.Errorf("unexpected body: %#v", actual)
		}
	})

	t.Run("a broken limit is rejected", func(t *testing.T) {
		testee := handlers.GetTrainingHistoryHandler(listerFunc(
			func(context.Context, int) ([]history.Entry, error) {
				t.Fatal("lister should not run")
				return nil, nil
			},
		))

		e := echo.New()
		ctx, _ := httptestutil.Get(e, "/train/history?limit=ten")

		err := testee(ctx)
		var echoErr *echo.HTTPError
		if !errors.As(err, &echoErr) {
			t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
		}
		if echoErr.Code != http.StatusBadRequest {
			t.Errorf("unexpected status: %d", echoErr.Code)
		}
	})

	t.Run("a read failure is a server error", func(t *testing.T) {
		testee := handlers.GetTrainingHistoryHandler(listerFunc(
			func(context.Context, int) ([]history.Entry, error) {
				return nil, errors.New("database is down")
			},
		))

		e := echo.New()
		ctx, _ := httptestutil.Get(e, "/train/history")

		err := testee(ctx)
		var echoErr *echo.HTTPError
		if !errors.As(err, &echoErr) {
			t.Fatalf("error is not echo.HTTPError. actual = %#v", err)
		}
		if echoErr.Code != http.StatusInternalServerError {
			t.Errorf("unexpected status: %d", echoErr.Code)
		}
	})
}
