package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	apitypes "github.com/verdantlab/leafwise/pkg/api/types"
	apierr "github.com/verdantlab/leafwise/pkg/api/types/errors"
	"github.com/verdantlab/leafwise/pkg/domain"
	"github.com/verdantlab/leafwise/pkg/domain/model"
)

// Predictor classifies a single image.
type Predictor interface {
	Classify(ctx context.Context, image []byte) (domain.Prediction, error)
}

const maxRemoteImageSize = 20 << 20 // 20 MiB

// PredictHandler classifies the image in the request: a multipart part
// named "file", or a JSON body {"url": "..."} pointing at a remote image.
func PredictHandler(predictor Predictor, client *http.Client) echo.HandlerFunc {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return func(c echo.Context) error {
		ctx := c.Request().Context()

		image, err := imageFromRequest(ctx, c, client)
		if err != nil {
			return err
		}

		prediction, err := predictor.Classify(ctx, image)
		if err != nil {
			if errors.Is(err, model.ErrUnavailable) {
				return apierr.InternalServerError("Model not loaded. Train a model first.", err)
			}
			return apierr.InternalServerError("prediction failed", err)
		}

		return c.JSON(http.StatusOK, apitypes.ComposePrediction(prediction))
	}
}

func imageFromRequest(ctx context.Context, c echo.Context, client *http.Client) ([]byte, error) {
	if file, err := c.FormFile("file"); err == nil {
		src, err := file.Open()
		if err != nil {
			return nil, apierr.BadRequest("unreadable file part", err)
		}
		defer src.Close()

		image, err := io.ReadAll(src)
		if err != nil {
			return nil, apierr.BadRequest("unreadable file part", err)
		}
		if len(image) == 0 {
			return nil, apierr.BadRequest("No file or URL provided", nil)
		}
		return image, nil
	}

	var body struct {
		URL string `json:"url"`
	}
	if err := c.Bind(&body); err != nil || body.URL == "" {
		return nil, apierr.BadRequest("No file or URL provided", err)
	}

	image, err := fetchRemoteImage(ctx, client, body.URL)
	if err != nil {
		return nil, apierr.BadRequest(fmt.Sprintf("could not fetch image from url: %s", body.URL), err)
	}
	return image, nil
}

func fetchRemoteImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxRemoteImageSize))
}
