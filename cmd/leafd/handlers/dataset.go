package handlers

import (
	"context"
	"io"
	"net/http"
	"os"
	"path"

	"github.com/labstack/echo/v4"

	apitypes "github.com/verdantlab/leafwise/pkg/api/types"
	apierr "github.com/verdantlab/leafwise/pkg/api/types/errors"
	"github.com/verdantlab/leafwise/pkg/domain"
	"github.com/verdantlab/leafwise/pkg/domain/dataset"
)

// Acquirer downloads images for a label into the dataset store.
type Acquirer interface {
	Fetch(ctx context.Context, label domain.ClassLabel, target int) (int, error)
}

// UploadImagesHandler stores user-contributed images for one leaf name.
// Parts with a non-image extension are skipped; at least one image must
// survive.
func UploadImagesHandler(store *dataset.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		form, err := c.MultipartForm()
		if err != nil {
			return apierr.BadRequest("multipart form is required", err)
		}

		name := c.FormValue("leaf_name")
		label := domain.NormalizeLabel(name)
		if label.Empty() {
			return apierr.BadRequest("leaf_name is required", nil)
		}

		files := form.File["images"]
		if len(files) == 0 {
			files = form.File["images[]"]
		}
		if len(files) == 0 {
			return apierr.BadRequest("no images attached", nil)
		}

		stored := []string{}
		for _, file := range files {
			if !dataset.IsImageFile(file.Filename) {
				continue
			}
			src, err := file.Open()
			if err != nil {
				return apierr.BadRequest("unreadable image part", err)
			}
			content, err := io.ReadAll(src)
			src.Close()
			if err != nil {
				return apierr.BadRequest("unreadable image part", err)
			}

			saved, err := store.AddImage(label.Folder(), content, path.Ext(file.Filename))
			if err != nil {
				return apierr.InternalServerError("failed to store image", err)
			}
			stored = append(stored, path.Join(label.Folder(), saved))
		}
		if len(stored) == 0 {
			return apierr.BadRequest("no usable images attached", nil)
		}

		return c.JSON(http.StatusOK, apitypes.Upload{
			Success:  true,
			Count:    len(stored),
			Images:   stored,
			LeafName: label.String(),
		})
	}
}

// PreviewImagesHandler acquires images for a leaf name without training,
// so users can inspect the dataset a later training run would use.
func PreviewImagesHandler(store *dataset.Store, acquirer Acquirer, defaultTarget int) echo.HandlerFunc {
	return func(c echo.Context) error {
		var body struct {
			LeafName  string `json:"leaf_name" form:"leaf_name"`
			MaxImages int    `json:"max_images" form:"max_images"`
		}
		if err := c.Bind(&body); err != nil {
			return apierr.BadRequest("leaf_name is required", err)
		}
		label := domain.NormalizeLabel(body.LeafName)
		if label.Empty() {
			return apierr.BadRequest("leaf_name is required", nil)
		}

		target := body.MaxImages
		if target <= 0 || defaultTarget < target {
			target = defaultTarget
		}

		saved, err := acquirer.Fetch(c.Request().Context(), label, target)
		if err != nil {
			return apierr.ServiceUnavailable("image acquisition failed", err)
		}

		images, err := store.ListImages(label.Folder())
		if err != nil {
			return apierr.InternalServerError("failed to list images", err)
		}
		if saved == 0 && len(images) == 0 {
			return apierr.ServiceUnavailable("no images could be acquired", nil)
		}

		rels := []string{}
		for _, img := range images {
			rels = append(rels, path.Join(label.Folder(), img))
		}

		return c.JSON(http.StatusOK, apitypes.Preview{
			Success:  true,
			Images:   rels,
			Count:    len(rels),
			LeafName: label.String(),
		})
	}
}

// GetImageHandler serves a stored dataset image by its class-relative
// path. Paths escaping the store are rejected.
func GetImageHandler(store *dataset.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		abs, err := store.Resolve(c.Param("*"))
		if err != nil {
			return apierr.NotFound("image not found")
		}
		if _, err := os.Stat(abs); err != nil {
			return apierr.NotFound("image not found")
		}
		return c.File(abs)
	}
}
