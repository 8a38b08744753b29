package handlers

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	apitypes "github.com/verdantlab/leafwise/pkg/api/types"
	apierr "github.com/verdantlab/leafwise/pkg/api/types/errors"
	"github.com/verdantlab/leafwise/pkg/domain"
	"github.com/verdantlab/leafwise/pkg/domain/dataset"
	"github.com/verdantlab/leafwise/pkg/domain/registry"
)

// GetLabelsHandler lists every trained label.
func GetLabelsHandler(reg *registry.Registry) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, apitypes.ComposeLabels(reg.List()))
	}
}

// DeleteLabelHandler removes a label from the registry and its image
// folder from the dataset store. Each removal is reported independently;
// when neither existed the label is unknown.
func DeleteLabelHandler(reg *registry.Registry, store *dataset.Store) echo.HandlerFunc {
	return func(c echo.Context) error {
		label := domain.NormalizeLabel(c.Param("name"))
		if label.Empty() {
			return apierr.BadRequest("label name is required", nil)
		}

		labelRemoved, err := reg.Remove(label.String())
		if err != nil {
			return apierr.InternalServerError("failed to update the label registry", err)
		}

		folderRemoved, err := store.RemoveClassDir(label.Folder())
		if err != nil {
			return apierr.InternalServerError("failed to remove the image folder", err)
		}

		if !labelRemoved && !folderRemoved {
			return apierr.NotFound(fmt.Sprintf("label not found: %s", label))
		}

		return c.JSON(http.StatusOK, apitypes.LabelDeleted{
			Message:       fmt.Sprintf("Removed %s", label),
			LabelRemoved:  labelRemoved,
			FolderRemoved: folderRemoved,
		})
	}
}
