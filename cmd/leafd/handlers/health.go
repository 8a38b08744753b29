package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	apitypes "github.com/verdantlab/leafwise/pkg/api/types"
	"github.com/verdantlab/leafwise/pkg/domain/model"
	"github.com/verdantlab/leafwise/pkg/domain/registry"
)

// HealthHandler reports liveness and whether a model is being served.
func HealthHandler(slot *model.Slot, reg *registry.Registry) echo.HandlerFunc {
	return func(c echo.Context) error {
		_, loaded := slot.Get()
		return c.JSON(http.StatusOK, apitypes.Health{
			Status:      "healthy",
			ModelLoaded: loaded,
			Classes:     len(reg.List()),
		})
	}
}
