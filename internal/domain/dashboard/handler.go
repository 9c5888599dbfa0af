package dashboard

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/patientrecords/patientrecords/internal/platform/apierror"
)

const resource = "dashboard"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the read-only aggregates. Clearing the store is
// only reachable from the CLI.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/dashboard", h.GetDashboard)
	api.GET("/dashboard/totals", h.GetTotals)
	api.GET("/dashboard/info", h.GetInfo)
}

func (h *Handler) GetDashboard(c echo.Context) error {
	s, err := h.svc.Dashboard(c.Request().Context())
	if err != nil {
		return apierror.From(err, resource)
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) GetTotals(c echo.Context) error {
	t, err := h.svc.Totals(c.Request().Context())
	if err != nil {
		return apierror.From(err, resource)
	}
	return c.JSON(http.StatusOK, t)
}

func (h *Handler) GetInfo(c echo.Context) error {
	info, err := h.svc.Info(c.Request().Context())
	if err != nil {
		return apierror.From(err, resource)
	}
	return c.JSON(http.StatusOK, info)
}
