package report

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/patientrecords/patientrecords/internal/platform/apierror"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients/:id/report", h.DownloadPatientReport)
	api.POST("/reports/exports", h.ExportAll)
}

// DownloadPatientReport builds the workbook and sends it as an attachment.
func (h *Handler) DownloadPatientReport(c echo.Context) error {
	id, err := apierror.ParamID(c, "id")
	if err != nil {
		return err
	}
	a, err := h.svc.ExportPatient(c.Request().Context(), id)
	if err != nil {
		return apierror.From(err, "patient")
	}
	c.Response().Header().Set(echo.HeaderContentType, a.ContentType)
	return c.Attachment(a.Path, a.Name)
}

func (h *Handler) ExportAll(c echo.Context) error {
	artifacts, err := h.svc.ExportAll(c.Request().Context())
	if err != nil {
		return apierror.From(err, "patient")
	}
	return c.JSON(http.StatusCreated, map[string]any{
		"count":     len(artifacts),
		"artifacts": artifacts,
	})
}
