package medication

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/patientrecords/patientrecords/internal/platform/apierror"
	"github.com/patientrecords/patientrecords/internal/platform/db"
	"github.com/patientrecords/patientrecords/pkg/pagination"
)

const resource = "medication"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/medications", h.ListActive)
	api.POST("/medications", h.CreateMedication)
	api.GET("/medications/expiring", h.ListExpiring)
	api.GET("/medications/:id", h.GetMedication)
	api.PUT("/medications/:id", h.UpdateMedication)
	api.DELETE("/medications/:id", h.DeleteMedication)

	api.GET("/patients/:id/medications", h.ListByPatient)
	api.POST("/patients/:id/medications", h.CreateForPatient)
}

func (h *Handler) create(c echo.Context, m *Medication) error {
	if m.PatientID <= 0 {
		return apierror.BadRequest("patient_id is required")
	}
	if _, err := h.svc.CreateMedication(c.Request().Context(), m); err != nil {
		return apierror.From(err, "patient")
	}
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) CreateMedication(c echo.Context) error {
	var m Medication
	if err := c.Bind(&m); err != nil {
		return apierror.BadRequest(err.Error())
	}
	return h.create(c, &m)
}

func (h *Handler) CreateForPatient(c echo.Context) error {
	patientID, err := apierror.ParamID(c, "id")
	if err != nil {
		return err
	}
	var m Medication
	if err := c.Bind(&m); err != nil {
		return apierror.BadRequest(err.Error())
	}
	m.PatientID = patientID
	return h.create(c, &m)
}

func (h *Handler) GetMedication(c echo.Context) error {
	id, err := apierror.ParamID(c, "id")
	if err != nil {
		return err
	}
	m, err := h.svc.GetMedication(c.Request().Context(), id)
	if err != nil {
		return apierror.From(err, resource)
	}
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) UpdateMedication(c echo.Context) error {
	id, err := apierror.ParamID(c, "id")
	if err != nil {
		return err
	}
	var m Medication
	if err := c.Bind(&m); err != nil {
		return apierror.BadRequest(err.Error())
	}
	m.ID = id
	ctx := c.Request().Context()
	if err := h.svc.UpdateMedication(ctx, &m); err != nil {
		return apierror.From(err, resource)
	}
	updated, err := h.svc.GetMedication(ctx, id)
	if err != nil {
		return apierror.From(err, resource)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteMedication deactivates the medication; the row stays readable by id.
func (h *Handler) DeleteMedication(c echo.Context) error {
	id, err := apierror.ParamID(c, "id")
	if err != nil {
		return err
	}
	changed, err := h.svc.DeleteMedication(c.Request().Context(), id)
	if err != nil {
		return apierror.From(err, resource)
	}
	if !changed {
		return apierror.From(db.ErrWriteFailed, resource)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID, err := apierror.ParamID(c, "id")
	if err != nil {
		return err
	}
	items, err := h.svc.ListByPatient(c.Request().Context(), patientID)
	if err != nil {
		return apierror.From(err, resource)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

func (h *Handler) ListActive(c echo.Context) error {
	items, err := h.svc.ListActive(c.Request().Context())
	if err != nil {
		return apierror.From(err, resource)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

// ListExpiring serves ?days=N, defaulting to the 30-day window.
func (h *Handler) ListExpiring(c echo.Context) error {
	days, err := apierror.QueryInt(c, "days", ExpiringSoonDays)
	if err != nil {
		return err
	}
	items, err := h.svc.ListExpiringInDays(c.Request().Context(), days)
	if err != nil {
		return apierror.From(err, resource)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}
