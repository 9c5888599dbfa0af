package medicalrecord

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/patientrecords/patientrecords/internal/platform/apierror"
	"github.com/patientrecords/patientrecords/pkg/pagination"
)

const resource = "medical record"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/medical-records", h.ListAll)
	api.POST("/medical-records", h.CreateRecord)
	api.GET("/medical-records/recent", h.ListRecent)
	api.GET("/medical-records/follow-ups", h.ListUpcomingFollowUps)
	api.GET("/medical-records/:id", h.GetRecord)
	api.PUT("/medical-records/:id", h.UpdateRecord)
	api.DELETE("/medical-records/:id", h.DeleteRecord)

	api.GET("/patients/:id/medical-records", h.ListByPatient)
	api.POST("/patients/:id/medical-records", h.CreateForPatient)
	api.GET("/patients/:id/medical-records/latest", h.Latest)
}

func (h *Handler) create(c echo.Context, r *MedicalRecord) error {
	if r.PatientID <= 0 {
		return apierror.BadRequest("patient_id is required")
	}
	if _, err := h.svc.CreateRecord(c.Request().Context(), r); err != nil {
		return apierror.From(err, "patient")
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) CreateRecord(c echo.Context) error {
	var r MedicalRecord
	if err := c.Bind(&r); err != nil {
		return apierror.BadRequest(err.Error())
	}
	return h.create(c, &r)
}

// CreateForPatient takes the owner from the path; a patient_id in the body
// is ignored.
func (h *Handler) CreateForPatient(c echo.Context) error {
	patientID, err := apierror.ParamID(c, "id")
	if err != nil {
		return err
	}
	var r MedicalRecord
	if err := c.Bind(&r); err != nil {
		return apierror.BadRequest(err.Error())
	}
	r.PatientID = patientID
	return h.create(c, &r)
}

func (h *Handler) GetRecord(c echo.Context) error {
	id, err := apierror.ParamID(c, "id")
	if err != nil {
		return err
	}
	r, err := h.svc.GetRecord(c.Request().Context(), id)
	if err != nil {
		return apierror.From(err, resource)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) UpdateRecord(c echo.Context) error {
	id, err := apierror.ParamID(c, "id")
	if err != nil {
		return err
	}
	var r MedicalRecord
	if err := c.Bind(&r); err != nil {
		return apierror.BadRequest(err.Error())
	}
	r.ID = id
	ctx := c.Request().Context()
	if err := h.svc.UpdateRecord(ctx, &r); err != nil {
		return apierror.From(err, resource)
	}
	updated, err := h.svc.GetRecord(ctx, id)
	if err != nil {
		return apierror.From(err, resource)
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteRecord(c echo.Context) error {
	id, err := apierror.ParamID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeleteRecord(c.Request().Context(), id); err != nil {
		return apierror.From(err, resource)
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

func (h *Handler) Latest(c echo.Context) error {
	patientID, err := apierror.ParamID(c, "id")
	if err != nil {
		return err
	}
	r, err := h.svc.Latest(c.Request().Context(), patientID)
	if err != nil {
		return apierror.From(err, resource)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) ListAll(c echo.Context) error {
	items, err := h.svc.ListAll(c.Request().Context())
	if err != nil {
		return apierror.From(err, resource)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

func (h *Handler) ListRecent(c echo.Context) error {
	items, err := h.svc.ListRecent(c.Request().Context())
	if err != nil {
		return apierror.From(err, resource)
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ListUpcomingFollowUps(c echo.Context) error {
	items, err := h.svc.ListUpcomingFollowUps(c.Request().Context())
	if err != nil {
		return apierror.From(err, resource)
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}
