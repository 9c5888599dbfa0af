package patient

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/patientrecords/patientrecords/internal/platform/apierror"
	"github.com/patientrecords/patientrecords/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/patients", h.ListPatients)
	api.POST("/patients", h.CreatePatient)
	api.GET("/patients/recent", h.ListRecent)
	api.GET("/patients/follow-ups", h.ListWithUpcomingFollowUps)
	api.GET("/patients/statistics", h.GetStatistics)
	api.GET("/patients/gender-breakdown", h.GetGenderBreakdown)
	api.GET("/patients/:id", h.GetPatient)
	api.PUT("/patients/:id", h.UpdatePatient)
	api.DELETE("/patients/:id", h.DeletePatient)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return apierror.BadRequest(err.Error())
	}
	if _, err := h.svc.CreatePatient(c.Request().Context(), &p); err != nil {
		return apierror.From(err, "patient")
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := apierror.ParamID(c, "id")
	if err != nil {
		return err
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return apierror.From(err, "patient")
	}
	return c.JSON(http.StatusOK, p)
}

// ListPatients serves the plain list and its filters: q searches name and
// phone, blood_type filters exactly, min_age/max_age bound the age.
func (h *Handler) ListPatients(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		items []*Patient
		err   error
	)
	switch {
	case c.QueryParam("q") != "":
		items, err = h.svc.SearchPatients(ctx, c.QueryParam("q"))
	case c.QueryParam("blood_type") != "":
		items, err = h.svc.ListByBloodType(ctx, c.QueryParam("blood_type"))
	case c.QueryParam("min_age") != "" || c.QueryParam("max_age") != "":
		minAge, qerr := apierror.QueryInt(c, "min_age", 0)
		if qerr != nil {
			return qerr
		}
		maxAge, qerr := apierror.QueryInt(c, "max_age", 150)
		if qerr != nil {
			return qerr
		}
		items, err = h.svc.ListByAgeRange(ctx, minAge, maxAge)
	default:
		items, err = h.svc.ListPatients(ctx)
	}
	if err != nil {
		return apierror.From(err, "patient")
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

func (h *Handler) ListRecent(c echo.Context) error {
	items, err := h.svc.ListRecent(c.Request().Context())
	if err != nil {
		return apierror.From(err, "patient")
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

func (h *Handler) ListWithUpcomingFollowUps(c echo.Context) error {
	items, err := h.svc.ListWithUpcomingFollowUps(c.Request().Context())
	if err != nil {
		return apierror.From(err, "patient")
	}
	return c.JSON(http.StatusOK, pagination.Page(items, pagination.FromContext(c)))
}

func (h *Handler) GetStatistics(c echo.Context) error {
	s, err := h.svc.Statistics(c.Request().Context())
	if err != nil {
		return apierror.From(err, "patient")
	}
	return c.JSON(http.StatusOK, s)
}

func (h *Handler) GetGenderBreakdown(c echo.Context) error {
	g, err := h.svc.CountByGender(c.Request().Context())
	if err != nil {
		return apierror.From(err, "patient")
	}
	return c.JSON(http.StatusOK, g)
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := apierror.ParamID(c, "id")
	if err != nil {
		return err
	}
	var p Patient
	if err := c.Bind(&p); err != nil {
		return apierror.BadRequest(err.Error())
	}
	p.ID = id
	if err := h.svc.UpdatePatient(c.Request().Context(), &p); err != nil {
		return apierror.From(err, "patient")
	}
	updated, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return apierror.From(err, "patient")
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := apierror.ParamID(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.DeletePatient(c.Request().Context(), id); err != nil {
		return apierror.From(err, "patient")
	}
	return c.NoContent(http.StatusNoContent)
}
