package imagestore

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/patientrecords/patientrecords/internal/platform/apierror"
)

// Owner records which image belongs to a patient.
type Owner interface {
	ImagePath(ctx context.Context, patientID int64) (*string, error)
	SetImagePath(ctx context.Context, patientID int64, path *string) error
}

// Handler serves the patient image endpoints.
type Handler struct {
	store  Store
	owners Owner
}

func NewHandler(store Store, owners Owner) *Handler {
	return &Handler{store: store, owners: owners}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/patients/:id/image", h.Upload)
	api.GET("/patients/:id/image", h.Download)
	api.DELETE("/patients/:id/image", h.Remove)
}

// Upload stores the "image" form file and points the patient at it. A
// previous image is removed once the new reference is recorded.
func (h *Handler) Upload(c echo.Context) error {
	id, err := apierror.ParamID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	previous, err := h.owners.ImagePath(ctx, id)
	if err != nil {
		return apierror.From(err, "patient")
	}

	file, err := c.FormFile("image")
	if err != nil {
		return apierror.BadRequest("image file is required")
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}
	defer src.Close()

	img, err := h.store.Save(ctx, id, src)
	if err != nil {
		return storeError(err)
	}
	if err := h.owners.SetImagePath(ctx, id, &img.Path); err != nil {
		h.store.Delete(ctx, img.Path)
		return apierror.From(err, "patient")
	}
	if previous != nil && *previous != img.Path {
		if err := h.store.Delete(ctx, *previous); err != nil && !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Str("path", *previous).Msg("failed to remove replaced image")
		}
	}
	return c.JSON(http.StatusCreated, img)
}

// Download streams the image. A reference whose file has gone missing is
// reported as not found rather than a server error.
func (h *Handler) Download(c echo.Context) error {
	id, err := apierror.ParamID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	p, err := h.owners.ImagePath(ctx, id)
	if err != nil {
		return apierror.From(err, "patient")
	}
	if p == nil {
		return echo.NewHTTPError(http.StatusNotFound, apierror.Body{Error: "patient has no image"})
	}

	rc, img, err := h.store.Open(ctx, *p)
	if err != nil {
		return storeError(err)
	}
	defer rc.Close()

	return c.Stream(http.StatusOK, img.ContentType, rc)
}

func (h *Handler) Remove(c echo.Context) error {
	id, err := apierror.ParamID(c, "id")
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	p, err := h.owners.ImagePath(ctx, id)
	if err != nil {
		return apierror.From(err, "patient")
	}
	if p == nil {
		return c.NoContent(http.StatusNoContent)
	}
	if err := h.owners.SetImagePath(ctx, id, nil); err != nil {
		return apierror.From(err, "patient")
	}
	if err := h.store.Delete(ctx, *p); err != nil && !errors.Is(err, ErrNotFound) {
		log.Warn().Err(err).Str("path", *p).Msg("failed to remove image file")
	}
	return c.NoContent(http.StatusNoContent)
}

func storeError(err error) error {
	switch {
	case errors.Is(err, ErrTooLarge):
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, apierror.Body{Error: err.Error()})
	case errors.Is(err, ErrInvalidContentType):
		return echo.NewHTTPError(http.StatusUnsupportedMediaType, apierror.Body{Error: err.Error()})
	case errors.Is(err, ErrEmpty):
		return apierror.BadRequest(err.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInvalidPath):
		return echo.NewHTTPError(http.StatusNotFound, apierror.Body{Error: "image not found"})
	default:
		log.Error().Err(err).Msg("image store failure")
		return echo.NewHTTPError(http.StatusInternalServerError, apierror.Body{Error: "image store error"})
	}
}
