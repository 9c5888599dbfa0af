// Package apierror maps service errors onto HTTP responses.
package apierror

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/patientrecords/patientrecords/internal/platform/db"
	"github.com/patientrecords/patientrecords/internal/platform/validation"
)

// Body is the JSON error payload returned by every endpoint.
type Body struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// From translates err into an *echo.HTTPError. resource names the entity
// in not-found messages.
func From(err error, resource string) *echo.HTTPError {
	var (
		verr *validation.Error
		he   *echo.HTTPError
	)
	switch {
	case errors.As(err, &he):
		return he
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, Body{Error: verr.Reason, Field: verr.Field})
	case errors.Is(err, db.ErrNotFound), errors.Is(err, db.ErrWriteFailed):
		return echo.NewHTTPError(http.StatusNotFound, Body{Error: resource + " not found"})
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, Body{Error: "request timed out"})
	case db.IsStorageFault(err):
		return echo.NewHTTPError(http.StatusInternalServerError, Body{Error: "storage error"})
	default:
		log.Error().Err(err).Str("resource", resource).Msg("unclassified error")
		return echo.NewHTTPError(http.StatusInternalServerError, Body{Error: "internal error"})
	}
}

// BadRequest builds a 400 with msg.
func BadRequest(msg string) *echo.HTTPError {
	return echo.NewHTTPError(http.StatusBadRequest, Body{Error: msg})
}

// ParamID reads a positive integer path parameter.
func ParamID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, BadRequest("invalid " + name)
	}
	return id, nil
}

// QueryInt reads an integer query parameter, falling back to def when the
// parameter is absent. A malformed value is a 400.
func QueryInt(c echo.Context, name string, def int) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, BadRequest("invalid " + name)
	}
	return n, nil
}

// Handler renders every error as a Body. It replaces echo's default so
// plain errors and echo's own errors share one shape.
func Handler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	he := From(err, "resource")
	body, ok := he.Message.(Body)
	if !ok {
		body = Body{Error: http.StatusText(he.Code)}
		if s, isString := he.Message.(string); isString {
			body.Error = s
		}
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(he.Code)
		return
	}
	_ = c.JSON(he.Code, body)
}
