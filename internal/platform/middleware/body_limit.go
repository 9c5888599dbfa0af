package middleware

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/patientrecords/patientrecords/internal/platform/apierror"
)

// BodyLimit caps request bodies. defaultLimit applies everywhere except
// image uploads (POST .../image), which get uploadLimit.
//
// Limits are human-readable sizes: "1M", "512K", "1G" or a bare byte count.
// Oversized bodies get a 413.
func BodyLimit(defaultLimit string, uploadLimit string) echo.MiddlewareFunc {
	defaultBytes := parseLimit(defaultLimit)
	uploadBytes := parseLimit(uploadLimit)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if c.Request().Body == nil || c.Request().Body == http.NoBody {
				return next(c)
			}

			limit := defaultBytes
			if c.Request().Method == http.MethodPost && strings.HasSuffix(c.Request().URL.Path, "/image") {
				limit = uploadBytes
			}

			if c.Request().ContentLength > limit {
				return payloadTooLargeError(limit)
			}

			// Content-Length may be absent or wrong.
			c.Request().Body = &cappedBody{body: c.Request().Body, limit: limit}
			return next(c)
		}
	}
}

// cappedBody fails reads once more than limit bytes have come through.
type cappedBody struct {
	body  io.ReadCloser
	limit int64
	read  int64
}

func (b *cappedBody) Read(p []byte) (int, error) {
	if b.read > b.limit {
		return 0, payloadTooLargeError(b.limit)
	}
	// One byte past the limit is enough to tell an oversized body apart.
	if room := b.limit - b.read + 1; int64(len(p)) > room {
		p = p[:room]
	}
	n, err := b.body.Read(p)
	b.read += int64(n)
	if b.read > b.limit {
		return 0, payloadTooLargeError(b.limit)
	}
	return n, err
}

func (b *cappedBody) Close() error { return b.body.Close() }

func payloadTooLargeError(limit int64) error {
	return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
		apierror.Body{Error: fmt.Sprintf("request body exceeds maximum allowed size of %d bytes", limit)})
}

var sizeUnits = []struct {
	suffix string
	shift  uint
}{
	{"GB", 30}, {"G", 30},
	{"MB", 20}, {"M", 20},
	{"KB", 10}, {"K", 10},
}

// parseLimit turns "1M", "512K", "10G" or a byte count into bytes. Anything
// unparseable means 1 MB.
func parseLimit(s string) int64 {
	const fallback = 1 << 20
	s = strings.ToUpper(strings.TrimSpace(s))
	var shift uint
	for _, u := range sizeUnits {
		if strings.HasSuffix(s, u.suffix) {
			s, shift = strings.TrimSuffix(s, u.suffix), u.shift
			break
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return fallback
	}
	return n << shift
}
