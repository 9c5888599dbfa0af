package apierror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/patientrecords/patientrecords/internal/platform/db"
	"github.com/patientrecords/patientrecords/internal/platform/validation"
)

func TestFrom_StatusMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"validation", &validation.Error{Field: "age", Reason: "age out of range"}, http.StatusBadRequest, "age out of range"},
		{"not found", fmt.Errorf("get: %w", db.ErrNotFound), http.StatusNotFound, "patient not found"},
		{"write failed", db.ErrWriteFailed, http.StatusNotFound, "patient not found"},
		{"timeout", context.DeadlineExceeded, http.StatusServiceUnavailable, "request timed out"},
		{"storage", &db.StorageError{Op: "list patients", Err: errors.New("disk I/O error")}, http.StatusInternalServerError, "storage error"},
		{"unclassified", errors.New("dial postgres://admin:hunter2@db/records"), http.StatusInternalServerError, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			he := From(tt.err, "patient")
			if he.Code != tt.code {
				t.Errorf("expected %d, got %d", tt.code, he.Code)
			}
			body, ok := he.Message.(Body)
			if !ok {
				t.Fatalf("expected Body message, got %T", he.Message)
			}
			if body.Error != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, body.Error)
			}
		})
	}
}

func TestFrom_UnclassifiedErrorTextStaysOutOfBody(t *testing.T) {
	he := From(errors.New("dial postgres://admin:hunter2@db/records"), "patient")
	body := he.Message.(Body)
	if strings.Contains(body.Error, "hunter2") || strings.Contains(body.Error, "postgres") {
		t.Errorf("error body leaks cause: %q", body.Error)
	}
}
