package db_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/patientrecords/patientrecords/internal/platform/db"
	"github.com/patientrecords/patientrecords/internal/platform/db/dbtest"
)

func TestHealthHandler_Healthy(t *testing.T) {
	eng := dbtest.Open(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/db", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := db.HealthHandler(eng)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Status string       `json:"status"`
		Conns  db.ConnStats `json:"conns"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "healthy" {
		t.Errorf("expected healthy, got %s", body.Status)
	}
	if body.Conns.Driver != "sqlite" {
		t.Errorf("expected sqlite driver, got %s", body.Conns.Driver)
	}
	if body.Conns.MaxOpenConns != 1 {
		t.Errorf("expected a single connection, got max %d", body.Conns.MaxOpenConns)
	}
}

func TestHealthHandler_Closed(t *testing.T) {
	eng := dbtest.Open(t)
	eng.Close()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/health/db", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := db.HealthHandler(eng)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}
