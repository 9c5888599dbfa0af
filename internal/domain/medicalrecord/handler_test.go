package medicalrecord

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

const recordJSON = `{"visit_date":"2024-06-15","symptoms":"Headache","diagnosis":"Migraine",
	"treatment":"Rest","doctor_name":"Dr. Jennifer Martinez","doctor_specialty":"Neurology"}`

func TestHandler_CreateForPatient(t *testing.T) {
	svc, _ := newTestService()
	h, e := NewHandler(svc), echo.New()

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(recordJSON))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("1")

	if err := h.CreateForPatient(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var r MedicalRecord
	json.Unmarshal(rec.Body.Bytes(), &r)
	if r.ID == 0 || r.PatientID != 1 || r.DoctorDisplayName() != "Dr. Jennifer Martinez - Neurology" {
		t.Errorf("unexpected body %+v", r)
	}
}

func TestHandler_CreateRecord_Errors(t *testing.T) {
	svc, _ := newTestService()
	h, e := NewHandler(svc), echo.New()

	post := func(body string) echo.Context {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		return e.NewContext(req, httptest.NewRecorder())
	}

	if code := statusOf(t, h.CreateRecord(post(recordJSON))); code != http.StatusBadRequest {
		t.Errorf("missing patient_id: expected 400, got %d", code)
	}
	withUnknown := strings.Replace(recordJSON, "{", `{"patient_id":77,`, 1)
	if code := statusOf(t, h.CreateRecord(post(withUnknown))); code != http.StatusNotFound {
		t.Errorf("unknown patient: expected 404, got %d", code)
	}
	invalid := `{"patient_id":1,"symptoms":"Headache"}`
	if code := statusOf(t, h.CreateRecord(post(invalid))); code != http.StatusBadRequest {
		t.Errorf("invalid record: expected 400, got %d", code)
	}
}

func TestHandler_GetAndDelete(t *testing.T) {
	svc, _ := newTestService()
	h, e := NewHandler(svc), echo.New()
	r := validRecord(1)
	svc.CreateRecord(nil, r)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.GetRecord(c); err != nil {
		t.Fatalf("get: %v", err)
	}

	rec = httptest.NewRecorder()
	c = e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues("1")
	if err := h.DeleteRecord(c); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	c = e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("1")
	if code := statusOf(t, h.GetRecord(c)); code != http.StatusNotFound {
		t.Errorf("expected 404 after delete, got %d", code)
	}
}
