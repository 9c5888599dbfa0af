package report

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/patientrecords/patientrecords/internal/domain/medicalrecord"
	"github.com/patientrecords/patientrecords/internal/domain/medication"
	"github.com/patientrecords/patientrecords/internal/domain/patient"
	"github.com/patientrecords/patientrecords/internal/platform/db"
	"github.com/patientrecords/patientrecords/internal/platform/db/dbtest"
	"github.com/patientrecords/patientrecords/internal/platform/metrics"
	"github.com/patientrecords/patientrecords/internal/platform/task"
)

func strp(s string) *string { return &s }

func TestXLSXExporter_WritesThreeSheets(t *testing.T) {
	x, err := NewXLSXExporter(filepath.Join(t.TempDir(), "exports"))
	require.NoError(t, err)

	p := &patient.Patient{ID: 7, Name: "Sarah Johnson", Age: 28, Gender: "Female", BloodType: "A+", IsActive: true}
	records := []*medicalrecord.MedicalRecord{{
		VisitDate: "2024-06-15", VisitType: "Regular", DoctorName: "Dr. Mark Thompson", DoctorSpecialty: "Endocrinology",
		Symptoms: "Thirst", Diagnosis: "Diabetes follow-up", Treatment: "Adjusted dosage", FollowUpDate: strp("2024-07-01"),
	}}
	meds := []*medication.Medication{{
		Name: "Metformin", GenericName: "Glucophage", Dosage: "500mg", Frequency: "Twice daily",
		StartDate: "2024-06-15", PrescribedBy: "Mark Thompson", RefillsRemaining: 5, IsActive: true,
	}}

	a, err := x.Export(context.Background(), p, records, meds)
	require.NoError(t, err)
	assert.Equal(t, int64(7), a.PatientID)
	assert.Equal(t, x.Dir(), filepath.Dir(a.Path))
	assert.Positive(t, a.Size)

	f, err := excelize.OpenFile(a.Path)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetPatient, SheetMedicalRecords, SheetMedications}, f.GetSheetList())

	v, err := f.GetCellValue(SheetPatient, "B2")
	require.NoError(t, err)
	assert.Equal(t, "Sarah Johnson", v)
	v, _ = f.GetCellValue(SheetPatient, "B3")
	assert.Equal(t, "28", v)

	rows, err := f.GetRows(SheetMedicalRecords)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Visit Date", rows[0][0])
	assert.Equal(t, "Dr. Mark Thompson - Endocrinology", rows[1][2])
	assert.Equal(t, "2024-07-01", rows[1][8])

	rows, err = f.GetRows(SheetMedications)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Metformin (Glucophage)", rows[1][0])
	assert.Equal(t, "Dr. Mark Thompson", rows[1][5])
	assert.Equal(t, "5", rows[1][7])
}

func TestXLSXExporter_CancelledContext(t *testing.T) {
	x, err := NewXLSXExporter(t.TempDir())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = x.Export(ctx, &patient.Patient{ID: 1}, nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
	entries, _ := os.ReadDir(x.Dir())
	assert.Empty(t, entries)
}

type fixture struct {
	svc      *Service
	patients patient.Repository
	records  medicalrecord.Repository
	meds     medication.Repository
	exporter *XLSXExporter
	metrics  *metrics.Collector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	eng := dbtest.Open(t, dbtest.WithDemoData())
	x, err := NewXLSXExporter(t.TempDir())
	require.NoError(t, err)
	runner := task.NewRunner(2, zerolog.Nop())
	t.Cleanup(func() { runner.Shutdown(context.Background()) })

	f := &fixture{
		patients: patient.NewRepoSQL(eng),
		records:  medicalrecord.NewRepoSQL(eng),
		meds:     medication.NewRepoSQL(eng),
		exporter: x,
		metrics:  metrics.NewCollector("test"),
	}
	f.svc = NewService(f.patients, f.records, f.meds, x, runner)
	f.svc.SetMetrics(f.metrics)
	return f
}

func (f *fixture) patientNamed(t *testing.T, name string) *patient.Patient {
	t.Helper()
	list, err := f.patients.List(context.Background())
	require.NoError(t, err)
	for _, p := range list {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("no patient %q", name)
	return nil
}

func TestService_ExportPatientUsesActiveMedications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.patientNamed(t, "John Anderson")

	extra := &medication.Medication{PatientID: p.ID, Name: "Ibuprofen", Dosage: "200mg"}
	_, err := f.meds.Insert(ctx, extra)
	require.NoError(t, err)
	require.NoError(t, f.meds.Deactivate(ctx, extra.ID))

	a, err := f.svc.ExportPatient(ctx, p.ID)
	require.NoError(t, err)

	wb, err := excelize.OpenFile(a.Path)
	require.NoError(t, err)
	defer wb.Close()
	rows, err := wb.GetRows(SheetMedications)
	require.NoError(t, err)
	require.Len(t, rows, 2, "deactivated medications are not exported")
	assert.Equal(t, "Sumatriptan (Imitrex)", rows[1][0])

	rows, err = wb.GetRows(SheetMedicalRecords)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ExportsTotal.WithLabelValues("ok")))
}

func TestService_ExportPatientNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ExportPatient(context.Background(), 999)
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestService_ExportAll(t *testing.T) {
	f := newFixture(t)
	artifacts, err := f.svc.ExportAll(context.Background())
	require.NoError(t, err)
	require.Len(t, artifacts, 5)
	assert.Equal(t, f.patientNamed(t, "Emily Davis").ID, artifacts[0].PatientID, "artifacts follow patient name order")

	entries, err := os.ReadDir(f.exporter.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 5)
}

type failingExporter struct{}

func (failingExporter) Export(context.Context, *patient.Patient, []*medicalrecord.MedicalRecord, []*medication.Medication) (*Artifact, error) {
	return nil, errors.New("disk full")
}

func TestService_ExportAllStopsOnFailure(t *testing.T) {
	f := newFixture(t)
	runner := task.NewRunner(1, zerolog.Nop())
	svc := NewService(f.patients, f.records, f.meds, failingExporter{}, runner)
	svc.SetMetrics(f.metrics)

	_, err := svc.ExportAll(context.Background())
	assert.EqualError(t, err, "disk full")
	require.NoError(t, runner.Shutdown(context.Background()))
	assert.Positive(t, testutil.ToFloat64(f.metrics.ExportsTotal.WithLabelValues("error")))
}

func TestHandler_DownloadPatientReport(t *testing.T) {
	f := newFixture(t)
	e := echo.New()
	NewHandler(f.svc).RegisterRoutes(e.Group("/api/v1"))
	p := f.patientNamed(t, "Robert Smith")

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/patients/"+itoa(p.ID)+"/report", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "attachment")
	assert.Equal(t, xlsxContentType, rec.Header().Get(echo.HeaderContentType))

	wb, err := excelize.OpenReader(rec.Body)
	require.NoError(t, err)
	defer wb.Close()
	v, _ := wb.GetCellValue(SheetPatient, "B2")
	assert.Equal(t, "Robert Smith", v)

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/patients/404/report", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func itoa(id int64) string { return strconv.FormatInt(id, 10) }
