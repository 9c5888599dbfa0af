package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patientrecords/patientrecords/internal/domain/medicalrecord"
	"github.com/patientrecords/patientrecords/internal/domain/medication"
	"github.com/patientrecords/patientrecords/internal/domain/patient"
	"github.com/patientrecords/patientrecords/internal/platform/db"
	"github.com/patientrecords/patientrecords/internal/platform/db/dbtest"
)

func newDemoService(t *testing.T) (*Service, *db.Engine, patient.Repository) {
	t.Helper()
	eng := dbtest.Open(t, dbtest.WithDemoData())
	patients := patient.NewRepoSQL(eng)
	return NewService(eng, patients, medicalrecord.NewRepoSQL(eng), medication.NewRepoSQL(eng)), eng, patients
}

func TestService_DashboardOverDemoData(t *testing.T) {
	svc, _, _ := newDemoService(t)

	s, err := svc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, db.DashboardStats{Patients: 5, MedicalRecords: 3, Medications: 3}, s.Stats)
	assert.Equal(t, patient.GenderCounts{Male: 3, Female: 2}, s.Genders)
	assert.Equal(t, patient.Statistics{TotalActive: 5, AddedThisMonth: 5, AverageAge: 38}, s.Patients)
}

func TestService_TotalsFollowActivePatients(t *testing.T) {
	svc, _, patients := newDemoService(t)
	ctx := context.Background()

	tot, err := svc.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, Totals{Patients: 5, MedicalRecords: 3, Medications: 3}, tot)

	list, err := patients.List(ctx)
	require.NoError(t, err)
	for _, p := range list {
		if p.Name == "John Anderson" {
			require.NoError(t, patients.Delete(ctx, p.ID))
		}
	}

	tot, err = svc.Totals(ctx)
	require.NoError(t, err)
	assert.Equal(t, Totals{Patients: 4, MedicalRecords: 2, Medications: 2}, tot)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, db.DashboardStats{Patients: 4, MedicalRecords: 3, Medications: 3}, stats,
		"headline stats count children of inactive patients")
}

func TestService_InfoAndClearAll(t *testing.T) {
	svc, _, _ := newDemoService(t)
	ctx := context.Background()

	info, err := svc.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", info.Driver)
	assert.Positive(t, info.SchemaVersion)

	require.NoError(t, svc.ClearAll(ctx))
	s, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.Zero(t, s.Stats)
	assert.Zero(t, s.Genders.Total())
	assert.Zero(t, s.Patients.AverageAge)
}

type failingPatients struct{ patient.Repository }

func (failingPatients) CountByGender(context.Context) (patient.GenderCounts, error) {
	return patient.GenderCounts{}, &db.StorageError{Op: "count by gender", Err: errors.New("database is locked")}
}

func TestService_DashboardPropagatesFirstFailure(t *testing.T) {
	eng := dbtest.Open(t)
	svc := NewService(eng, failingPatients{patient.NewRepoSQL(eng)}, medicalrecord.NewRepoSQL(eng), medication.NewRepoSQL(eng))

	_, err := svc.Dashboard(context.Background())
	assert.True(t, db.IsStorageFault(err), "got %v", err)
}

func TestHandler_Routes(t *testing.T) {
	svc, _, _ := newDemoService(t)
	e := echo.New()
	NewHandler(svc).RegisterRoutes(e.Group("/api/v1"))

	for _, path := range []string{"/api/v1/dashboard", "/api/v1/dashboard/totals", "/api/v1/dashboard/info"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/dashboard/totals", nil))
	assert.JSONEq(t, `{"patients":5,"medical_records":3,"medications":3,"upcoming_follow_ups":0}`, rec.Body.String())
}
