package sandbox

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patientrecords/patientrecords/internal/domain/medicalrecord"
	"github.com/patientrecords/patientrecords/internal/domain/medication"
	"github.com/patientrecords/patientrecords/internal/domain/patient"
	"github.com/patientrecords/patientrecords/internal/platform/db"
	"github.com/patientrecords/patientrecords/internal/platform/db/dbtest"
	"github.com/patientrecords/patientrecords/internal/platform/validation"
)

func TestDataGenerator_Deterministic(t *testing.T) {
	a := NewDataGenerator(42, dbtest.Today)
	b := NewDataGenerator(42, dbtest.Today)
	for range 20 {
		assert.Equal(t, a.GeneratePatient(), b.GeneratePatient())
		assert.Equal(t, a.GenerateMedicalRecord(1), b.GenerateMedicalRecord(1))
		assert.Equal(t, a.GenerateMedication(1), b.GenerateMedication(1))
	}

	c := NewDataGenerator(43, dbtest.Today)
	assert.NotEqual(t, NewDataGenerator(42, dbtest.Today).GeneratePatient(), c.GeneratePatient())
}

func TestDataGenerator_ProducesValidRows(t *testing.T) {
	g := NewDataGenerator(7, dbtest.Today)
	today := dbtest.Today.Format(db.DateLayout)
	for range 200 {
		p := g.GeneratePatient()
		require.NoError(t, patient.Validate(p), "%+v", p)
		assert.LessOrEqual(t, p.RegistrationDate, today)

		r := g.GenerateMedicalRecord(1)
		require.NoError(t, medicalrecord.Validate(r), "%+v", r)
		if r.FollowUpDate != nil {
			assert.Greater(t, *r.FollowUpDate, today)
		}

		m := g.GenerateMedication(1)
		require.NoError(t, medication.Validate(m), "%+v", m)
		assert.True(t, validation.Contains(validation.MedicationFrequencies, m.Frequency))
	}
}

type fixture struct {
	eng      *db.Engine
	patients patient.Repository
	seeder   *Seeder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	eng := dbtest.Open(t)
	f := &fixture{eng: eng, patients: patient.NewRepoSQL(eng)}
	f.seeder = NewSeeder(eng, f.patients, medicalrecord.NewRepoSQL(eng), medication.NewRepoSQL(eng))
	return f
}

func TestSeeder_Generate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.seeder.Generate(ctx, SeedConfig{PatientCount: 25, VisitsPerPatient: 2, MedicationsPerPatient: 3, Seed: 99})
	require.NoError(t, err)
	assert.Equal(t, 25, res.Patients)
	assert.Equal(t, 50, res.MedicalRecords)
	assert.Equal(t, 75, res.Medications)
	assert.Equal(t, int64(99), res.Seed)

	stats, err := f.eng.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, db.DashboardStats{Patients: 25, MedicalRecords: 50, Medications: 75}, stats)

	g, err := f.patients.CountByGender(ctx)
	require.NoError(t, err)
	assert.Equal(t, 25, g.Total())
}

func TestSeeder_SameSeedSamePatients(t *testing.T) {
	names := func() []string {
		f := newFixture(t)
		_, err := f.seeder.Generate(context.Background(), SeedConfig{PatientCount: 10, Seed: 5})
		require.NoError(t, err)
		list, err := f.patients.List(context.Background())
		require.NoError(t, err)
		out := make([]string, 0, len(list))
		for _, p := range list {
			out = append(out, p.Name+"/"+p.Phone)
		}
		return out
	}
	assert.Equal(t, names(), names())
}

func TestSeeder_RejectsBadConfig(t *testing.T) {
	f := newFixture(t)
	for _, cfg := range []SeedConfig{
		{PatientCount: 0},
		{PatientCount: MaxPatients + 1},
		{PatientCount: 1, VisitsPerPatient: -1},
		{PatientCount: 1, MedicationsPerPatient: -1},
	} {
		_, err := f.seeder.Generate(context.Background(), cfg)
		var verr *validation.Error
		assert.True(t, errors.As(err, &verr), "config %+v: got %v", cfg, err)
	}
}

type failingMedications struct{ calls int }

func (f *failingMedications) Insert(context.Context, *medication.Medication) (int64, error) {
	f.calls++
	if f.calls == 3 {
		return 0, &db.StorageError{Op: "insert medication", Err: errors.New("disk I/O error")}
	}
	return int64(f.calls), nil
}

func TestSeeder_RollsBackOnFailure(t *testing.T) {
	f := newFixture(t)
	seeder := NewSeeder(f.eng, f.patients, medicalrecord.NewRepoSQL(f.eng), &failingMedications{})

	_, err := seeder.Generate(context.Background(), SeedConfig{PatientCount: 5, VisitsPerPatient: 1, MedicationsPerPatient: 1, Seed: 1})
	require.Error(t, err)
	assert.True(t, db.IsStorageFault(err))

	stats, err := f.eng.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats)
}

func TestSeedHandler(t *testing.T) {
	f := newFixture(t)
	e := echo.New()
	NewSeedHandler(f.seeder).RegisterRoutes(e.Group("/api/v1"))

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/sandbox/seed", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	rec := post(`{"seed": 3}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"patients":10`)
	assert.Contains(t, rec.Body.String(), `"medical_records":30`)

	rec = post(`{"patient_count": 20000}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
