package medicalrecord

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/patientrecords/patientrecords/internal/domain/patient"
	"github.com/patientrecords/patientrecords/internal/platform/db"
	"github.com/patientrecords/patientrecords/internal/platform/metrics"
	"github.com/patientrecords/patientrecords/internal/platform/validation"
)

// -- Mocks --

type mockRecordRepo struct {
	records map[int64]*MedicalRecord
	nextID  int64
	calls   int
}

func newMockRecordRepo() *mockRecordRepo {
	return &mockRecordRepo{records: make(map[int64]*MedicalRecord), nextID: 1}
}

func (m *mockRecordRepo) Insert(_ context.Context, r *MedicalRecord) (int64, error) {
	m.calls++
	r.ID = m.nextID
	m.nextID++
	if r.VisitDate == "" {
		r.VisitDate = "2024-06-15"
	}
	cp := *r
	m.records[r.ID] = &cp
	return r.ID, nil
}

func (m *mockRecordRepo) Update(_ context.Context, r *MedicalRecord) error {
	m.calls++
	old, ok := m.records[r.ID]
	if !ok {
		return db.ErrWriteFailed
	}
	cp := *r
	cp.PatientID = old.PatientID
	m.records[r.ID] = &cp
	return nil
}

func (m *mockRecordRepo) Delete(_ context.Context, id int64) error {
	m.calls++
	if _, ok := m.records[id]; !ok {
		return db.ErrWriteFailed
	}
	delete(m.records, id)
	return nil
}

func (m *mockRecordRepo) GetByID(_ context.Context, id int64) (*MedicalRecord, error) {
	r, ok := m.records[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRecordRepo) ListByPatient(_ context.Context, patientID int64) ([]*MedicalRecord, error) {
	out := []*MedicalRecord{}
	for _, r := range m.records {
		if r.PatientID == patientID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRecordRepo) Latest(ctx context.Context, patientID int64) (*MedicalRecord, error) {
	list, _ := m.ListByPatient(ctx, patientID)
	if len(list) == 0 {
		return nil, db.ErrNotFound
	}
	return list[0], nil
}

func (m *mockRecordRepo) ListAll(context.Context) ([]*MedicalRecord, error)   { return nil, nil }
func (m *mockRecordRepo) ListRecent(context.Context) ([]*MedicalRecord, error) { return nil, nil }
func (m *mockRecordRepo) ListUpcomingFollowUps(context.Context) ([]*MedicalRecord, error) {
	return nil, nil
}

func (m *mockRecordRepo) HasRecords(ctx context.Context, patientID int64) (bool, error) {
	list, _ := m.ListByPatient(ctx, patientID)
	return len(list) > 0, nil
}

func (m *mockRecordRepo) Count(context.Context) (int, error)                  { return len(m.records), nil }
func (m *mockRecordRepo) CountUpcomingFollowUps(context.Context) (int, error) { return 0, nil }

type mockPatients map[int64]*patient.Patient

func (m mockPatients) GetByID(_ context.Context, id int64) (*patient.Patient, error) {
	p, ok := m[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	return p, nil
}

func newTestService() (*Service, *mockRecordRepo) {
	repo := newMockRecordRepo()
	patients := mockPatients{
		1: {ID: 1, Name: "John Anderson", IsActive: true},
		2: {ID: 2, Name: "Former Patient", IsActive: false},
	}
	return NewService(repo, patients), repo
}

func validRecord(patientID int64) *MedicalRecord {
	return &MedicalRecord{
		PatientID:  patientID,
		VisitDate:  "2024-06-15",
		Symptoms:   "Headache, nausea",
		Diagnosis:  "Migraine",
		Treatment:  "Rest",
		DoctorName: "Dr. Jennifer Martinez",
	}
}

// -- Tests --

func TestService_CreateRecord(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	r := validRecord(1)
	r.FollowUpDate = new(string)
	id, err := svc.CreateRecord(ctx, r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != 1 || repo.calls != 1 {
		t.Errorf("expected id 1 and one insert, got %d / %d", id, repo.calls)
	}
	if r.FollowUpDate != nil {
		t.Error("blank follow-up date should be stored as absent")
	}

	// Visits can still be added for a soft-deleted patient.
	if _, err := svc.CreateRecord(ctx, validRecord(2)); err != nil {
		t.Errorf("inactive owner: %v", err)
	}
}

func TestService_CreateRecord_UnknownPatient(t *testing.T) {
	svc, repo := newTestService()
	_, err := svc.CreateRecord(context.Background(), validRecord(99))
	if !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if repo.calls != 0 {
		t.Error("repository must not be called for an unknown patient")
	}
}

func TestService_CreateRecord_Validation(t *testing.T) {
	bad := func(mut func(*MedicalRecord)) *MedicalRecord {
		r := validRecord(1)
		mut(r)
		return r
	}
	tests := []struct {
		name  string
		r     *MedicalRecord
		field string
	}{
		{"bad visit date", bad(func(r *MedicalRecord) { r.VisitDate = "15/06/2024" }), "visit_date"},
		{"missing symptoms", bad(func(r *MedicalRecord) { r.Symptoms = "  " }), "symptoms"},
		{"short diagnosis", bad(func(r *MedicalRecord) { r.Diagnosis = "Xy" }), "diagnosis"},
		{"missing treatment", bad(func(r *MedicalRecord) { r.Treatment = "" }), "treatment"},
		{"missing doctor", bad(func(r *MedicalRecord) { r.DoctorName = "" }), "doctor_name"},
		{"bad doctor", bad(func(r *MedicalRecord) { r.DoctorName = "Dr. 123" }), "doctor_name"},
		{"bad follow-up", bad(func(r *MedicalRecord) { f := "2024-13-01"; r.FollowUpDate = &f }), "follow_up_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService()
			_, err := svc.CreateRecord(context.Background(), tt.r)
			var verr *validation.Error
			if !errors.As(err, &verr) {
				t.Fatalf("expected *validation.Error, got %v", err)
			}
			if verr.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, verr.Field)
			}
			if repo.calls != 0 {
				t.Error("repository must not be called")
			}
		})
	}
}

func TestService_UpdateAndDelete(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	r := validRecord(1)
	svc.CreateRecord(ctx, r)

	r.Diagnosis = "Tension headache"
	if err := svc.UpdateRecord(ctx, r); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := svc.GetRecord(ctx, r.ID)
	if got.Diagnosis != "Tension headache" {
		t.Errorf("expected updated diagnosis, got %q", got.Diagnosis)
	}

	r.VisitDate = ""
	if err := svc.UpdateRecord(ctx, r); err == nil {
		t.Error("update without visit date should fail")
	}

	if err := svc.DeleteRecord(ctx, r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetRecord(ctx, r.ID); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := svc.DeleteRecord(ctx, r.ID); !errors.Is(err, db.ErrWriteFailed) {
		t.Errorf("expected ErrWriteFailed, got %v", err)
	}
}

func TestService_MetricsCountWrites(t *testing.T) {
	svc, _ := newTestService()
	m := metrics.NewCollector("test")
	svc.SetMetrics(m)
	ctx := context.Background()

	r := validRecord(1)
	svc.CreateRecord(ctx, r)
	svc.CreateRecord(ctx, validRecord(42))
	svc.DeleteRecord(ctx, r.ID)

	if got := testutil.ToFloat64(m.WritesTotal.WithLabelValues("medical_record", "insert")); got != 1 {
		t.Errorf("insert count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.WritesTotal.WithLabelValues("medical_record", "delete")); got != 1 {
		t.Errorf("delete count = %v, want 1", got)
	}
}

func TestMedicalRecord_DoctorDisplayName(t *testing.T) {
	tests := []struct {
		r    MedicalRecord
		want string
	}{
		{MedicalRecord{DoctorName: "Dr. Lisa Chen", DoctorSpecialty: "Pulmonology"}, "Dr. Lisa Chen - Pulmonology"},
		{MedicalRecord{DoctorName: "Dr. Lisa Chen"}, "Dr. Lisa Chen"},
		{MedicalRecord{DoctorSpecialty: "Pulmonology"}, "Pulmonology"},
		{MedicalRecord{}, ""},
	}
	for _, tt := range tests {
		if got := tt.r.DoctorDisplayName(); got != tt.want {
			t.Errorf("DoctorDisplayName() = %q, want %q", got, tt.want)
		}
	}
}
