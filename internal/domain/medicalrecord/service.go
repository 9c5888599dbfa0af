package medicalrecord

import (
	"context"
	"strings"

	"github.com/patientrecords/patientrecords/internal/domain/patient"
	"github.com/patientrecords/patientrecords/internal/platform/metrics"
	"github.com/patientrecords/patientrecords/internal/platform/validation"
)

const entity = "medical_record"

// PatientFinder resolves the owner of a visit.
type PatientFinder interface {
	GetByID(ctx context.Context, id int64) (*patient.Patient, error)
}

type Service struct {
	repo     Repository
	patients PatientFinder
	metrics  *metrics.Collector
}

func NewService(repo Repository, patients PatientFinder) *Service {
	return &Service{repo: repo, patients: patients}
}

func (s *Service) SetMetrics(m *metrics.Collector) {
	s.metrics = m
}

// Validate applies the field rules to r. An empty visit date is allowed and
// becomes today on insert.
func Validate(r *MedicalRecord) error {
	followUp := ""
	if r.FollowUpDate != nil {
		followUp = *r.FollowUpDate
	}
	return validation.First(
		validation.OptionalDate(r.VisitDate).Err("visit_date"),
		validation.MedicalField(r.Symptoms, "Symptoms", true).Err("symptoms"),
		validation.MedicalField(r.Diagnosis, "Diagnosis", true).Err("diagnosis"),
		validation.MedicalField(r.Treatment, "Treatment", true).Err("treatment"),
		validation.DoctorName(r.DoctorName).Err("doctor_name"),
		validation.VitalSigns(r.VitalSigns).Err("vital_signs"),
		validation.MedicalField(r.Notes, "Notes", false).Err("notes"),
		validation.OptionalDate(followUp).Err("follow_up_date"),
	)
}

func normalize(r *MedicalRecord) {
	r.VisitDate = strings.TrimSpace(r.VisitDate)
	r.Symptoms = strings.TrimSpace(r.Symptoms)
	r.Diagnosis = strings.TrimSpace(r.Diagnosis)
	r.Treatment = strings.TrimSpace(r.Treatment)
	r.DoctorName = strings.TrimSpace(r.DoctorName)
	if r.FollowUpDate != nil {
		if f := strings.TrimSpace(*r.FollowUpDate); f != "" {
			r.FollowUpDate = &f
		} else {
			r.FollowUpDate = nil
		}
	}
}

// CreateRecord stores a visit for an existing patient. Soft-deleted
// patients may still receive visits.
func (s *Service) CreateRecord(ctx context.Context, r *MedicalRecord) (int64, error) {
	if err := Validate(r); err != nil {
		return 0, err
	}
	if _, err := s.patients.GetByID(ctx, r.PatientID); err != nil {
		return 0, err
	}
	normalize(r)
	id, err := s.repo.Insert(ctx, r)
	if err != nil {
		return 0, err
	}
	s.metrics.Write(entity, "insert")
	return id, nil
}

func (s *Service) GetRecord(ctx context.Context, id int64) (*MedicalRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateRecord(ctx context.Context, r *MedicalRecord) error {
	if r.VisitDate == "" {
		return &validation.Error{Field: "visit_date", Reason: "Date is required"}
	}
	if err := Validate(r); err != nil {
		return err
	}
	normalize(r)
	if err := s.repo.Update(ctx, r); err != nil {
		return err
	}
	s.metrics.Write(entity, "update")
	return nil
}

// DeleteRecord removes the visit permanently.
func (s *Service) DeleteRecord(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.metrics.Write(entity, "delete")
	return nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID int64) ([]*MedicalRecord, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) Latest(ctx context.Context, patientID int64) (*MedicalRecord, error) {
	return s.repo.Latest(ctx, patientID)
}

func (s *Service) ListAll(ctx context.Context) ([]*MedicalRecord, error) {
	return s.repo.ListAll(ctx)
}

func (s *Service) ListRecent(ctx context.Context) ([]*MedicalRecord, error) {
	return s.repo.ListRecent(ctx)
}

func (s *Service) ListUpcomingFollowUps(ctx context.Context) ([]*MedicalRecord, error) {
	return s.repo.ListUpcomingFollowUps(ctx)
}

func (s *Service) HasRecords(ctx context.Context, patientID int64) (bool, error) {
	return s.repo.HasRecords(ctx, patientID)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *Service) CountUpcomingFollowUps(ctx context.Context) (int, error) {
	return s.repo.CountUpcomingFollowUps(ctx)
}
