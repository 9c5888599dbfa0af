package medication

import (
	"context"
	"errors"
	"strings"

	"github.com/patientrecords/patientrecords/internal/domain/patient"
	"github.com/patientrecords/patientrecords/internal/platform/db"
	"github.com/patientrecords/patientrecords/internal/platform/metrics"
	"github.com/patientrecords/patientrecords/internal/platform/validation"
)

const entity = "medication"

// ExpiringSoonDays is the window used by ListExpiringSoon.
const ExpiringSoonDays = 30

// PatientFinder resolves the owner of a medication.
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

// Validate applies the field rules to m. Name and dosage are required.
func Validate(m *Medication) error {
	endDate := ""
	if m.EndDate != nil {
		endDate = strings.TrimSpace(*m.EndDate)
	}
	var prescriber error
	if strings.TrimSpace(m.PrescribedBy) != "" {
		prescriber = validation.DoctorName(m.PrescribedBy).Err("prescribed_by")
	}
	err := validation.First(
		required(m.Name, "medication_name", "Medication name is required"),
		required(m.Dosage, "dosage", "Dosage is required"),
		validation.OptionalDate(m.StartDate).Err("start_date"),
		validation.OptionalDate(endDate).Err("end_date"),
		prescriber,
		validation.MedicalField(m.Instructions, "Instructions", false).Err("instructions"),
	)
	if err != nil {
		return err
	}
	if m.RefillsRemaining < 0 {
		return &validation.Error{Field: "refills_remaining", Reason: "Refills cannot be negative"}
	}
	start := strings.TrimSpace(m.StartDate)
	if start != "" && endDate != "" && endDate < start {
		return &validation.Error{Field: "end_date", Reason: "End date cannot be before start date"}
	}
	return nil
}

func required(value, field, reason string) error {
	if strings.TrimSpace(value) == "" {
		return &validation.Error{Field: field, Reason: reason}
	}
	return nil
}

func normalize(m *Medication) {
	m.Name = strings.TrimSpace(m.Name)
	m.GenericName = strings.TrimSpace(m.GenericName)
	m.Dosage = strings.TrimSpace(m.Dosage)
	m.StartDate = strings.TrimSpace(m.StartDate)
	m.PrescribedBy = strings.TrimSpace(m.PrescribedBy)
	m.PharmacyName = strings.TrimSpace(m.PharmacyName)
	if m.EndDate != nil {
		if e := strings.TrimSpace(*m.EndDate); e != "" {
			m.EndDate = &e
		} else {
			m.EndDate = nil
		}
	}
}

// CreateMedication stores an active medication for an existing patient.
func (s *Service) CreateMedication(ctx context.Context, m *Medication) (int64, error) {
	if err := Validate(m); err != nil {
		return 0, err
	}
	if _, err := s.patients.GetByID(ctx, m.PatientID); err != nil {
		return 0, err
	}
	normalize(m)
	id, err := s.repo.Insert(ctx, m)
	if err != nil {
		return 0, err
	}
	s.metrics.Write(entity, "insert")
	return id, nil
}

func (s *Service) GetMedication(ctx context.Context, id int64) (*Medication, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateMedication(ctx context.Context, m *Medication) error {
	if err := Validate(m); err != nil {
		return err
	}
	normalize(m)
	if err := s.repo.Update(ctx, m); err != nil {
		return err
	}
	s.metrics.Write(entity, "update")
	return nil
}

func (s *Service) DeactivateMedication(ctx context.Context, id int64) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.metrics.Write(entity, "deactivate")
	return nil
}

// DeleteMedication deactivates the medication and reports whether a row
// was changed. Storage faults are still returned as errors.
func (s *Service) DeleteMedication(ctx context.Context, id int64) (bool, error) {
	err := s.DeactivateMedication(ctx, id)
	if errors.Is(err, db.ErrWriteFailed) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID int64) ([]*Medication, error) {
	return s.repo.ListByPatient(ctx, patientID)
}

func (s *Service) ListActive(ctx context.Context) ([]*Medication, error) {
	return s.repo.ListActive(ctx)
}

// ListAll has the same semantics as ListActive.
func (s *Service) ListAll(ctx context.Context) ([]*Medication, error) {
	return s.repo.ListActive(ctx)
}

func (s *Service) ListExpiringInDays(ctx context.Context, days int) ([]*Medication, error) {
	if days < 0 {
		return nil, &validation.Error{Field: "days", Reason: "Days cannot be negative"}
	}
	return s.repo.ListExpiringInDays(ctx, days)
}

func (s *Service) ListExpiringSoon(ctx context.Context) ([]*Medication, error) {
	return s.repo.ListExpiringInDays(ctx, ExpiringSoonDays)
}

func (s *Service) HasActive(ctx context.Context, patientID int64) (bool, error) {
	return s.repo.HasActive(ctx, patientID)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}
