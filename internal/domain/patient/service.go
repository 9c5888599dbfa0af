package patient

import (
	"context"
	"errors"
	"strings"

	"github.com/patientrecords/patientrecords/internal/platform/db"
	"github.com/patientrecords/patientrecords/internal/platform/metrics"
	"github.com/patientrecords/patientrecords/internal/platform/validation"
)

const entity = "patient"

type Service struct {
	repo    Repository
	metrics *metrics.Collector
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// SetMetrics attaches an optional write counter to the service.
func (s *Service) SetMetrics(m *metrics.Collector) {
	s.metrics = m
}

// Validate applies the field rules to p. It does not touch storage.
func Validate(p *Patient) error {
	return validation.First(
		validation.PatientName(p.Name).Err("name"),
		validation.AgeValue(p.Age).Err("age"),
		validation.Phone(p.Phone).Err("phone"),
		validation.Phone(p.EmergencyPhone).Err("emergency_phone"),
		validation.Address(p.Address).Err("address"),
		validation.BloodType(p.BloodType).Err("blood_type"),
		validation.OptionalDate(p.RegistrationDate).Err("registration_date"),
	)
}

func normalize(p *Patient) {
	p.Name = strings.TrimSpace(p.Name)
	p.BloodType = strings.ToUpper(strings.TrimSpace(p.BloodType))
	if p.Gender != "" {
		p.Gender = string(ParseGender(p.Gender))
	}
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) (int64, error) {
	if err := Validate(p); err != nil {
		return 0, err
	}
	normalize(p)
	id, err := s.repo.Insert(ctx, p)
	if err != nil {
		return 0, err
	}
	s.metrics.Write(entity, "insert")
	return id, nil
}

func (s *Service) GetPatient(ctx context.Context, id int64) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// UpdatePatient overwrites the patient's fields. The image reference is
// owned by SetImagePath: when p carries none, the stored one is kept.
func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if err := Validate(p); err != nil {
		return err
	}
	normalize(p)
	if p.ImagePath == nil {
		current, err := s.repo.GetByID(ctx, p.ID)
		switch {
		case err == nil:
			p.ImagePath = current.ImagePath
		case !errors.Is(err, db.ErrNotFound):
			return err
		}
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}
	s.metrics.Write(entity, "update")
	return nil
}

// DeletePatient deactivates the patient. Visits and medications stay in
// storage and remain reachable by id.
func (s *Service) DeletePatient(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.metrics.Write(entity, "delete")
	return nil
}

// SetImagePath records (or clears, when path is nil) the image reference.
func (s *Service) SetImagePath(ctx context.Context, id int64, path *string) error {
	if err := s.repo.SetImagePath(ctx, id, path); err != nil {
		return err
	}
	s.metrics.Write(entity, "image")
	return nil
}

// ImagePath returns the stored image reference, nil when the patient has none.
func (s *Service) ImagePath(ctx context.Context, id int64) (*string, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.HasImage() {
		return nil, nil
	}
	return p.ImagePath, nil
}

func (s *Service) ListPatients(ctx context.Context) ([]*Patient, error) {
	return s.repo.List(ctx)
}

// SearchPatients falls back to the full list for a blank query.
func (s *Service) SearchPatients(ctx context.Context, query string) ([]*Patient, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.repo.List(ctx)
	}
	return s.repo.Search(ctx, query)
}

func (s *Service) ListByBloodType(ctx context.Context, bloodType string) ([]*Patient, error) {
	if bloodType == "" {
		return nil, &validation.Error{Field: "blood_type", Reason: "Blood type is required"}
	}
	if err := validation.BloodType(bloodType).Err("blood_type"); err != nil {
		return nil, err
	}
	return s.repo.ListByBloodType(ctx, strings.ToUpper(strings.TrimSpace(bloodType)))
}

func (s *Service) ListByAgeRange(ctx context.Context, minAge, maxAge int) ([]*Patient, error) {
	if minAge > maxAge {
		return nil, &validation.Error{Field: "min_age", Reason: "Minimum age cannot exceed maximum age"}
	}
	return s.repo.ListByAgeRange(ctx, minAge, maxAge)
}

func (s *Service) ListRecent(ctx context.Context) ([]*Patient, error) {
	return s.repo.ListRecent(ctx)
}

func (s *Service) ListWithUpcomingFollowUps(ctx context.Context) ([]*Patient, error) {
	return s.repo.ListWithUpcomingFollowUps(ctx)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *Service) CountByGender(ctx context.Context) (GenderCounts, error) {
	return s.repo.CountByGender(ctx)
}

func (s *Service) Statistics(ctx context.Context) (Statistics, error) {
	return s.repo.Statistics(ctx)
}
