// Package dashboard serves the cross-table aggregates and maintenance
// operations of the store.
package dashboard

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/patientrecords/patientrecords/internal/domain/patient"
	"github.com/patientrecords/patientrecords/internal/platform/db"
)

// Store is the part of the storage engine the dashboard reads and clears.
type Store interface {
	Stats(ctx context.Context) (db.DashboardStats, error)
	Info(ctx context.Context) (db.Info, error)
	ClearAll(ctx context.Context) error
}

type PatientStats interface {
	Count(ctx context.Context) (int, error)
	CountByGender(ctx context.Context) (patient.GenderCounts, error)
	Statistics(ctx context.Context) (patient.Statistics, error)
}

type RecordCounter interface {
	Count(ctx context.Context) (int, error)
	CountUpcomingFollowUps(ctx context.Context) (int, error)
}

type MedicationCounter interface {
	Count(ctx context.Context) (int, error)
}

// Summary is everything the dashboard screen shows at once.
type Summary struct {
	Stats    db.DashboardStats    `json:"stats"`
	Genders  patient.GenderCounts `json:"genders"`
	Patients patient.Statistics   `json:"patients"`
}

// Totals are the counts restricted to active patients.
type Totals struct {
	Patients          int `json:"patients"`
	MedicalRecords    int `json:"medical_records"`
	Medications       int `json:"medications"`
	UpcomingFollowUps int `json:"upcoming_follow_ups"`
}

type Service struct {
	store       Store
	patients    PatientStats
	records     RecordCounter
	medications MedicationCounter
}

func NewService(store Store, patients PatientStats, records RecordCounter, medications MedicationCounter) *Service {
	return &Service{store: store, patients: patients, records: records, medications: medications}
}

// Dashboard runs the three aggregate queries concurrently. The first
// failure cancels the others and is returned.
func (s *Service) Dashboard(ctx context.Context) (Summary, error) {
	var out Summary
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		out.Stats, err = s.store.Stats(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Genders, err = s.patients.CountByGender(gctx)
		return err
	})
	g.Go(func() (err error) {
		out.Patients, err = s.patients.Statistics(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, err
	}
	return out, nil
}

func (s *Service) Stats(ctx context.Context) (db.DashboardStats, error) {
	return s.store.Stats(ctx)
}

func (s *Service) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		t.Patients, err = s.patients.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		t.MedicalRecords, err = s.records.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		t.Medications, err = s.medications.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		t.UpcomingFollowUps, err = s.records.CountUpcomingFollowUps(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Totals{}, err
	}
	return t, nil
}

func (s *Service) Info(ctx context.Context) (db.Info, error) {
	return s.store.Info(ctx)
}

// ClearAll deletes every patient, medical record and medication.
func (s *Service) ClearAll(ctx context.Context) error {
	return s.store.ClearAll(ctx)
}
