package report

import (
	"context"
	"fmt"

	"github.com/patientrecords/patientrecords/internal/domain/medicalrecord"
	"github.com/patientrecords/patientrecords/internal/domain/medication"
	"github.com/patientrecords/patientrecords/internal/domain/patient"
	"github.com/patientrecords/patientrecords/internal/platform/metrics"
	"github.com/patientrecords/patientrecords/internal/platform/task"
)

type Patients interface {
	GetByID(ctx context.Context, id int64) (*patient.Patient, error)
	List(ctx context.Context) ([]*patient.Patient, error)
}

type RecordLister interface {
	ListByPatient(ctx context.Context, patientID int64) ([]*medicalrecord.MedicalRecord, error)
}

type MedicationLister interface {
	ListByPatient(ctx context.Context, patientID int64) ([]*medication.Medication, error)
}

type Service struct {
	patients    Patients
	records     RecordLister
	medications MedicationLister
	exporter    Exporter
	runner      *task.Runner
	metrics     *metrics.Collector
}

func NewService(patients Patients, records RecordLister, medications MedicationLister, exporter Exporter, runner *task.Runner) *Service {
	return &Service{
		patients:    patients,
		records:     records,
		medications: medications,
		exporter:    exporter,
		runner:      runner,
	}
}

func (s *Service) SetMetrics(m *metrics.Collector) {
	s.metrics = m
}

// ExportPatient exports the patient's visits and active medications.
// Inactive patients can still be exported by id.
func (s *Service) ExportPatient(ctx context.Context, id int64) (*Artifact, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.export(ctx, p)
}

func (s *Service) export(ctx context.Context, p *patient.Patient) (*Artifact, error) {
	records, err := s.records.ListByPatient(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list medical records of patient %d: %w", p.ID, err)
	}
	meds, err := s.medications.ListByPatient(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list medications of patient %d: %w", p.ID, err)
	}
	a, err := s.exporter.Export(ctx, p, records, meds)
	s.metrics.Export(err)
	return a, err
}

// ExportAll exports every active patient on the task runner and returns
// the artifacts in patient name order. The first failure is returned and
// the remaining exports are cancelled.
func (s *Service) ExportAll(ctx context.Context) ([]*Artifact, error) {
	list, err := s.patients.List(ctx)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	futures := make([]*task.Future[*Artifact], 0, len(list))
	for _, p := range list {
		futures = append(futures, task.Submit(s.runner, ctx, func(ctx context.Context) (*Artifact, error) {
			return s.export(ctx, p)
		}))
	}
	return task.All(ctx, futures)
}
