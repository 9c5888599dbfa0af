// Package report exports a patient's chart (demographics, visits and
// medications) to a spreadsheet file.
package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"

	"github.com/patientrecords/patientrecords/internal/domain/medicalrecord"
	"github.com/patientrecords/patientrecords/internal/domain/medication"
	"github.com/patientrecords/patientrecords/internal/domain/patient"
)

const (
	SheetPatient        = "Patient"
	SheetMedicalRecords = "Medical Records"
	SheetMedications    = "Medications"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Artifact is a produced report file.
type Artifact struct {
	PatientID   int64  `json:"patient_id"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Path        string `json:"-"`
}

// Exporter renders one patient's chart.
type Exporter interface {
	Export(ctx context.Context, p *patient.Patient, records []*medicalrecord.MedicalRecord, meds []*medication.Medication) (*Artifact, error)
}

var (
	recordHeader = []string{
		"Visit Date", "Visit Type", "Doctor", "Symptoms", "Diagnosis",
		"Treatment", "Vital Signs", "Notes", "Follow-up Date",
	}
	medicationHeader = []string{
		"Medication", "Dosage", "Frequency", "Start Date", "End Date",
		"Prescribed By", "Instructions", "Refills", "Pharmacy", "Active",
	}
)

// XLSXExporter writes one workbook per export into dir.
type XLSXExporter struct {
	dir string
}

func NewXLSXExporter(dir string) (*XLSXExporter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export directory: %w", err)
	}
	return &XLSXExporter{dir: dir}, nil
}

func (x *XLSXExporter) Dir() string { return x.dir }

func (x *XLSXExporter) Export(ctx context.Context, p *patient.Patient, records []*medicalrecord.MedicalRecord, meds []*medication.Medication) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetPatient); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{SheetMedicalRecords, SheetMedications} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %q: %w", name, err)
		}
	}
	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	if err := writePatient(f, p, header); err != nil {
		return nil, err
	}
	rows := make([][]any, 0, len(records))
	for _, r := range records {
		rows = append(rows, []any{
			r.VisitDate, r.VisitType, r.DoctorDisplayName(), r.Symptoms, r.Diagnosis,
			r.Treatment, r.VitalSigns, r.Notes, deref(r.FollowUpDate),
		})
	}
	if err := writeTable(f, SheetMedicalRecords, recordHeader, rows, header); err != nil {
		return nil, err
	}
	rows = make([][]any, 0, len(meds))
	for _, m := range meds {
		rows = append(rows, []any{
			m.DisplayName(), m.Dosage, m.Frequency, m.StartDate, deref(m.EndDate),
			m.DoctorDisplayName(), m.Instructions, m.RefillsRemaining, m.PharmacyName, yesNo(m.IsActive),
		})
	}
	if err := writeTable(f, SheetMedications, medicationHeader, rows, header); err != nil {
		return nil, err
	}

	name := fmt.Sprintf("patient_%d_%s.xlsx", p.ID, uuid.NewString())
	path := filepath.Join(x.dir, name)
	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("save workbook: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat workbook: %w", err)
	}
	log.Debug().Int64("patient_id", p.ID).Str("file", name).Msg("report exported")

	return &Artifact{
		PatientID:   p.ID,
		Name:        name,
		ContentType: xlsxContentType,
		Size:        info.Size(),
		Path:        path,
	}, nil
}

func writePatient(f *excelize.File, p *patient.Patient, style int) error {
	rows := [][]any{
		{"Field", "Value"},
		{"Name", p.Name},
		{"Age", p.Age},
		{"Gender", p.Gender},
		{"Phone", p.Phone},
		{"Address", p.Address},
		{"Blood Type", p.BloodType},
		{"Emergency Contact", p.EmergencyContact},
		{"Emergency Phone", p.EmergencyPhone},
		{"Medical Conditions", p.MedicalConditions},
		{"Allergies", p.Allergies},
		{"Registration Date", p.RegistrationDate},
		{"Active", yesNo(p.IsActive)},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SheetPatient, cell, &row); err != nil {
			return fmt.Errorf("write patient row %d: %w", i+1, err)
		}
	}
	if err := f.SetCellStyle(SheetPatient, "A1", "B1", style); err != nil {
		return fmt.Errorf("style patient header: %w", err)
	}
	return f.SetColWidth(SheetPatient, "A", "B", 24)
}

func writeTable(f *excelize.File, sheet string, header []string, rows [][]any, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("write %s header: %w", sheet, err)
	}
	last, _ := excelize.ColumnNumberToName(len(header))
	if err := f.SetCellStyle(sheet, "A1", last+"1", style); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+2, err)
		}
	}
	return f.SetColWidth(sheet, "A", last, 18)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
