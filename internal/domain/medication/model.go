package medication

import (
	"encoding/json"
	"strings"
)

// Medication maps to the medications table. PatientName is filled only by
// the listings that join the owning patient.
//
// PrescribedBy and PharmacyName are the canonical doctor and pharmacy
// fields. JSON input may use doctor_name and pharmacy instead; those are
// folded in when the canonical field is empty.
type Medication struct {
	ID               int64   `db:"id" json:"id"`
	PatientID        int64   `db:"patient_id" json:"patient_id"`
	Name             string  `db:"medication_name" json:"medication_name"`
	GenericName      string  `db:"generic_name" json:"generic_name,omitempty"`
	Dosage           string  `db:"dosage" json:"dosage,omitempty"`
	Frequency        string  `db:"frequency" json:"frequency,omitempty"`
	StartDate        string  `db:"start_date" json:"start_date,omitempty"`
	EndDate          *string `db:"end_date" json:"end_date,omitempty"`
	PrescribedBy     string  `db:"prescribed_by" json:"prescribed_by,omitempty"`
	Instructions     string  `db:"instructions" json:"instructions,omitempty"`
	SideEffects      string  `db:"side_effects" json:"side_effects,omitempty"`
	IsActive         bool    `db:"is_active" json:"is_active"`
	RefillsRemaining int     `db:"refills_remaining" json:"refills_remaining"`
	PharmacyName     string  `db:"pharmacy_name" json:"pharmacy_name,omitempty"`
	CreatedAt        string  `db:"created_at" json:"created_at"`
	UpdatedAt        string  `db:"updated_at" json:"updated_at"`

	PatientName string `db:"-" json:"patient_name,omitempty"`
}

// UnmarshalJSON accepts the legacy doctor_name and pharmacy keys. An absent
// is_active decodes as true.
func (m *Medication) UnmarshalJSON(data []byte) error {
	type plain Medication
	in := struct {
		*plain
		DoctorName string `json:"doctor_name"`
		Pharmacy   string `json:"pharmacy"`
	}{plain: (*plain)(m)}
	m.IsActive = true
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if strings.TrimSpace(m.PrescribedBy) == "" {
		m.PrescribedBy = in.DoctorName
	}
	if strings.TrimSpace(m.PharmacyName) == "" {
		m.PharmacyName = in.Pharmacy
	}
	return nil
}

// DosageFrequency joins dosage and frequency with " - ".
func (m *Medication) DosageFrequency() string {
	switch {
	case m.Dosage != "" && m.Frequency != "":
		return m.Dosage + " - " + m.Frequency
	case m.Dosage != "":
		return m.Dosage
	default:
		return m.Frequency
	}
}

// DisplayName returns "name (generic)" when the generic name differs.
func (m *Medication) DisplayName() string {
	if m.Name == "" {
		return "Unknown Medication"
	}
	if m.GenericName != "" && m.GenericName != m.Name {
		return m.Name + " (" + m.GenericName + ")"
	}
	return m.Name
}

// DoctorDisplayName prefixes the prescriber with "Dr." unless it already
// carries the title.
func (m *Medication) DoctorDisplayName() string {
	name := strings.TrimSpace(m.PrescribedBy)
	if name == "" {
		return "Unknown Doctor"
	}
	lower := strings.ToLower(name)
	if strings.HasPrefix(lower, "dr.") || strings.HasPrefix(lower, "dr ") {
		return name
	}
	return "Dr. " + name
}

// HasEndDate reports whether an end date is recorded.
func (m *Medication) HasEndDate() bool {
	return m.EndDate != nil && *m.EndDate != ""
}
