package medicalrecord

import "strings"

// MedicalRecord maps to the medical_records table. PatientName is filled only
// by the listings that join the owning patient.
type MedicalRecord struct {
	ID              int64   `db:"id" json:"id"`
	PatientID       int64   `db:"patient_id" json:"patient_id"`
	VisitDate       string  `db:"visit_date" json:"visit_date"`
	VisitType       string  `db:"visit_type" json:"visit_type,omitempty"`
	Symptoms        string  `db:"symptoms" json:"symptoms,omitempty"`
	Diagnosis       string  `db:"diagnosis" json:"diagnosis,omitempty"`
	Treatment       string  `db:"treatment" json:"treatment,omitempty"`
	DoctorName      string  `db:"doctor_name" json:"doctor_name,omitempty"`
	DoctorSpecialty string  `db:"doctor_specialty" json:"doctor_specialty,omitempty"`
	VitalSigns      string  `db:"vital_signs" json:"vital_signs,omitempty"`
	Notes           string  `db:"notes" json:"notes,omitempty"`
	FollowUpDate    *string `db:"follow_up_date" json:"follow_up_date,omitempty"`
	CreatedAt       string  `db:"created_at" json:"created_at"`
	UpdatedAt       string  `db:"updated_at" json:"updated_at"`

	PatientName string `db:"-" json:"patient_name,omitempty"`
}

// DoctorDisplayName returns "name - specialty", or whichever half is set.
func (r *MedicalRecord) DoctorDisplayName() string {
	name := strings.TrimSpace(r.DoctorName)
	spec := strings.TrimSpace(r.DoctorSpecialty)
	switch {
	case name != "" && spec != "":
		return name + " - " + spec
	case name != "":
		return name
	default:
		return spec
	}
}

// HasFollowUp reports whether a follow-up date is recorded.
func (r *MedicalRecord) HasFollowUp() bool {
	return r.FollowUpDate != nil && *r.FollowUpDate != ""
}
