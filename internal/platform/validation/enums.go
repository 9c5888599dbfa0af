package validation

import "strings"

// Fixed choices offered by the edit forms. Stored values are free strings;
// these lists are recommendations, except BloodTypes which BloodType enforces.
var (
	Genders = []string{"Male", "Female", "Other"}

	BloodTypes = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

	VisitTypes = []string{"Regular", "Emergency", "Follow-up", "Consultation", "Check-up"}

	MedicationFrequencies = []string{
		"Once daily", "Twice daily", "Three times daily", "Four times daily",
		"Every 6 hours", "Every 8 hours", "Every 12 hours",
		"As needed", "Before meals", "After meals", "At bedtime",
	}

	DoctorSpecialties = []string{
		"General Practice", "Internal Medicine", "Pediatrics", "Cardiology",
		"Dermatology", "Neurology", "Orthopedics", "Psychiatry", "Surgery",
		"Obstetrics & Gynecology", "Ophthalmology", "ENT", "Urology",
		"Endocrinology", "Pulmonology", "Gastroenterology", "Rheumatology",
		"Oncology", "Radiology", "Pathology", "Emergency Medicine",
	}
)

// Contains reports whether v is one of values (exact match).
func Contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}

// ContainsFold reports whether v is one of values ignoring case.
func ContainsFold(values []string, v string) bool {
	for _, s := range values {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
