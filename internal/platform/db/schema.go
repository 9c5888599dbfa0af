package db

// Table and column names. Every query in the repositories is written against
// these names; the DDL lives in the embedded migrations.
const (
	DatabaseName = "patient_records.db"

	TablePatients       = "patients"
	TableMedicalRecords = "medical_records"
	TableMedications    = "medications"
)

// Columns shared by all three tables.
const (
	ColID        = "id"
	ColPatientID = "patient_id"
	ColIsActive  = "is_active"
	ColCreatedAt = "created_at"
	ColUpdatedAt = "updated_at"
)

// patients
const (
	ColPatientName       = "patient_name"
	ColAge               = "age"
	ColGender            = "gender"
	ColPhone             = "phone"
	ColAddress           = "address"
	ColBloodType         = "blood_type"
	ColEmergencyContact  = "emergency_contact"
	ColEmergencyPhone    = "emergency_phone"
	ColMedicalConditions = "medical_conditions"
	ColAllergies         = "allergies"
	ColProfileImage      = "profile_image" // superseded by image_path, never read
	ColImagePath         = "image_path"
	ColRegistrationDate  = "registration_date"
)

// medical_records
const (
	ColVisitDate       = "visit_date"
	ColVisitType       = "visit_type"
	ColSymptoms        = "symptoms"
	ColDiagnosis       = "diagnosis"
	ColTreatment       = "treatment"
	ColDoctorName      = "doctor_name"
	ColDoctorSpecialty = "doctor_specialty"
	ColVitalSigns      = "vital_signs"
	ColNotes           = "notes"
	ColFollowUpDate    = "follow_up_date"
)

// medications
const (
	ColMedicationName   = "medication_name"
	ColGenericName      = "generic_name"
	ColDosage           = "dosage"
	ColFrequency        = "frequency"
	ColStartDate        = "start_date"
	ColEndDate          = "end_date"
	ColPrescribedBy     = "prescribed_by"
	ColInstructions     = "instructions"
	ColSideEffects      = "side_effects"
	ColRefillsRemaining = "refills_remaining"
	ColPharmacyName     = "pharmacy_name"
)

// Storage formats for dates and timestamps.
const (
	DateLayout      = "2006-01-02"
	TimestampLayout = "2006-01-02 15:04:05"
)

// BoolInt converts a flag to the INTEGER 0/1 representation used by is_active.
func BoolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
