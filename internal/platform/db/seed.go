package db

import (
	"context"
	"fmt"
)

type demoPatient struct {
	name, gender, phone, address, bloodType string
	age                                     int
	emergencyContact, emergencyPhone        string
	conditions, allergies                   *string
}

type demoRecord struct {
	patient                                              int // index into demoPatients
	symptoms, diagnosis, treatment, doctor, specialty string
}

type demoMedication struct {
	patient                                                int
	name, generic, dosage, frequency, prescriber, instructions string
}

func strp(s string) *string { return &s }

var demoPatients = []demoPatient{
	{"John Anderson", "Male", "+1-555-0101", "123 Main St, Springfield", "O+", 35, "Jane Anderson", "+1-555-0102", strp("Hypertension"), strp("Penicillin")},
	{"Sarah Johnson", "Female", "+1-555-0201", "456 Oak Ave, Springfield", "A+", 28, "Mike Johnson", "+1-555-0202", strp("Diabetes Type 2"), strp("Latex")},
	{"Robert Smith", "Male", "+1-555-0301", "789 Pine St, Springfield", "B-", 45, "Mary Smith", "+1-555-0302", strp("Asthma"), strp("Aspirin")},
	{"Emily Davis", "Female", "+1-555-0401", "321 Elm St, Springfield", "AB+", 32, "David Davis", "+1-555-0402", nil, strp("Shellfish")},
	{"Michael Wilson", "Male", "+1-555-0501", "654 Maple Ave, Springfield", "O-", 52, "Lisa Wilson", "+1-555-0502", strp("High Cholesterol"), nil},
}

var demoRecords = []demoRecord{
	{0, "Headache, nausea", "Migraine", "Prescribed pain medication and rest", "Dr. Jennifer Martinez", "Neurology"},
	{1, "Frequent urination, thirst", "Diabetes follow-up", "Adjusted insulin dosage", "Dr. Mark Thompson", "Endocrinology"},
	{2, "Shortness of breath", "Asthma exacerbation", "Prescribed inhaler, follow-up in 2 weeks", "Dr. Lisa Chen", "Pulmonology"},
}

var demoMedications = []demoMedication{
	{0, "Sumatriptan", "Imitrex", "50mg", "As needed", "Dr. Jennifer Martinez", "Take at onset of migraine"},
	{1, "Metformin", "Glucophage", "500mg", "Twice daily", "Dr. Mark Thompson", "Take with meals"},
	{2, "Albuterol", "ProAir", "90mcg", "2 puffs every 4-6 hours", "Dr. Lisa Chen", "Use as rescue inhaler"},
}

const demoRefills = 5

// SeedDemo inserts the demonstration patients, visits and medications in a
// single transaction. Dates are set to today.
func (e *Engine) SeedDemo(ctx context.Context) error {
	today := e.Today()
	now := e.Timestamp()

	return e.WithTx(ctx, func(ctx context.Context) error {
		ids := make([]int64, len(demoPatients))
		for i, p := range demoPatients {
			var id int64
			err := e.Conn(ctx).QueryRowContext(ctx, `
				INSERT INTO patients (patient_name, age, gender, phone, address, blood_type,
					emergency_contact, emergency_phone, medical_conditions, allergies,
					registration_date, is_active, created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
				RETURNING id`,
				p.name, p.age, p.gender, p.phone, p.address, p.bloodType,
				p.emergencyContact, p.emergencyPhone, p.conditions, p.allergies,
				today, now, now,
			).Scan(&id)
			if err != nil {
				return e.Fault(ctx, fmt.Sprintf("seed patient %q", p.name), err)
			}
			ids[i] = id
		}

		for _, r := range demoRecords {
			_, err := e.Conn(ctx).ExecContext(ctx, `
				INSERT INTO medical_records (patient_id, visit_date, visit_type, symptoms, diagnosis,
					treatment, doctor_name, doctor_specialty, created_at, updated_at)
				VALUES (?, ?, 'Regular', ?, ?, ?, ?, ?, ?, ?)`,
				ids[r.patient], today, r.symptoms, r.diagnosis, r.treatment, r.doctor, r.specialty, now, now,
			)
			if err != nil {
				return e.Fault(ctx, "seed medical record", err)
			}
		}

		for _, m := range demoMedications {
			_, err := e.Conn(ctx).ExecContext(ctx, `
				INSERT INTO medications (patient_id, medication_name, generic_name, dosage, frequency,
					start_date, prescribed_by, instructions, is_active, refills_remaining,
					created_at, updated_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?, ?)`,
				ids[m.patient], m.name, m.generic, m.dosage, m.frequency,
				today, m.prescriber, m.instructions, demoRefills, now, now,
			)
			if err != nil {
				return e.Fault(ctx, "seed medication", err)
			}
		}
		return nil
	})
}
