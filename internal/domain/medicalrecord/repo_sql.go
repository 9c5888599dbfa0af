package medicalrecord

import (
	"context"
	"database/sql"

	"github.com/patientrecords/patientrecords/internal/platform/db"
)

// RecentLimit bounds ListRecent.
const RecentLimit = 10

const recordCols = `mr.id, mr.patient_id, mr.visit_date, mr.visit_type, mr.symptoms,
	mr.diagnosis, mr.treatment, mr.doctor_name, mr.doctor_specialty, mr.vital_signs,
	mr.notes, mr.follow_up_date, mr.created_at, mr.updated_at`

// joinActive restricts a listing to visits whose patient is active.
const joinActive = ` JOIN patients p ON p.id = mr.patient_id WHERE p.is_active = 1`

type recordRepoSQL struct {
	eng *db.Engine
}

func NewRepoSQL(eng *db.Engine) Repository {
	return &recordRepoSQL{eng: eng}
}

func scanRecord(row db.Scanner) (*MedicalRecord, error) { return scan(row, false) }

// scanJoined reads a record followed by the owning patient's name.
func scanJoined(row db.Scanner) (*MedicalRecord, error) { return scan(row, true) }

func scan(row db.Scanner, withPatient bool) (*MedicalRecord, error) {
	var (
		r                                         MedicalRecord
		visitType, symptoms, diagnosis, treatment sql.NullString
		doctor, specialty, vitals, notes          sql.NullString
		followUp, createdAt, updatedAt            sql.NullString
	)
	dest := []any{&r.ID, &r.PatientID, &r.VisitDate, &visitType, &symptoms,
		&diagnosis, &treatment, &doctor, &specialty, &vitals,
		&notes, &followUp, &createdAt, &updatedAt}
	if withPatient {
		dest = append(dest, &r.PatientName)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	r.VisitType = visitType.String
	r.Symptoms = symptoms.String
	r.Diagnosis = diagnosis.String
	r.Treatment = treatment.String
	r.DoctorName = doctor.String
	r.DoctorSpecialty = specialty.String
	r.VitalSigns = vitals.String
	r.Notes = notes.String
	r.FollowUpDate = db.StringPtr(followUp)
	r.CreatedAt = createdAt.String
	r.UpdatedAt = updatedAt.String
	return &r, nil
}

func (r *recordRepoSQL) args(rec *MedicalRecord) []any {
	return []any{
		rec.VisitDate, db.NullString(rec.VisitType), db.NullString(rec.Symptoms),
		db.NullString(rec.Diagnosis), db.NullString(rec.Treatment),
		db.NullString(rec.DoctorName), db.NullString(rec.DoctorSpecialty),
		db.NullString(rec.VitalSigns), db.NullString(rec.Notes), db.NullStringPtr(rec.FollowUpDate),
	}
}

// Insert defaults an empty visit date to today.
func (r *recordRepoSQL) Insert(ctx context.Context, rec *MedicalRecord) (int64, error) {
	if rec.VisitDate == "" {
		rec.VisitDate = r.eng.Today()
	}
	now := r.eng.Timestamp()
	args := append([]any{rec.PatientID}, r.args(rec)...)
	args = append(args, now, now)

	var id int64
	err := r.eng.Conn(ctx).QueryRowContext(ctx, `
		INSERT INTO medical_records (patient_id, visit_date, visit_type, symptoms, diagnosis,
			treatment, doctor_name, doctor_specialty, vital_signs, notes, follow_up_date,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`, args...,
	).Scan(&id)
	if err != nil {
		return 0, r.eng.Fault(ctx, "insert medical record", err)
	}
	rec.ID = id
	rec.CreatedAt, rec.UpdatedAt = now, now
	return id, nil
}

// Update overwrites every column except patient_id and created_at.
func (r *recordRepoSQL) Update(ctx context.Context, rec *MedicalRecord) error {
	now := r.eng.Timestamp()
	args := append(r.args(rec), now, rec.ID)

	res, err := r.eng.Conn(ctx).ExecContext(ctx, `
		UPDATE medical_records SET visit_date = ?, visit_type = ?, symptoms = ?, diagnosis = ?,
			treatment = ?, doctor_name = ?, doctor_specialty = ?, vital_signs = ?, notes = ?,
			follow_up_date = ?, updated_at = ?
		WHERE id = ?`, args...)
	if err != nil {
		return r.eng.Fault(ctx, "update medical record", err)
	}
	if err := r.eng.Affected(ctx, "update medical record", res); err != nil {
		return err
	}
	rec.UpdatedAt = now
	return nil
}

// Delete removes the row. The owning patient is untouched.
func (r *recordRepoSQL) Delete(ctx context.Context, id int64) error {
	res, err := r.eng.Conn(ctx).ExecContext(ctx, `DELETE FROM medical_records WHERE id = ?`, id)
	if err != nil {
		return r.eng.Fault(ctx, "delete medical record", err)
	}
	return r.eng.Affected(ctx, "delete medical record", res)
}

func (r *recordRepoSQL) GetByID(ctx context.Context, id int64) (*MedicalRecord, error) {
	rec, err := scanRecord(r.eng.Conn(ctx).QueryRowContext(ctx,
		`SELECT `+recordCols+` FROM medical_records mr WHERE mr.id = ?`, id))
	if err != nil {
		return nil, r.eng.Fault(ctx, "get medical record", err)
	}
	return rec, nil
}

func (r *recordRepoSQL) ListByPatient(ctx context.Context, patientID int64) ([]*MedicalRecord, error) {
	return db.QueryList(ctx, r.eng, "list medical records by patient",
		`SELECT `+recordCols+` FROM medical_records mr
		WHERE mr.patient_id = ?
		ORDER BY mr.visit_date DESC, mr.id DESC`,
		scanRecord, patientID)
}

func (r *recordRepoSQL) Latest(ctx context.Context, patientID int64) (*MedicalRecord, error) {
	rec, err := scanRecord(r.eng.Conn(ctx).QueryRowContext(ctx,
		`SELECT `+recordCols+` FROM medical_records mr
		WHERE mr.patient_id = ?
		ORDER BY mr.visit_date DESC, mr.id DESC
		LIMIT 1`, patientID))
	if err != nil {
		return nil, r.eng.Fault(ctx, "latest medical record", err)
	}
	return rec, nil
}

func (r *recordRepoSQL) joined(ctx context.Context, op, tail string, args ...any) ([]*MedicalRecord, error) {
	return db.QueryList(ctx, r.eng, op,
		`SELECT `+recordCols+`, p.patient_name FROM medical_records mr`+joinActive+` `+tail,
		scanJoined, args...)
}

func (r *recordRepoSQL) ListAll(ctx context.Context) ([]*MedicalRecord, error) {
	return r.joined(ctx, "list medical records",
		`ORDER BY mr.visit_date DESC, mr.id DESC`)
}

func (r *recordRepoSQL) ListRecent(ctx context.Context) ([]*MedicalRecord, error) {
	return r.joined(ctx, "list recent medical records",
		`ORDER BY mr.visit_date DESC, mr.id DESC LIMIT ?`, RecentLimit)
}

// ListUpcomingFollowUps returns visits with a follow-up today or later,
// soonest first.
func (r *recordRepoSQL) ListUpcomingFollowUps(ctx context.Context) ([]*MedicalRecord, error) {
	return r.joined(ctx, "list upcoming follow-ups",
		`AND mr.follow_up_date IS NOT NULL AND mr.follow_up_date >= ?
		ORDER BY mr.follow_up_date ASC, mr.id ASC`, r.eng.Today())
}

func (r *recordRepoSQL) HasRecords(ctx context.Context, patientID int64) (bool, error) {
	return r.eng.Exists(ctx, "has medical records",
		`SELECT 1 FROM medical_records WHERE patient_id = ? LIMIT 1`, patientID)
}

func (r *recordRepoSQL) Count(ctx context.Context) (int, error) {
	return r.eng.QueryInt(ctx, "count medical records",
		`SELECT COUNT(*) FROM medical_records mr`+joinActive)
}

func (r *recordRepoSQL) CountUpcomingFollowUps(ctx context.Context) (int, error) {
	return r.eng.QueryInt(ctx, "count upcoming follow-ups",
		`SELECT COUNT(*) FROM medical_records mr`+joinActive+`
		AND mr.follow_up_date IS NOT NULL AND mr.follow_up_date >= ?`, r.eng.Today())
}
