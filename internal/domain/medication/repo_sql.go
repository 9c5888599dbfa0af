package medication

import (
	"context"
	"database/sql"

	"github.com/patientrecords/patientrecords/internal/platform/db"
)

const medCols = `m.id, m.patient_id, m.medication_name, m.generic_name, m.dosage, m.frequency,
	m.start_date, m.end_date, m.prescribed_by, m.instructions, m.side_effects,
	m.is_active, m.refills_remaining, m.pharmacy_name, m.created_at, m.updated_at`

// activeJoin restricts a listing to active medications of active patients.
const activeJoin = ` JOIN patients p ON p.id = m.patient_id WHERE m.is_active = 1 AND p.is_active = 1`

type medicationRepoSQL struct {
	eng *db.Engine
}

func NewRepoSQL(eng *db.Engine) Repository {
	return &medicationRepoSQL{eng: eng}
}

func scanMedication(row db.Scanner) (*Medication, error) { return scan(row, false) }

func scanJoined(row db.Scanner) (*Medication, error) { return scan(row, true) }

func scan(row db.Scanner, withPatient bool) (*Medication, error) {
	var (
		m                                      Medication
		generic, dosage, frequency, start, end sql.NullString
		prescriber, instructions, sideEffects  sql.NullString
		pharmacy, createdAt, updatedAt         sql.NullString
		active, refills                        sql.NullInt64
	)
	dest := []any{&m.ID, &m.PatientID, &m.Name, &generic, &dosage, &frequency,
		&start, &end, &prescriber, &instructions, &sideEffects,
		&active, &refills, &pharmacy, &createdAt, &updatedAt}
	if withPatient {
		dest = append(dest, &m.PatientName)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	m.GenericName = generic.String
	m.Dosage = dosage.String
	m.Frequency = frequency.String
	m.StartDate = start.String
	m.EndDate = db.StringPtr(end)
	m.PrescribedBy = prescriber.String
	m.Instructions = instructions.String
	m.SideEffects = sideEffects.String
	m.IsActive = active.Int64 != 0
	m.RefillsRemaining = int(refills.Int64)
	m.PharmacyName = pharmacy.String
	m.CreatedAt = createdAt.String
	m.UpdatedAt = updatedAt.String
	return &m, nil
}

func (r *medicationRepoSQL) args(m *Medication) []any {
	return []any{
		m.Name, db.NullString(m.GenericName), db.NullString(m.Dosage), db.NullString(m.Frequency),
		db.NullString(m.StartDate), db.NullStringPtr(m.EndDate), db.NullString(m.PrescribedBy),
		db.NullString(m.Instructions), db.NullString(m.SideEffects),
		db.BoolInt(m.IsActive), m.RefillsRemaining, db.NullString(m.PharmacyName),
	}
}

// Insert stores a new active medication. An empty start date becomes today.
func (r *medicationRepoSQL) Insert(ctx context.Context, m *Medication) (int64, error) {
	if m.StartDate == "" {
		m.StartDate = r.eng.Today()
	}
	m.IsActive = true
	now := r.eng.Timestamp()
	args := append([]any{m.PatientID}, r.args(m)...)
	args = append(args, now, now)

	var id int64
	err := r.eng.Conn(ctx).QueryRowContext(ctx, `
		INSERT INTO medications (patient_id, medication_name, generic_name, dosage, frequency,
			start_date, end_date, prescribed_by, instructions, side_effects,
			is_active, refills_remaining, pharmacy_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`, args...,
	).Scan(&id)
	if err != nil {
		return 0, r.eng.Fault(ctx, "insert medication", err)
	}
	m.ID = id
	m.CreatedAt, m.UpdatedAt = now, now
	return id, nil
}

// Update overwrites every column except patient_id and created_at,
// including the active flag and the refill count.
func (r *medicationRepoSQL) Update(ctx context.Context, m *Medication) error {
	now := r.eng.Timestamp()
	args := append(r.args(m), now, m.ID)

	res, err := r.eng.Conn(ctx).ExecContext(ctx, `
		UPDATE medications SET medication_name = ?, generic_name = ?, dosage = ?, frequency = ?,
			start_date = ?, end_date = ?, prescribed_by = ?, instructions = ?, side_effects = ?,
			is_active = ?, refills_remaining = ?, pharmacy_name = ?, updated_at = ?
		WHERE id = ?`, args...)
	if err != nil {
		return r.eng.Fault(ctx, "update medication", err)
	}
	if err := r.eng.Affected(ctx, "update medication", res); err != nil {
		return err
	}
	m.UpdatedAt = now
	return nil
}

func (r *medicationRepoSQL) Deactivate(ctx context.Context, id int64) error {
	res, err := r.eng.Conn(ctx).ExecContext(ctx,
		`UPDATE medications SET is_active = 0, updated_at = ? WHERE id = ?`, r.eng.Timestamp(), id)
	if err != nil {
		return r.eng.Fault(ctx, "deactivate medication", err)
	}
	return r.eng.Affected(ctx, "deactivate medication", res)
}

// GetByID returns deactivated medications too.
func (r *medicationRepoSQL) GetByID(ctx context.Context, id int64) (*Medication, error) {
	m, err := scanMedication(r.eng.Conn(ctx).QueryRowContext(ctx,
		`SELECT `+medCols+` FROM medications m WHERE m.id = ?`, id))
	if err != nil {
		return nil, r.eng.Fault(ctx, "get medication", err)
	}
	return m, nil
}

func (r *medicationRepoSQL) ListByPatient(ctx context.Context, patientID int64) ([]*Medication, error) {
	return db.QueryList(ctx, r.eng, "list medications by patient",
		`SELECT `+medCols+` FROM medications m
		WHERE m.patient_id = ? AND m.is_active = 1
		ORDER BY m.medication_name ASC, m.id ASC`,
		scanMedication, patientID)
}

func (r *medicationRepoSQL) ListActive(ctx context.Context) ([]*Medication, error) {
	return db.QueryList(ctx, r.eng, "list active medications",
		`SELECT `+medCols+`, p.patient_name FROM medications m`+activeJoin+`
		ORDER BY m.medication_name ASC, m.id ASC`,
		scanJoined)
}

// ListExpiringInDays returns medications whose end date falls between today
// and today+days inclusive, soonest first.
func (r *medicationRepoSQL) ListExpiringInDays(ctx context.Context, days int) ([]*Medication, error) {
	return db.QueryList(ctx, r.eng, "list expiring medications",
		`SELECT `+medCols+`, p.patient_name FROM medications m`+activeJoin+`
		AND m.end_date BETWEEN ? AND ?
		ORDER BY m.end_date ASC, m.id ASC`,
		scanJoined, r.eng.Today(), r.eng.DaysFromToday(days))
}

func (r *medicationRepoSQL) HasActive(ctx context.Context, patientID int64) (bool, error) {
	return r.eng.Exists(ctx, "has active medications",
		`SELECT 1 FROM medications WHERE patient_id = ? AND is_active = 1 LIMIT 1`, patientID)
}

func (r *medicationRepoSQL) Count(ctx context.Context) (int, error) {
	return r.eng.QueryInt(ctx, "count medications",
		`SELECT COUNT(*) FROM medications m`+activeJoin)
}
