package patient

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/patientrecords/patientrecords/internal/platform/db"
)

// RecentWindowDays bounds ListRecent.
const RecentWindowDays = 30

var errMissingImageColumn = errors.New("patients.image_path column is missing")

type patientRepoSQL struct {
	eng *db.Engine

	mu        sync.Mutex
	checked   bool
	hasImgCol bool
}

func NewRepoSQL(eng *db.Engine) Repository {
	return &patientRepoSQL{eng: eng}
}

// imageColumn reports whether patients.image_path exists. The answer is
// cached after the first successful lookup. The lookup itself runs without
// r.mu held: it needs a connection, and a transaction holding the only
// SQLite connection may be waiting on r.mu.
func (r *patientRepoSQL) imageColumn(ctx context.Context) (bool, error) {
	r.mu.Lock()
	checked, has := r.checked, r.hasImgCol
	r.mu.Unlock()
	if checked {
		return has, nil
	}

	ok, err := r.eng.HasColumn(ctx, db.TablePatients, db.ColImagePath)
	if err != nil {
		return false, err
	}
	r.mu.Lock()
	r.checked, r.hasImgCol = true, ok
	r.mu.Unlock()
	return ok, nil
}

// cols returns the select list, prefixed with alias when non-empty. A
// missing image_path column is read as NULL.
func (r *patientRepoSQL) cols(ctx context.Context, alias string) (string, error) {
	hasImg, err := r.imageColumn(ctx)
	if err != nil {
		return "", err
	}
	names := []string{
		db.ColID, db.ColPatientName, db.ColAge, db.ColGender, db.ColPhone, db.ColAddress,
		db.ColBloodType, db.ColEmergencyContact, db.ColEmergencyPhone,
		db.ColMedicalConditions, db.ColAllergies, db.ColImagePath,
		db.ColRegistrationDate, db.ColIsActive, db.ColCreatedAt, db.ColUpdatedAt,
	}
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	out := make([]string, len(names))
	for i, n := range names {
		if n == db.ColImagePath && !hasImg {
			out[i] = "NULL AS " + db.ColImagePath
			continue
		}
		out[i] = prefix + n
	}
	return strings.Join(out, ", "), nil
}

func scanPatient(row db.Scanner) (*Patient, error) {
	var (
		p                                         Patient
		gender, phone, address, bloodType         sql.NullString
		emContact, emPhone, conditions, allergies sql.NullString
		imagePath, regDate, createdAt, updatedAt  sql.NullString
		active                                    int64
	)
	err := row.Scan(&p.ID, &p.Name, &p.Age, &gender, &phone, &address,
		&bloodType, &emContact, &emPhone, &conditions, &allergies, &imagePath,
		&regDate, &active, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	p.Gender = gender.String
	p.Phone = phone.String
	p.Address = address.String
	p.BloodType = bloodType.String
	p.EmergencyContact = emContact.String
	p.EmergencyPhone = emPhone.String
	p.MedicalConditions = conditions.String
	p.Allergies = allergies.String
	p.ImagePath = db.StringPtr(imagePath)
	p.RegistrationDate = regDate.String
	p.IsActive = active != 0
	p.CreatedAt = createdAt.String
	p.UpdatedAt = updatedAt.String
	return &p, nil
}

func (r *patientRepoSQL) Insert(ctx context.Context, p *Patient) (int64, error) {
	hasImg, err := r.imageColumn(ctx)
	if err != nil {
		return 0, err
	}
	if p.RegistrationDate == "" {
		p.RegistrationDate = r.eng.Today()
	}
	p.IsActive = true
	now := r.eng.Timestamp()

	cols := `patient_name, age, gender, phone, address, blood_type,
		emergency_contact, emergency_phone, medical_conditions, allergies,
		registration_date, is_active, created_at, updated_at`
	marks := `?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?`
	args := []any{
		p.Name, p.Age, db.NullString(p.Gender), db.NullString(p.Phone), db.NullString(p.Address),
		db.NullString(p.BloodType), db.NullString(p.EmergencyContact), db.NullString(p.EmergencyPhone),
		db.NullString(p.MedicalConditions), db.NullString(p.Allergies),
		p.RegistrationDate, db.BoolInt(true), now, now,
	}
	if hasImg {
		cols += ", image_path"
		marks += ", ?"
		args = append(args, db.NullStringPtr(p.ImagePath))
	}

	var id int64
	err = r.eng.Conn(ctx).QueryRowContext(ctx,
		`INSERT INTO patients (`+cols+`) VALUES (`+marks+`) RETURNING id`, args...,
	).Scan(&id)
	if err != nil {
		return 0, r.eng.Fault(ctx, "insert patient", err)
	}
	p.ID = id
	p.CreatedAt, p.UpdatedAt = now, now
	return id, nil
}

// Update overwrites every mutable column. is_active and registration_date
// are left alone.
func (r *patientRepoSQL) Update(ctx context.Context, p *Patient) error {
	hasImg, err := r.imageColumn(ctx)
	if err != nil {
		return err
	}
	now := r.eng.Timestamp()

	set := `patient_name = ?, age = ?, gender = ?, phone = ?, address = ?, blood_type = ?,
		emergency_contact = ?, emergency_phone = ?, medical_conditions = ?, allergies = ?,
		updated_at = ?`
	args := []any{
		p.Name, p.Age, db.NullString(p.Gender), db.NullString(p.Phone), db.NullString(p.Address),
		db.NullString(p.BloodType), db.NullString(p.EmergencyContact), db.NullString(p.EmergencyPhone),
		db.NullString(p.MedicalConditions), db.NullString(p.Allergies), now,
	}
	if hasImg {
		set += ", image_path = ?"
		args = append(args, db.NullStringPtr(p.ImagePath))
	}
	args = append(args, p.ID)

	res, err := r.eng.Conn(ctx).ExecContext(ctx, `UPDATE patients SET `+set+` WHERE id = ?`, args...)
	if err != nil {
		return r.eng.Fault(ctx, "update patient", err)
	}
	if err := r.eng.Affected(ctx, "update patient", res); err != nil {
		return err
	}
	p.UpdatedAt = now
	return nil
}

// Delete is a soft delete. Medical records and medications are kept.
func (r *patientRepoSQL) Delete(ctx context.Context, id int64) error {
	res, err := r.eng.Conn(ctx).ExecContext(ctx,
		`UPDATE patients SET is_active = 0, updated_at = ? WHERE id = ?`, r.eng.Timestamp(), id)
	if err != nil {
		return r.eng.Fault(ctx, "delete patient", err)
	}
	return r.eng.Affected(ctx, "delete patient", res)
}

func (r *patientRepoSQL) SetImagePath(ctx context.Context, id int64, path *string) error {
	hasImg, err := r.imageColumn(ctx)
	if err != nil {
		return err
	}
	if !hasImg {
		return &db.StorageError{Op: "set patient image", Err: errMissingImageColumn}
	}
	res, err := r.eng.Conn(ctx).ExecContext(ctx,
		`UPDATE patients SET image_path = ?, updated_at = ? WHERE id = ?`,
		db.NullStringPtr(path), r.eng.Timestamp(), id)
	if err != nil {
		return r.eng.Fault(ctx, "set patient image", err)
	}
	return r.eng.Affected(ctx, "set patient image", res)
}

func (r *patientRepoSQL) GetByID(ctx context.Context, id int64) (*Patient, error) {
	cols, err := r.cols(ctx, "")
	if err != nil {
		return nil, err
	}
	p, err := scanPatient(r.eng.Conn(ctx).QueryRowContext(ctx,
		`SELECT `+cols+` FROM patients WHERE id = ?`, id))
	if err != nil {
		return nil, r.eng.Fault(ctx, "get patient", err)
	}
	return p, nil
}

func (r *patientRepoSQL) list(ctx context.Context, op, alias, tail string, args ...any) ([]*Patient, error) {
	cols, err := r.cols(ctx, alias)
	if err != nil {
		return nil, err
	}
	from := "patients"
	if alias != "" {
		from += " " + alias
	}
	return db.QueryList(ctx, r.eng, op, `SELECT `+cols+` FROM `+from+` `+tail, scanPatient, args...)
}

func (r *patientRepoSQL) List(ctx context.Context) ([]*Patient, error) {
	return r.list(ctx, "list patients", "",
		`WHERE is_active = 1 ORDER BY patient_name ASC`)
}

// Search matches the name case-insensitively and the phone literally.
// SQLite's LOWER folds ASCII only, so a query with non-ASCII letters is
// matched in Go over the active list instead.
func (r *patientRepoSQL) Search(ctx context.Context, query string) ([]*Patient, error) {
	if !isASCII(query) {
		return r.searchFolded(ctx, query)
	}
	return r.list(ctx, "search patients", "",
		`WHERE is_active = 1
			AND (LOWER(patient_name) LIKE ? ESCAPE '\' OR phone LIKE ? ESCAPE '\')
		ORDER BY patient_name ASC`,
		db.LikeContains(strings.ToLower(query)), db.LikeContains(query))
}

func (r *patientRepoSQL) searchFolded(ctx context.Context, query string) ([]*Patient, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	out := make([]*Patient, 0, len(all))
	for _, p := range all {
		if strings.Contains(strings.ToLower(p.Name), needle) || strings.Contains(p.Phone, query) {
			out = append(out, p)
		}
	}
	return out, nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func (r *patientRepoSQL) ListByBloodType(ctx context.Context, bloodType string) ([]*Patient, error) {
	return r.list(ctx, "list patients by blood type", "",
		`WHERE is_active = 1 AND blood_type = ? ORDER BY patient_name ASC`, bloodType)
}

func (r *patientRepoSQL) ListByAgeRange(ctx context.Context, minAge, maxAge int) ([]*Patient, error) {
	return r.list(ctx, "list patients by age", "",
		`WHERE is_active = 1 AND age BETWEEN ? AND ? ORDER BY age ASC, id ASC`, minAge, maxAge)
}

func (r *patientRepoSQL) ListRecent(ctx context.Context) ([]*Patient, error) {
	return r.list(ctx, "list recent patients", "",
		`WHERE is_active = 1 AND registration_date >= ? ORDER BY registration_date DESC, id DESC`,
		r.eng.DaysFromToday(-RecentWindowDays))
}

// ListWithUpcomingFollowUps returns each patient once, soonest follow-up
// first.
func (r *patientRepoSQL) ListWithUpcomingFollowUps(ctx context.Context) ([]*Patient, error) {
	return r.list(ctx, "list patients with follow-ups", "p",
		`JOIN (
			SELECT patient_id, MIN(follow_up_date) AS next_follow_up
			FROM medical_records
			WHERE follow_up_date IS NOT NULL AND follow_up_date >= ?
			GROUP BY patient_id
		) f ON f.patient_id = p.id
		WHERE p.is_active = 1
		ORDER BY f.next_follow_up ASC, p.patient_name ASC`,
		r.eng.Today())
}

func (r *patientRepoSQL) Count(ctx context.Context) (int, error) {
	return r.eng.QueryInt(ctx, "count patients", `SELECT COUNT(*) FROM patients WHERE is_active = 1`)
}

// CountByGender folds empty and unrecognised genders into Other so the
// buckets add up to the active count.
func (r *patientRepoSQL) CountByGender(ctx context.Context) (GenderCounts, error) {
	var total, male, female int
	err := r.eng.Conn(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN LOWER(TRIM(gender)) = 'male' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN LOWER(TRIM(gender)) = 'female' THEN 1 ELSE 0 END), 0)
		FROM patients WHERE is_active = 1`,
	).Scan(&total, &male, &female)
	if err != nil {
		return GenderCounts{}, r.eng.Fault(ctx, "count patients by gender", err)
	}
	return GenderCounts{Male: male, Female: female, Other: total - male - female}, nil
}

// Statistics returns the active count, the number registered since the
// first of the month and the truncated average age.
func (r *patientRepoSQL) Statistics(ctx context.Context) (Statistics, error) {
	var (
		s      Statistics
		avgAge float64
	)
	err := r.eng.Conn(ctx).QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN registration_date >= ? THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(age), 0)
		FROM patients WHERE is_active = 1`,
		r.eng.StartOfMonth(),
	).Scan(&s.TotalActive, &s.AddedThisMonth, &avgAge)
	if err != nil {
		return Statistics{}, r.eng.Fault(ctx, "patient statistics", err)
	}
	s.AverageAge = int(avgAge)
	return s, nil
}
