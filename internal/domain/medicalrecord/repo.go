package medicalrecord

import "context"

// Repository is the storage contract for visits. Per-patient reads ignore the
// patient's active flag; the cross-patient listings and counts only see
// visits of active patients.
type Repository interface {
	Insert(ctx context.Context, r *MedicalRecord) (int64, error)
	Update(ctx context.Context, r *MedicalRecord) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*MedicalRecord, error)
	ListByPatient(ctx context.Context, patientID int64) ([]*MedicalRecord, error)
	Latest(ctx context.Context, patientID int64) (*MedicalRecord, error)
	ListAll(ctx context.Context) ([]*MedicalRecord, error)
	ListRecent(ctx context.Context) ([]*MedicalRecord, error)
	ListUpcomingFollowUps(ctx context.Context) ([]*MedicalRecord, error)
	HasRecords(ctx context.Context, patientID int64) (bool, error)
	Count(ctx context.Context) (int, error)
	CountUpcomingFollowUps(ctx context.Context) (int, error)
}
