package medication

import "context"

// Repository is the storage contract for medications. There is no hard
// delete; Deactivate clears the active flag.
type Repository interface {
	Insert(ctx context.Context, m *Medication) (int64, error)
	Update(ctx context.Context, m *Medication) error
	Deactivate(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Medication, error)
	ListByPatient(ctx context.Context, patientID int64) ([]*Medication, error)
	ListActive(ctx context.Context) ([]*Medication, error)
	ListExpiringInDays(ctx context.Context, days int) ([]*Medication, error)
	HasActive(ctx context.Context, patientID int64) (bool, error)
	Count(ctx context.Context) (int, error)
}
