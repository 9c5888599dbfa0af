package patient

import "context"

// Repository is the storage contract for patients. Every listing and count
// sees active patients only; GetByID also returns soft-deleted rows.
type Repository interface {
	Insert(ctx context.Context, p *Patient) (int64, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id int64) error
	SetImagePath(ctx context.Context, id int64, path *string) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	List(ctx context.Context) ([]*Patient, error)
	Search(ctx context.Context, query string) ([]*Patient, error)
	ListByBloodType(ctx context.Context, bloodType string) ([]*Patient, error)
	ListByAgeRange(ctx context.Context, minAge, maxAge int) ([]*Patient, error)
	ListRecent(ctx context.Context) ([]*Patient, error)
	ListWithUpcomingFollowUps(ctx context.Context) ([]*Patient, error)
	Count(ctx context.Context) (int, error)
	CountByGender(ctx context.Context) (GenderCounts, error)
	Statistics(ctx context.Context) (Statistics, error)
}
