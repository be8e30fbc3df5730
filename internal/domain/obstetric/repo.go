package obstetric

import "context"

type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id int64) (*Record, error)
	Update(ctx context.Context, r *Record) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Record, int, error)
	// NextSequence returns the next record sequence for year, starting at 1.
	NextSequence(ctx context.Context, year int) (int, error)
}
