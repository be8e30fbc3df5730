package newborn

import "context"

type Repository interface {
	Create(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, id int64) (*Record, error)
	Update(ctx context.Context, r *Record) error
	ListByDelivery(ctx context.Context, deliveryID int64) ([]*Record, error)
}
