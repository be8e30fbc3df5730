package rooms

import "context"

type Repository interface {
	Create(ctx context.Context, r *Room) error
	GetByID(ctx context.Context, id int64) (*Room, error)
	// GetForUpdate reads the room holding a row lock for the current transaction.
	GetForUpdate(ctx context.Context, id int64) (*Room, error)
	Update(ctx context.Context, r *Room) error
	SetStatus(ctx context.Context, id int64, status string) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Room, int, error)
	// UpsertByCode inserts or renames/rekinds the room identified by code.
	UpsertByCode(ctx context.Context, r *Room) error
}
