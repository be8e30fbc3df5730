package medication

import (
	"context"
	"time"
)

type MedicationRepository interface {
	Create(ctx context.Context, m *Medication) error
	GetByID(ctx context.Context, id int64) (*Medication, error)
	Update(ctx context.Context, m *Medication) error
	List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Medication, int, error)
	UpsertByName(ctx context.Context, m *Medication) error
}

type OrderRepository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	GetForUpdate(ctx context.Context, id int64) (*Order, error)
	SetStatus(ctx context.Context, id int64, status string) error
	List(ctx context.Context, f OrderFilter, limit, offset int) ([]*Order, int, error)
	// ListActive returns ACTIVA orders that started before at and have not ended.
	ListActive(ctx context.Context, at time.Time) ([]*ActiveOrder, error)
}

type AdministrationRepository interface {
	Create(ctx context.Context, a *Administration) error
	ListByOrder(ctx context.Context, orderID int64) ([]*Administration, error)
}
