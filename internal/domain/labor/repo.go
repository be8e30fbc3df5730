package labor

import "context"

type AdmissionRepository interface {
	Create(ctx context.Context, a *Admission) error
	GetByID(ctx context.Context, id int64) (*Admission, error)
	GetForUpdate(ctx context.Context, id int64) (*Admission, error)
	// GetOpenByRecord returns the non-finalized admission of a record.
	GetOpenByRecord(ctx context.Context, recordID int64) (*Admission, error)
	Update(ctx context.Context, a *Admission) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Admission, int, error)
}

type DeliveryRepository interface {
	Create(ctx context.Context, d *Delivery) error
	GetByID(ctx context.Context, id int64) (*Delivery, error)
	GetByAdmission(ctx context.Context, admissionID int64) (*Delivery, error)
}
