package patient

import "context"

type PersonRepository interface {
	Create(ctx context.Context, p *Person) error
	GetByID(ctx context.Context, id int64) (*Person, error)
	GetByRUT(ctx context.Context, rut string) (*Person, error)
	Update(ctx context.Context, p *Person) error
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	// GetActiveByPerson returns the ACTIVO patient for personID.
	GetActiveByPerson(ctx context.Context, personID int64) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error)
}
