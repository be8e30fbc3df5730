package patient

import (
	"time"

	"github.com/obstetric/obstetric/internal/platform/apperr"
)

const (
	StatusActive     = "ACTIVO"
	StatusDischarged = "ALTA"
)

var (
	ErrNotFound       = apperr.NotFound("patient not found")
	ErrPersonNotFound = apperr.NotFound("person not found")
	ErrAlreadyActive  = apperr.Conflict("person already has an active patient record")
	ErrNotActive      = apperr.Conflict("patient is not active")
)

type Person struct {
	ID          int64      `json:"id"`
	RUT         string     `json:"rut"`
	FirstNames  string     `json:"first_names"`
	LastNames   string     `json:"last_names"`
	BirthDate   *time.Time `json:"birth_date,omitempty"`
	Sex         *string    `json:"sex,omitempty"`
	Phone       *string    `json:"phone,omitempty"`
	Email       *string    `json:"email,omitempty"`
	Address     *string    `json:"address,omitempty"`
	Nationality *string    `json:"nationality,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (p *Person) FullName() string {
	return p.FirstNames + " " + p.LastNames
}

type Patient struct {
	ID              int64     `json:"id"`
	Ref             string    `json:"ref,omitempty"`
	PersonID        int64     `json:"person_id"`
	Person          *Person   `json:"person,omitempty"`
	HealthInsurance *string   `json:"health_insurance,omitempty"`
	BloodType       *string   `json:"blood_type,omitempty"`
	Allergies       *string   `json:"allergies,omitempty"`
	Status          string    `json:"status"`
	CreatedBy       *int64    `json:"created_by,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IntakeInput carries the person data together with the admission details.
type IntakeInput struct {
	Person          Person  `json:"person"`
	HealthInsurance *string `json:"health_insurance,omitempty"`
	BloodType       *string `json:"blood_type,omitempty"`
	Allergies       *string `json:"allergies,omitempty"`
}

type UpdateInput struct {
	Phone           *string `json:"phone,omitempty"`
	Email           *string `json:"email,omitempty"`
	Address         *string `json:"address,omitempty"`
	HealthInsurance *string `json:"health_insurance,omitempty"`
	BloodType       *string `json:"blood_type,omitempty"`
	Allergies       *string `json:"allergies,omitempty"`
}

type ListFilter struct {
	Query  string
	Status string
}
