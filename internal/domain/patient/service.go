package patient

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/obstetric/obstetric/internal/platform/apperr"
	"github.com/obstetric/obstetric/internal/platform/auth"
	"github.com/obstetric/obstetric/internal/platform/db"
	"github.com/obstetric/obstetric/pkg/rut"
)

var validSex = map[string]bool{"F": true, "M": true, "I": true}

var validBloodTypes = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true, "AB+": true, "AB-": true, "O+": true, "O-": true,
}

type Service struct {
	persons  PersonRepository
	patients PatientRepository
	tx       db.TxRunner
	now      func() time.Time
}

func NewService(persons PersonRepository, patients PatientRepository, tx db.TxRunner) *Service {
	return &Service{persons: persons, patients: patients, tx: tx, now: time.Now}
}

func (s *Service) validatePerson(p *Person) error {
	n, err := rut.Normalize(p.RUT)
	if err != nil {
		return apperr.Invalid("invalid rut: %v", err)
	}
	p.RUT = n
	p.FirstNames = strings.TrimSpace(p.FirstNames)
	p.LastNames = strings.TrimSpace(p.LastNames)
	if p.FirstNames == "" || p.LastNames == "" {
		return apperr.Invalid("first_names and last_names are required")
	}
	if p.Sex != nil && !validSex[*p.Sex] {
		return apperr.Invalid("invalid sex: %s", *p.Sex)
	}
	if p.BirthDate != nil && p.BirthDate.After(s.now()) {
		return apperr.Invalid("birth_date cannot be in the future")
	}
	return nil
}

func validateClinical(bloodType *string) error {
	if bloodType != nil && *bloodType != "" && !validBloodTypes[strings.ToUpper(*bloodType)] {
		return apperr.Invalid("invalid blood_type: %s", *bloodType)
	}
	return nil
}

// Intake registers a patient. A person already known by RUT is reused and
// refreshed with the submitted contact data; a person may hold a single
// ACTIVO patient.
func (s *Service) Intake(ctx context.Context, in IntakeInput) (*Patient, error) {
	person := in.Person
	if err := s.validatePerson(&person); err != nil {
		return nil, err
	}
	if err := validateClinical(in.BloodType); err != nil {
		return nil, err
	}

	var out *Patient
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		existing, err := s.persons.GetByRUT(ctx, person.RUT)
		switch {
		case errors.Is(err, ErrPersonNotFound):
			if err := s.persons.Create(ctx, &person); err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			if _, err := s.patients.GetActiveByPerson(ctx, existing.ID); err == nil {
				return ErrAlreadyActive
			} else if !errors.Is(err, ErrNotFound) {
				return err
			}
			person.ID = existing.ID
			person.CreatedAt = existing.CreatedAt
			if err := s.persons.Update(ctx, &person); err != nil {
				return err
			}
		}

		p := &Patient{
			PersonID:        person.ID,
			Person:          &person,
			HealthInsurance: in.HealthInsurance,
			BloodType:       in.BloodType,
			Allergies:       in.Allergies,
			Status:          StatusActive,
		}
		if uid := auth.UserIDFromContext(ctx); uid != 0 {
			p.CreatedBy = &uid
		}
		if err := s.patients.Create(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

// GetByRUT returns the active patient for rut.
func (s *Service) GetByRUT(ctx context.Context, r string) (*Patient, error) {
	n, err := rut.Normalize(r)
	if err != nil {
		return nil, apperr.Invalid("invalid rut: %v", err)
	}
	person, err := s.persons.GetByRUT(ctx, n)
	if errors.Is(err, ErrPersonNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.patients.GetActiveByPerson(ctx, person.ID)
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	if f.Status != "" && f.Status != StatusActive && f.Status != StatusDischarged {
		return nil, 0, apperr.Invalid("invalid status: %s", f.Status)
	}
	// A query that parses as a RUT is matched in normalized form.
	if n, err := rut.Normalize(f.Query); err == nil {
		f.Query = n
	}
	return s.patients.List(ctx, f, limit, offset)
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*Patient, error) {
	if err := validateClinical(in.BloodType); err != nil {
		return nil, err
	}
	var out *Patient
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if in.Phone != nil || in.Email != nil || in.Address != nil {
			if in.Phone != nil {
				p.Person.Phone = in.Phone
			}
			if in.Email != nil {
				p.Person.Email = in.Email
			}
			if in.Address != nil {
				p.Person.Address = in.Address
			}
			if err := s.persons.Update(ctx, p.Person); err != nil {
				return err
			}
		}
		if in.HealthInsurance != nil {
			p.HealthInsurance = in.HealthInsurance
		}
		if in.BloodType != nil {
			p.BloodType = in.BloodType
		}
		if in.Allergies != nil {
			p.Allergies = in.Allergies
		}
		if err := s.patients.Update(ctx, p); err != nil {
			return err
		}
		out = p
		return nil
	})
	return out, err
}

// Discharge moves an ACTIVO patient to ALTA.
func (s *Service) Discharge(ctx context.Context, id int64) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusActive {
		return nil, ErrNotActive
	}
	p.Status = StatusDischarged
	if err := s.patients.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
