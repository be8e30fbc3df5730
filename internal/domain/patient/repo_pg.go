package patient

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obstetric/obstetric/internal/platform/db"
)

// -- Person --

type personRepoPG struct{ pool *pgxpool.Pool }

func NewPersonRepoPG(pool *pgxpool.Pool) PersonRepository {
	return &personRepoPG{pool: pool}
}

const personCols = `id, rut, first_names, last_names, birth_date, sex, phone, email, address, nationality, created_at, updated_at`

func scanPerson(row pgx.Row) (*Person, error) {
	var p Person
	err := row.Scan(&p.ID, &p.RUT, &p.FirstNames, &p.LastNames, &p.BirthDate, &p.Sex, &p.Phone,
		&p.Email, &p.Address, &p.Nationality, &p.CreatedAt, &p.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrPersonNotFound
	}
	return &p, err
}

func (r *personRepoPG) Create(ctx context.Context, p *Person) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO person (rut, first_names, last_names, birth_date, sex, phone, email, address, nationality)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at, updated_at`,
		p.RUT, p.FirstNames, p.LastNames, p.BirthDate, p.Sex, p.Phone, p.Email, p.Address, p.Nationality,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *personRepoPG) GetByID(ctx context.Context, id int64) (*Person, error) {
	return scanPerson(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+personCols+` FROM person WHERE id = $1`, id))
}

func (r *personRepoPG) GetByRUT(ctx context.Context, rut string) (*Person, error) {
	return scanPerson(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+personCols+` FROM person WHERE rut = $1`, rut))
}

func (r *personRepoPG) Update(ctx context.Context, p *Person) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE person SET first_names=$2, last_names=$3, birth_date=$4, sex=$5, phone=$6, email=$7,
			address=$8, nationality=$9, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.FirstNames, p.LastNames, p.BirthDate, p.Sex, p.Phone, p.Email, p.Address, p.Nationality)
	return err
}

// -- Patient --

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

const patientSelect = `SELECT pa.id, pa.person_id, pa.health_insurance, pa.blood_type, pa.allergies, pa.status,
	pa.created_by, pa.created_at, pa.updated_at,
	pe.id, pe.rut, pe.first_names, pe.last_names, pe.birth_date, pe.sex, pe.phone, pe.email, pe.address,
	pe.nationality, pe.created_at, pe.updated_at
	FROM patient pa JOIN person pe ON pe.id = pa.person_id`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var pe Person
	err := row.Scan(&p.ID, &p.PersonID, &p.HealthInsurance, &p.BloodType, &p.Allergies, &p.Status,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt,
		&pe.ID, &pe.RUT, &pe.FirstNames, &pe.LastNames, &pe.BirthDate, &pe.Sex, &pe.Phone, &pe.Email,
		&pe.Address, &pe.Nationality, &pe.CreatedAt, &pe.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.Person = &pe
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patient (person_id, health_insurance, blood_type, allergies, status, created_by)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at, updated_at`,
		p.PersonID, p.HealthInsurance, p.BloodType, p.Allergies, p.Status, p.CreatedBy,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrAlreadyActive
	}
	return err
}

func (r *patientRepoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	return scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx, patientSelect+` WHERE pa.id = $1`, id))
}

func (r *patientRepoPG) GetActiveByPerson(ctx context.Context, personID int64) (*Patient, error) {
	return scanPatient(db.Conn(ctx, r.pool).QueryRow(ctx,
		patientSelect+` WHERE pa.person_id = $1 AND pa.status = 'ACTIVO'`, personID))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE patient SET health_insurance=$2, blood_type=$3, allergies=$4, status=$5, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.HealthInsurance, p.BloodType, p.Allergies, p.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	q := strings.TrimSpace(f.Query)
	where := ` WHERE ($1 = '' OR pa.status = $1)
		AND ($2 = '' OR pe.rut ILIKE $2 || '%' OR (pe.first_names || ' ' || pe.last_names) ILIKE '%' || $2 || '%')`
	conn := db.Conn(ctx, r.pool)

	var total int
	err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM patient pa JOIN person pe ON pe.id = pa.person_id`+where,
		f.Status, q).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}
	rows, err := conn.Query(ctx, patientSelect+where+` ORDER BY pe.last_names, pe.first_names LIMIT $3 OFFSET $4`,
		f.Status, q, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
