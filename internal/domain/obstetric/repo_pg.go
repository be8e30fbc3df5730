package obstetric

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obstetric/obstetric/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const recordCols = `id, patient_id, record_number, gravida, para, abortions, cesareans, last_menstrual_period,
	estimated_due_date, expected_babies, risk_level, pathologies, prenatal_control, status, notes, created_by,
	closed_at, created_at, updated_at`

func scanRecord(row pgx.Row) (*Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.PatientID, &r.RecordNumber, &r.Gravida, &r.Para, &r.Abortions, &r.Cesareans,
		&r.LastMenstrualPeriod, &r.EstimatedDueDate, &r.ExpectedBabies, &r.RiskLevel, &r.Pathologies,
		&r.PrenatalControl, &r.Status, &r.Notes, &r.CreatedBy, &r.ClosedAt, &r.CreatedAt, &r.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return &r, err
}

func (r *repoPG) Create(ctx context.Context, rec *Record) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO obstetric_record (patient_id, record_number, gravida, para, abortions, cesareans,
			last_menstrual_period, estimated_due_date, expected_babies, risk_level, pathologies,
			prenatal_control, status, notes, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		RETURNING id, created_at, updated_at`,
		rec.PatientID, rec.RecordNumber, rec.Gravida, rec.Para, rec.Abortions, rec.Cesareans,
		rec.LastMenstrualPeriod, rec.EstimatedDueDate, rec.ExpectedBabies, rec.RiskLevel, rec.Pathologies,
		rec.PrenatalControl, rec.Status, rec.Notes, rec.CreatedBy,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrNumberTaken
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Record, error) {
	return scanRecord(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+recordCols+` FROM obstetric_record WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, rec *Record) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE obstetric_record SET gravida=$2, para=$3, abortions=$4, cesareans=$5, last_menstrual_period=$6,
			estimated_due_date=$7, expected_babies=$8, risk_level=$9, pathologies=$10, prenatal_control=$11,
			status=$12, notes=$13, closed_at=$14, updated_at=NOW()
		WHERE id = $1`,
		rec.ID, rec.Gravida, rec.Para, rec.Abortions, rec.Cesareans, rec.LastMenstrualPeriod,
		rec.EstimatedDueDate, rec.ExpectedBabies, rec.RiskLevel, rec.Pathologies, rec.PrenatalControl,
		rec.Status, rec.Notes, rec.ClosedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Record, int, error) {
	where := ` WHERE ($1 = 0 OR patient_id = $1) AND ($2 = '' OR status = $2) AND ($3 = '' OR risk_level = $3)`
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM obstetric_record`+where,
		f.PatientID, f.Status, f.RiskLevel).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count records: %w", err)
	}
	rows, err := conn.Query(ctx, `SELECT `+recordCols+` FROM obstetric_record`+where+
		` ORDER BY created_at DESC LIMIT $4 OFFSET $5`,
		f.PatientID, f.Status, f.RiskLevel, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rec)
	}
	return items, total, rows.Err()
}

func (r *repoPG) NextSequence(ctx context.Context, year int) (int, error) {
	var seq int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO record_counter (year, last) VALUES ($1, 1)
		ON CONFLICT (year) DO UPDATE SET last = record_counter.last + 1
		RETURNING last`, year).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("next record sequence: %w", err)
	}
	return seq, nil
}
