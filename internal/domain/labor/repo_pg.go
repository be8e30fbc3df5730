package labor

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obstetric/obstetric/internal/platform/db"
)

// -- Admission --

type admissionRepoPG struct{ pool *pgxpool.Pool }

func NewAdmissionRepoPG(pool *pgxpool.Pool) AdmissionRepository {
	return &admissionRepoPG{pool: pool}
}

const admissionCols = `id, obstetric_record_id, room_id, admitted_at, cervical_dilation_cm, membranes, contractions,
	fetal_heart_rate, status, admitted_by, notes, finalized_at, created_at, updated_at`

func scanAdmission(row pgx.Row) (*Admission, error) {
	var a Admission
	err := row.Scan(&a.ID, &a.ObstetricRecordID, &a.RoomID, &a.AdmittedAt, &a.CervicalDilationCM, &a.Membranes,
		&a.Contractions, &a.FetalHeartRate, &a.Status, &a.AdmittedBy, &a.Notes, &a.FinalizedAt,
		&a.CreatedAt, &a.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return &a, err
}

func (r *admissionRepoPG) Create(ctx context.Context, a *Admission) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO labor_admission (obstetric_record_id, room_id, admitted_at, cervical_dilation_cm, membranes,
			contractions, fetal_heart_rate, status, admitted_by, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at, updated_at`,
		a.ObstetricRecordID, a.RoomID, a.AdmittedAt, a.CervicalDilationCM, a.Membranes, a.Contractions,
		a.FetalHeartRate, a.Status, a.AdmittedBy, a.Notes,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrAlreadyAdmitted
	}
	return err
}

func (r *admissionRepoPG) GetByID(ctx context.Context, id int64) (*Admission, error) {
	return scanAdmission(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+admissionCols+` FROM labor_admission WHERE id = $1`, id))
}

func (r *admissionRepoPG) GetForUpdate(ctx context.Context, id int64) (*Admission, error) {
	return scanAdmission(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+admissionCols+` FROM labor_admission WHERE id = $1 FOR UPDATE`, id))
}

func (r *admissionRepoPG) GetOpenByRecord(ctx context.Context, recordID int64) (*Admission, error) {
	return scanAdmission(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+admissionCols+` FROM labor_admission WHERE obstetric_record_id = $1 AND status <> 'FINALIZADO'`,
		recordID))
}

func (r *admissionRepoPG) Update(ctx context.Context, a *Admission) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE labor_admission SET room_id=$2, cervical_dilation_cm=$3, membranes=$4, contractions=$5,
			fetal_heart_rate=$6, status=$7, notes=$8, finalized_at=$9, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.RoomID, a.CervicalDilationCM, a.Membranes, a.Contractions, a.FetalHeartRate, a.Status,
		a.Notes, a.FinalizedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *admissionRepoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Admission, int, error) {
	where := ` WHERE ($1 = '' OR status = $1) AND ($2 = 0 OR obstetric_record_id = $2)`
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM labor_admission`+where,
		f.Status, f.ObstetricRecordID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count admissions: %w", err)
	}
	rows, err := conn.Query(ctx, `SELECT `+admissionCols+` FROM labor_admission`+where+
		` ORDER BY admitted_at DESC LIMIT $3 OFFSET $4`, f.Status, f.ObstetricRecordID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Admission
	for rows.Next() {
		a, err := scanAdmission(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

// -- Delivery --

type deliveryRepoPG struct{ pool *pgxpool.Pool }

func NewDeliveryRepoPG(pool *pgxpool.Pool) DeliveryRepository {
	return &deliveryRepoPG{pool: pool}
}

const deliveryCols = `id, labor_admission_id, delivered_at, delivery_type, anesthesia, placenta, tear_degree,
	blood_loss_ml, complications, attended_by, created_at`

func scanDelivery(row pgx.Row) (*Delivery, error) {
	var d Delivery
	err := row.Scan(&d.ID, &d.LaborAdmissionID, &d.DeliveredAt, &d.DeliveryType, &d.Anesthesia, &d.Placenta,
		&d.TearDegree, &d.BloodLossML, &d.Complications, &d.AttendedBy, &d.CreatedAt)
	if db.IsNoRows(err) {
		return nil, ErrDeliveryNotFound
	}
	return &d, err
}

func (r *deliveryRepoPG) Create(ctx context.Context, d *Delivery) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO delivery_record (labor_admission_id, delivered_at, delivery_type, anesthesia, placenta,
			tear_degree, blood_loss_ml, complications, attended_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id, created_at`,
		d.LaborAdmissionID, d.DeliveredAt, d.DeliveryType, d.Anesthesia, d.Placenta, d.TearDegree,
		d.BloodLossML, d.Complications, d.AttendedBy,
	).Scan(&d.ID, &d.CreatedAt)
	if db.IsUniqueViolation(err) {
		return ErrDeliveryExists
	}
	return err
}

func (r *deliveryRepoPG) GetByID(ctx context.Context, id int64) (*Delivery, error) {
	return scanDelivery(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+deliveryCols+` FROM delivery_record WHERE id = $1`, id))
}

func (r *deliveryRepoPG) GetByAdmission(ctx context.Context, admissionID int64) (*Delivery, error) {
	return scanDelivery(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+deliveryCols+` FROM delivery_record WHERE labor_admission_id = $1`, admissionID))
}
