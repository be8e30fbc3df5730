package medication

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obstetric/obstetric/internal/platform/db"
)

// -- Medication --

type medicationRepoPG struct{ pool *pgxpool.Pool }

func NewMedicationRepoPG(pool *pgxpool.Pool) MedicationRepository {
	return &medicationRepoPG{pool: pool}
}

const medCols = `id, name, presentation, default_dose, route, active, created_at, updated_at`

func scanMedication(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(&m.ID, &m.Name, &m.Presentation, &m.DefaultDose, &m.Route, &m.Active, &m.CreatedAt, &m.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return &m, err
}

func (r *medicationRepoPG) Create(ctx context.Context, m *Medication) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO medication (name, presentation, default_dose, route, active)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at, updated_at`,
		m.Name, m.Presentation, m.DefaultDose, m.Route, m.Active,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrNameTaken
	}
	return err
}

func (r *medicationRepoPG) GetByID(ctx context.Context, id int64) (*Medication, error) {
	return scanMedication(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+medCols+` FROM medication WHERE id = $1`, id))
}

func (r *medicationRepoPG) Update(ctx context.Context, m *Medication) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE medication SET name=$2, presentation=$3, default_dose=$4, route=$5, active=$6, updated_at=NOW()
		WHERE id = $1`,
		m.ID, m.Name, m.Presentation, m.DefaultDose, m.Route, m.Active)
	if db.IsUniqueViolation(err) {
		return ErrNameTaken
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *medicationRepoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Medication, int, error) {
	conn := db.Conn(ctx, r.pool)
	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM medication WHERE (NOT $1 OR active)`, activeOnly).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count medications: %w", err)
	}
	rows, err := conn.Query(ctx, `SELECT `+medCols+` FROM medication WHERE (NOT $1 OR active) ORDER BY name LIMIT $2 OFFSET $3`,
		activeOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Medication
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *medicationRepoPG) UpsertByName(ctx context.Context, m *Medication) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO medication (name, presentation, default_dose, route, active)
		VALUES ($1,$2,$3,$4,TRUE)
		ON CONFLICT (name) DO UPDATE SET presentation = EXCLUDED.presentation,
			default_dose = EXCLUDED.default_dose, route = EXCLUDED.route, updated_at = NOW()
		RETURNING id, active, created_at, updated_at`,
		m.Name, m.Presentation, m.DefaultDose, m.Route,
	).Scan(&m.ID, &m.Active, &m.CreatedAt, &m.UpdatedAt)
}

// -- Order --

type orderRepoPG struct{ pool *pgxpool.Pool }

func NewOrderRepoPG(pool *pgxpool.Pool) OrderRepository {
	return &orderRepoPG{pool: pool}
}

const orderCols = `o.id, o.obstetric_record_id, o.medication_id, o.dose, o.route, o.frequency_hours, o.start_at,
	o.end_at, o.status, o.notes, o.ordered_by, o.created_at, o.updated_at`

func orderDest(o *Order) []interface{} {
	return []interface{}{&o.ID, &o.ObstetricRecordID, &o.MedicationID, &o.Dose, &o.Route, &o.FrequencyHours,
		&o.StartAt, &o.EndAt, &o.Status, &o.Notes, &o.OrderedBy, &o.CreatedAt, &o.UpdatedAt}
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	err := row.Scan(orderDest(&o)...)
	if db.IsNoRows(err) {
		return nil, ErrOrderNotFound
	}
	return &o, err
}

func (r *orderRepoPG) Create(ctx context.Context, o *Order) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO medication_order (obstetric_record_id, medication_id, dose, route, frequency_hours,
			start_at, end_at, status, notes, ordered_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id, created_at, updated_at`,
		o.ObstetricRecordID, o.MedicationID, o.Dose, o.Route, o.FrequencyHours, o.StartAt, o.EndAt,
		o.Status, o.Notes, o.OrderedBy,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
}

func (r *orderRepoPG) GetByID(ctx context.Context, id int64) (*Order, error) {
	return scanOrder(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+orderCols+` FROM medication_order o WHERE o.id = $1`, id))
}

func (r *orderRepoPG) GetForUpdate(ctx context.Context, id int64) (*Order, error) {
	return scanOrder(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+orderCols+` FROM medication_order o WHERE o.id = $1 FOR UPDATE`, id))
}

func (r *orderRepoPG) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE medication_order SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *orderRepoPG) List(ctx context.Context, f OrderFilter, limit, offset int) ([]*Order, int, error) {
	where := ` WHERE ($1 = 0 OR o.obstetric_record_id = $1) AND ($2 = '' OR o.status = $2)`
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM medication_order o`+where,
		f.ObstetricRecordID, f.Status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	rows, err := conn.Query(ctx, `SELECT `+orderCols+` FROM medication_order o`+where+
		` ORDER BY o.start_at DESC LIMIT $3 OFFSET $4`, f.ObstetricRecordID, f.Status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, o)
	}
	return items, total, rows.Err()
}

func (r *orderRepoPG) ListActive(ctx context.Context, at time.Time) ([]*ActiveOrder, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT `+orderCols+`, m.name, rec.record_number, pe.first_names || ' ' || pe.last_names,
			(SELECT MAX(a.administered_at) FROM medication_administration a WHERE a.order_id = o.id)
		FROM medication_order o
		JOIN medication m ON m.id = o.medication_id
		JOIN obstetric_record rec ON rec.id = o.obstetric_record_id
		JOIN patient pa ON pa.id = rec.patient_id
		JOIN person pe ON pe.id = pa.person_id
		WHERE o.status = 'ACTIVA' AND o.start_at <= $1 AND (o.end_at IS NULL OR o.end_at > $1)
		ORDER BY o.start_at`, at)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*ActiveOrder
	for rows.Next() {
		var a ActiveOrder
		dest := append(orderDest(&a.Order), &a.MedicationName, &a.RecordNumber, &a.PatientName, &a.LastAdministeredAt)
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}

// -- Administration --

type administrationRepoPG struct{ pool *pgxpool.Pool }

func NewAdministrationRepoPG(pool *pgxpool.Pool) AdministrationRepository {
	return &administrationRepoPG{pool: pool}
}

func (r *administrationRepoPG) Create(ctx context.Context, a *Administration) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO medication_administration (order_id, administered_at, administered_by, dose, notes)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at`,
		a.OrderID, a.AdministeredAt, a.AdministeredBy, a.Dose, a.Notes,
	).Scan(&a.ID, &a.CreatedAt)
}

func (r *administrationRepoPG) ListByOrder(ctx context.Context, orderID int64) ([]*Administration, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT id, order_id, administered_at, administered_by, dose, notes, created_at
		FROM medication_administration WHERE order_id = $1 ORDER BY administered_at DESC`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Administration
	for rows.Next() {
		var a Administration
		if err := rows.Scan(&a.ID, &a.OrderID, &a.AdministeredAt, &a.AdministeredBy, &a.Dose, &a.Notes, &a.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &a)
	}
	return items, rows.Err()
}
