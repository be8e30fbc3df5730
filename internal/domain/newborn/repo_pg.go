package newborn

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obstetric/obstetric/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const newbornCols = `id, delivery_record_id, birth_order, sex, weight_grams, length_cm, head_circumference_cm,
	apgar_1, apgar_5, vitamin_k, hepatitis_b, bcg, status, notes, recorded_by, created_at, updated_at`

func scanNewborn(row pgx.Row) (*Record, error) {
	var r Record
	err := row.Scan(&r.ID, &r.DeliveryRecordID, &r.BirthOrder, &r.Sex, &r.WeightGrams, &r.LengthCM,
		&r.HeadCircumferenceCM, &r.Apgar1, &r.Apgar5, &r.VitaminK, &r.HepatitisB, &r.BCG, &r.Status,
		&r.Notes, &r.RecordedBy, &r.CreatedAt, &r.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return &r, err
}

func (r *repoPG) Create(ctx context.Context, n *Record) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO newborn_record (delivery_record_id, birth_order, sex, weight_grams, length_cm,
			head_circumference_cm, apgar_1, apgar_5, vitamin_k, hepatitis_b, bcg, status, notes, recorded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING id, created_at, updated_at`,
		n.DeliveryRecordID, n.BirthOrder, n.Sex, n.WeightGrams, n.LengthCM, n.HeadCircumferenceCM,
		n.Apgar1, n.Apgar5, n.VitaminK, n.HepatitisB, n.BCG, n.Status, n.Notes, n.RecordedBy,
	).Scan(&n.ID, &n.CreatedAt, &n.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrBirthOrderTaken
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Record, error) {
	return scanNewborn(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+newbornCols+` FROM newborn_record WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, n *Record) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE newborn_record SET weight_grams=$2, length_cm=$3, head_circumference_cm=$4, apgar_1=$5,
			apgar_5=$6, vitamin_k=$7, hepatitis_b=$8, bcg=$9, status=$10, notes=$11, updated_at=NOW()
		WHERE id = $1`,
		n.ID, n.WeightGrams, n.LengthCM, n.HeadCircumferenceCM, n.Apgar1, n.Apgar5, n.VitaminK,
		n.HepatitisB, n.BCG, n.Status, n.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) ListByDelivery(ctx context.Context, deliveryID int64) ([]*Record, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+newbornCols+` FROM newborn_record WHERE delivery_record_id = $1 ORDER BY birth_order`, deliveryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Record
	for rows.Next() {
		n, err := scanNewborn(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, n)
	}
	return items, rows.Err()
}
