package rooms

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obstetric/obstetric/internal/platform/apperr"
	"github.com/obstetric/obstetric/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

const roomCols = `id, code, name, kind, status, created_at, updated_at`

func scanRoom(row pgx.Row) (*Room, error) {
	var r Room
	err := row.Scan(&r.ID, &r.Code, &r.Name, &r.Kind, &r.Status, &r.CreatedAt, &r.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return &r, err
}

func (r *repoPG) Create(ctx context.Context, room *Room) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO room (code, name, kind, status) VALUES ($1,$2,$3,$4)
		RETURNING id, created_at, updated_at`,
		room.Code, room.Name, room.Kind, room.Status,
	).Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrCodeTaken
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Room, error) {
	return scanRoom(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+roomCols+` FROM room WHERE id = $1`, id))
}

func (r *repoPG) GetForUpdate(ctx context.Context, id int64) (*Room, error) {
	return scanRoom(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+roomCols+` FROM room WHERE id = $1 FOR UPDATE`, id))
}

func (r *repoPG) Update(ctx context.Context, room *Room) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE room SET code=$2, name=$3, kind=$4, updated_at=NOW() WHERE id = $1`,
		room.ID, room.Code, room.Name, room.Kind)
	if db.IsUniqueViolation(err) {
		return ErrCodeTaken
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) SetStatus(ctx context.Context, id int64, status string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE room SET status=$2, updated_at=NOW() WHERE id = $1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) Delete(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM room WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return apperr.Conflict("room is referenced by labor admissions")
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Room, int, error) {
	where := ` WHERE ($1 = '' OR kind = $1) AND ($2 = '' OR status = $2)`
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM room`+where, f.Kind, f.Status).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count rooms: %w", err)
	}
	rows, err := conn.Query(ctx, `SELECT `+roomCols+` FROM room`+where+` ORDER BY code LIMIT $3 OFFSET $4`,
		f.Kind, f.Status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, room)
	}
	return items, total, rows.Err()
}

func (r *repoPG) UpsertByCode(ctx context.Context, room *Room) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO room (code, name, kind) VALUES ($1,$2,$3)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name, kind = EXCLUDED.kind, updated_at = NOW()
		RETURNING id, status, created_at, updated_at`,
		room.Code, room.Name, room.Kind,
	).Scan(&room.ID, &room.Status, &room.CreatedAt, &room.UpdatedAt)
}
