package staff

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

const userCols = `id, username, password_hash, full_name, rut, email, role, active,
	telegram_chat_id, link_code, created_at, updated_at`

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.RUT, &u.Email, &u.Role, &u.Active,
		&u.TelegramChatID, &u.LinkCode, &u.CreatedAt, &u.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotFound
	}
	return &u, err
}

func (r *repoPG) Create(ctx context.Context, u *User) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO staff_user (username, password_hash, full_name, rut, email, role, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id, created_at, updated_at`,
		u.Username, u.PasswordHash, u.FullName, u.RUT, u.Email, u.Role, u.Active,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return ErrUsernameTaken
	}
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+userCols+` FROM staff_user WHERE id = $1`, id))
}

func (r *repoPG) GetByUsername(ctx context.Context, username string) (*User, error) {
	return scanUser(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+userCols+` FROM staff_user WHERE username = $1`, username))
}

func (r *repoPG) GetByChatID(ctx context.Context, chatID int64) (*User, error) {
	return scanUser(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+userCols+` FROM staff_user WHERE telegram_chat_id = $1`, chatID))
}

func (r *repoPG) GetByLinkCode(ctx context.Context, code string) (*User, error) {
	return scanUser(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+userCols+` FROM staff_user WHERE link_code = $1`, code))
}

func (r *repoPG) Update(ctx context.Context, u *User) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE staff_user SET full_name=$2, email=$3, role=$4, password_hash=$5, active=$6, updated_at=NOW()
		WHERE id = $1`,
		u.ID, u.FullName, u.Email, u.Role, u.PasswordHash, u.Active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) SetLinkCode(ctx context.Context, id int64, code *string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE staff_user SET link_code=$2, updated_at=NOW() WHERE id = $1`, id, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) SetTelegramChat(ctx context.Context, id int64, chatID *int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE staff_user SET telegram_chat_id=$2, link_code=NULL, updated_at=NOW() WHERE id = $1`, id, chatID)
	if db.IsUniqueViolation(err) {
		return ErrChatLinked
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repoPG) List(ctx context.Context, f ListFilter, limit, offset int) ([]*User, int, error) {
	where := `WHERE ($1 = '' OR role = $1) AND (NOT $2 OR active)`
	conn := db.Conn(ctx, r.pool)

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM staff_user `+where, f.Role, f.ActiveOnly).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}
	rows, err := conn.Query(ctx, `SELECT `+userCols+` FROM staff_user `+where+` ORDER BY full_name LIMIT $3 OFFSET $4`,
		f.Role, f.ActiveOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}
