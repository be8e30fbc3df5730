package staffing

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obstetric/obstetric/internal/platform/db"
)

// -- Shift --

type shiftRepoPG struct{ pool *pgxpool.Pool }

func NewShiftRepoPG(pool *pgxpool.Pool) ShiftRepository {
	return &shiftRepoPG{pool: pool}
}

const shiftCols = `id, staff_id, role, starts_at, ends_at, status, availability, created_at, updated_at`

func scanShift(row pgx.Row) (*Shift, error) {
	var s Shift
	err := row.Scan(&s.ID, &s.StaffID, &s.Role, &s.StartsAt, &s.EndsAt, &s.Status, &s.Availability,
		&s.CreatedAt, &s.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrShiftNotFound
	}
	return &s, err
}

func collectShifts(rows pgx.Rows) ([]*Shift, error) {
	defer rows.Close()
	var out []*Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *shiftRepoPG) Create(ctx context.Context, s *Shift) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO shift (staff_id, role, starts_at, ends_at, status, availability)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at, updated_at`,
		s.StaffID, s.Role, s.StartsAt, s.EndsAt, s.Status, s.Availability,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

func (r *shiftRepoPG) GetByID(ctx context.Context, id int64) (*Shift, error) {
	return scanShift(db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT `+shiftCols+` FROM shift WHERE id = $1`, id))
}

func (r *shiftRepoPG) Update(ctx context.Context, s *Shift) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE shift SET role=$2, starts_at=$3, ends_at=$4, status=$5, availability=$6, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Role, s.StartsAt, s.EndsAt, s.Status, s.Availability)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrShiftNotFound
	}
	return nil
}

func (r *shiftRepoPG) Delete(ctx context.Context, id int64) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM shift WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return fmt.Errorf("shift %d is referenced by assignments: %w", id, ErrShiftInUse)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrShiftNotFound
	}
	return nil
}

func (r *shiftRepoPG) List(ctx context.Context, f ShiftFilter, limit, offset int) ([]*Shift, int, error) {
	conn := db.Conn(ctx, r.pool)
	const where = ` WHERE ($1 = 0 OR staff_id = $1) AND ($2 = '' OR role = $2) AND ($3 = '' OR status = $3)`

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM shift`+where, f.StaffID, f.Role, f.Status).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.Query(ctx, `SELECT `+shiftCols+` FROM shift`+where+
		` ORDER BY starts_at DESC, id LIMIT $4 OFFSET $5`,
		f.StaffID, f.Role, f.Status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectShifts(rows)
	return items, total, err
}

func (r *shiftRepoPG) ListOnShift(ctx context.Context, role string, at time.Time) ([]*Shift, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT s.id, s.staff_id, s.role, s.starts_at, s.ends_at, s.status, s.availability, s.created_at, s.updated_at
		FROM shift s JOIN staff_user u ON u.id = s.staff_id
		WHERE s.role = $1 AND s.status = 'ACTIVO' AND s.availability = 'DISPONIBLE'
		  AND s.starts_at <= $2 AND s.ends_at > $2 AND u.active
		ORDER BY s.starts_at, s.id`, role, at)
	if err != nil {
		return nil, err
	}
	return collectShifts(rows)
}

func (r *shiftRepoPG) Activate(ctx context.Context, at time.Time) (int, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE shift SET status = 'ACTIVO', updated_at = NOW()
		WHERE status = 'PROGRAMADO' AND starts_at <= $1 AND ends_at > $1`, at)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *shiftRepoPG) Finish(ctx context.Context, at time.Time) (int, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE shift SET status = 'FINALIZADO', availability = 'DISPONIBLE', updated_at = NOW()
		WHERE status IN ('PROGRAMADO','ACTIVO') AND ends_at <= $1`, at)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (r *shiftRepoPG) SetAvailability(ctx context.Context, ids []int64, availability string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE shift SET availability = $2, updated_at = NOW() WHERE id = ANY($1)`, ids, availability)
	return err
}

// -- Team request --

type teamRepoPG struct{ pool *pgxpool.Pool }

func NewTeamRepoPG(pool *pgxpool.Pool) TeamRepository {
	return &teamRepoPG{pool: pool}
}

const teamCols = `labor_admission_id, babies, status, pin_secret, pin_attempts, requested_by, created_at, updated_at`

func scanTeam(row pgx.Row) (*TeamRequest, error) {
	var t TeamRequest
	err := row.Scan(&t.LaborAdmissionID, &t.Babies, &t.Status, &t.PINSecret, &t.PINAttempts, &t.RequestedBy,
		&t.CreatedAt, &t.UpdatedAt)
	if db.IsNoRows(err) {
		return nil, ErrTeamNotFound
	}
	return &t, err
}

// Lock relies on the upsert taking the row lock. A refresh keeps the
// original requester and bumps updated_at.
func (r *teamRepoPG) Lock(ctx context.Context, t *TeamRequest) (*TeamRequest, error) {
	return scanTeam(db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO team_request (labor_admission_id, babies, status, requested_by)
		VALUES ($1,$2,'CONVOCANDO',$3)
		ON CONFLICT (labor_admission_id) DO UPDATE
			SET babies = EXCLUDED.babies,
			    requested_by = COALESCE(team_request.requested_by, EXCLUDED.requested_by),
			    updated_at = NOW()
		RETURNING `+teamCols,
		t.LaborAdmissionID, t.Babies, t.RequestedBy))
}

func (r *teamRepoPG) Get(ctx context.Context, laborID int64) (*TeamRequest, error) {
	return scanTeam(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+teamCols+` FROM team_request WHERE labor_admission_id = $1`, laborID))
}

func (r *teamRepoPG) GetForUpdate(ctx context.Context, laborID int64) (*TeamRequest, error) {
	return scanTeam(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+teamCols+` FROM team_request WHERE labor_admission_id = $1 FOR UPDATE`, laborID))
}

func (r *teamRepoPG) SetStatus(ctx context.Context, laborID int64, status string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE team_request SET status = $2, updated_at = NOW() WHERE labor_admission_id = $1`, laborID, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTeamNotFound
	}
	return nil
}

func (r *teamRepoPG) SetPIN(ctx context.Context, laborID int64, secret string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE team_request SET pin_secret = $2, pin_attempts = 0, updated_at = NOW()
		WHERE labor_admission_id = $1`, laborID, secret)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTeamNotFound
	}
	return nil
}

func (r *teamRepoPG) IncPINAttempts(ctx context.Context, laborID int64) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE team_request SET pin_attempts = pin_attempts + 1, updated_at = NOW()
		WHERE labor_admission_id = $1
		RETURNING pin_attempts`, laborID).Scan(&n)
	if db.IsNoRows(err) {
		return 0, ErrTeamNotFound
	}
	return n, err
}

func (r *teamRepoPG) AdmissionContext(ctx context.Context, laborID int64) (*AdmissionContext, error) {
	var a AdmissionContext
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		SELECT la.id, la.status, o.record_number, p.first_names || ' ' || p.last_names,
		       COALESCE(r.name, ''), o.expected_babies
		FROM labor_admission la
		JOIN obstetric_record o ON o.id = la.obstetric_record_id
		JOIN patient pt ON pt.id = o.patient_id
		JOIN person p ON p.id = pt.person_id
		LEFT JOIN room r ON r.id = la.room_id
		WHERE la.id = $1`, laborID,
	).Scan(&a.LaborAdmissionID, &a.Status, &a.RecordNumber, &a.PatientName, &a.RoomName, &a.Babies)
	if db.IsNoRows(err) {
		return nil, ErrAdmissionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// -- Assignment --

type assignmentRepoPG struct{ pool *pgxpool.Pool }

func NewAssignmentRepoPG(pool *pgxpool.Pool) AssignmentRepository {
	return &assignmentRepoPG{pool: pool}
}

const assignmentCols = `id, labor_admission_id, staff_id, shift_id, role, response_status, responded_at, created_at`

func scanAssignment(row pgx.Row) (*Assignment, error) {
	var a Assignment
	err := row.Scan(&a.ID, &a.LaborAdmissionID, &a.StaffID, &a.ShiftID, &a.Role, &a.ResponseStatus,
		&a.RespondedAt, &a.CreatedAt)
	if db.IsNoRows(err) {
		return nil, ErrAssignmentNotFound
	}
	return &a, err
}

func collectAssignments(rows pgx.Rows) ([]*Assignment, error) {
	defer rows.Close()
	var out []*Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *assignmentRepoPG) Create(ctx context.Context, a *Assignment) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO assignment (labor_admission_id, staff_id, shift_id, role, response_status)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING id, created_at`,
		a.LaborAdmissionID, a.StaffID, a.ShiftID, a.Role, a.ResponseStatus,
	).Scan(&a.ID, &a.CreatedAt)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("staff %d already holds an open assignment: %w", a.StaffID, ErrNotPending)
	}
	return err
}

func (r *assignmentRepoPG) GetByID(ctx context.Context, id int64) (*Assignment, error) {
	return scanAssignment(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+assignmentCols+` FROM assignment WHERE id = $1`, id))
}

func (r *assignmentRepoPG) GetForUpdate(ctx context.Context, id int64) (*Assignment, error) {
	return scanAssignment(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+assignmentCols+` FROM assignment WHERE id = $1 FOR UPDATE`, id))
}

func (r *assignmentRepoPG) SetResponse(ctx context.Context, id int64, status string, at time.Time) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE assignment SET response_status = $2, responded_at = $3 WHERE id = $1`, id, status, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAssignmentNotFound
	}
	return nil
}

func (r *assignmentRepoPG) ListByAdmission(ctx context.Context, laborID int64) ([]*Assignment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+assignmentCols+` FROM assignment WHERE labor_admission_id = $1 ORDER BY id`, laborID)
	if err != nil {
		return nil, err
	}
	return collectAssignments(rows)
}

func (r *assignmentRepoPG) ListPendingForStaff(ctx context.Context, staffID int64) ([]*Assignment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+assignmentCols+` FROM assignment WHERE staff_id = $1 AND response_status = 'PENDING' ORDER BY id`,
		staffID)
	if err != nil {
		return nil, err
	}
	return collectAssignments(rows)
}

func (r *assignmentRepoPG) CancelPending(ctx context.Context, laborID int64, at time.Time) ([]*Assignment, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		UPDATE assignment SET response_status = 'CANCELLED', responded_at = $2
		WHERE labor_admission_id = $1 AND response_status = 'PENDING'
		RETURNING `+assignmentCols, laborID, at)
	if err != nil {
		return nil, err
	}
	return collectAssignments(rows)
}

// -- Notification --

type notificationRepoPG struct{ pool *pgxpool.Pool }

func NewNotificationRepoPG(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepoPG{pool: pool}
}

const notificationCols = `id, assignment_id, labor_admission_id, staff_id, kind, message, status, attempts,
	last_error, sent_at, read_at, created_at`

func scanNotification(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.AssignmentID, &n.LaborAdmissionID, &n.StaffID, &n.Kind, &n.Message, &n.Status,
		&n.Attempts, &n.LastError, &n.SentAt, &n.ReadAt, &n.CreatedAt)
	if db.IsNoRows(err) {
		return nil, ErrNotificationNotFound
	}
	return &n, err
}

func collectNotifications(rows pgx.Rows) ([]*Notification, error) {
	defer rows.Close()
	var out []*Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *notificationRepoPG) Create(ctx context.Context, n *Notification) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO notification (assignment_id, labor_admission_id, staff_id, kind, message, status)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id, created_at`,
		n.AssignmentID, n.LaborAdmissionID, n.StaffID, n.Kind, n.Message, n.Status,
	).Scan(&n.ID, &n.CreatedAt)
}

func (r *notificationRepoPG) GetByID(ctx context.Context, id int64) (*Notification, error) {
	return scanNotification(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+notificationCols+` FROM notification WHERE id = $1`, id))
}

func (r *notificationRepoPG) MarkSent(ctx context.Context, id int64, attempts int, at time.Time) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE notification SET status = 'SENT', attempts = $2, sent_at = $3, last_error = NULL
		WHERE id = $1 AND status <> 'READ'`, id, attempts, at)
	return err
}

func (r *notificationRepoPG) MarkFailed(ctx context.Context, id int64, attempts int, reason string) error {
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE notification SET status = 'FAILED', attempts = $2, last_error = $3
		WHERE id = $1 AND status <> 'READ'`, id, attempts, reason)
	return err
}

func (r *notificationRepoPG) MarkRead(ctx context.Context, id int64, at time.Time) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE notification SET status = 'READ', read_at = COALESCE(read_at, $2) WHERE id = $1`, id, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (r *notificationRepoPG) ListForStaff(ctx context.Context, staffID int64, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	conn := db.Conn(ctx, r.pool)
	const where = ` WHERE staff_id = $1 AND (NOT $2 OR status <> 'READ')`

	var total int
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM notification`+where, staffID, unreadOnly).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn.Query(ctx, `SELECT `+notificationCols+` FROM notification`+where+
		` ORDER BY created_at DESC, id DESC LIMIT $3 OFFSET $4`, staffID, unreadOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectNotifications(rows)
	return items, total, err
}

func (r *notificationRepoPG) ListFailed(ctx context.Context, limit int) ([]*Notification, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+notificationCols+` FROM notification WHERE status = 'FAILED' ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collectNotifications(rows)
}
