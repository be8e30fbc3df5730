package dashboard

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/obstetric/obstetric/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) count(ctx context.Context, sql string, args ...interface{}) (int, error) {
	var n int
	err := db.Conn(ctx, r.pool).QueryRow(ctx, sql, args...).Scan(&n)
	return n, err
}

func (r *repoPG) grouped(ctx context.Context, sql string, args ...interface{}) (map[string]int, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var key string
		var n int
		if err := rows.Scan(&key, &n); err != nil {
			return nil, err
		}
		out[key] = n
	}
	return out, rows.Err()
}

func (r *repoPG) CountActivePatients(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM patient WHERE status = 'ACTIVO'`)
}

func (r *repoPG) CountOpenRecords(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM obstetric_record WHERE status = 'ABIERTA'`)
}

func (r *repoPG) AdmissionsByStatus(ctx context.Context) (map[string]int, error) {
	return r.grouped(ctx, `SELECT status, COUNT(*) FROM labor_admission GROUP BY status`)
}

func (r *repoPG) RoomsByStatus(ctx context.Context) (map[string]int, error) {
	return r.grouped(ctx, `SELECT status, COUNT(*) FROM room GROUP BY status`)
}

func (r *repoPG) ActiveShiftsByRole(ctx context.Context, at time.Time) (map[string]int, error) {
	return r.grouped(ctx, `
		SELECT role, COUNT(*) FROM shift
		WHERE status = 'ACTIVO' AND starts_at <= $1 AND ends_at > $1
		GROUP BY role`, at)
}

func (r *repoPG) CountFailedNotifications(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM notification WHERE status = 'FAILED'`)
}

func (r *repoPG) ActiveAdmissions(ctx context.Context) ([]*AdmissionRow, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT la.id, o.record_number, p.first_names || ' ' || p.last_names, rm.name, la.status, la.admitted_at,
		       tr.status,
		       COUNT(a.id) FILTER (WHERE a.response_status = 'ACCEPTED'),
		       COUNT(a.id) FILTER (WHERE a.response_status = 'PENDING')
		FROM labor_admission la
		JOIN obstetric_record o ON o.id = la.obstetric_record_id
		JOIN patient pt ON pt.id = o.patient_id
		JOIN person p ON p.id = pt.person_id
		LEFT JOIN room rm ON rm.id = la.room_id
		LEFT JOIN team_request tr ON tr.labor_admission_id = la.id
		LEFT JOIN assignment a ON a.labor_admission_id = la.id
		WHERE la.status <> 'FINALIZADO'
		GROUP BY la.id, o.record_number, p.first_names, p.last_names, rm.name, tr.status
		ORDER BY la.admitted_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*AdmissionRow{}
	for rows.Next() {
		var a AdmissionRow
		if err := rows.Scan(&a.ID, &a.RecordNumber, &a.PatientName, &a.RoomName, &a.Status, &a.AdmittedAt,
			&a.TeamStatus, &a.TeamAccepted, &a.TeamPending); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

func (r *repoPG) HighRiskRecords(ctx context.Context, limit int) ([]*RecordRow, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx, `
		SELECT o.id, o.record_number, p.first_names || ' ' || p.last_names, o.estimated_due_date, o.expected_babies
		FROM obstetric_record o
		JOIN patient pt ON pt.id = o.patient_id
		JOIN person p ON p.id = pt.person_id
		WHERE o.status = 'ABIERTA' AND o.risk_level = 'ALTO'
		ORDER BY o.estimated_due_date NULLS LAST, o.id
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*RecordRow{}
	for rows.Next() {
		var rr RecordRow
		if err := rows.Scan(&rr.ID, &rr.RecordNumber, &rr.PatientName, &rr.EstimatedDueDate, &rr.ExpectedBabies); err != nil {
			return nil, err
		}
		out = append(out, &rr)
	}
	return out, rows.Err()
}

func (r *repoPG) CountPendingInvitations(ctx context.Context, staffID int64) (int, error) {
	return r.count(ctx,
		`SELECT COUNT(*) FROM assignment WHERE staff_id = $1 AND response_status = 'PENDING'`, staffID)
}

func (r *repoPG) CountIntakesSince(ctx context.Context, since time.Time) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM patient WHERE created_at >= $1`, since)
}
