package staffing

import (
	"context"
	"time"
)

type ShiftRepository interface {
	Create(ctx context.Context, s *Shift) error
	GetByID(ctx context.Context, id int64) (*Shift, error)
	Update(ctx context.Context, s *Shift) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f ShiftFilter, limit, offset int) ([]*Shift, int, error)
	// ListOnShift returns ACTIVO, DISPONIBLE shifts for role covering at.
	ListOnShift(ctx context.Context, role string, at time.Time) ([]*Shift, error)
	Activate(ctx context.Context, at time.Time) (int, error)
	Finish(ctx context.Context, at time.Time) (int, error)
	SetAvailability(ctx context.Context, ids []int64, availability string) error
}

type TeamRepository interface {
	// Lock creates the team request if missing and returns it locked for the
	// rest of the transaction.
	Lock(ctx context.Context, t *TeamRequest) (*TeamRequest, error)
	Get(ctx context.Context, laborID int64) (*TeamRequest, error)
	GetForUpdate(ctx context.Context, laborID int64) (*TeamRequest, error)
	SetStatus(ctx context.Context, laborID int64, status string) error
	// SetPIN stores a new secret and clears the attempt counter.
	SetPIN(ctx context.Context, laborID int64, secret string) error
	IncPINAttempts(ctx context.Context, laborID int64) (int, error)
	AdmissionContext(ctx context.Context, laborID int64) (*AdmissionContext, error)
}

type AssignmentRepository interface {
	Create(ctx context.Context, a *Assignment) error
	GetByID(ctx context.Context, id int64) (*Assignment, error)
	GetForUpdate(ctx context.Context, id int64) (*Assignment, error)
	SetResponse(ctx context.Context, id int64, status string, at time.Time) error
	ListByAdmission(ctx context.Context, laborID int64) ([]*Assignment, error)
	ListPendingForStaff(ctx context.Context, staffID int64) ([]*Assignment, error)
	// CancelPending cancels every PENDING assignment of the admission and
	// returns them.
	CancelPending(ctx context.Context, laborID int64, at time.Time) ([]*Assignment, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id int64) (*Notification, error)
	MarkSent(ctx context.Context, id int64, attempts int, at time.Time) error
	MarkFailed(ctx context.Context, id int64, attempts int, reason string) error
	MarkRead(ctx context.Context, id int64, at time.Time) error
	ListForStaff(ctx context.Context, staffID int64, unreadOnly bool, limit, offset int) ([]*Notification, int, error)
	ListFailed(ctx context.Context, limit int) ([]*Notification, error)
}
