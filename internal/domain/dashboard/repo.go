package dashboard

import (
	"context"
	"time"
)

// Repository answers the aggregate queries behind each summary.
type Repository interface {
	CountActivePatients(ctx context.Context) (int, error)
	CountOpenRecords(ctx context.Context) (int, error)
	AdmissionsByStatus(ctx context.Context) (map[string]int, error)
	RoomsByStatus(ctx context.Context) (map[string]int, error)
	ActiveShiftsByRole(ctx context.Context, at time.Time) (map[string]int, error)
	CountFailedNotifications(ctx context.Context) (int, error)
	ActiveAdmissions(ctx context.Context) ([]*AdmissionRow, error)
	HighRiskRecords(ctx context.Context, limit int) ([]*RecordRow, error)
	CountPendingInvitations(ctx context.Context, staffID int64) (int, error)
	CountIntakesSince(ctx context.Context, since time.Time) (int, error)
}
