package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/obstetric/obstetric/internal/domain/medication"
	"github.com/obstetric/obstetric/internal/platform/apperr"
	"github.com/obstetric/obstetric/internal/platform/auth"
)

const highRiskLimit = 20

// DueLister lists medication doses due at a point in time.
type DueLister interface {
	ListDue(ctx context.Context, at time.Time) ([]*medication.DueItem, error)
}

type Service struct {
	repo Repository
	due  DueLister
	loc  *time.Location
	now  func() time.Time
}

// NewService builds the dashboard service. loc decides where "today"
// starts for intake counts.
func NewService(repo Repository, due DueLister, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{repo: repo, due: due, loc: loc, now: time.Now}
}

// Summary returns the dashboard for role as seen by staffID.
func (s *Service) Summary(ctx context.Context, staffID int64, role string) (*Summary, error) {
	now := s.now()
	out := &Summary{Role: role, GeneratedAt: now}
	var err error
	switch role {
	case auth.RoleAdmin:
		out.Admin, err = s.admin(ctx, now)
	case auth.RoleMatrona, auth.RoleMedico, auth.RoleNeonatologo:
		out.Clinical, err = s.clinical(ctx, staffID)
	case auth.RoleTENS:
		out.TENS, err = s.tens(ctx, staffID, now)
	case auth.RoleAdministrativo:
		out.Clerk, err = s.clerk(ctx, now)
	default:
		return nil, apperr.Forbidden("no dashboard for this role")
	}
	if err != nil {
		return nil, fmt.Errorf("dashboard %s: %w", role, err)
	}
	return out, nil
}

func (s *Service) admin(ctx context.Context, now time.Time) (*AdminSummary, error) {
	var a AdminSummary
	var err error
	if a.PatientsActive, err = s.repo.CountActivePatients(ctx); err != nil {
		return nil, err
	}
	if a.OpenRecords, err = s.repo.CountOpenRecords(ctx); err != nil {
		return nil, err
	}
	if a.AdmissionsByStatus, err = s.repo.AdmissionsByStatus(ctx); err != nil {
		return nil, err
	}
	if a.RoomsByStatus, err = s.repo.RoomsByStatus(ctx); err != nil {
		return nil, err
	}
	if a.ActiveShiftsByRole, err = s.repo.ActiveShiftsByRole(ctx, now); err != nil {
		return nil, err
	}
	if a.FailedNotifications, err = s.repo.CountFailedNotifications(ctx); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Service) clinical(ctx context.Context, staffID int64) (*ClinicalSummary, error) {
	var c ClinicalSummary
	var err error
	if c.ActiveAdmissions, err = s.repo.ActiveAdmissions(ctx); err != nil {
		return nil, err
	}
	if c.HighRiskRecords, err = s.repo.HighRiskRecords(ctx, highRiskLimit); err != nil {
		return nil, err
	}
	if c.PendingInvitations, err = s.repo.CountPendingInvitations(ctx, staffID); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Service) tens(ctx context.Context, staffID int64, now time.Time) (*TENSSummary, error) {
	items, err := s.due.ListDue(ctx, now)
	if err != nil {
		return nil, err
	}
	t := TENSSummary{DueMedications: make([]*DueRow, 0, len(items))}
	for _, it := range items {
		t.DueMedications = append(t.DueMedications, &DueRow{
			OrderID:        it.ID,
			MedicationName: it.MedicationName,
			Dose:           it.Dose,
			RecordNumber:   it.RecordNumber,
			PatientName:    it.PatientName,
			DueAt:          it.DueAt,
			Overdue:        it.Overdue,
		})
	}
	if t.PendingInvitations, err = s.repo.CountPendingInvitations(ctx, staffID); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Service) clerk(ctx context.Context, now time.Time) (*ClerkSummary, error) {
	local := now.In(s.loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	var c ClerkSummary
	var err error
	if c.IntakesToday, err = s.repo.CountIntakesSince(ctx, midnight); err != nil {
		return nil, err
	}
	if c.PatientsActive, err = s.repo.CountActivePatients(ctx); err != nil {
		return nil, err
	}
	return &c, nil
}
