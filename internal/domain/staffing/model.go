// Package staffing keeps the shift roster and assembles the delivery team
// for a labor admission: invitations, responses, completion and the PIN
// handshake that confirms the team at the bedside.
package staffing

import (
	"time"

	"github.com/obstetric/obstetric/internal/platform/apperr"
	"github.com/obstetric/obstetric/internal/platform/auth"
)

const (
	ShiftScheduled = "PROGRAMADO"
	ShiftActive    = "ACTIVO"
	ShiftFinished  = "FINALIZADO"
	ShiftCancelled = "CANCELADO"

	Available = "DISPONIBLE"
	Busy      = "OCUPADO"
)

const (
	ResponsePending   = "PENDING"
	ResponseAccepted  = "ACCEPTED"
	ResponseRejected  = "REJECTED"
	ResponseCancelled = "CANCELLED"
)

const (
	KindInvitation   = "INVITACION"
	KindTeamComplete = "EQUIPO_COMPLETO"
	KindCancellation = "CANCELACION"
	KindPIN          = "PIN"

	NotificationPending = "PENDING"
	NotificationSent    = "SENT"
	NotificationFailed  = "FAILED"
	NotificationRead    = "READ"
)

const (
	TeamGathering = "CONVOCANDO"
	TeamComplete  = "COMPLETO"
	TeamConfirmed = "CONFIRMADO"
	TeamReleased  = "LIBERADO"
)

var (
	ErrShiftNotFound        = apperr.NotFound("shift not found")
	ErrShiftInUse           = apperr.Conflict("shift has team assignments")
	ErrAssignmentNotFound   = apperr.NotFound("assignment not found")
	ErrNotificationNotFound = apperr.NotFound("notification not found")
	ErrTeamNotFound         = apperr.NotFound("no team has been requested for this admission")
	ErrAdmissionNotFound    = apperr.NotFound("labor admission not found")
	ErrAdmissionClosed      = apperr.Conflict("labor admission is finalized")
	ErrNotInvitee           = apperr.Forbidden("assignment belongs to another staff member")
	ErrNotPending           = apperr.Conflict("assignment was already answered")
	ErrRoleFilled           = apperr.Conflict("role is already filled for this team")
	ErrTeamNotComplete      = apperr.Conflict("team is not complete")
	ErrTeamClosed           = apperr.Conflict("team is already confirmed or released")
	ErrInvalidPIN           = apperr.Forbidden("invalid PIN")
	ErrPINLocked            = apperr.Forbidden("too many failed PIN attempts")
)

// TeamRoles is the order in which roles are staffed and reported.
var TeamRoles = []string{auth.RoleMedico, auth.RoleMatrona, auth.RoleTENS, auth.RoleNeonatologo}

// Requirement maps a role to a head count.
type Requirement map[string]int

// Multipliers is the head count per baby for each team role.
type Multipliers Requirement

func DefaultMultipliers() Multipliers {
	return Multipliers{
		auth.RoleMedico:      1,
		auth.RoleMatrona:     1,
		auth.RoleTENS:        2,
		auth.RoleNeonatologo: 1,
	}
}

// PINPolicy controls the TOTP used to confirm a complete team.
type PINPolicy struct {
	Period      time.Duration
	MaxAttempts int
}

func DefaultPINPolicy() PINPolicy {
	return PINPolicy{Period: 5 * time.Minute, MaxAttempts: 5}
}

type Shift struct {
	ID           int64     `json:"id"`
	Ref          string    `json:"ref,omitempty"`
	StaffID      int64     `json:"staff_id"`
	Role         string    `json:"role"`
	StartsAt     time.Time `json:"starts_at"`
	EndsAt       time.Time `json:"ends_at"`
	Status       string    `json:"status"`
	Availability string    `json:"availability"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Covers reports whether at falls inside the shift window.
func (s *Shift) Covers(at time.Time) bool {
	return !s.StartsAt.After(at) && s.EndsAt.After(at)
}

type ShiftFilter struct {
	StaffID int64
	Role    string
	Status  string
}

// ActivationResult counts the shifts moved by ActivateShifts.
type ActivationResult struct {
	Activated int `json:"activated"`
	Finished  int `json:"finished"`
}

type Assignment struct {
	ID               int64      `json:"id"`
	Ref              string     `json:"ref,omitempty"`
	LaborAdmissionID int64      `json:"labor_admission_id"`
	StaffID          int64      `json:"staff_id"`
	ShiftID          *int64     `json:"shift_id,omitempty"`
	Role             string     `json:"role"`
	ResponseStatus   string     `json:"response_status"`
	RespondedAt      *time.Time `json:"responded_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// Open reports whether the assignment still holds a place on the team.
func (a *Assignment) Open() bool {
	return a.ResponseStatus == ResponsePending || a.ResponseStatus == ResponseAccepted
}

type Notification struct {
	ID               int64      `json:"id"`
	AssignmentID     *int64     `json:"assignment_id,omitempty"`
	LaborAdmissionID *int64     `json:"labor_admission_id,omitempty"`
	StaffID          int64      `json:"staff_id"`
	Kind             string     `json:"kind"`
	Message          string     `json:"message"`
	Status           string     `json:"status"`
	Attempts         int        `json:"attempts"`
	LastError        *string    `json:"last_error,omitempty"`
	SentAt           *time.Time `json:"sent_at,omitempty"`
	ReadAt           *time.Time `json:"read_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

type TeamRequest struct {
	LaborAdmissionID int64     `json:"labor_admission_id"`
	Babies           int       `json:"babies"`
	Status           string    `json:"status"`
	PINSecret        *string   `json:"-"`
	PINAttempts      int       `json:"pin_attempts"`
	RequestedBy      *int64    `json:"requested_by,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// AdmissionContext is the labor admission as staffing sees it: enough to
// word an invitation and size the team.
type AdmissionContext struct {
	LaborAdmissionID int64
	Status           string
	RecordNumber     string
	PatientName      string
	RoomName         string
	Babies           int
}

// Finalized reports whether the admission has been closed by labor.
func (a *AdmissionContext) Finalized() bool {
	return a.Status == "FINALIZADO"
}

type RoleCount struct {
	Role     string `json:"role"`
	Required int    `json:"required"`
	Accepted int    `json:"accepted"`
	Pending  int    `json:"pending"`
}

type TeamStatus struct {
	LaborAdmissionID int64       `json:"labor_admission_id"`
	Ref              string      `json:"ref,omitempty"`
	Status           string      `json:"status"`
	Babies           int         `json:"babies"`
	Roles            []RoleCount `json:"roles"`
	Pending          int         `json:"pending"`
	Complete         bool        `json:"complete"`
}

// RequestResult is returned by RequestTeam.
type RequestResult struct {
	Invitations []*Assignment `json:"invitations"`
	Team        *TeamStatus   `json:"team"`
}

// PIN is a team confirmation code and the end of its validity window.
type PIN struct {
	Code      string    `json:"pin"`
	ExpiresAt time.Time `json:"expires_at"`
}
