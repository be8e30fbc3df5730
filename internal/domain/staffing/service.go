package staffing

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/obstetric/obstetric/internal/domain/staff"
	"github.com/obstetric/obstetric/internal/platform/apperr"
	"github.com/obstetric/obstetric/internal/platform/auth"
	"github.com/obstetric/obstetric/internal/platform/db"
	"github.com/obstetric/obstetric/internal/platform/notification"
	"github.com/obstetric/obstetric/internal/platform/websocket"
)

// StaffDirectory resolves staff accounts for shifts and message delivery.
type StaffDirectory interface {
	Get(ctx context.Context, id int64) (*staff.User, error)
}

// Relay delivers a rendered message to a chat. *notification.Dispatcher
// implements it.
type Relay interface {
	Deliver(ctx context.Context, chatID *int64, text string, buttons []notification.Button) (uint, error)
}

type Service struct {
	shifts        ShiftRepository
	teams         TeamRepository
	assignments   AssignmentRepository
	notifications NotificationRepository
	directory     StaffDirectory
	relay         Relay
	templates     *notification.TemplateEngine
	tx            db.TxRunner
	events        websocket.Publisher
	ref           func(int64) string
	multipliers   Multipliers
	pin           PINPolicy
	relayBudget   time.Duration
	logger        zerolog.Logger
	now           func() time.Time
}

func NewService(shifts ShiftRepository, teams TeamRepository, assignments AssignmentRepository,
	notifications NotificationRepository, directory StaffDirectory, relay Relay, tx db.TxRunner,
	logger zerolog.Logger) *Service {
	return &Service{
		shifts:        shifts,
		teams:         teams,
		assignments:   assignments,
		notifications: notifications,
		directory:     directory,
		relay:         relay,
		templates:     notification.NewTemplateEngine(),
		tx:            tx,
		events:        websocket.NopPublisher{},
		ref:           func(int64) string { return "" },
		multipliers:   DefaultMultipliers(),
		pin:           DefaultPINPolicy(),
		relayBudget:   10 * time.Second,
		logger:        logger.With().Str("component", "staffing").Logger(),
		now:           time.Now,
	}
}

// SetMultipliers overrides the per-baby head count. Roles missing from m
// keep their default.
func (s *Service) SetMultipliers(m Multipliers) {
	for role, n := range m {
		if n >= 0 {
			s.multipliers[role] = n
		}
	}
}

func (s *Service) SetPINPolicy(p PINPolicy) {
	if p.Period > 0 {
		s.pin.Period = p.Period
	}
	if p.MaxAttempts > 0 {
		s.pin.MaxAttempts = p.MaxAttempts
	}
}

// SetRelayBudget caps how long one batch of notifications may spend in the
// relay, retries included. Whatever is still undelivered when it runs out
// is marked FAILED for a later retry.
func (s *Service) SetRelayBudget(d time.Duration) {
	if d > 0 {
		s.relayBudget = d
	}
}

// SetEvents makes the service publish team events; ref encodes admission
// ids for the payload.
func (s *Service) SetEvents(p websocket.Publisher, ref func(int64) string) {
	s.events = p
	s.ref = ref
}

// -- Shifts --

func (s *Service) validateShift(sh *Shift) error {
	if !auth.IsValidRole(sh.Role) || sh.Role == auth.RoleAdmin || sh.Role == auth.RoleAdministrativo {
		return apperr.Invalid("role %q cannot be scheduled on a clinical shift", sh.Role)
	}
	if sh.StartsAt.IsZero() || sh.EndsAt.IsZero() {
		return apperr.Invalid("starts_at and ends_at are required")
	}
	if !sh.EndsAt.After(sh.StartsAt) {
		return apperr.Invalid("ends_at must be after starts_at")
	}
	if sh.EndsAt.Sub(sh.StartsAt) > 36*time.Hour {
		return apperr.Invalid("a shift cannot exceed 36 hours")
	}
	return nil
}

func (s *Service) CreateShift(ctx context.Context, sh *Shift) error {
	if err := s.validateShift(sh); err != nil {
		return err
	}
	u, err := s.directory.Get(ctx, sh.StaffID)
	if err != nil {
		return err
	}
	if !u.Active {
		return apperr.Invalid("staff member %d is inactive", sh.StaffID)
	}
	sh.Status = ShiftScheduled
	sh.Availability = Available
	return s.shifts.Create(ctx, sh)
}

func (s *Service) GetShift(ctx context.Context, id int64) (*Shift, error) {
	return s.shifts.GetByID(ctx, id)
}

// UpdateShift edits the window or role of a shift, or cancels it.
func (s *Service) UpdateShift(ctx context.Context, sh *Shift) error {
	existing, err := s.shifts.GetByID(ctx, sh.ID)
	if err != nil {
		return err
	}
	if existing.Status == ShiftFinished || existing.Status == ShiftCancelled {
		return apperr.Conflict("shift is closed")
	}
	switch sh.Status {
	case "":
		sh.Status = existing.Status
	case ShiftCancelled, existing.Status:
	default:
		return apperr.Invalid("status can only be changed to %s", ShiftCancelled)
	}
	if err := s.validateShift(sh); err != nil {
		return err
	}
	sh.StaffID = existing.StaffID
	sh.Availability = existing.Availability
	sh.CreatedAt = existing.CreatedAt
	return s.shifts.Update(ctx, sh)
}

func (s *Service) DeleteShift(ctx context.Context, id int64) error {
	return s.shifts.Delete(ctx, id)
}

func (s *Service) ListShifts(ctx context.Context, f ShiftFilter, limit, offset int) ([]*Shift, int, error) {
	return s.shifts.List(ctx, f, limit, offset)
}

// ActivateShifts opens scheduled shifts whose window has begun and closes
// those whose window has ended.
func (s *Service) ActivateShifts(ctx context.Context, now time.Time) (*ActivationResult, error) {
	var res ActivationResult
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if res.Finished, err = s.shifts.Finish(ctx, now); err != nil {
			return err
		}
		res.Activated, err = s.shifts.Activate(ctx, now)
		return err
	})
	if err != nil {
		return nil, err
	}
	if res.Activated > 0 || res.Finished > 0 {
		s.logger.Info().Int("activated", res.Activated).Int("finished", res.Finished).Msg("shifts rolled")
	}
	return &res, nil
}

func (s *Service) ListOnShift(ctx context.Context, role string, now time.Time) ([]*Shift, error) {
	if !auth.IsValidRole(role) {
		return nil, apperr.Invalid("invalid role: %s", role)
	}
	return s.shifts.ListOnShift(ctx, role, now)
}

// RequiredTeam sizes the delivery team for the given number of babies.
func (s *Service) RequiredTeam(babies int) Requirement {
	if babies < 1 {
		babies = 1
	}
	req := make(Requirement, len(TeamRoles))
	for _, role := range TeamRoles {
		req[role] = s.multipliers[role] * babies
	}
	return req
}

// -- Delivery --

// outbound is a notification created inside a transaction and relayed
// after it commits.
type outbound struct {
	n       *Notification
	buttons []notification.Button
}

func (s *Service) render(id string, data map[string]string) string {
	body, err := s.templates.Render(id, data)
	if err != nil {
		s.logger.Error().Err(err).Str("template", id).Msg("render failed")
		return id
	}
	return body
}

func (s *Service) queue(ctx context.Context, n *Notification, buttons []notification.Button) (*outbound, error) {
	n.Status = NotificationPending
	if err := s.notifications.Create(ctx, n); err != nil {
		return nil, err
	}
	return &outbound{n: n, buttons: buttons}, nil
}

// deliver relays queued notifications. Failures are recorded on the
// notification and never returned: the domain change already committed.
func (s *Service) deliver(ctx context.Context, batch []*outbound) {
	if len(batch) == 0 {
		return
	}
	relayCtx, cancel := context.WithTimeout(ctx, s.relayBudget)
	defer cancel()
	for _, o := range batch {
		s.send(ctx, relayCtx, o.n, o.buttons)
		if o.n.Kind == KindInvitation {
			s.publishTo(ctx, websocket.StaffTopic(o.n.StaffID), websocket.EventInvitation, *o.n.LaborAdmissionID,
				map[string]interface{}{"assignment_id": o.n.AssignmentID, "message": o.n.Message})
		}
	}
}

// send relays n within relayCtx. Bookkeeping uses ctx so a spent relay
// budget still records the failure.
func (s *Service) send(ctx, relayCtx context.Context, n *Notification, buttons []notification.Button) bool {
	u, err := s.directory.Get(ctx, n.StaffID)
	if err != nil {
		s.logger.Error().Err(err).Int64("notification_id", n.ID).Msg("recipient lookup failed")
		return false
	}
	attempts, err := s.relay.Deliver(relayCtx, u.TelegramChatID, n.Message, buttons)
	n.Attempts += int(attempts)
	switch {
	case errors.Is(err, notification.ErrRelayDisabled):
		return false
	case err != nil:
		msg := err.Error()
		n.Status, n.LastError = NotificationFailed, &msg
		if merr := s.notifications.MarkFailed(ctx, n.ID, n.Attempts, msg); merr != nil {
			s.logger.Error().Err(merr).Int64("notification_id", n.ID).Msg("mark failed")
		}
		s.logger.Warn().Err(err).Int64("notification_id", n.ID).Int64("staff_id", n.StaffID).
			Str("kind", n.Kind).Msg("notification not delivered")
		return false
	}
	now := s.now()
	n.Status, n.SentAt = NotificationSent, &now
	if err := s.notifications.MarkSent(ctx, n.ID, n.Attempts, now); err != nil {
		s.logger.Error().Err(err).Int64("notification_id", n.ID).Msg("mark sent")
	}
	return true
}

func (s *Service) publishTo(ctx context.Context, topic, typ string, laborID int64, data interface{}) {
	err := s.events.Publish(ctx, websocket.Event{
		Type:  typ,
		Topic: topic,
		Ref:   s.ref(laborID),
		Data:  data,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("event", typ).Msg("publish failed")
	}
}

func (s *Service) publishTeam(ctx context.Context, st *TeamStatus) {
	if st == nil {
		return
	}
	s.publishTo(ctx, websocket.TopicDashboard, websocket.EventTeamUpdated, st.LaborAdmissionID, st)
}

// -- Notifications --

func (s *Service) ListNotifications(ctx context.Context, staffID int64, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	return s.notifications.ListForStaff(ctx, staffID, unreadOnly, limit, offset)
}

// MarkRead marks one of the caller's notifications as read.
func (s *Service) MarkRead(ctx context.Context, id, staffID int64) error {
	n, err := s.notifications.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if n.StaffID != staffID {
		return ErrNotificationNotFound
	}
	return s.notifications.MarkRead(ctx, id, s.now())
}

// RetryFailed re-relays up to limit FAILED notifications and returns how
// many were delivered this time.
func (s *Service) RetryFailed(ctx context.Context, limit int) (int, error) {
	failed, err := s.notifications.ListFailed(ctx, limit)
	if err != nil {
		return 0, err
	}
	relayCtx, cancel := context.WithTimeout(ctx, s.relayBudget)
	defer cancel()
	delivered := 0
	for _, n := range failed {
		var buttons []notification.Button
		if n.Kind == KindInvitation && n.AssignmentID != nil {
			a, err := s.assignments.GetByID(ctx, *n.AssignmentID)
			if err != nil && !errors.Is(err, ErrAssignmentNotFound) {
				return delivered, err
			}
			if err != nil || a.ResponseStatus != ResponsePending {
				// An answered invitation is moot. Retire it so it leaves
				// the failed queue.
				if err := s.notifications.MarkRead(ctx, n.ID, s.now()); err != nil {
					return delivered, err
				}
				continue
			}
			buttons = responseButtons(a.ID)
		}
		if s.send(ctx, relayCtx, n, buttons) {
			delivered++
		}
	}
	return delivered, nil
}

// PendingInvitations lists the invitations awaiting the staff member's answer.
func (s *Service) PendingInvitations(ctx context.Context, staffID int64) ([]*Assignment, error) {
	return s.assignments.ListPendingForStaff(ctx, staffID)
}
