package staffing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/obstetric/obstetric/internal/platform/notification"
)

// Callback data prefixes carried by invitation buttons.
const (
	CallbackAccept = "acc:"
	CallbackReject = "rej:"
)

func responseButtons(assignmentID int64) []notification.Button {
	id := strconv.FormatInt(assignmentID, 10)
	return []notification.Button{
		{Text: "Aceptar", Data: CallbackAccept + id},
		{Text: "Rechazar", Data: CallbackReject + id},
	}
}

// buildStatus tallies assignments against the requirement.
func buildStatus(t *TeamRequest, req Requirement, assignments []*Assignment) *TeamStatus {
	accepted := make(map[string]int)
	pending := make(map[string]int)
	for _, a := range assignments {
		switch a.ResponseStatus {
		case ResponseAccepted:
			accepted[a.Role]++
		case ResponsePending:
			pending[a.Role]++
		}
	}
	st := &TeamStatus{
		LaborAdmissionID: t.LaborAdmissionID,
		Status:           t.Status,
		Babies:           t.Babies,
		Complete:         true,
	}
	for _, role := range TeamRoles {
		rc := RoleCount{Role: role, Required: req[role], Accepted: accepted[role], Pending: pending[role]}
		if rc.Accepted < rc.Required {
			st.Complete = false
		}
		st.Pending += rc.Pending
		st.Roles = append(st.Roles, rc)
	}
	return st
}

func (s *Service) status(ctx context.Context, t *TeamRequest) (*TeamStatus, error) {
	list, err := s.assignments.ListByAdmission(ctx, t.LaborAdmissionID)
	if err != nil {
		return nil, err
	}
	st := buildStatus(t, s.RequiredTeam(t.Babies), list)
	st.Ref = s.ref(t.LaborAdmissionID)
	return st, nil
}

// TeamStatus reports required versus accepted staff per role.
func (s *Service) TeamStatus(ctx context.Context, laborID int64) (*TeamStatus, error) {
	t, err := s.teams.Get(ctx, laborID)
	if err != nil {
		return nil, err
	}
	return s.status(ctx, t)
}

// RequestTeam invites every on-shift candidate for each role still short.
// Concurrent calls serialize on the team request row, so a staff member is
// never invited twice for the same admission.
func (s *Service) RequestTeam(ctx context.Context, laborID, requestedBy int64) (*RequestResult, error) {
	now := s.now()
	res := &RequestResult{Invitations: []*Assignment{}}
	var batch []*outbound

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		adm, err := s.teams.AdmissionContext(ctx, laborID)
		if err != nil {
			return err
		}
		if adm.Finalized() {
			return ErrAdmissionClosed
		}
		req := &TeamRequest{LaborAdmissionID: laborID, Babies: adm.Babies}
		if requestedBy != 0 {
			req.RequestedBy = &requestedBy
		}
		team, err := s.teams.Lock(ctx, req)
		if err != nil {
			return err
		}
		if team.Status == TeamConfirmed || team.Status == TeamReleased {
			return ErrTeamClosed
		}

		existing, err := s.assignments.ListByAdmission(ctx, laborID)
		if err != nil {
			return err
		}
		required := s.RequiredTeam(team.Babies)
		st := buildStatus(team, required, existing)
		if team.Status == TeamGathering && !st.Complete {
			invited := make(map[int64]bool)
			for _, a := range existing {
				if a.Open() {
					invited[a.StaffID] = true
				}
			}
			for _, rc := range st.Roles {
				if rc.Accepted >= rc.Required {
					continue
				}
				candidates, err := s.shifts.ListOnShift(ctx, rc.Role, now)
				if err != nil {
					return err
				}
				for _, sh := range candidates {
					if invited[sh.StaffID] {
						continue
					}
					shiftID := sh.ID
					a := &Assignment{
						LaborAdmissionID: laborID,
						StaffID:          sh.StaffID,
						ShiftID:          &shiftID,
						Role:             rc.Role,
						ResponseStatus:   ResponsePending,
					}
					if err := s.assignments.Create(ctx, a); err != nil {
						return err
					}
					invited[sh.StaffID] = true
					existing = append(existing, a)
					res.Invitations = append(res.Invitations, a)

					aid := a.ID
					o, err := s.queue(ctx, &Notification{
						AssignmentID:     &aid,
						LaborAdmissionID: &laborID,
						StaffID:          a.StaffID,
						Kind:             KindInvitation,
						Message: s.render(notification.TemplateInvitation, map[string]string{
							"patient": adm.PatientName,
							"record":  adm.RecordNumber,
							"room":    roomLabel(adm.RoomName),
							"role":    strings.ToLower(rc.Role),
						}),
					}, responseButtons(a.ID))
					if err != nil {
						return err
					}
					batch = append(batch, o)
				}
			}
			st = buildStatus(team, required, existing)
		}
		// A requirement with no open places is complete without waiting
		// for any answer.
		if team.Status == TeamGathering && st.Complete {
			done, err := s.completeTeam(ctx, team, existing)
			if err != nil {
				return err
			}
			batch = append(batch, done...)
			if existing, err = s.assignments.ListByAdmission(ctx, laborID); err != nil {
				return err
			}
			st = buildStatus(team, required, existing)
		}
		st.Ref = s.ref(laborID)
		res.Team = st
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("labor_admission_id", laborID).Int("invitations", len(res.Invitations)).
		Bool("complete", res.Team.Complete).Msg("team requested")
	s.deliver(ctx, batch)
	s.publishTeam(ctx, res.Team)
	return res, nil
}

func roomLabel(name string) string {
	if name == "" {
		return "por asignar"
	}
	return name
}

// Respond records the invited staff member's answer. An acceptance that
// fills the last open place completes the team, cancels the remaining
// invitations and sends the confirmation PIN to the requester.
func (s *Service) Respond(ctx context.Context, assignmentID, staffID int64, accept bool) (*Assignment, error) {
	probe, err := s.assignments.GetByID(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if probe.StaffID != staffID {
		return nil, ErrNotInvitee
	}

	now := s.now()
	var (
		out     *Assignment
		filled  bool
		st      *TeamStatus
		batch   []*outbound
		laborID = probe.LaborAdmissionID
	)
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		team, err := s.teams.GetForUpdate(ctx, laborID)
		if err != nil {
			return err
		}
		a, err := s.assignments.GetForUpdate(ctx, assignmentID)
		if err != nil {
			return err
		}
		if a.ResponseStatus != ResponsePending {
			return ErrNotPending
		}
		out = a

		if !accept {
			a.ResponseStatus, a.RespondedAt = ResponseRejected, &now
			return s.assignments.SetResponse(ctx, a.ID, a.ResponseStatus, now)
		}

		list, err := s.assignments.ListByAdmission(ctx, laborID)
		if err != nil {
			return err
		}
		required := s.RequiredTeam(team.Babies)
		before := buildStatus(team, required, list)
		if team.Status != TeamGathering || roleFull(before, a.Role) {
			filled = true
			a.ResponseStatus, a.RespondedAt = ResponseCancelled, &now
			return s.assignments.SetResponse(ctx, a.ID, a.ResponseStatus, now)
		}

		a.ResponseStatus, a.RespondedAt = ResponseAccepted, &now
		if err := s.assignments.SetResponse(ctx, a.ID, a.ResponseStatus, now); err != nil {
			return err
		}
		for i := range list {
			if list[i].ID == a.ID {
				list[i] = a
			}
		}
		st = buildStatus(team, required, list)
		if st.Complete {
			batch, err = s.completeTeam(ctx, team, list)
			if err != nil {
				return err
			}
			st.Status = TeamComplete
			st.Pending = 0
			for i := range st.Roles {
				st.Roles[i].Pending = 0
			}
		}
		st.Ref = s.ref(laborID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if filled {
		return out, ErrRoleFilled
	}

	s.logger.Info().Int64("assignment_id", assignmentID).Int64("staff_id", staffID).
		Str("response", out.ResponseStatus).Msg("invitation answered")
	s.deliver(ctx, batch)
	if st == nil {
		st, _ = s.TeamStatus(ctx, laborID)
	}
	s.publishTeam(ctx, st)
	return out, nil
}

func roleFull(st *TeamStatus, role string) bool {
	for _, rc := range st.Roles {
		if rc.Role == role {
			return rc.Accepted >= rc.Required
		}
	}
	return true
}

// completeTeam moves the team to COMPLETO inside the caller's transaction
// and queues the follow-up notices.
func (s *Service) completeTeam(ctx context.Context, team *TeamRequest, list []*Assignment) ([]*outbound, error) {
	laborID := team.LaborAdmissionID
	now := s.now()
	if err := s.teams.SetStatus(ctx, laborID, TeamComplete); err != nil {
		return nil, err
	}
	team.Status = TeamComplete

	secret, err := s.newPINSecret(laborID)
	if err != nil {
		return nil, err
	}
	if err := s.teams.SetPIN(ctx, laborID, secret); err != nil {
		return nil, err
	}
	team.PINSecret, team.PINAttempts = &secret, 0

	adm, err := s.teams.AdmissionContext(ctx, laborID)
	if err != nil {
		return nil, err
	}

	var batch []*outbound
	cancelled, err := s.assignments.CancelPending(ctx, laborID, now)
	if err != nil {
		return nil, err
	}
	for _, c := range cancelled {
		o, err := s.cancellationNotice(ctx, c, adm.RecordNumber, "el equipo ya está completo")
		if err != nil {
			return nil, err
		}
		batch = append(batch, o)
	}

	var members []string
	var accepted []*Assignment
	for _, a := range list {
		if a.ResponseStatus != ResponseAccepted {
			continue
		}
		accepted = append(accepted, a)
		name := strconv.FormatInt(a.StaffID, 10)
		if u, err := s.directory.Get(ctx, a.StaffID); err == nil {
			name = u.FullName
		}
		members = append(members, fmt.Sprintf("%s (%s)", name, strings.ToLower(a.Role)))
	}
	completeMsg := s.render(notification.TemplateTeamComplete, map[string]string{
		"patient": adm.PatientName,
		"record":  adm.RecordNumber,
		"members": strings.Join(members, ", "),
	})
	for _, a := range accepted {
		o, err := s.queue(ctx, &Notification{
			LaborAdmissionID: &laborID,
			StaffID:          a.StaffID,
			Kind:             KindTeamComplete,
			Message:          completeMsg,
		}, nil)
		if err != nil {
			return nil, err
		}
		batch = append(batch, o)
	}

	if team.RequestedBy != nil {
		pin, err := s.currentPIN(secret, now)
		if err != nil {
			return nil, err
		}
		o, err := s.queue(ctx, &Notification{
			LaborAdmissionID: &laborID,
			StaffID:          *team.RequestedBy,
			Kind:             KindPIN,
			Message: s.render(notification.TemplatePIN, map[string]string{
				"record":  adm.RecordNumber,
				"pin":     pin.Code,
				"minutes": strconv.Itoa(int(s.pin.Period.Minutes())),
			}),
		}, nil)
		if err != nil {
			return nil, err
		}
		batch = append(batch, o)
	}
	return batch, nil
}

func (s *Service) cancellationNotice(ctx context.Context, a *Assignment, record, reason string) (*outbound, error) {
	aid, laborID := a.ID, a.LaborAdmissionID
	return s.queue(ctx, &Notification{
		AssignmentID:     &aid,
		LaborAdmissionID: &laborID,
		StaffID:          a.StaffID,
		Kind:             KindCancellation,
		Message: s.render(notification.TemplateInvitationCancelled, map[string]string{
			"record": record,
			"reason": reason,
		}),
	}, nil)
}

// ReleaseTeam frees the team of a finished admission: accepted members'
// shifts become available again and open invitations are cancelled. It is
// a no-op when no team was ever requested.
//
// The writes join the caller's transaction when there is one. The returned
// func relays the cancellation notices and must only be called after that
// transaction has committed.
func (s *Service) ReleaseTeam(ctx context.Context, laborID int64) (func(context.Context), error) {
	batch, st, err := s.releaseTeamTx(ctx, laborID)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context) {
		if st != nil {
			s.logger.Info().Int64("labor_admission_id", laborID).Msg("team released")
		}
		s.deliver(ctx, batch)
		s.publishTeam(ctx, st)
	}, nil
}

func (s *Service) releaseTeamTx(ctx context.Context, laborID int64) ([]*outbound, *TeamStatus, error) {
	now := s.now()
	var batch []*outbound
	var st *TeamStatus
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		team, err := s.teams.GetForUpdate(ctx, laborID)
		if errors.Is(err, ErrTeamNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if team.Status == TeamReleased {
			return nil
		}
		if err := s.teams.SetStatus(ctx, laborID, TeamReleased); err != nil {
			return err
		}
		team.Status = TeamReleased

		list, err := s.assignments.ListByAdmission(ctx, laborID)
		if err != nil {
			return err
		}
		var shiftIDs []int64
		for _, a := range list {
			if a.ResponseStatus == ResponseAccepted && a.ShiftID != nil {
				shiftIDs = append(shiftIDs, *a.ShiftID)
			}
		}
		if err := s.shifts.SetAvailability(ctx, shiftIDs, Available); err != nil {
			return err
		}

		cancelled, err := s.assignments.CancelPending(ctx, laborID, now)
		if err != nil {
			return err
		}
		if len(cancelled) > 0 {
			adm, err := s.teams.AdmissionContext(ctx, laborID)
			if err != nil {
				return err
			}
			for _, c := range cancelled {
				o, err := s.cancellationNotice(ctx, c, adm.RecordNumber, "la atención fue finalizada")
				if err != nil {
					return err
				}
				batch = append(batch, o)
			}
			list, err = s.assignments.ListByAdmission(ctx, laborID)
			if err != nil {
				return err
			}
		}
		st = buildStatus(team, s.RequiredTeam(team.Babies), list)
		st.Ref = s.ref(laborID)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return batch, st, nil
}
