package staffing

import (
	"context"
	"strconv"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const pinIssuer = "Maternidad"

func (s *Service) totpOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    uint(s.pin.Period / time.Second),
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}
}

func (s *Service) newPINSecret(laborID int64) (string, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      pinIssuer,
		AccountName: "parto-" + strconv.FormatInt(laborID, 10),
		Period:      uint(s.pin.Period / time.Second),
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", err
	}
	return key.Secret(), nil
}

func (s *Service) currentPIN(secret string, at time.Time) (*PIN, error) {
	opts := s.totpOpts()
	code, err := totp.GenerateCodeCustom(secret, at, opts)
	if err != nil {
		return nil, err
	}
	period := int64(opts.Period)
	end := (at.Unix()/period + 1) * period
	return &PIN{Code: code, ExpiresAt: time.Unix(end, 0).UTC()}, nil
}

// IssuePIN returns the current confirmation code of a complete team.
func (s *Service) IssuePIN(ctx context.Context, laborID int64) (*PIN, error) {
	t, err := s.teams.Get(ctx, laborID)
	if err != nil {
		return nil, err
	}
	if t.Status != TeamComplete || t.PINSecret == nil {
		return nil, ErrTeamNotComplete
	}
	if t.PINAttempts >= s.pin.MaxAttempts {
		return nil, ErrPINLocked
	}
	return s.currentPIN(*t.PINSecret, s.now())
}

// ConfirmPIN checks pin against the team's TOTP secret. A match confirms
// the team and marks the members' shifts busy; a miss counts toward the
// lockout.
func (s *Service) ConfirmPIN(ctx context.Context, laborID int64, pin string) (*TeamStatus, error) {
	now := s.now()
	var (
		st     *TeamStatus
		denied error
	)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		t, err := s.teams.GetForUpdate(ctx, laborID)
		if err != nil {
			return err
		}
		if t.Status != TeamComplete || t.PINSecret == nil {
			return ErrTeamNotComplete
		}
		if t.PINAttempts >= s.pin.MaxAttempts {
			return ErrPINLocked
		}

		ok, err := totp.ValidateCustom(pin, *t.PINSecret, now, s.totpOpts())
		if err != nil || !ok {
			n, err := s.teams.IncPINAttempts(ctx, laborID)
			if err != nil {
				return err
			}
			denied = ErrInvalidPIN
			if n >= s.pin.MaxAttempts {
				denied = ErrPINLocked
			}
			return nil
		}

		if err := s.teams.SetStatus(ctx, laborID, TeamConfirmed); err != nil {
			return err
		}
		t.Status = TeamConfirmed
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
		if err := s.shifts.SetAvailability(ctx, shiftIDs, Busy); err != nil {
			return err
		}
		st = buildStatus(t, s.RequiredTeam(t.Babies), list)
		st.Ref = s.ref(laborID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if denied != nil {
		s.logger.Warn().Int64("labor_admission_id", laborID).Err(denied).Msg("team PIN rejected")
		return nil, denied
	}
	s.logger.Info().Int64("labor_admission_id", laborID).Msg("team confirmed")
	s.publishTeam(ctx, st)
	return st, nil
}

// ResetPIN rotates the secret of a complete team and clears the lockout.
func (s *Service) ResetPIN(ctx context.Context, laborID int64) (*PIN, error) {
	var pin *PIN
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		t, err := s.teams.GetForUpdate(ctx, laborID)
		if err != nil {
			return err
		}
		if t.Status != TeamComplete {
			return ErrTeamNotComplete
		}
		secret, err := s.newPINSecret(laborID)
		if err != nil {
			return err
		}
		if err := s.teams.SetPIN(ctx, laborID, secret); err != nil {
			return err
		}
		pin, err = s.currentPIN(secret, s.now())
		return err
	})
	return pin, err
}
