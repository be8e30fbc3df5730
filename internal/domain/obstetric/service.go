package obstetric

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/obstetric/obstetric/internal/domain/patient"
	"github.com/obstetric/obstetric/internal/platform/apperr"
	"github.com/obstetric/obstetric/internal/platform/auth"
	"github.com/obstetric/obstetric/internal/platform/db"
)

// PatientLookup resolves the patient a record belongs to.
type PatientLookup interface {
	Get(ctx context.Context, id int64) (*patient.Patient, error)
}

type Service struct {
	records  Repository
	patients PatientLookup
	tx       db.TxRunner
	now      func() time.Time
}

func NewService(records Repository, patients PatientLookup, tx db.TxRunner) *Service {
	return &Service{records: records, patients: patients, tx: tx, now: time.Now}
}

// EstimatedDueDate applies Naegele's rule to the last menstrual period.
func EstimatedDueDate(lmp time.Time) time.Time {
	return lmp.AddDate(0, 0, gestationDays)
}

// FormatRecordNumber renders FO-<year>-<seq> with a five digit sequence.
func FormatRecordNumber(year, seq int) string {
	return fmt.Sprintf("FO-%d-%05d", year, seq)
}

func validateCounts(r *Record) error {
	for name, n := range map[string]int{
		"gravida": r.Gravida, "para": r.Para, "abortions": r.Abortions, "cesareans": r.Cesareans,
	} {
		if n < 0 {
			return apperr.Invalid("%s must not be negative", name)
		}
	}
	if r.Para+r.Abortions > r.Gravida && r.Gravida > 0 {
		return apperr.Invalid("para plus abortions cannot exceed gravida")
	}
	if r.Cesareans > r.Para && r.Para > 0 {
		return apperr.Invalid("cesareans cannot exceed para")
	}
	if r.ExpectedBabies < 1 || r.ExpectedBabies > MaxExpectedBabies {
		return apperr.Invalid("expected_babies must be between 1 and %d", MaxExpectedBabies)
	}
	if !validRisk[r.RiskLevel] {
		return apperr.Invalid("invalid risk_level: %s", r.RiskLevel)
	}
	return nil
}

func (s *Service) validateLMP(lmp *time.Time) error {
	if lmp == nil {
		return nil
	}
	now := s.now()
	if lmp.After(now) {
		return apperr.Invalid("last_menstrual_period cannot be in the future")
	}
	if now.Sub(*lmp) > 45*7*24*time.Hour {
		return apperr.Invalid("last_menstrual_period is more than 45 weeks ago")
	}
	return nil
}

func (s *Service) Create(ctx context.Context, r *Record) error {
	if r.PatientID == 0 {
		return apperr.Invalid("patient_id is required")
	}
	if r.ExpectedBabies == 0 {
		r.ExpectedBabies = 1
	}
	if r.RiskLevel == "" {
		r.RiskLevel = RiskLow
	}
	r.RiskLevel = strings.ToUpper(r.RiskLevel)
	if err := validateCounts(r); err != nil {
		return err
	}
	if err := s.validateLMP(r.LastMenstrualPeriod); err != nil {
		return err
	}
	if r.LastMenstrualPeriod != nil && r.EstimatedDueDate == nil {
		edd := EstimatedDueDate(*r.LastMenstrualPeriod)
		r.EstimatedDueDate = &edd
	}
	r.Status = StatusOpen
	r.ClosedAt = nil
	if uid := auth.UserIDFromContext(ctx); uid != 0 {
		r.CreatedBy = &uid
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := s.patients.Get(ctx, r.PatientID)
		if err != nil {
			return err
		}
		if p.Status != patient.StatusActive {
			return ErrPatientClosed
		}
		r.RecordNumber = strings.TrimSpace(r.RecordNumber)
		if r.RecordNumber == "" {
			year := s.now().Year()
			seq, err := s.records.NextSequence(ctx, year)
			if err != nil {
				return err
			}
			r.RecordNumber = FormatRecordNumber(year, seq)
		}
		return s.records.Create(ctx, r)
	})
}

func (s *Service) Get(ctx context.Context, id int64) (*Record, error) {
	return s.records.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Record, int, error) {
	if f.Status != "" && f.Status != StatusOpen && f.Status != StatusClosed {
		return nil, 0, apperr.Invalid("invalid status: %s", f.Status)
	}
	if f.RiskLevel != "" && !validRisk[f.RiskLevel] {
		return nil, 0, apperr.Invalid("invalid risk_level: %s", f.RiskLevel)
	}
	return s.records.List(ctx, f, limit, offset)
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*Record, error) {
	r, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status == StatusClosed {
		return nil, ErrRecordClosed
	}
	setInt := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	setInt(&r.Gravida, in.Gravida)
	setInt(&r.Para, in.Para)
	setInt(&r.Abortions, in.Abortions)
	setInt(&r.Cesareans, in.Cesareans)
	setInt(&r.ExpectedBabies, in.ExpectedBabies)
	if in.RiskLevel != nil {
		r.RiskLevel = strings.ToUpper(*in.RiskLevel)
	}
	if in.Pathologies != nil {
		r.Pathologies = in.Pathologies
	}
	if in.PrenatalControl != nil {
		r.PrenatalControl = *in.PrenatalControl
	}
	if in.Notes != nil {
		r.Notes = in.Notes
	}
	if in.LastMenstrualPeriod != nil {
		if err := s.validateLMP(in.LastMenstrualPeriod); err != nil {
			return nil, err
		}
		r.LastMenstrualPeriod = in.LastMenstrualPeriod
		if in.EstimatedDueDate == nil {
			edd := EstimatedDueDate(*in.LastMenstrualPeriod)
			r.EstimatedDueDate = &edd
		}
	}
	if in.EstimatedDueDate != nil {
		r.EstimatedDueDate = in.EstimatedDueDate
	}
	if err := validateCounts(r); err != nil {
		return nil, err
	}
	if err := s.records.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Service) Close(ctx context.Context, id int64) (*Record, error) {
	r, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.Status == StatusClosed {
		return nil, ErrRecordClosed
	}
	now := s.now()
	r.Status = StatusClosed
	r.ClosedAt = &now
	if err := s.records.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// GestationalAge computes completed weeks and days since the last menstrual
// period at the given instant.
func (s *Service) GestationalAge(ctx context.Context, id int64, at time.Time) (*GestationalAge, error) {
	r, err := s.records.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r.LastMenstrualPeriod == nil {
		return nil, apperr.Invalid("record has no last_menstrual_period")
	}
	return gestationalAge(*r.LastMenstrualPeriod, at)
}

func gestationalAge(lmp, at time.Time) (*GestationalAge, error) {
	lmpDay := time.Date(lmp.Year(), lmp.Month(), lmp.Day(), 0, 0, 0, 0, time.UTC)
	atDay := time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
	days := int(atDay.Sub(lmpDay).Hours() / 24)
	if days < 0 {
		return nil, apperr.Invalid("date is before last_menstrual_period")
	}
	return &GestationalAge{Weeks: days / 7, Days: days % 7}, nil
}
