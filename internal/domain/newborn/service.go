package newborn

import (
	"context"
	"strings"

	"github.com/obstetric/obstetric/internal/domain/labor"
	"github.com/obstetric/obstetric/internal/platform/apperr"
	"github.com/obstetric/obstetric/internal/platform/auth"
	"github.com/obstetric/obstetric/internal/platform/db"
)

type DeliveryLookup interface {
	GetDelivery(ctx context.Context, id int64) (*labor.Delivery, error)
}

type Service struct {
	newborns   Repository
	deliveries DeliveryLookup
	tx         db.TxRunner
}

func NewService(newborns Repository, deliveries DeliveryLookup, tx db.TxRunner) *Service {
	return &Service{newborns: newborns, deliveries: deliveries, tx: tx}
}

func validate(r *Record) error {
	if r.BirthOrder < 1 {
		return apperr.Invalid("birth_order must be at least 1")
	}
	if !validSex[r.Sex] {
		return apperr.Invalid("invalid sex: %s", r.Sex)
	}
	if r.WeightGrams < MinWeightGrams || r.WeightGrams > MaxWeightGrams {
		return apperr.Invalid("weight_grams must be between %d and %d", MinWeightGrams, MaxWeightGrams)
	}
	if r.Apgar1 < 0 || r.Apgar1 > MaxApgar || r.Apgar5 < 0 || r.Apgar5 > MaxApgar {
		return apperr.Invalid("apgar scores must be between 0 and %d", MaxApgar)
	}
	if r.LengthCM != nil && (*r.LengthCM <= 0 || *r.LengthCM > 70) {
		return apperr.Invalid("length_cm must be between 0 and 70")
	}
	if r.HeadCircumferenceCM != nil && (*r.HeadCircumferenceCM <= 0 || *r.HeadCircumferenceCM > 50) {
		return apperr.Invalid("head_circumference_cm must be between 0 and 50")
	}
	if r.Status != StatusAlive && r.Status != StatusDeceased {
		return apperr.Invalid("invalid status: %s", r.Status)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, r *Record) error {
	if r.DeliveryRecordID == 0 {
		return apperr.Invalid("delivery_record_id is required")
	}
	if r.BirthOrder == 0 {
		r.BirthOrder = 1
	}
	r.Sex = strings.ToUpper(r.Sex)
	if r.Status == "" {
		r.Status = StatusAlive
	}
	if err := validate(r); err != nil {
		return err
	}
	if uid := auth.UserIDFromContext(ctx); uid != 0 {
		r.RecordedBy = &uid
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.deliveries.GetDelivery(ctx, r.DeliveryRecordID); err != nil {
			return err
		}
		siblings, err := s.newborns.ListByDelivery(ctx, r.DeliveryRecordID)
		if err != nil {
			return err
		}
		for _, sib := range siblings {
			if sib.BirthOrder == r.BirthOrder {
				return ErrBirthOrderTaken
			}
		}
		return s.newborns.Create(ctx, r)
	})
}

func (s *Service) Get(ctx context.Context, id int64) (*Record, error) {
	return s.newborns.GetByID(ctx, id)
}

func (s *Service) ListByDelivery(ctx context.Context, deliveryID int64) ([]*Record, error) {
	if _, err := s.deliveries.GetDelivery(ctx, deliveryID); err != nil {
		return nil, err
	}
	return s.newborns.ListByDelivery(ctx, deliveryID)
}

func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*Record, error) {
	r, err := s.newborns.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.WeightGrams != nil {
		r.WeightGrams = *in.WeightGrams
	}
	if in.LengthCM != nil {
		r.LengthCM = in.LengthCM
	}
	if in.HeadCircumferenceCM != nil {
		r.HeadCircumferenceCM = in.HeadCircumferenceCM
	}
	if in.Apgar1 != nil {
		r.Apgar1 = *in.Apgar1
	}
	if in.Apgar5 != nil {
		r.Apgar5 = *in.Apgar5
	}
	if in.VitaminK != nil {
		r.VitaminK = *in.VitaminK
	}
	if in.HepatitisB != nil {
		r.HepatitisB = *in.HepatitisB
	}
	if in.BCG != nil {
		r.BCG = *in.BCG
	}
	if in.Status != nil {
		r.Status = strings.ToUpper(*in.Status)
	}
	if in.Notes != nil {
		r.Notes = in.Notes
	}
	if err := validate(r); err != nil {
		return nil, err
	}
	if err := s.newborns.Update(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}
