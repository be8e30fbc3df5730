package labor

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/obstetric/obstetric/internal/domain/obstetric"
	"github.com/obstetric/obstetric/internal/domain/rooms"
	"github.com/obstetric/obstetric/internal/platform/apperr"
	"github.com/obstetric/obstetric/internal/platform/auth"
	"github.com/obstetric/obstetric/internal/platform/db"
	"github.com/obstetric/obstetric/internal/platform/websocket"
)

type RecordLookup interface {
	Get(ctx context.Context, id int64) (*obstetric.Record, error)
}

type RoomKeeper interface {
	Occupy(ctx context.Context, id int64) (*rooms.Room, error)
	Release(ctx context.Context, id int64) (*rooms.Room, error)
}

// TeamReleaser frees the delivery team assembled for an admission. The
// returned func runs once the releasing transaction has committed.
type TeamReleaser interface {
	ReleaseTeam(ctx context.Context, laborID int64) (func(context.Context), error)
}

type Service struct {
	admissions AdmissionRepository
	deliveries DeliveryRepository
	records    RecordLookup
	rooms      RoomKeeper
	teams      TeamReleaser
	tx         db.TxRunner
	events     websocket.Publisher
	ref        func(int64) string
	logger     zerolog.Logger
	now        func() time.Time
}

func NewService(admissions AdmissionRepository, deliveries DeliveryRepository, records RecordLookup,
	roomKeeper RoomKeeper, tx db.TxRunner, logger zerolog.Logger) *Service {
	return &Service{
		admissions: admissions,
		deliveries: deliveries,
		records:    records,
		rooms:      roomKeeper,
		tx:         tx,
		events:     websocket.NopPublisher{},
		ref:        func(int64) string { return "" },
		logger:     logger.With().Str("component", "labor").Logger(),
		now:        time.Now,
	}
}

// SetTeamReleaser wires the staffing hook run on Finalize. It is set after
// construction because staffing reads admissions too.
func (s *Service) SetTeamReleaser(t TeamReleaser) {
	s.teams = t
}

// SetEvents makes the service publish dashboard events; ref encodes ids for
// the event payload.
func (s *Service) SetEvents(p websocket.Publisher, ref func(int64) string) {
	s.events = p
	s.ref = ref
}

func (s *Service) publish(ctx context.Context, typ string, a *Admission) {
	err := s.events.Publish(ctx, websocket.Event{
		Type:  typ,
		Topic: websocket.TopicDashboard,
		Ref:   s.ref(a.ID),
		Data:  map[string]interface{}{"status": a.Status, "room_id": a.RoomID},
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("event", typ).Int64("labor_id", a.ID).Msg("publish failed")
	}
}

func validateProgress(dilation *float64, membranes *string, fhr *int) error {
	if dilation != nil && (*dilation < 0 || *dilation > MaxDilationCM) {
		return apperr.Invalid("cervical_dilation_cm must be between 0 and %d", MaxDilationCM)
	}
	if membranes != nil && *membranes != MembranesIntact && *membranes != MembranesRuptured {
		return apperr.Invalid("invalid membranes: %s", *membranes)
	}
	if fhr != nil && (*fhr < 50 || *fhr > 250) {
		return apperr.Invalid("fetal_heart_rate must be between 50 and 250")
	}
	return nil
}

// Admit opens a labor admission for an ABIERTA record. When a room is given
// it is occupied in the same transaction.
func (s *Service) Admit(ctx context.Context, a *Admission) error {
	if a.ObstetricRecordID == 0 {
		return apperr.Invalid("obstetric_record_id is required")
	}
	if a.Membranes != nil {
		m := strings.ToUpper(*a.Membranes)
		a.Membranes = &m
	}
	if err := validateProgress(a.CervicalDilationCM, a.Membranes, a.FetalHeartRate); err != nil {
		return err
	}
	if a.AdmittedAt.IsZero() {
		a.AdmittedAt = s.now()
	}
	if a.AdmittedAt.After(s.now().Add(time.Minute)) {
		return apperr.Invalid("admitted_at cannot be in the future")
	}
	a.Status = StatusLabor
	a.FinalizedAt = nil
	if uid := auth.UserIDFromContext(ctx); uid != 0 {
		a.AdmittedBy = &uid
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		rec, err := s.records.Get(ctx, a.ObstetricRecordID)
		if err != nil {
			return err
		}
		if rec.Status != obstetric.StatusOpen {
			return ErrRecordNotOpen
		}
		if _, err := s.admissions.GetOpenByRecord(ctx, a.ObstetricRecordID); err == nil {
			return ErrAlreadyAdmitted
		} else if !errors.Is(err, ErrNotFound) {
			return err
		}
		if a.RoomID != nil {
			if _, err := s.rooms.Occupy(ctx, *a.RoomID); err != nil {
				return err
			}
		}
		return s.admissions.Create(ctx, a)
	})
	if err != nil {
		return err
	}
	s.publish(ctx, websocket.EventLaborAdmitted, a)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Admission, error) {
	return s.admissions.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Admission, int, error) {
	switch f.Status {
	case "", StatusLabor, StatusExpulsive, StatusFinalized:
	default:
		return nil, 0, apperr.Invalid("invalid status: %s", f.Status)
	}
	return s.admissions.List(ctx, f, limit, offset)
}

// UpdateProgress records vitals and labor progress on an open admission.
func (s *Service) UpdateProgress(ctx context.Context, id int64, in ProgressInput) (*Admission, error) {
	if in.Membranes != nil {
		m := strings.ToUpper(*in.Membranes)
		in.Membranes = &m
	}
	if err := validateProgress(in.CervicalDilationCM, in.Membranes, in.FetalHeartRate); err != nil {
		return nil, err
	}
	var out *Admission
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.admissions.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !a.Open() {
			return ErrFinalized
		}
		if in.CervicalDilationCM != nil {
			a.CervicalDilationCM = in.CervicalDilationCM
		}
		if in.Membranes != nil {
			a.Membranes = in.Membranes
		}
		if in.Contractions != nil {
			a.Contractions = in.Contractions
		}
		if in.FetalHeartRate != nil {
			a.FetalHeartRate = in.FetalHeartRate
		}
		if in.Notes != nil {
			a.Notes = in.Notes
		}
		if err := s.admissions.Update(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

// AdvanceToExpulsive moves TRABAJO_DE_PARTO to EXPULSIVO.
func (s *Service) AdvanceToExpulsive(ctx context.Context, id int64) (*Admission, error) {
	var out *Admission
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.admissions.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if a.Status != StatusLabor {
			return ErrInvalidState
		}
		a.Status = StatusExpulsive
		if err := s.admissions.Update(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, websocket.EventLaborUpdated, out)
	return out, nil
}

// RegisterDelivery records the birth for an admission that is not finalized.
func (s *Service) RegisterDelivery(ctx context.Context, admissionID int64, d *Delivery) error {
	d.DeliveryType = strings.ToUpper(d.DeliveryType)
	if !validDeliveryTypes[d.DeliveryType] {
		return apperr.Invalid("invalid delivery_type: %s", d.DeliveryType)
	}
	if d.TearDegree < 0 || d.TearDegree > MaxTearDegree {
		return apperr.Invalid("tear_degree must be between 0 and %d", MaxTearDegree)
	}
	if d.BloodLossML != nil && *d.BloodLossML < 0 {
		return apperr.Invalid("blood_loss_ml must not be negative")
	}
	if d.DeliveredAt.IsZero() {
		d.DeliveredAt = s.now()
	}
	d.LaborAdmissionID = admissionID
	if uid := auth.UserIDFromContext(ctx); uid != 0 && d.AttendedBy == nil {
		d.AttendedBy = &uid
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.admissions.GetForUpdate(ctx, admissionID)
		if err != nil {
			return err
		}
		if !a.Open() {
			return ErrFinalized
		}
		if d.DeliveredAt.Before(a.AdmittedAt) {
			return apperr.Invalid("delivered_at cannot precede admitted_at")
		}
		if _, err := s.deliveries.GetByAdmission(ctx, admissionID); err == nil {
			return ErrDeliveryExists
		} else if !errors.Is(err, ErrDeliveryNotFound) {
			return err
		}
		return s.deliveries.Create(ctx, d)
	})
}

func (s *Service) GetDelivery(ctx context.Context, id int64) (*Delivery, error) {
	return s.deliveries.GetByID(ctx, id)
}

func (s *Service) GetDeliveryByAdmission(ctx context.Context, admissionID int64) (*Delivery, error) {
	return s.deliveries.GetByAdmission(ctx, admissionID)
}

// Finalize closes the admission, frees its room and releases the delivery
// team, all in one transaction.
func (s *Service) Finalize(ctx context.Context, id int64) (*Admission, error) {
	var out *Admission
	var afterCommit func(context.Context)
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.admissions.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !a.Open() {
			return ErrFinalized
		}
		now := s.now()
		a.Status = StatusFinalized
		a.FinalizedAt = &now
		if err := s.admissions.Update(ctx, a); err != nil {
			return err
		}
		if a.RoomID != nil {
			if _, err := s.rooms.Release(ctx, *a.RoomID); err != nil {
				return err
			}
		}
		if s.teams != nil {
			afterCommit, err = s.teams.ReleaseTeam(ctx, a.ID)
			if err != nil {
				return err
			}
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	if afterCommit != nil {
		afterCommit(ctx)
	}
	s.publish(ctx, websocket.EventLaborFinalized, out)
	return out, nil
}
