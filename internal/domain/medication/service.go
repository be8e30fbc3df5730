package medication

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/obstetric/obstetric/internal/domain/obstetric"
	"github.com/obstetric/obstetric/internal/platform/apperr"
	"github.com/obstetric/obstetric/internal/platform/auth"
	"github.com/obstetric/obstetric/internal/platform/db"
)

type RecordLookup interface {
	Get(ctx context.Context, id int64) (*obstetric.Record, error)
}

type Service struct {
	medications     MedicationRepository
	orders          OrderRepository
	administrations AdministrationRepository
	records         RecordLookup
	tx              db.TxRunner
	now             func() time.Time
}

func NewService(meds MedicationRepository, orders OrderRepository, admins AdministrationRepository,
	records RecordLookup, tx db.TxRunner) *Service {
	return &Service{
		medications:     meds,
		orders:          orders,
		administrations: admins,
		records:         records,
		tx:              tx,
		now:             time.Now,
	}
}

// -- Catalog --

func (s *Service) CreateMedication(ctx context.Context, m *Medication) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return apperr.Invalid("name is required")
	}
	m.Active = true
	return s.medications.Create(ctx, m)
}

// UpsertMedication is used by catalog seeding.
func (s *Service) UpsertMedication(ctx context.Context, m *Medication) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return apperr.Invalid("name is required")
	}
	return s.medications.UpsertByName(ctx, m)
}

func (s *Service) GetMedication(ctx context.Context, id int64) (*Medication, error) {
	return s.medications.GetByID(ctx, id)
}

// UpdateMedication edits catalog fields. Activation state is left untouched.
func (s *Service) UpdateMedication(ctx context.Context, m *Medication) error {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return apperr.Invalid("name is required")
	}
	existing, err := s.medications.GetByID(ctx, m.ID)
	if err != nil {
		return err
	}
	m.Active = existing.Active
	m.CreatedAt = existing.CreatedAt
	return s.medications.Update(ctx, m)
}

// DeactivateMedication retires a catalog entry. Existing orders are kept.
func (s *Service) DeactivateMedication(ctx context.Context, id int64) error {
	m, err := s.medications.GetByID(ctx, id)
	if err != nil {
		return err
	}
	m.Active = false
	return s.medications.Update(ctx, m)
}

func (s *Service) ListMedications(ctx context.Context, activeOnly bool, limit, offset int) ([]*Medication, int, error) {
	return s.medications.List(ctx, activeOnly, limit, offset)
}

// -- Orders --

func (s *Service) CreateOrder(ctx context.Context, o *Order) error {
	if o.ObstetricRecordID == 0 || o.MedicationID == 0 {
		return apperr.Invalid("obstetric_record_id and medication_id are required")
	}
	if o.FrequencyHours < 1 {
		return apperr.Invalid("frequency_hours must be at least 1")
	}
	if o.StartAt.IsZero() {
		o.StartAt = s.now()
	}
	if o.EndAt != nil && !o.EndAt.After(o.StartAt) {
		return apperr.Invalid("end_at must be after start_at")
	}
	o.Status = OrderActive
	if uid := auth.UserIDFromContext(ctx); uid != 0 {
		o.OrderedBy = &uid
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		rec, err := s.records.Get(ctx, o.ObstetricRecordID)
		if err != nil {
			return err
		}
		if rec.Status != obstetric.StatusOpen {
			return obstetric.ErrRecordClosed
		}
		med, err := s.medications.GetByID(ctx, o.MedicationID)
		if err != nil {
			return err
		}
		if !med.Active {
			return ErrMedicationRetired
		}
		o.Dose = strings.TrimSpace(o.Dose)
		if o.Dose == "" && med.DefaultDose != nil {
			o.Dose = *med.DefaultDose
		}
		if o.Dose == "" {
			return apperr.Invalid("dose is required")
		}
		if o.Route == nil {
			o.Route = med.Route
		}
		return s.orders.Create(ctx, o)
	})
}

func (s *Service) GetOrder(ctx context.Context, id int64) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, f OrderFilter, limit, offset int) ([]*Order, int, error) {
	switch f.Status {
	case "", OrderActive, OrderSuspended, OrderCompleted:
	default:
		return nil, 0, apperr.Invalid("invalid status: %s", f.Status)
	}
	return s.orders.List(ctx, f, limit, offset)
}

func (s *Service) setOrderStatus(ctx context.Context, id int64, status string) (*Order, error) {
	var out *Order
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.Status != OrderActive {
			return ErrOrderNotActive
		}
		if err := s.orders.SetStatus(ctx, id, status); err != nil {
			return err
		}
		o.Status = status
		out = o
		return nil
	})
	return out, err
}

func (s *Service) SuspendOrder(ctx context.Context, id int64) (*Order, error) {
	return s.setOrderStatus(ctx, id, OrderSuspended)
}

func (s *Service) CompleteOrder(ctx context.Context, id int64) (*Order, error) {
	return s.setOrderStatus(ctx, id, OrderCompleted)
}

// -- Administration --

// RecordAdministration registers a dose given for an ACTIVA order.
func (s *Service) RecordAdministration(ctx context.Context, a *Administration) error {
	if a.OrderID == 0 {
		return apperr.Invalid("order_id is required")
	}
	now := s.now()
	if a.AdministeredAt.IsZero() {
		a.AdministeredAt = now
	}
	if a.AdministeredAt.After(now.Add(5 * time.Minute)) {
		return apperr.Invalid("administered_at cannot be in the future")
	}
	if uid := auth.UserIDFromContext(ctx); uid != 0 {
		a.AdministeredBy = &uid
	}

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, a.OrderID)
		if err != nil {
			return err
		}
		if o.Status != OrderActive {
			return ErrOrderNotActive
		}
		if a.AdministeredAt.Before(o.StartAt) {
			return apperr.Invalid("administered_at precedes the order start")
		}
		if a.Dose == nil || strings.TrimSpace(*a.Dose) == "" {
			dose := o.Dose
			a.Dose = &dose
		}
		return s.administrations.Create(ctx, a)
	})
}

func (s *Service) ListAdministrations(ctx context.Context, orderID int64) ([]*Administration, error) {
	if _, err := s.orders.GetByID(ctx, orderID); err != nil {
		return nil, err
	}
	return s.administrations.ListByOrder(ctx, orderID)
}

// NextDue is the start time for an order never administered, otherwise the
// last administration plus the order frequency.
func NextDue(o *ActiveOrder) time.Time {
	if o.LastAdministeredAt == nil {
		return o.StartAt
	}
	return o.LastAdministeredAt.Add(time.Duration(o.FrequencyHours) * time.Hour)
}

// ListDue returns the active orders whose next dose is due at or before at,
// most overdue first.
func (s *Service) ListDue(ctx context.Context, at time.Time) ([]*DueItem, error) {
	active, err := s.orders.ListActive(ctx, at)
	if err != nil {
		return nil, err
	}
	items := make([]*DueItem, 0, len(active))
	for _, o := range active {
		due := NextDue(o)
		if due.After(at) {
			continue
		}
		if o.EndAt != nil && !due.Before(*o.EndAt) {
			continue
		}
		items = append(items, &DueItem{
			ActiveOrder: *o,
			DueAt:       due,
			Overdue:     at.Sub(due) > time.Duration(o.FrequencyHours)*time.Hour/4,
		})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].DueAt.Before(items[j].DueAt) })
	return items, nil
}
