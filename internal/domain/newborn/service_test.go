package newborn

import (
	"context"
	"errors"
	"testing"

	"github.com/obstetric/obstetric/internal/domain/labor"
	"github.com/obstetric/obstetric/internal/platform/apperr"
	"github.com/obstetric/obstetric/internal/platform/db"
)

type mockRepo struct {
	store  map[int64]*Record
	nextID int64
}

func (m *mockRepo) Create(_ context.Context, r *Record) error {
	m.nextID++
	r.ID = m.nextID
	cp := *r
	m.store[r.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*Record, error) {
	r, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, r *Record) error {
	if _, ok := m.store[r.ID]; !ok {
		return ErrNotFound
	}
	cp := *r
	m.store[r.ID] = &cp
	return nil
}

func (m *mockRepo) ListByDelivery(_ context.Context, deliveryID int64) ([]*Record, error) {
	var out []*Record
	for _, r := range m.store {
		if r.DeliveryRecordID == deliveryID {
			out = append(out, r)
		}
	}
	return out, nil
}

type mockDeliveries map[int64]*labor.Delivery

func (m mockDeliveries) GetDelivery(_ context.Context, id int64) (*labor.Delivery, error) {
	d, ok := m[id]
	if !ok {
		return nil, labor.ErrDeliveryNotFound
	}
	return d, nil
}

func newTestService() (*Service, *mockRepo) {
	repo := &mockRepo{store: make(map[int64]*Record)}
	deliveries := mockDeliveries{1: {ID: 1, DeliveryType: labor.DeliveryEutocic}}
	return NewService(repo, deliveries, db.NoTx{}), repo
}

func validRecord() *Record {
	return &Record{DeliveryRecordID: 1, Sex: "f", WeightGrams: 3250, Apgar1: 8, Apgar5: 9}
}

func TestCreate(t *testing.T) {
	svc, _ := newTestService()
	r := validRecord()
	if err := svc.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.ID == 0 || r.BirthOrder != 1 || r.Sex != "F" || r.Status != StatusAlive {
		t.Errorf("unexpected defaults %+v", r)
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _ := newTestService()
	tests := []struct {
		name   string
		mutate func(r *Record)
	}{
		{"missing delivery", func(r *Record) { r.DeliveryRecordID = 0 }},
		{"apgar above 10", func(r *Record) { r.Apgar1 = 11 }},
		{"negative apgar", func(r *Record) { r.Apgar5 = -1 }},
		{"underweight", func(r *Record) { r.WeightGrams = 299 }},
		{"overweight", func(r *Record) { r.WeightGrams = 7001 }},
		{"negative birth order", func(r *Record) { r.BirthOrder = -1 }},
		{"bad sex", func(r *Record) { r.Sex = "X" }},
		{"bad status", func(r *Record) { r.Status = "DORMIDO" }},
		{"bad length", func(r *Record) { l := 0.0; r.LengthCM = &l }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(r)
			if err := svc.Create(context.Background(), r); apperr.KindOf(err) != apperr.KindInvalid {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCreate_Boundaries(t *testing.T) {
	svc, _ := newTestService()
	for i, w := range []int{MinWeightGrams, MaxWeightGrams} {
		r := validRecord()
		r.WeightGrams = w
		r.BirthOrder = i + 1
		r.Apgar1, r.Apgar5 = 0, 10
		if err := svc.Create(context.Background(), r); err != nil {
			t.Errorf("weight %d: unexpected error %v", w, err)
		}
	}
}

func TestCreate_Twins(t *testing.T) {
	svc, _ := newTestService()
	first := validRecord()
	if err := svc.Create(context.Background(), first); err != nil {
		t.Fatalf("first: %v", err)
	}
	dup := validRecord()
	if err := svc.Create(context.Background(), dup); !errors.Is(err, ErrBirthOrderTaken) {
		t.Errorf("expected ErrBirthOrderTaken, got %v", err)
	}
	second := validRecord()
	second.BirthOrder = 2
	if err := svc.Create(context.Background(), second); err != nil {
		t.Fatalf("second: %v", err)
	}
	items, err := svc.ListByDelivery(context.Background(), 1)
	if err != nil || len(items) != 2 {
		t.Errorf("expected 2 newborns, got %d (%v)", len(items), err)
	}
}

func TestCreate_UnknownDelivery(t *testing.T) {
	svc, _ := newTestService()
	r := validRecord()
	r.DeliveryRecordID = 42
	if err := svc.Create(context.Background(), r); !errors.Is(err, labor.ErrDeliveryNotFound) {
		t.Errorf("expected ErrDeliveryNotFound, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	svc, _ := newTestService()
	r := validRecord()
	_ = svc.Create(context.Background(), r)

	apgar := 10
	yes := true
	got, err := svc.Update(context.Background(), r.ID, UpdateInput{Apgar5: &apgar, VitaminK: &yes, BCG: &yes})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Apgar5 != 10 || !got.VitaminK || !got.BCG {
		t.Errorf("unexpected update result %+v", got)
	}

	bad := 12
	if _, err := svc.Update(context.Background(), r.ID, UpdateInput{Apgar1: &bad}); apperr.KindOf(err) != apperr.KindInvalid {
		t.Errorf("expected validation error, got %v", err)
	}
	if _, err := svc.Update(context.Background(), 99, UpdateInput{}); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
