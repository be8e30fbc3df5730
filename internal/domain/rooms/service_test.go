package rooms

import (
	"context"
	"errors"
	"testing"

	"github.com/obstetric/obstetric/internal/platform/apperr"
	"github.com/obstetric/obstetric/internal/platform/db"
)

type mockRepo struct {
	store  map[int64]*Room
	nextID int64
	locks  int
}

func newMockRepo() *mockRepo {
	return &mockRepo{store: make(map[int64]*Room)}
}

func (m *mockRepo) Create(_ context.Context, r *Room) error {
	for _, x := range m.store {
		if x.Code == r.Code {
			return ErrCodeTaken
		}
	}
	m.nextID++
	r.ID = m.nextID
	cp := *r
	m.store[r.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*Room, error) {
	r, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRepo) GetForUpdate(ctx context.Context, id int64) (*Room, error) {
	m.locks++
	return m.GetByID(ctx, id)
}

func (m *mockRepo) Update(_ context.Context, r *Room) error {
	x, ok := m.store[r.ID]
	if !ok {
		return ErrNotFound
	}
	x.Code, x.Name, x.Kind = r.Code, r.Name, r.Kind
	return nil
}

func (m *mockRepo) SetStatus(_ context.Context, id int64, status string) error {
	x, ok := m.store[id]
	if !ok {
		return ErrNotFound
	}
	x.Status = status
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.store[id]; !ok {
		return ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, f ListFilter, limit, offset int) ([]*Room, int, error) {
	var out []*Room
	for _, r := range m.store {
		if (f.Kind == "" || r.Kind == f.Kind) && (f.Status == "" || r.Status == f.Status) {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *mockRepo) UpsertByCode(ctx context.Context, r *Room) error {
	for _, x := range m.store {
		if x.Code == r.Code {
			x.Name, x.Kind = r.Name, r.Kind
			r.ID, r.Status = x.ID, x.Status
			return nil
		}
	}
	r.Status = StatusAvailable
	return m.Create(ctx, r)
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, db.NoTx{}), repo
}

func TestCreate(t *testing.T) {
	svc, _ := newTestService()
	r := &Room{Code: " p-1 ", Name: "Parto 1", Kind: "parto"}
	if err := svc.Create(context.Background(), r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Code != "P-1" || r.Kind != KindDelivery || r.Status != StatusAvailable {
		t.Errorf("unexpected room %+v", r)
	}

	tests := []struct {
		name string
		r    Room
	}{
		{"missing code", Room{Name: "X", Kind: KindDelivery}},
		{"missing name", Room{Code: "X", Kind: KindDelivery}},
		{"bad kind", Room{Code: "X", Name: "X", Kind: "COCINA"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.r
			if err := svc.Create(context.Background(), &r); apperr.KindOf(err) != apperr.KindInvalid {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestOccupyRelease(t *testing.T) {
	svc, repo := newTestService()
	r := &Room{Code: "P-1", Name: "Parto 1", Kind: KindDelivery}
	_ = svc.Create(context.Background(), r)

	got, err := svc.Occupy(context.Background(), r.ID)
	if err != nil {
		t.Fatalf("occupy: %v", err)
	}
	if got.Status != StatusOccupied {
		t.Errorf("expected OCUPADA, got %s", got.Status)
	}
	if _, err := svc.Occupy(context.Background(), r.ID); !errors.Is(err, ErrRoomOccupied) {
		t.Errorf("expected ErrRoomOccupied, got %v", err)
	}
	if repo.locks != 2 {
		t.Errorf("expected each state change to lock the row, got %d locks", repo.locks)
	}

	available, total, _ := svc.ListAvailable(context.Background(), "", 20, 0)
	if total != 0 || len(available) != 0 {
		t.Errorf("expected no available rooms, got %d", total)
	}

	if got, err = svc.Release(context.Background(), r.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	if got.Status != StatusAvailable {
		t.Errorf("expected DISPONIBLE, got %s", got.Status)
	}
	if _, err := svc.Release(context.Background(), r.ID); err != nil {
		t.Errorf("expected releasing a free room to succeed, got %v", err)
	}
}

func TestOccupy_NotFound(t *testing.T) {
	svc, _ := newTestService()
	if _, err := svc.Occupy(context.Background(), 9); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDelete_Occupied(t *testing.T) {
	svc, repo := newTestService()
	r := &Room{Code: "P-1", Name: "Parto 1", Kind: KindDelivery}
	_ = svc.Create(context.Background(), r)
	_, _ = svc.Occupy(context.Background(), r.ID)

	if err := svc.Delete(context.Background(), r.ID); !errors.Is(err, ErrRoomOccupied) {
		t.Errorf("expected ErrRoomOccupied, got %v", err)
	}
	_, _ = svc.Release(context.Background(), r.ID)
	if err := svc.Delete(context.Background(), r.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(repo.store) != 0 {
		t.Error("expected room to be deleted")
	}
}

func TestUpsert_KeepsStatus(t *testing.T) {
	svc, _ := newTestService()
	r := &Room{Code: "PB-1", Name: "Pabellón", Kind: KindTheatre}
	_ = svc.Create(context.Background(), r)
	_, _ = svc.Occupy(context.Background(), r.ID)

	up := &Room{Code: "pb-1", Name: "Pabellón central", Kind: KindTheatre}
	if err := svc.Upsert(context.Background(), up); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if up.ID != r.ID || up.Status != StatusOccupied {
		t.Errorf("expected existing occupied room to be updated in place, got %+v", up)
	}
}

func TestList_InvalidFilters(t *testing.T) {
	svc, _ := newTestService()
	if _, _, err := svc.List(context.Background(), ListFilter{Kind: "BAÑO"}, 20, 0); err == nil {
		t.Error("expected error for invalid kind")
	}
	if _, _, err := svc.List(context.Background(), ListFilter{Status: "LIBRE"}, 20, 0); err == nil {
		t.Error("expected error for invalid status")
	}
}
