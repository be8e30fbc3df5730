package patient

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/obstetric/obstetric/internal/platform/apperr"
	"github.com/obstetric/obstetric/internal/platform/auth"
	"github.com/obstetric/obstetric/internal/platform/db"
)

type mockPersonRepo struct {
	store  map[int64]*Person
	nextID int64
}

func (m *mockPersonRepo) Create(_ context.Context, p *Person) error {
	m.nextID++
	p.ID = m.nextID
	p.CreatedAt = time.Now()
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *mockPersonRepo) GetByID(_ context.Context, id int64) (*Person, error) {
	p, ok := m.store[id]
	if !ok {
		return nil, ErrPersonNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockPersonRepo) GetByRUT(_ context.Context, rut string) (*Person, error) {
	for _, p := range m.store {
		if p.RUT == rut {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPersonNotFound
}

func (m *mockPersonRepo) Update(_ context.Context, p *Person) error {
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

type mockPatientRepo struct {
	store   map[int64]*Patient
	persons *mockPersonRepo
	nextID  int64
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	for _, x := range m.store {
		if x.PersonID == p.PersonID && x.Status == StatusActive {
			return ErrAlreadyActive
		}
	}
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id int64) (*Patient, error) {
	p, ok := m.store[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	cp.Person, _ = m.persons.GetByID(context.Background(), p.PersonID)
	return &cp, nil
}

func (m *mockPatientRepo) GetActiveByPerson(ctx context.Context, personID int64) (*Patient, error) {
	for _, p := range m.store {
		if p.PersonID == personID && p.Status == StatusActive {
			return m.GetByID(ctx, p.ID)
		}
	}
	return nil, ErrNotFound
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	if _, ok := m.store[p.ID]; !ok {
		return ErrNotFound
	}
	cp := *p
	m.store[p.ID] = &cp
	return nil
}

func (m *mockPatientRepo) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Patient, int, error) {
	var out []*Patient
	for id := range m.store {
		p, _ := m.GetByID(ctx, id)
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.Query != "" && !strings.HasPrefix(p.Person.RUT, f.Query) &&
			!strings.Contains(strings.ToLower(p.Person.FullName()), strings.ToLower(f.Query)) {
			continue
		}
		out = append(out, p)
	}
	return out, len(out), nil
}

func newTestService() (*Service, *mockPersonRepo, *mockPatientRepo) {
	persons := &mockPersonRepo{store: make(map[int64]*Person)}
	patients := &mockPatientRepo{store: make(map[int64]*Patient), persons: persons}
	return NewService(persons, patients, db.NoTx{}), persons, patients
}

func sampleIntake(r string) IntakeInput {
	return IntakeInput{Person: Person{RUT: r, FirstNames: "María José", LastNames: "Soto Pérez"}}
}

func TestIntake(t *testing.T) {
	svc, persons, _ := newTestService()
	ctx := auth.WithUser(context.Background(), 7, "admision", []string{auth.RoleAdministrativo})

	p, err := svc.Intake(ctx, sampleIntake("12.345.678-5"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == 0 || p.PersonID == 0 {
		t.Fatal("expected ids to be assigned")
	}
	if p.Status != StatusActive {
		t.Errorf("expected ACTIVO, got %s", p.Status)
	}
	if p.CreatedBy == nil || *p.CreatedBy != 7 {
		t.Errorf("expected created_by 7, got %v", p.CreatedBy)
	}
	if persons.store[p.PersonID].RUT != "12345678-5" {
		t.Errorf("expected normalized rut, got %s", persons.store[p.PersonID].RUT)
	}
}

func TestIntake_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	future := time.Now().Add(48 * time.Hour)
	sex := "X"
	blood := "C+"
	tests := []struct {
		name string
		in   IntakeInput
	}{
		{"bad check digit", sampleIntake("12345678-9")},
		{"missing names", IntakeInput{Person: Person{RUT: "12345678-5"}}},
		{"future birth date", IntakeInput{Person: Person{RUT: "12345678-5", FirstNames: "A", LastNames: "B", BirthDate: &future}}},
		{"bad sex", IntakeInput{Person: Person{RUT: "12345678-5", FirstNames: "A", LastNames: "B", Sex: &sex}}},
		{"bad blood type", IntakeInput{Person: Person{RUT: "12345678-5", FirstNames: "A", LastNames: "B"}, BloodType: &blood}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Intake(context.Background(), tt.in); apperr.KindOf(err) != apperr.KindInvalid {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestIntake_ReusesPersonAfterDischarge(t *testing.T) {
	svc, persons, _ := newTestService()
	first, err := svc.Intake(context.Background(), sampleIntake("11111111-1"))
	if err != nil {
		t.Fatalf("first intake: %v", err)
	}

	if _, err := svc.Intake(context.Background(), sampleIntake("11.111.111-1")); !errors.Is(err, ErrAlreadyActive) {
		t.Fatalf("expected ErrAlreadyActive, got %v", err)
	}

	if _, err := svc.Discharge(context.Background(), first.ID); err != nil {
		t.Fatalf("discharge: %v", err)
	}
	second, err := svc.Intake(context.Background(), sampleIntake("11111111-1"))
	if err != nil {
		t.Fatalf("second intake: %v", err)
	}
	if second.PersonID != first.PersonID {
		t.Errorf("expected person %d to be reused, got %d", first.PersonID, second.PersonID)
	}
	if len(persons.store) != 1 {
		t.Errorf("expected a single person row, got %d", len(persons.store))
	}
}

func TestGetByRUT(t *testing.T) {
	svc, _, _ := newTestService()
	p, _ := svc.Intake(context.Background(), sampleIntake("10000013-K"))

	got, err := svc.GetByRUT(context.Background(), "10.000.013-k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("expected patient %d, got %d", p.ID, got.ID)
	}
	if _, err := svc.GetByRUT(context.Background(), "7654321-6"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDischarge_Twice(t *testing.T) {
	svc, _, _ := newTestService()
	p, _ := svc.Intake(context.Background(), sampleIntake("7654321-6"))
	if _, err := svc.Discharge(context.Background(), p.ID); err != nil {
		t.Fatalf("discharge: %v", err)
	}
	if _, err := svc.Discharge(context.Background(), p.ID); !errors.Is(err, ErrNotActive) {
		t.Errorf("expected ErrNotActive, got %v", err)
	}
}

func TestUpdate(t *testing.T) {
	svc, persons, _ := newTestService()
	p, _ := svc.Intake(context.Background(), sampleIntake("7654321-6"))
	phone := "+56911112222"
	blood := "O+"
	got, err := svc.Update(context.Background(), p.ID, UpdateInput{Phone: &phone, BloodType: &blood})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *got.BloodType != "O+" {
		t.Errorf("expected blood type O+, got %v", got.BloodType)
	}
	if *persons.store[p.PersonID].Phone != phone {
		t.Error("expected person phone to be updated")
	}
}

func TestList_ByQuery(t *testing.T) {
	svc, _, _ := newTestService()
	_, _ = svc.Intake(context.Background(), sampleIntake("7654321-6"))
	other := sampleIntake("11111111-1")
	other.Person.LastNames = "Rojas"
	_, _ = svc.Intake(context.Background(), other)

	items, total, err := svc.List(context.Background(), ListFilter{Query: "7.654.321-6"}, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 || items[0].Person.RUT != "7654321-6" {
		t.Errorf("expected rut match, got %d items", total)
	}
	_, total, _ = svc.List(context.Background(), ListFilter{Query: "rojas"}, 20, 0)
	if total != 1 {
		t.Errorf("expected name match, got %d", total)
	}
	if _, _, err := svc.List(context.Background(), ListFilter{Status: "otro"}, 20, 0); err == nil {
		t.Error("expected invalid status error")
	}
}
