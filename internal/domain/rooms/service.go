package rooms

import (
	"context"
	"strings"

	"github.com/obstetric/obstetric/internal/platform/apperr"
	"github.com/obstetric/obstetric/internal/platform/db"
)

type Service struct {
	rooms Repository
	tx    db.TxRunner
}

func NewService(rooms Repository, tx db.TxRunner) *Service {
	return &Service{rooms: rooms, tx: tx}
}

func normalize(r *Room) error {
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
	r.Name = strings.TrimSpace(r.Name)
	r.Kind = strings.ToUpper(r.Kind)
	if r.Code == "" || r.Name == "" {
		return apperr.Invalid("code and name are required")
	}
	if !validKinds[r.Kind] {
		return apperr.Invalid("invalid kind: %s", r.Kind)
	}
	return nil
}

func (s *Service) Create(ctx context.Context, r *Room) error {
	if err := normalize(r); err != nil {
		return err
	}
	r.Status = StatusAvailable
	return s.rooms.Create(ctx, r)
}

// Upsert is used by catalog seeding; it never touches occupancy.
func (s *Service) Upsert(ctx context.Context, r *Room) error {
	if err := normalize(r); err != nil {
		return err
	}
	return s.rooms.UpsertByCode(ctx, r)
}

func (s *Service) Get(ctx context.Context, id int64) (*Room, error) {
	return s.rooms.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, r *Room) error {
	if err := normalize(r); err != nil {
		return err
	}
	return s.rooms.Update(ctx, r)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		r, err := s.rooms.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if r.Status == StatusOccupied {
			return ErrRoomOccupied
		}
		return s.rooms.Delete(ctx, id)
	})
}

func (s *Service) List(ctx context.Context, f ListFilter, limit, offset int) ([]*Room, int, error) {
	if f.Kind != "" && !validKinds[f.Kind] {
		return nil, 0, apperr.Invalid("invalid kind: %s", f.Kind)
	}
	if f.Status != "" && f.Status != StatusAvailable && f.Status != StatusOccupied {
		return nil, 0, apperr.Invalid("invalid status: %s", f.Status)
	}
	return s.rooms.List(ctx, f, limit, offset)
}

func (s *Service) ListAvailable(ctx context.Context, kind string, limit, offset int) ([]*Room, int, error) {
	return s.List(ctx, ListFilter{Kind: kind, Status: StatusAvailable}, limit, offset)
}

// Occupy moves a DISPONIBLE room to OCUPADA. Callers that need the change to
// be atomic with their own writes run it inside their transaction.
func (s *Service) Occupy(ctx context.Context, id int64) (*Room, error) {
	var out *Room
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		r, err := s.rooms.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if r.Status != StatusAvailable {
			return ErrRoomOccupied
		}
		if err := s.rooms.SetStatus(ctx, id, StatusOccupied); err != nil {
			return err
		}
		r.Status = StatusOccupied
		out = r
		return nil
	})
	return out, err
}

// Release returns the room to DISPONIBLE. Releasing a free room is a no-op.
func (s *Service) Release(ctx context.Context, id int64) (*Room, error) {
	var out *Room
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		r, err := s.rooms.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if r.Status != StatusAvailable {
			if err := s.rooms.SetStatus(ctx, id, StatusAvailable); err != nil {
				return err
			}
			r.Status = StatusAvailable
		}
		out = r
		return nil
	})
	return out, err
}
