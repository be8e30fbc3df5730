package rooms

import (
	"time"

	"github.com/obstetric/obstetric/internal/platform/apperr"
)

const (
	KindPrepartum = "PREPARTO"
	KindDelivery  = "PARTO"
	KindTheatre   = "PABELLON"
	KindRecovery  = "RECUPERACION"

	StatusAvailable = "DISPONIBLE"
	StatusOccupied  = "OCUPADA"
)

var (
	ErrNotFound     = apperr.NotFound("room not found")
	ErrRoomOccupied = apperr.Conflict("room is occupied")
	ErrCodeTaken    = apperr.Conflict("room code already exists")
)

var validKinds = map[string]bool{KindPrepartum: true, KindDelivery: true, KindTheatre: true, KindRecovery: true}

type Room struct {
	ID        int64     `json:"id"`
	Ref       string    `json:"ref,omitempty"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ListFilter struct {
	Kind   string
	Status string
}
