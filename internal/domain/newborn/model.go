package newborn

import (
	"time"

	"github.com/obstetric/obstetric/internal/platform/apperr"
)

const (
	StatusAlive    = "VIVO"
	StatusDeceased = "FALLECIDO"

	MinWeightGrams = 300
	MaxWeightGrams = 7000
	MaxApgar       = 10
)

var (
	ErrNotFound        = apperr.NotFound("newborn record not found")
	ErrBirthOrderTaken = apperr.Conflict("birth order already registered for this delivery")
)

var validSex = map[string]bool{"M": true, "F": true, "I": true}

type Record struct {
	ID                  int64     `json:"id"`
	Ref                 string    `json:"ref,omitempty"`
	DeliveryRecordID    int64     `json:"delivery_record_id"`
	BirthOrder          int       `json:"birth_order"`
	Sex                 string    `json:"sex"`
	WeightGrams         int       `json:"weight_grams"`
	LengthCM            *float64  `json:"length_cm,omitempty"`
	HeadCircumferenceCM *float64  `json:"head_circumference_cm,omitempty"`
	Apgar1              int       `json:"apgar_1"`
	Apgar5              int       `json:"apgar_5"`
	VitaminK            bool      `json:"vitamin_k"`
	HepatitisB          bool      `json:"hepatitis_b"`
	BCG                 bool      `json:"bcg"`
	Status              string    `json:"status"`
	Notes               *string   `json:"notes,omitempty"`
	RecordedBy          *int64    `json:"recorded_by,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

type UpdateInput struct {
	WeightGrams         *int     `json:"weight_grams,omitempty"`
	LengthCM            *float64 `json:"length_cm,omitempty"`
	HeadCircumferenceCM *float64 `json:"head_circumference_cm,omitempty"`
	Apgar1              *int     `json:"apgar_1,omitempty"`
	Apgar5              *int     `json:"apgar_5,omitempty"`
	VitaminK            *bool    `json:"vitamin_k,omitempty"`
	HepatitisB          *bool    `json:"hepatitis_b,omitempty"`
	BCG                 *bool    `json:"bcg,omitempty"`
	Status              *string  `json:"status,omitempty"`
	Notes               *string  `json:"notes,omitempty"`
}
