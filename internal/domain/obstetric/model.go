package obstetric

import (
	"time"

	"github.com/obstetric/obstetric/internal/platform/apperr"
)

const (
	StatusOpen   = "ABIERTA"
	StatusClosed = "CERRADA"

	RiskLow    = "BAJO"
	RiskMedium = "MEDIO"
	RiskHigh   = "ALTO"

	// Naegele's rule: 40 weeks from the first day of the last period.
	gestationDays = 280

	MaxExpectedBabies = 5
)

var (
	ErrNotFound      = apperr.NotFound("obstetric record not found")
	ErrRecordClosed  = apperr.Conflict("obstetric record is closed")
	ErrNumberTaken   = apperr.Conflict("record number already exists")
	ErrPatientClosed = apperr.Conflict("patient is not active")
)

var validRisk = map[string]bool{RiskLow: true, RiskMedium: true, RiskHigh: true}

type Record struct {
	ID                  int64      `json:"id"`
	Ref                 string     `json:"ref,omitempty"`
	PatientID           int64      `json:"patient_id"`
	RecordNumber        string     `json:"record_number"`
	Gravida             int        `json:"gravida"`
	Para                int        `json:"para"`
	Abortions           int        `json:"abortions"`
	Cesareans           int        `json:"cesareans"`
	LastMenstrualPeriod *time.Time `json:"last_menstrual_period,omitempty"`
	EstimatedDueDate    *time.Time `json:"estimated_due_date,omitempty"`
	ExpectedBabies      int        `json:"expected_babies"`
	RiskLevel           string     `json:"risk_level"`
	Pathologies         *string    `json:"pathologies,omitempty"`
	PrenatalControl     bool       `json:"prenatal_control"`
	Status              string     `json:"status"`
	Notes               *string    `json:"notes,omitempty"`
	CreatedBy           *int64     `json:"created_by,omitempty"`
	ClosedAt            *time.Time `json:"closed_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

type GestationalAge struct {
	Weeks int `json:"weeks"`
	Days  int `json:"days"`
}

type UpdateInput struct {
	Gravida             *int       `json:"gravida,omitempty"`
	Para                *int       `json:"para,omitempty"`
	Abortions           *int       `json:"abortions,omitempty"`
	Cesareans           *int       `json:"cesareans,omitempty"`
	LastMenstrualPeriod *time.Time `json:"last_menstrual_period,omitempty"`
	EstimatedDueDate    *time.Time `json:"estimated_due_date,omitempty"`
	ExpectedBabies      *int       `json:"expected_babies,omitempty"`
	RiskLevel           *string    `json:"risk_level,omitempty"`
	Pathologies         *string    `json:"pathologies,omitempty"`
	PrenatalControl     *bool      `json:"prenatal_control,omitempty"`
	Notes               *string    `json:"notes,omitempty"`
}

type ListFilter struct {
	PatientID int64
	Status    string
	RiskLevel string
}
