package medication

import (
	"time"

	"github.com/obstetric/obstetric/internal/platform/apperr"
)

const (
	OrderActive    = "ACTIVA"
	OrderSuspended = "SUSPENDIDA"
	OrderCompleted = "COMPLETADA"
)

var (
	ErrNotFound          = apperr.NotFound("medication not found")
	ErrOrderNotFound     = apperr.NotFound("medication order not found")
	ErrNameTaken         = apperr.Conflict("medication name already exists")
	ErrOrderNotActive    = apperr.Conflict("medication order is not active")
	ErrMedicationRetired = apperr.Conflict("medication is not active")
)

// Medication is a catalog entry.
type Medication struct {
	ID           int64     `json:"id"`
	Ref          string    `json:"ref,omitempty"`
	Name         string    `json:"name"`
	Presentation *string   `json:"presentation,omitempty"`
	DefaultDose  *string   `json:"default_dose,omitempty"`
	Route        *string   `json:"route,omitempty"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Order struct {
	ID                int64      `json:"id"`
	Ref               string     `json:"ref,omitempty"`
	ObstetricRecordID int64      `json:"obstetric_record_id"`
	MedicationID      int64      `json:"medication_id"`
	Dose              string     `json:"dose"`
	Route             *string    `json:"route,omitempty"`
	FrequencyHours    int        `json:"frequency_hours"`
	StartAt           time.Time  `json:"start_at"`
	EndAt             *time.Time `json:"end_at,omitempty"`
	Status            string     `json:"status"`
	Notes             *string    `json:"notes,omitempty"`
	OrderedBy         *int64     `json:"ordered_by,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

type Administration struct {
	ID             int64     `json:"id"`
	OrderID        int64     `json:"order_id"`
	AdministeredAt time.Time `json:"administered_at"`
	AdministeredBy *int64    `json:"administered_by,omitempty"`
	Dose           *string   `json:"dose,omitempty"`
	Notes          *string   `json:"notes,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ActiveOrder is an ACTIVA order joined with its context and most recent
// administration.
type ActiveOrder struct {
	Order
	MedicationName     string     `json:"medication_name"`
	RecordNumber       string     `json:"record_number"`
	PatientName        string     `json:"patient_name"`
	LastAdministeredAt *time.Time `json:"last_administered_at,omitempty"`
}

// DueItem is an order whose next dose is due.
type DueItem struct {
	ActiveOrder
	DueAt   time.Time `json:"due_at"`
	Overdue bool      `json:"overdue"`
}

type OrderFilter struct {
	ObstetricRecordID int64
	Status            string
}
