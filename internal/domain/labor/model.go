package labor

import (
	"time"

	"github.com/obstetric/obstetric/internal/platform/apperr"
)

const (
	StatusLabor     = "TRABAJO_DE_PARTO"
	StatusExpulsive = "EXPULSIVO"
	StatusFinalized = "FINALIZADO"

	MembranesIntact   = "INTEGRAS"
	MembranesRuptured = "ROTAS"

	DeliveryEutocic = "EUTOCICO"
	DeliveryCesarea = "CESAREA"
	DeliveryForceps = "FORCEPS"
	DeliveryVacuum  = "VACUUM"

	MaxDilationCM = 10
	MaxTearDegree = 4
)

var (
	ErrNotFound         = apperr.NotFound("labor admission not found")
	ErrDeliveryNotFound = apperr.NotFound("delivery record not found")
	ErrAlreadyAdmitted  = apperr.Conflict("obstetric record already has an open labor admission")
	ErrFinalized        = apperr.Conflict("labor admission is finalized")
	ErrRecordNotOpen    = apperr.Conflict("obstetric record is not open")
	ErrDeliveryExists   = apperr.Conflict("delivery already registered for this admission")
	ErrInvalidState     = apperr.Conflict("invalid state transition")
)

var validDeliveryTypes = map[string]bool{
	DeliveryEutocic: true, DeliveryCesarea: true, DeliveryForceps: true, DeliveryVacuum: true,
}

type Admission struct {
	ID                 int64      `json:"id"`
	Ref                string     `json:"ref,omitempty"`
	ObstetricRecordID  int64      `json:"obstetric_record_id"`
	RoomID             *int64     `json:"room_id,omitempty"`
	AdmittedAt         time.Time  `json:"admitted_at"`
	CervicalDilationCM *float64   `json:"cervical_dilation_cm,omitempty"`
	Membranes          *string    `json:"membranes,omitempty"`
	Contractions       *string    `json:"contractions,omitempty"`
	FetalHeartRate     *int       `json:"fetal_heart_rate,omitempty"`
	Status             string     `json:"status"`
	AdmittedBy         *int64     `json:"admitted_by,omitempty"`
	Notes              *string    `json:"notes,omitempty"`
	FinalizedAt        *time.Time `json:"finalized_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Open reports whether the admission still accepts clinical updates.
func (a *Admission) Open() bool {
	return a.Status != StatusFinalized
}

type Delivery struct {
	ID               int64     `json:"id"`
	Ref              string    `json:"ref,omitempty"`
	LaborAdmissionID int64     `json:"labor_admission_id"`
	DeliveredAt      time.Time `json:"delivered_at"`
	DeliveryType     string    `json:"delivery_type"`
	Anesthesia       *string   `json:"anesthesia,omitempty"`
	Placenta         *string   `json:"placenta,omitempty"`
	TearDegree       int       `json:"tear_degree"`
	BloodLossML      *int      `json:"blood_loss_ml,omitempty"`
	Complications    *string   `json:"complications,omitempty"`
	AttendedBy       *int64    `json:"attended_by,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

type ProgressInput struct {
	CervicalDilationCM *float64 `json:"cervical_dilation_cm,omitempty"`
	Membranes          *string  `json:"membranes,omitempty"`
	Contractions       *string  `json:"contractions,omitempty"`
	FetalHeartRate     *int     `json:"fetal_heart_rate,omitempty"`
	Notes              *string  `json:"notes,omitempty"`
}

type ListFilter struct {
	Status            string
	ObstetricRecordID int64
}
