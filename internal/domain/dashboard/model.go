// Package dashboard assembles the landing summary shown to each staff role.
package dashboard

import "time"

type AdminSummary struct {
	PatientsActive      int            `json:"patients_active"`
	OpenRecords         int            `json:"open_records"`
	AdmissionsByStatus  map[string]int `json:"admissions_by_status"`
	RoomsByStatus       map[string]int `json:"rooms_by_status"`
	ActiveShiftsByRole  map[string]int `json:"active_shifts_by_role"`
	FailedNotifications int            `json:"failed_notifications"`
}

// AdmissionRow is an open labor admission with its team progress.
type AdmissionRow struct {
	ID           int64     `json:"id"`
	Ref          string    `json:"ref,omitempty"`
	RecordNumber string    `json:"record_number"`
	PatientName  string    `json:"patient_name"`
	RoomName     *string   `json:"room_name,omitempty"`
	Status       string    `json:"status"`
	AdmittedAt   time.Time `json:"admitted_at"`
	TeamStatus   *string   `json:"team_status,omitempty"`
	TeamAccepted int       `json:"team_accepted"`
	TeamPending  int       `json:"team_pending"`
}

type RecordRow struct {
	ID               int64      `json:"id"`
	Ref              string     `json:"ref,omitempty"`
	RecordNumber     string     `json:"record_number"`
	PatientName      string     `json:"patient_name"`
	EstimatedDueDate *time.Time `json:"estimated_due_date,omitempty"`
	ExpectedBabies   int        `json:"expected_babies"`
}

type DueRow struct {
	OrderID        int64     `json:"order_id"`
	Ref            string    `json:"ref,omitempty"`
	MedicationName string    `json:"medication_name"`
	Dose           string    `json:"dose"`
	RecordNumber   string    `json:"record_number"`
	PatientName    string    `json:"patient_name"`
	DueAt          time.Time `json:"due_at"`
	Overdue        bool      `json:"overdue"`
}

type ClinicalSummary struct {
	ActiveAdmissions   []*AdmissionRow `json:"active_admissions"`
	HighRiskRecords    []*RecordRow    `json:"high_risk_records"`
	PendingInvitations int             `json:"pending_invitations"`
}

type TENSSummary struct {
	DueMedications     []*DueRow `json:"due_medications"`
	PendingInvitations int       `json:"pending_invitations"`
}

type ClerkSummary struct {
	IntakesToday   int `json:"intakes_today"`
	PatientsActive int `json:"patients_active"`
}

// Summary carries exactly one populated section, chosen by Role.
type Summary struct {
	Role        string           `json:"role"`
	GeneratedAt time.Time        `json:"generated_at"`
	Admin       *AdminSummary    `json:"admin,omitempty"`
	Clinical    *ClinicalSummary `json:"clinical,omitempty"`
	TENS        *TENSSummary     `json:"tens,omitempty"`
	Clerk       *ClerkSummary    `json:"clerk,omitempty"`
}
