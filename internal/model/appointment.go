package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusApproved  AppointmentStatus = "approved"
	AppointmentStatusRejected  AppointmentStatus = "rejected"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s AppointmentStatus) IsTerminal() bool {
	switch s {
	case AppointmentStatusRejected, AppointmentStatusCompleted, AppointmentStatusCancelled:
		return true
	}
	return false
}

// Appointment is the full lifecycle record of a patient-doctor meeting.
// Patient and Doctor are embedded snapshots captured at booking time; they
// are intentionally not kept in sync with later changes to the user records.
type Appointment struct {
	ID              uuid.UUID         `db:"id" json:"id"`
	HospitalName    string            `db:"hospital_name" json:"hospitalName"`
	Department      string            `db:"department" json:"department"`
	AppointmentDate string            `db:"appointment_date" json:"appointmentDate"`
	RequestedTime   string            `db:"requested_time" json:"requestedTime"`
	AcceptedDate    *string           `db:"accepted_date" json:"acceptedDate"`
	AcceptedTime    *string           `db:"accepted_time" json:"acceptedTime"`
	Patient         EmbeddedPerson    `db:"patient" json:"patient"`
	Doctor          EmbeddedPerson    `db:"doctor" json:"doctor"`
	Symptoms        string            `db:"symptoms" json:"symptoms"`
	Payments        PaymentList       `db:"payments" json:"payments"`
	Status          AppointmentStatus `db:"status" json:"status"`

	ApprovedBy         *string `db:"approved_by" json:"approvedBy"`
	RejectedBy         *string `db:"rejected_by" json:"rejectedBy"`
	CancelledBy        *string `db:"cancelled_by" json:"cancelledBy"`
	RejectionReason    *string `db:"rejection_reason" json:"rejectionReason"`
	CancellationReason *string `db:"cancellation_reason" json:"cancellationReason"`

	CreatedAt   time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updatedAt"`
	ApprovedAt  *time.Time `db:"approved_at" json:"approvedAt"`
	CompletedAt *time.Time `db:"completed_at" json:"completedAt"`
	RejectedAt  *time.Time `db:"rejected_at" json:"rejectedAt"`
	CancelledAt *time.Time `db:"cancelled_at" json:"cancelledAt"`
}

// Payment is an append-only entry in the appointment's payments array.
// Gateway order creation and verification happen elsewhere; this is only
// the ledger record.
type Payment struct {
	PaymentID   string    `json:"paymentId"`
	Amount      float64   `json:"amount"`
	PaymentType string    `json:"paymentType"`
	PaymentDate time.Time `json:"paymentDate"`
	Status      string    `json:"status"`
}

type BookAppointmentRequest struct {
	PatientEmail    string `json:"patientEmail" binding:"required,email"`
	DoctorEmail     string `json:"doctorEmail" binding:"required,email"`
	Department      string `json:"department" binding:"required,max=100"`
	HospitalName    string `json:"hospitalName" binding:"required,max=200"`
	AppointmentDate string `json:"appointmentDate" binding:"required,dateformat"`
	AppointmentTime string `json:"appointmentTime" binding:"required,timeformat"`
	Symptoms        string `json:"symptoms"`
}

type DecideAppointmentRequest struct {
	AppointmentID   string `json:"appointmentId" binding:"required"`
	Action          string `json:"action" binding:"required,oneof=approve reject"`
	ConfirmedDate   string `json:"confirmedDate" binding:"omitempty,dateformat"`
	ConfirmedTime   string `json:"confirmedTime" binding:"omitempty,timeformat"`
	RejectionReason string `json:"rejectionReason"`
}

type RecordPaymentRequest struct {
	PaymentID   string  `json:"paymentId" binding:"required"`
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	PaymentType string  `json:"paymentType" binding:"omitempty,oneof=consultation procedure followup"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason"`
}

// AppointmentFilters narrows hospital-scoped appointment listings.
type AppointmentFilters struct {
	Status      AppointmentStatus
	Date        string
	DoctorEmail string
}
