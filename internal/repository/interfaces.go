package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/Mihirdhami7/hms-api/internal/model"
)

// AppointmentUpdate is the field set applied by a Decide/Cancel transition.
// Only non-nil fields are written; Status is always written.
type AppointmentUpdate struct {
	Status             model.AppointmentStatus
	AcceptedDate       *string
	AcceptedTime       *string
	ApprovedBy         *string
	RejectedBy         *string
	CancelledBy        *string
	RejectionReason    *string
	CancellationReason *string
}

type AppointmentRepository interface {
	Create(ctx context.Context, apt *model.Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	// HasActiveSlot reports whether a pending or approved appointment already
	// occupies (patientEmail, doctorEmail, date, time), matching either the
	// requested or the accepted time.
	HasActiveSlot(ctx context.Context, patientEmail, doctorEmail, date, timeSlot string) (bool, error)
	// TransitionFrom applies update iff the appointment currently has status
	// from. It returns the number of rows changed; 0 means the appointment is
	// missing or no longer in that status, and the caller rereads to decide.
	TransitionFrom(ctx context.Context, id uuid.UUID, from model.AppointmentStatus, update AppointmentUpdate) (int64, error)
	AppendPayment(ctx context.Context, id uuid.UUID, payment model.Payment) (int64, error)
	ListByParticipant(ctx context.Context, role model.Role, email string, status model.AppointmentStatus) ([]*model.Appointment, error)
	ListPendingByHospital(ctx context.Context, hospitalName string) ([]*model.Appointment, error)
	ListByHospital(ctx context.Context, hospitalName string, filters model.AppointmentFilters) ([]*model.Appointment, error)
}

type PrescriptionRepository interface {
	// CreateAndCompleteAppointment inserts the prescription and flips its
	// appointment from approved to completed in one transaction. It returns
	// the appointment rows changed by the completion update; 0 rolls the
	// insert back.
	CreateAndCompleteAppointment(ctx context.Context, p *model.Prescription) (int64, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error)
	ExistsForAppointment(ctx context.Context, appointmentID uuid.UUID) (bool, error)
	MarkInvoiced(ctx context.Context, id uuid.UUID, invoiceID string) (int64, error)
	ListByParticipant(ctx context.Context, role model.Role, email string, status model.PrescriptionStatus) ([]*model.Prescription, error)
	ListPendingByHospital(ctx context.Context, hospitalName string, filters model.PrescriptionFilters) ([]*model.Prescription, error)
	ListByHospital(ctx context.Context, hospitalName string, filters model.PrescriptionFilters) ([]*model.Prescription, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	ListByRecipient(ctx context.Context, email string) ([]*model.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID, recipientEmail string) (int64, error)
	// GetPendingWithLock claims up to limit undelivered notifications for the
	// dispatch worker, skipping rows locked by concurrent workers.
	GetPendingWithLock(ctx context.Context, limit int) ([]*model.Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, lastError string, retryCount int) error
}

type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindDoctorInHospital(ctx context.Context, email, hospitalName string) (*model.User, error)
	FindAdminForHospital(ctx context.Context, hospitalName string) (*model.User, error)
}
