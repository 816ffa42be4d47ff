package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Mihirdhami7/hms-api/internal/model"
	"github.com/Mihirdhami7/hms-api/internal/repository"
	"github.com/Mihirdhami7/hms-api/internal/service/identity"
	"github.com/Mihirdhami7/hms-api/internal/service/notification"
	apperrors "github.com/Mihirdhami7/hms-api/pkg/errors"
	"github.com/Mihirdhami7/hms-api/pkg/logger"
	"github.com/Mihirdhami7/hms-api/pkg/metrics"
	"github.com/Mihirdhami7/hms-api/pkg/validator"
)

// Business rules for the approval workflow.
const (
	// MaxRescheduleDays bounds how far a doctor may push a requested date
	// while still approving the appointment. Beyond it the decision becomes
	// a rejection and any charged amount is claimable.
	MaxRescheduleDays = 7
)

const (
	// DefaultRejectionReason applies when a reject decision carries no reason.
	DefaultRejectionReason = "Appointment rejected due to improper or insufficient information provided at booking. No charging amount will be processed."

	rescheduleOverrunReason = "Rescheduled date beyond 7 days; doctor not available. You may claim charging amount."
)

type Service struct {
	repo     repository.AppointmentRepository
	identity *identity.Service
	notifSvc notification.Service
	metrics  *metrics.Metrics
	logger   *logger.Logger
}

func NewService(repo repository.AppointmentRepository, identitySvc *identity.Service, notifSvc notification.Service, m *metrics.Metrics, l *logger.Logger) *Service {
	return &Service{
		repo:     repo,
		identity: identitySvc,
		notifSvc: notifSvc,
		metrics:  m,
		logger:   l,
	}
}

// Book creates an appointment request. Patients and doctors create pending
// requests; an admin booking is confirmed immediately with the requested
// slot as the accepted slot.
func (s *Service) Book(ctx context.Context, req *model.BookAppointmentRequest, actor model.Actor) (*model.Appointment, error) {
	if err := validateSchedule(req.AppointmentDate, req.AppointmentTime); err != nil {
		return nil, err
	}
	if actor.Role == model.RolePatient && !actor.SameEmail(req.PatientEmail) {
		return nil, apperrors.Forbidden("you can only book appointments for yourself")
	}

	patient, err := s.identity.FindUser(ctx, req.PatientEmail)
	if err != nil {
		return nil, err
	}
	doctor, err := s.identity.FindDoctor(ctx, req.DoctorEmail, req.HospitalName)
	if err != nil {
		return nil, err
	}

	taken, err := s.repo.HasActiveSlot(ctx, patient.Email, doctor.Email, req.AppointmentDate, req.AppointmentTime)
	if err != nil {
		return nil, fmt.Errorf("failed to check slot availability: %w", err)
	}
	if taken {
		s.metrics.BookingConflicts.Inc()
		return nil, apperrors.Conflict("you already have an appointment with this doctor at this time")
	}

	now := time.Now()
	apt := &model.Appointment{
		ID:              uuid.New(),
		HospitalName:    req.HospitalName,
		Department:      req.Department,
		AppointmentDate: req.AppointmentDate,
		RequestedTime:   req.AppointmentTime,
		Patient:         model.NewEmbeddedPerson(patient.Snapshot()),
		Doctor:          model.NewEmbeddedPerson(doctor.Snapshot()),
		Symptoms:        req.Symptoms,
		Payments:        model.PaymentList{},
		Status:          model.AppointmentStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if actor.Role == model.RoleAdmin {
		apt.Status = model.AppointmentStatusApproved
		apt.AcceptedDate = &req.AppointmentDate
		apt.AcceptedTime = &req.AppointmentTime
		apt.ApprovedBy = &actor.Email
		apt.ApprovedAt = &now
	}

	if err := s.repo.Create(ctx, apt); err != nil {
		if apperrors.IsKind(err, apperrors.KindConflict) {
			s.metrics.BookingConflicts.Inc()
		}
		return nil, err
	}
	s.metrics.AppointmentsBooked.WithLabelValues(string(apt.Status)).Inc()

	s.sendBookingNotifications(ctx, apt, patient, doctor)
	return apt, nil
}

// Decide resolves a pending appointment. Approving with a confirmed slot
// that differs from the requested one is a reschedule: within
// MaxRescheduleDays after the requested date it is approved, otherwise the
// appointment is rejected with a claimable-charge reason.
func (s *Service) Decide(ctx context.Context, req *model.DecideAppointmentRequest, actor model.Actor) (*model.Appointment, error) {
	id, err := uuid.Parse(req.AppointmentID)
	if err != nil {
		return nil, apperrors.Validation("invalid appointment id")
	}
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if apt.Status != model.AppointmentStatusPending {
		return nil, apperrors.InvalidState("appointment is already %s", apt.Status)
	}

	doctor, err := model.NormalizeEmbeddedPerson(apt.Doctor, model.PersonRoleDoctor)
	if err != nil {
		return nil, apperrors.Dependency("failed to read appointment record", err)
	}
	if err := authorizeDecision(apt, doctor.Email, actor); err != nil {
		return nil, err
	}

	update, outcome, err := s.resolveDecision(req, apt, actor)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.TransitionFrom(ctx, id, model.AppointmentStatusPending, update)
	if err != nil {
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}
	if rows == 0 {
		// lost the race to a concurrent decision or cancellation
		current, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return nil, apperrors.InvalidState("appointment is already %s", current.Status)
	}
	s.metrics.AppointmentDecisions.WithLabelValues(outcome).Inc()

	updated, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.sendDecisionNotification(ctx, updated, doctor.Name, outcome)
	return updated, nil
}

// resolveDecision computes the transition an approve/reject request leads
// to, without touching storage.
func (s *Service) resolveDecision(req *model.DecideAppointmentRequest, apt *model.Appointment, actor model.Actor) (repository.AppointmentUpdate, string, error) {
	if req.Action != "approve" {
		reason := req.RejectionReason
		if reason == "" {
			reason = DefaultRejectionReason
		}
		return repository.AppointmentUpdate{
			Status:          model.AppointmentStatusRejected,
			RejectedBy:      &actor.Email,
			RejectionReason: &reason,
		}, "rejected", nil
	}

	acceptedDate := req.ConfirmedDate
	if acceptedDate == "" {
		acceptedDate = apt.AppointmentDate
	}
	acceptedTime := req.ConfirmedTime
	if acceptedTime == "" {
		acceptedTime = apt.RequestedTime
	}

	approval := repository.AppointmentUpdate{
		Status:       model.AppointmentStatusApproved,
		AcceptedDate: &acceptedDate,
		AcceptedTime: &acceptedTime,
		ApprovedBy:   &actor.Email,
	}

	if acceptedDate == apt.AppointmentDate && acceptedTime == apt.RequestedTime {
		return approval, "approved", nil
	}

	requested, err := validator.ParseDate(apt.AppointmentDate)
	if err != nil {
		return repository.AppointmentUpdate{}, "", apperrors.Validation("malformed appointment date: %s", apt.AppointmentDate)
	}
	confirmed, err := validator.ParseDate(acceptedDate)
	if err != nil {
		return repository.AppointmentUpdate{}, "", apperrors.Validation("malformed confirmed date: %s", acceptedDate)
	}

	deltaDays := int(confirmed.Sub(requested).Hours() / 24)
	if deltaDays > 0 && deltaDays <= MaxRescheduleDays {
		return approval, "rescheduled", nil
	}

	reason := rescheduleOverrunReason
	return repository.AppointmentUpdate{
		Status:          model.AppointmentStatusRejected,
		RejectedBy:      &actor.Email,
		RejectionReason: &reason,
	}, "rejected", nil
}

func authorizeDecision(apt *model.Appointment, doctorEmail string, actor model.Actor) error {
	switch actor.Role {
	case model.RoleDoctor:
		if !actor.SameEmail(doctorEmail) {
			return apperrors.Forbidden("you can only decide your own appointments")
		}
	case model.RoleAdmin:
		if actor.HospitalName != apt.HospitalName {
			return apperrors.Forbidden("you can only decide appointments in your hospital")
		}
	default:
		return apperrors.Forbidden("only doctors and admins can decide appointments")
	}
	return nil
}

// Cancel withdraws a pending or approved appointment. Patients cancel their
// own; hospital admins cancel any appointment in their hospital.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, req *model.CancelAppointmentRequest, actor model.Actor) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if apt.Status != model.AppointmentStatusPending && apt.Status != model.AppointmentStatusApproved {
		return nil, apperrors.InvalidState("cannot cancel a %s appointment", apt.Status)
	}

	patient, err := model.NormalizeEmbeddedPerson(apt.Patient, model.PersonRolePatient)
	if err != nil {
		return nil, apperrors.Dependency("failed to read appointment record", err)
	}
	switch actor.Role {
	case model.RolePatient:
		if !actor.SameEmail(patient.Email) {
			return nil, apperrors.Forbidden("you can only cancel your own appointments")
		}
	case model.RoleAdmin:
		if actor.HospitalName != apt.HospitalName {
			return nil, apperrors.Forbidden("you can only cancel appointments in your hospital")
		}
	default:
		return nil, apperrors.Forbidden("only patients and admins can cancel appointments")
	}

	update := repository.AppointmentUpdate{
		Status:      model.AppointmentStatusCancelled,
		CancelledBy: &actor.Email,
	}
	if req != nil && req.Reason != "" {
		update.CancellationReason = &req.Reason
	}

	rows, err := s.repo.TransitionFrom(ctx, id, apt.Status, update)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel appointment: %w", err)
	}
	if rows == 0 {
		current, err := s.repo.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if current.Status != model.AppointmentStatusPending && current.Status != model.AppointmentStatusApproved {
			return nil, apperrors.InvalidState("cannot cancel a %s appointment", current.Status)
		}
		return nil, apperrors.Conflict("appointment changed concurrently, retry the cancellation")
	}
	s.metrics.AppointmentsCancelled.Inc()

	updated, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	doctor, derr := model.NormalizeEmbeddedPerson(apt.Doctor, model.PersonRoleDoctor)
	if derr == nil {
		s.notify(ctx, doctor.Email, "Appointment Cancelled",
			fmt.Sprintf("The appointment with %s on %s at %s has been cancelled", patient.Name, apt.AppointmentDate, effectiveTime(apt)),
			apt.ID.String())
	}
	return updated, nil
}

// RecordPayment appends a ledger entry to the appointment. Gateway order
// creation and verification happen outside this service.
func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID, req *model.RecordPaymentRequest, actor model.Actor) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	patient, err := model.NormalizeEmbeddedPerson(apt.Patient, model.PersonRolePatient)
	if err != nil {
		return nil, apperrors.Dependency("failed to read appointment record", err)
	}
	if actor.Role == model.RolePatient && !actor.SameEmail(patient.Email) {
		return nil, apperrors.Forbidden("you can only record payments on your own appointments")
	}

	paymentType := req.PaymentType
	if paymentType == "" {
		paymentType = "consultation"
	}
	payment := model.Payment{
		PaymentID:   req.PaymentID,
		Amount:      req.Amount,
		PaymentType: paymentType,
		PaymentDate: time.Now(),
		Status:      "completed",
	}

	rows, err := s.repo.AppendPayment(ctx, id, payment)
	if err != nil {
		return nil, fmt.Errorf("failed to record payment: %w", err)
	}
	if rows == 0 {
		return nil, apperrors.NotFound("appointment")
	}

	return s.repo.Get(ctx, id)
}

// Get fetches a single appointment, enforcing participant or hospital scope.
func (s *Service) Get(ctx context.Context, id uuid.UUID, actor model.Actor) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	switch actor.Role {
	case model.RoleAdmin:
		if actor.HospitalName != apt.HospitalName {
			return nil, apperrors.Forbidden("appointment belongs to another hospital")
		}
	case model.RolePatient:
		patient, err := model.NormalizeEmbeddedPerson(apt.Patient, model.PersonRolePatient)
		if err != nil {
			return nil, apperrors.Dependency("failed to read appointment record", err)
		}
		if !actor.SameEmail(patient.Email) {
			return nil, apperrors.Forbidden("you can only view your own appointments")
		}
	case model.RoleDoctor:
		doctor, err := model.NormalizeEmbeddedPerson(apt.Doctor, model.PersonRoleDoctor)
		if err != nil {
			return nil, apperrors.Dependency("failed to read appointment record", err)
		}
		if !actor.SameEmail(doctor.Email) {
			return nil, apperrors.Forbidden("you can only view your own appointments")
		}
	default:
		return nil, apperrors.Forbidden("insufficient role")
	}
	return apt, nil
}

// ListMine returns the caller's appointments, newest scheduling date first.
func (s *Service) ListMine(ctx context.Context, actor model.Actor, status string) ([]*model.Appointment, error) {
	if actor.Role != model.RolePatient && actor.Role != model.RoleDoctor {
		return nil, apperrors.Forbidden("only patients and doctors have personal appointment lists")
	}
	parsed, err := parseStatusFilter(status)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByParticipant(ctx, actor.Role, actor.Email, parsed)
}

// ListPending returns the hospital's pending requests, oldest first.
func (s *Service) ListPending(ctx context.Context, actor model.Actor) ([]*model.Appointment, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperrors.Forbidden("only admins can list pending appointments")
	}
	return s.repo.ListPendingByHospital(ctx, actor.HospitalName)
}

// ListAll returns every appointment in the admin's hospital.
func (s *Service) ListAll(ctx context.Context, actor model.Actor, filters model.AppointmentFilters) ([]*model.Appointment, error) {
	if actor.Role != model.RoleAdmin {
		return nil, apperrors.Forbidden("only admins can list hospital appointments")
	}
	if filters.Status != "" {
		parsed, err := parseStatusFilter(string(filters.Status))
		if err != nil {
			return nil, err
		}
		filters.Status = parsed
	}
	if filters.Date != "" {
		if _, err := validator.ParseDate(filters.Date); err != nil {
			return nil, apperrors.Validation("date filter must be in YYYY-MM-DD format")
		}
	}
	return s.repo.ListByHospital(ctx, actor.HospitalName, filters)
}

func validateSchedule(date, timeSlot string) error {
	if _, err := validator.ParseDate(date); err != nil {
		return apperrors.Validation("date must be in YYYY-MM-DD format")
	}
	// ISO dates order lexically, so this compares calendar days in the
	// server's local zone without any midnight truncation
	if date < time.Now().Format(validator.DateLayout) {
		return apperrors.Validation("appointment date cannot be in the past")
	}
	if _, err := validator.ParseTime(timeSlot); err != nil {
		return apperrors.Validation("time must be in HH:MM format (24-hour)")
	}
	return nil
}

func parseStatusFilter(status string) (model.AppointmentStatus, error) {
	switch model.AppointmentStatus(status) {
	case "", "all":
		return "", nil
	case model.AppointmentStatusPending, model.AppointmentStatusApproved,
		model.AppointmentStatusRejected, model.AppointmentStatusCompleted,
		model.AppointmentStatusCancelled:
		return model.AppointmentStatus(status), nil
	}
	return "", apperrors.Validation("unknown status filter: %s", status)
}

func effectiveTime(apt *model.Appointment) string {
	if apt.AcceptedTime != nil {
		return *apt.AcceptedTime
	}
	return apt.RequestedTime
}

func effectiveDate(apt *model.Appointment) string {
	if apt.AcceptedDate != nil {
		return *apt.AcceptedDate
	}
	return apt.AppointmentDate
}

func (s *Service) sendBookingNotifications(ctx context.Context, apt *model.Appointment, patient, doctor *model.User) {
	refID := apt.ID.String()

	if apt.Status == model.AppointmentStatusApproved {
		s.notify(ctx, patient.Email, "Appointment Confirmed",
			fmt.Sprintf("Your appointment with Dr. %s has been confirmed for %s at %s", doctor.Name, apt.AppointmentDate, apt.RequestedTime),
			refID)
		s.notify(ctx, doctor.Email, "New Appointment Scheduled",
			fmt.Sprintf("New appointment with %s scheduled for %s at %s", patient.Name, apt.AppointmentDate, apt.RequestedTime),
			refID)
		return
	}

	s.notify(ctx, doctor.Email, "New Appointment Request",
		fmt.Sprintf("New appointment request from %s for %s at %s", patient.Name, apt.AppointmentDate, apt.RequestedTime),
		refID)

	if admin, err := s.identity.FindAdmin(ctx, apt.HospitalName); err == nil {
		s.notify(ctx, admin.Email, "New Appointment Request",
			fmt.Sprintf("New appointment request from %s with Dr. %s", patient.Name, doctor.Name),
			refID)
	}

	s.notify(ctx, patient.Email, "Appointment Request Submitted",
		fmt.Sprintf("Your appointment request with Dr. %s for %s at %s is pending approval", doctor.Name, apt.AppointmentDate, apt.RequestedTime),
		refID)
}

func (s *Service) sendDecisionNotification(ctx context.Context, apt *model.Appointment, doctorName, outcome string) {
	patient, err := model.NormalizeEmbeddedPerson(apt.Patient, model.PersonRolePatient)
	if err != nil {
		s.logger.Error(err, "skipping decision notification, unreadable patient snapshot", "appointment_id", apt.ID.String())
		return
	}
	refID := apt.ID.String()

	switch outcome {
	case "approved":
		s.notify(ctx, patient.Email, "Appointment Approved",
			fmt.Sprintf("Your appointment with Dr. %s has been approved for %s at %s", doctorName, effectiveDate(apt), effectiveTime(apt)),
			refID)
	case "rescheduled":
		s.notify(ctx, patient.Email, "Appointment Approved",
			fmt.Sprintf("Doctor not available on the originally requested day. Your appointment with Dr. %s was rescheduled to %s at %s, within 7 days of your request. If you cannot come on that day contact the hospital via portal or email.", doctorName, effectiveDate(apt), effectiveTime(apt)),
			refID)
	default:
		reason := DefaultRejectionReason
		if apt.RejectionReason != nil {
			reason = *apt.RejectionReason
		}
		s.notify(ctx, patient.Email, "Appointment Rejected",
			fmt.Sprintf("Your appointment with Dr. %s has been rejected. Reason: %s", doctorName, reason),
			refID)
	}
}

// notify queues a notification. Delivery failures never fail the business
// operation; they are logged and the row retried by the dispatch worker.
func (s *Service) notify(ctx context.Context, recipient, title, message, referenceID string) {
	n := &model.Notification{
		RecipientEmail: recipient,
		Title:          title,
		Message:        message,
		Type:           model.NotificationTypeAppointment,
		ReferenceID:    &referenceID,
	}
	if err := s.notifSvc.Send(ctx, n); err != nil {
		s.logger.Error(err, "failed to queue notification", "recipient", recipient, "title", title)
	}
}
