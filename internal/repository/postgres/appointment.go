package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Mihirdhami7/hms-api/internal/model"
	"github.com/Mihirdhami7/hms-api/internal/repository"
	apperrors "github.com/Mihirdhami7/hms-api/pkg/errors"
)

const appointmentColumns = `
	id, hospital_name, department, appointment_date, requested_time,
	accepted_date, accepted_time, patient, doctor, symptoms, payments,
	status, approved_by, rejected_by, cancelled_by, rejection_reason,
	cancellation_reason, created_at, updated_at, approved_at, completed_at,
	rejected_at, cancelled_at`

func (r *appointmentRepository) Create(ctx context.Context, apt *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			id, hospital_name, department, appointment_date, requested_time,
			accepted_date, accepted_time, patient, doctor, symptoms, payments,
			status, approved_by, created_at, updated_at, approved_at
		) VALUES (
			:id, :hospital_name, :department, :appointment_date, :requested_time,
			:accepted_date, :accepted_time, :patient, :doctor, :symptoms, :payments,
			:status, :approved_by, :created_at, :updated_at, :approved_at
		)
	`
	_, err := r.db.NamedExecContext(ctx, query, apt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("an active appointment already exists for this slot")
		}
		return fmt.Errorf("failed to create appointment: %w", err)
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var apt model.Appointment
	if err := r.db.GetContext(ctx, &apt, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("appointment")
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return &apt, nil
}

func (r *appointmentRepository) HasActiveSlot(ctx context.Context, patientEmail, doctorEmail, date, timeSlot string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE patient->>'email' = $1
			AND doctor->>'email' = $2
			AND appointment_date = $3
			AND (requested_time = $4 OR accepted_time = $4)
			AND status IN ('pending', 'approved')
		)
	`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, patientEmail, doctorEmail, date, timeSlot); err != nil {
		return false, fmt.Errorf("failed to check slot: %w", err)
	}
	return exists, nil
}

func (r *appointmentRepository) TransitionFrom(ctx context.Context, id uuid.UUID, from model.AppointmentStatus, update repository.AppointmentUpdate) (int64, error) {
	now := time.Now().UTC()

	query := `UPDATE appointments SET status = $1, updated_at = $2`
	args := []interface{}{update.Status, now}
	argCount := 3

	set := func(column string, value interface{}) {
		query += fmt.Sprintf(", %s = $%d", column, argCount)
		args = append(args, value)
		argCount++
	}

	switch update.Status {
	case model.AppointmentStatusApproved:
		set("accepted_date", update.AcceptedDate)
		set("accepted_time", update.AcceptedTime)
		set("approved_by", update.ApprovedBy)
		set("approved_at", now)
	case model.AppointmentStatusRejected:
		set("rejected_by", update.RejectedBy)
		set("rejection_reason", update.RejectionReason)
		set("rejected_at", now)
	case model.AppointmentStatusCancelled:
		set("cancelled_by", update.CancelledBy)
		set("cancellation_reason", update.CancellationReason)
		set("cancelled_at", now)
	case model.AppointmentStatusCompleted:
		set("completed_at", now)
	}

	query += fmt.Sprintf(" WHERE id = $%d AND status = $%d", argCount, argCount+1)
	args = append(args, id, from)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to transition appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

func (r *appointmentRepository) AppendPayment(ctx context.Context, id uuid.UUID, payment model.Payment) (int64, error) {
	query := `
		UPDATE appointments
		SET payments = payments || $2::jsonb, updated_at = $3
		WHERE id = $1
	`
	entry, err := model.PaymentList{payment}.Value()
	if err != nil {
		return 0, fmt.Errorf("failed to encode payment: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, id, entry, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to append payment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

func (r *appointmentRepository) ListByParticipant(ctx context.Context, role model.Role, email string, status model.AppointmentStatus) ([]*model.Appointment, error) {
	column := "patient"
	if role == model.RoleDoctor {
		column = "doctor"
	}

	query := `SELECT` + appointmentColumns + fmt.Sprintf(` FROM appointments WHERE %s->>'email' = $1`, column)
	args := []interface{}{email}

	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY appointment_date DESC, created_at DESC`

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListPendingByHospital(ctx context.Context, hospitalName string) ([]*model.Appointment, error) {
	// oldest-first so admins triage the longest-waiting requests
	query := `SELECT` + appointmentColumns + `
		FROM appointments
		WHERE hospital_name = $1 AND status = 'pending'
		ORDER BY appointment_date ASC, created_at ASC`

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, hospitalName); err != nil {
		return nil, fmt.Errorf("failed to list pending appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListByHospital(ctx context.Context, hospitalName string, filters model.AppointmentFilters) ([]*model.Appointment, error) {
	query := `SELECT` + appointmentColumns + ` FROM appointments WHERE hospital_name = $1`
	args := []interface{}{hospitalName}
	argCount := 2

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}
	if filters.Date != "" {
		query += fmt.Sprintf(" AND appointment_date = $%d", argCount)
		args = append(args, filters.Date)
		argCount++
	}
	if filters.DoctorEmail != "" {
		query += fmt.Sprintf(" AND doctor->>'email' = $%d", argCount)
		args = append(args, filters.DoctorEmail)
		argCount++
	}
	query += ` ORDER BY appointment_date DESC, created_at DESC`

	var appointments []*model.Appointment
	if err := r.db.SelectContext(ctx, &appointments, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}
