package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Mihirdhami7/hms-api/internal/model"
	apperrors "github.com/Mihirdhami7/hms-api/pkg/errors"
)

const prescriptionColumns = `
	id, appointment_id, patient, doctor, hospital_name, department,
	vitals, medicines, suggestions, reports, status, invoice_id,
	created_at, updated_at, invoiced_at`

func (r *prescriptionRepository) CreateAndCompleteAppointment(ctx context.Context, p *model.Prescription) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insert := `
		INSERT INTO prescriptions (
			id, appointment_id, patient, doctor, hospital_name, department,
			vitals, medicines, suggestions, reports, status, invoice_id,
			created_at, updated_at, invoiced_at
		) VALUES (
			:id, :appointment_id, :patient, :doctor, :hospital_name, :department,
			:vitals, :medicines, :suggestions, :reports, :status, :invoice_id,
			:created_at, :updated_at, :invoiced_at
		)
	`
	if _, err := tx.NamedExecContext(ctx, insert, p); err != nil {
		if isUniqueViolation(err) {
			return 0, apperrors.Conflict("prescription already exists for this appointment")
		}
		return 0, fmt.Errorf("failed to create prescription: %w", err)
	}

	complete := `
		UPDATE appointments
		SET status = 'completed', completed_at = $2, updated_at = $2
		WHERE id = $1 AND status = 'approved'
	`
	result, err := tx.ExecContext(ctx, complete, p.AppointmentID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to complete appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// appointment vanished or left approved state; roll the insert back
		return 0, nil
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prescription: %w", err)
	}
	return rows, nil
}

func (r *prescriptionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Prescription, error) {
	query := `SELECT` + prescriptionColumns + ` FROM prescriptions WHERE id = $1`

	var p model.Prescription
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.NotFound("prescription")
		}
		return nil, fmt.Errorf("failed to get prescription: %w", err)
	}
	return &p, nil
}

func (r *prescriptionRepository) ExistsForAppointment(ctx context.Context, appointmentID uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM prescriptions WHERE appointment_id = $1)`
	if err := r.db.GetContext(ctx, &exists, query, appointmentID); err != nil {
		return false, fmt.Errorf("failed to check prescription: %w", err)
	}
	return exists, nil
}

func (r *prescriptionRepository) MarkInvoiced(ctx context.Context, id uuid.UUID, invoiceID string) (int64, error) {
	query := `
		UPDATE prescriptions
		SET status = 'invoiced', invoice_id = $2, invoiced_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'active'
	`
	result, err := r.db.ExecContext(ctx, query, id, invoiceID, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to mark prescription invoiced: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

func (r *prescriptionRepository) ListByParticipant(ctx context.Context, role model.Role, email string, status model.PrescriptionStatus) ([]*model.Prescription, error) {
	column := "patient"
	if role == model.RoleDoctor {
		column = "doctor"
	}

	query := `SELECT` + prescriptionColumns + fmt.Sprintf(` FROM prescriptions WHERE %s->>'email' = $1`, column)
	args := []interface{}{email}

	if status != "" {
		query += ` AND status = $2`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	var prescriptions []*model.Prescription
	if err := r.db.SelectContext(ctx, &prescriptions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return prescriptions, nil
}

func (r *prescriptionRepository) ListPendingByHospital(ctx context.Context, hospitalName string, filters model.PrescriptionFilters) ([]*model.Prescription, error) {
	query := `SELECT` + prescriptionColumns + ` FROM prescriptions WHERE hospital_name = $1 AND invoice_id IS NULL`
	args := []interface{}{hospitalName}
	argCount := 2

	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}
	if filters.AppointmentID != "" {
		query += fmt.Sprintf(" AND appointment_id = $%d", argCount)
		args = append(args, filters.AppointmentID)
		argCount++
	}
	query += ` ORDER BY created_at DESC`

	var prescriptions []*model.Prescription
	if err := r.db.SelectContext(ctx, &prescriptions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list pending prescriptions: %w", err)
	}
	return prescriptions, nil
}

func (r *prescriptionRepository) ListByHospital(ctx context.Context, hospitalName string, filters model.PrescriptionFilters) ([]*model.Prescription, error) {
	query := `SELECT` + prescriptionColumns + ` FROM prescriptions WHERE hospital_name = $1`
	args := []interface{}{hospitalName}
	argCount := 2

	add := func(clause string, value interface{}) {
		query += fmt.Sprintf(" AND %s = $%d", clause, argCount)
		args = append(args, value)
		argCount++
	}

	if filters.Status != "" {
		add("status", filters.Status)
	}
	if filters.InvoiceID != "" {
		add("invoice_id", filters.InvoiceID)
	}
	if filters.DoctorEmail != "" {
		add("doctor->>'email'", filters.DoctorEmail)
	}
	if filters.PatientEmail != "" {
		add("patient->>'email'", filters.PatientEmail)
	}
	if filters.Date != "" {
		query += fmt.Sprintf(" AND created_at::date = $%d", argCount)
		args = append(args, filters.Date)
		argCount++
	}
	query += ` ORDER BY created_at DESC`

	var prescriptions []*model.Prescription
	if err := r.db.SelectContext(ctx, &prescriptions, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list prescriptions: %w", err)
	}
	return prescriptions, nil
}
