package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mihirdhami7/hms-api/internal/model"
	apperrors "github.com/Mihirdhami7/hms-api/pkg/errors"
)

func samplePrescription() *model.Prescription {
	now := time.Now()
	return &model.Prescription{
		ID:            uuid.New(),
		AppointmentID: uuid.New(),
		Patient:       model.PersonSnapshot{ID: "u-1", Name: "Jane", Email: "jane@example.com"},
		Doctor:        model.PersonSnapshot{ID: "d-1", Name: "Gregory", Email: "gregory@example.com"},
		HospitalName:  "City General",
		Department:    "Diagnostics",
		Medicines: model.MedicineList{{
			MedicineID: "m-1", Name: "Paracetamol", Quantity: 10, Dosage: "500mg", Duration: "5 days", Price: 25.5,
		}},
		Reports:   model.Reports{ReportType: model.ReportTypeNone},
		Status:    model.PrescriptionStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestCreateAndCompleteAppointmentCommits(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPrescriptionRepository(db)
	p := samplePrescription()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO prescriptions`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE appointments\s+SET status = 'completed'.+WHERE id = \$1 AND status = 'approved'`).
		WithArgs(p.AppointmentID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rows, err := repo.CreateAndCompleteAppointment(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAndCompleteAppointmentRollsBackWhenNotApproved(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPrescriptionRepository(db)
	p := samplePrescription()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO prescriptions`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE appointments\s+SET status = 'completed'`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	rows, err := repo.CreateAndCompleteAppointment(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAndCompleteAppointmentDuplicateConflicts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPrescriptionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO prescriptions`).
		WillReturnError(&pq.Error{Code: "23505"})
	mock.ExpectRollback()

	_, err := repo.CreateAndCompleteAppointment(context.Background(), samplePrescription())
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkInvoicedRequiresActiveStatus(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPrescriptionRepository(db)
	id := uuid.New()

	mock.ExpectExec(`UPDATE prescriptions\s+SET status = 'invoiced'.+WHERE id = \$1 AND status = 'active'`).
		WithArgs(id, "inv-42", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows, err := repo.MarkInvoiced(context.Background(), id, "inv-42")
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPrescriptionGetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPrescriptionRepository(db)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .+ FROM prescriptions WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.Get(context.Background(), id)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExistsForAppointment(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewPrescriptionRepository(db)
	id := uuid.New()

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM prescriptions WHERE appointment_id = \$1\)`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	exists, err := repo.ExistsForAppointment(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}
