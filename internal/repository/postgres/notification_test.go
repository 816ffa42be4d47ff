package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mihirdhami7/hms-api/internal/model"
)

func TestNotificationCreate(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)

	mock.ExpectExec(`INSERT INTO notifications`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.Create(context.Background(), &model.Notification{
		ID:             uuid.New(),
		RecipientEmail: "jane@example.com",
		Title:          "Appointment Approved",
		Message:        "Your appointment has been approved.",
		Type:           model.NotificationTypeAppointment,
		Status:         model.NotificationStatusPending,
		CreatedAt:      time.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPendingWithLockClaimsAtomically(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)
	id := uuid.New()

	// claim and stamp in one statement; plain pending rows and stale claims
	// are eligible, locked rows are skipped
	mock.ExpectQuery(`UPDATE notifications SET claimed_at = now\(\) WHERE id IN \( SELECT id FROM notifications WHERE status = 'pending' AND \(claimed_at IS NULL OR claimed_at < now\(\) - interval '5 minutes'\) ORDER BY created_at ASC LIMIT \$1 FOR UPDATE SKIP LOCKED \) RETURNING`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "recipient_email", "title", "message", "type", "reference_id",
			"read", "status", "retry_count", "last_error", "claimed_at",
			"sent_at", "created_at",
		}).AddRow(
			id, "jane@example.com", "Appointment Approved", "Approved.",
			"appointment", nil, false, "pending", 0, nil, time.Now(),
			nil, time.Now(),
		))

	claimed, err := repo.GetPendingWithLock(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, id, claimed[0].ID)
	assert.Equal(t, model.NotificationStatusPending, claimed[0].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFailedReleasesClaim(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)
	id := uuid.New()

	mock.ExpectExec(`UPDATE notifications SET status = \$2, retry_count = \$3, last_error = \$4, claimed_at = NULL WHERE id = \$1`).
		WithArgs(id, model.NotificationStatusPending, 1, "smtp timeout").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkFailed(context.Background(), id, "smtp timeout", 1)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkFailedExhaustedRetriesStaysFailed(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)
	id := uuid.New()

	mock.ExpectExec(`UPDATE notifications SET status = \$2, retry_count = \$3, last_error = \$4, claimed_at = NULL WHERE id = \$1`).
		WithArgs(id, model.NotificationStatusFailed, maxNotificationRetries, "smtp timeout").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkFailed(context.Background(), id, "smtp timeout", maxNotificationRetries)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkReadScopedToRecipient(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewNotificationRepository(db)
	id := uuid.New()

	mock.ExpectExec(`UPDATE notifications SET read = TRUE WHERE id = \$1 AND recipient_email = \$2`).
		WithArgs(id, "jane@example.com").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows, err := repo.MarkRead(context.Background(), id, "jane@example.com")
	require.NoError(t, err)
	assert.Zero(t, rows)
	require.NoError(t, mock.ExpectationsWereMet())
}
