package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Mihirdhami7/hms-api/internal/model"
)

const notificationColumns = `
	id, recipient_email, title, message, type, reference_id, read,
	status, retry_count, last_error, claimed_at, sent_at, created_at`

func (r *notificationRepository) Create(ctx context.Context, n *model.Notification) error {
	query := `
		INSERT INTO notifications (
			id, recipient_email, title, message, type, reference_id, read,
			status, retry_count, created_at
		) VALUES (
			:id, :recipient_email, :title, :message, :type, :reference_id, :read,
			:status, :retry_count, :created_at
		)
	`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

func (r *notificationRepository) ListByRecipient(ctx context.Context, email string) ([]*model.Notification, error) {
	query := `SELECT` + notificationColumns + `
		FROM notifications
		WHERE recipient_email = $1
		ORDER BY created_at DESC`

	var notifications []*model.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, email); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepository) MarkRead(ctx context.Context, id uuid.UUID, recipientEmail string) (int64, error) {
	query := `UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_email = $2`

	result, err := r.db.ExecContext(ctx, query, id, recipientEmail)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notification read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}

func (r *notificationRepository) GetPendingWithLock(ctx context.Context, limit int) ([]*model.Notification, error) {
	// claiming and marking happen in one statement so the claim outlives the
	// row locks; claimed rows become visible again after the stale window in
	// case a worker dies mid-delivery
	query := `
		UPDATE notifications
		SET claimed_at = now()
		WHERE id IN (
			SELECT id FROM notifications
			WHERE status = 'pending'
			AND (claimed_at IS NULL OR claimed_at < now() - interval '5 minutes')
			ORDER BY created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING` + notificationColumns

	var notifications []*model.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, limit); err != nil {
		return nil, fmt.Errorf("failed to claim pending notifications: %w", err)
	}
	return notifications, nil
}

func (r *notificationRepository) MarkSent(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE notifications SET status = 'sent', sent_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to mark notification sent: %w", err)
	}
	return nil
}

func (r *notificationRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string, retryCount int) error {
	// failed rows past the retry budget stay failed; the worker re-picks
	// pending ones only
	status := model.NotificationStatusPending
	if retryCount >= maxNotificationRetries {
		status = model.NotificationStatusFailed
	}

	// the claim is released when the row goes back to pending so the next
	// poll can retry it straight away
	query := `UPDATE notifications SET status = $2, retry_count = $3, last_error = $4, claimed_at = NULL WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, status, retryCount, lastError); err != nil {
		return fmt.Errorf("failed to mark notification failed: %w", err)
	}
	return nil
}

const maxNotificationRetries = 3
