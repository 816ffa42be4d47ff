package model

import (
	"time"

	"github.com/google/uuid"
)

// NotificationStatus tracks outbound delivery. The row itself is the user's
// in-app notification; delivery state only concerns the dispatch worker.
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "pending"
	NotificationStatusSent    NotificationStatus = "sent"
	NotificationStatusFailed  NotificationStatus = "failed"
)

type NotificationType string

const (
	NotificationTypeAppointment  NotificationType = "appointment"
	NotificationTypePrescription NotificationType = "prescription"
	NotificationTypeGeneral      NotificationType = "general"
)

type Notification struct {
	ID             uuid.UUID          `db:"id" json:"id"`
	RecipientEmail string             `db:"recipient_email" json:"recipientEmail"`
	Title          string             `db:"title" json:"title"`
	Message        string             `db:"message" json:"message"`
	Type           NotificationType   `db:"type" json:"type"`
	ReferenceID    *string            `db:"reference_id" json:"referenceId"`
	Read           bool               `db:"read" json:"read"`
	Status         NotificationStatus `db:"status" json:"-"`
	RetryCount     int                `db:"retry_count" json:"-"`
	LastError      *string            `db:"last_error" json:"-"`
	ClaimedAt      *time.Time         `db:"claimed_at" json:"-"`
	SentAt         *time.Time         `db:"sent_at" json:"-"`
	CreatedAt      time.Time          `db:"created_at" json:"createdAt"`
}
