package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Mihirdhami7/hms-api/internal/model"
	"github.com/Mihirdhami7/hms-api/internal/repository"
	apperrors "github.com/Mihirdhami7/hms-api/pkg/errors"
	"github.com/Mihirdhami7/hms-api/pkg/metrics"
)

type Service interface {
	Send(ctx context.Context, notification *model.Notification) error
	ListForRecipient(ctx context.Context, email string) ([]*model.Notification, error)
	MarkRead(ctx context.Context, id uuid.UUID, actor model.Actor) error
}

type service struct {
	repo    repository.NotificationRepository
	metrics *metrics.Metrics
}

func NewService(repo repository.NotificationRepository, m *metrics.Metrics) Service {
	return &service{
		repo:    repo,
		metrics: m,
	}
}

// Send records the notification. The row is both the recipient's in-app
// notification and the dispatch worker's queue entry; email and channel
// delivery happen out of band.
func (s *service) Send(ctx context.Context, notification *model.Notification) error {
	if notification.RecipientEmail == "" {
		return fmt.Errorf("notification requires a recipient")
	}
	if notification.Title == "" || notification.Message == "" {
		return fmt.Errorf("notification requires a title and message")
	}
	if notification.Type == "" {
		notification.Type = model.NotificationTypeGeneral
	}

	notification.ID = uuid.New()
	notification.Status = model.NotificationStatusPending
	notification.CreatedAt = time.Now()

	if err := s.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	if s.metrics != nil {
		s.metrics.NotificationsQueued.Inc()
	}
	return nil
}

func (s *service) ListForRecipient(ctx context.Context, email string) ([]*model.Notification, error) {
	return s.repo.ListByRecipient(ctx, email)
}

// MarkRead flips the read flag. The update is scoped to the actor's own
// notifications; a row belonging to someone else reads as not found.
func (s *service) MarkRead(ctx context.Context, id uuid.UUID, actor model.Actor) error {
	rows, err := s.repo.MarkRead(ctx, id, actor.Email)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("notification")
	}
	return nil
}
