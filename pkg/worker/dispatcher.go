package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Mihirdhami7/hms-api/internal/email"
	"github.com/Mihirdhami7/hms-api/internal/model"
	"github.com/Mihirdhami7/hms-api/internal/repository"
	"github.com/Mihirdhami7/hms-api/pkg/logger"
	"github.com/Mihirdhami7/hms-api/pkg/messaging"
	"github.com/Mihirdhami7/hms-api/pkg/metrics"
)

type DispatcherConfig struct {
	BatchSize     int
	PollInterval  time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
	MaxRetries    int
}

// Dispatcher drains pending notification rows and delivers each one over
// email and the realtime broker channel. Rows are claimed with row locks so
// multiple workers can run side by side.
type Dispatcher struct {
	repo    repository.NotificationRepository
	emailer email.Service
	broker  messaging.Broker
	config  DispatcherConfig
	logger  *logger.Logger
	metrics *metrics.Metrics
}

func NewDispatcher(
	repo repository.NotificationRepository,
	emailer email.Service,
	broker messaging.Broker,
	config DispatcherConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Dispatcher {
	if config.BatchSize <= 0 {
		panic("BatchSize must be greater than 0")
	}
	if config.PollInterval <= 0 {
		panic("PollInterval must be greater than 0")
	}
	if config.RetryAttempts <= 0 {
		panic("RetryAttempts must be greater than 0")
	}
	if config.RetryDelay <= 0 {
		panic("RetryDelay must be greater than 0")
	}
	if config.MaxRetries <= 0 {
		config.MaxRetries = 3
	}

	return &Dispatcher{
		repo:    repo,
		emailer: emailer,
		broker:  broker,
		config:  config,
		logger:  logger,
		metrics: metrics,
	}
}

func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	d.logger.Info("Starting notification dispatcher")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Shutting down notification dispatcher")
			return
		case <-ticker.C:
			if err := d.processBatch(ctx); err != nil {
				d.logger.Error(err, "Failed to process notification batch")
			}
		}
	}
}

func (d *Dispatcher) processBatch(ctx context.Context) error {
	timer := prometheus.NewTimer(d.metrics.DispatchLatency)
	defer timer.ObserveDuration()

	pending, err := d.repo.GetPendingWithLock(ctx, d.config.BatchSize)
	if err != nil {
		return fmt.Errorf("failed to claim pending notifications: %w", err)
	}

	for _, n := range pending {
		if err := d.dispatch(ctx, n); err != nil {
			d.logger.Error(err, "Failed to dispatch notification",
				"notification_id", n.ID.String(),
				"recipient", n.RecipientEmail)
		}
	}

	return nil
}

func (d *Dispatcher) dispatch(ctx context.Context, n *model.Notification) error {
	err := retry(d.config.RetryAttempts, d.config.RetryDelay, func() error {
		return d.deliver(ctx, n)
	})

	if err != nil {
		d.metrics.NotificationsDispatched.WithLabelValues("failed").Inc()
		if n.RetryCount+1 >= d.config.MaxRetries {
			d.logger.Warn("Notification exhausted retries",
				"notification_id", n.ID.String(),
				"retry_count", n.RetryCount+1)
		}
		if markErr := d.repo.MarkFailed(ctx, n.ID, err.Error(), n.RetryCount+1); markErr != nil {
			d.logger.Error(markErr, "Failed to mark notification failed",
				"notification_id", n.ID.String())
		}
		return err
	}

	d.metrics.NotificationsDispatched.WithLabelValues("sent").Inc()
	if err := d.repo.MarkSent(ctx, n.ID); err != nil {
		d.logger.Error(err, "Failed to mark notification sent",
			"notification_id", n.ID.String())
		return err
	}

	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, n *model.Notification) error {
	if err := d.emailer.Send(ctx, n.RecipientEmail, n.Title, n.Message); err != nil {
		return fmt.Errorf("email delivery: %w", err)
	}

	// Realtime push is best effort once the email went through.
	if err := d.broker.Publish(ctx, "notifications", n); err != nil {
		d.logger.Warn("Failed to publish notification to broker",
			"notification_id", n.ID.String())
	}

	return nil
}

func retry(attempts int, delay time.Duration, fn func() error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}
		if i < attempts-1 {
			time.Sleep(delay)
		}
	}
	return err
}
