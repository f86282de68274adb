package handlers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/sulemansaleem459-cmd/clutch-gear-backend/config"
	"github.com/sulemansaleem459-cmd/clutch-gear-backend/models"
)

// Notifier delivers one notification to its recipient. Implementations are
// best-effort collaborators (push, SMS); the default just logs.
type Notifier interface {
	Send(n *models.Notification) error
}

type logNotifier struct {
	logger *logrus.Logger
}

func (l *logNotifier) Send(n *models.Notification) error {
	l.logger.WithFields(logrus.Fields{
		"kind":      n.Kind,
		"recipient": n.RecipientRef,
		"title":     n.Title,
	}).Info("notification delivered")
	return nil
}

// NotificationDispatcher drains the outbox. Engines write pending rows
// inside their business transactions; this loop delivers them after commit,
// so a delivery failure can never be mistaken for a business failure.
// Failed rows are retried until MaxAttempts, then left failed.
type NotificationDispatcher struct {
	DB          *gorm.DB
	Logger      *logrus.Logger
	Notifier    Notifier
	BatchSize   int
	Interval    time.Duration
	MaxAttempts int
}

func NewNotificationDispatcher(db *gorm.DB, logger *logrus.Logger, notifier Notifier) *NotificationDispatcher {
	if notifier == nil {
		notifier = &logNotifier{logger: logger}
	}
	return &NotificationDispatcher{
		DB:          db,
		Logger:      logger,
		Notifier:    notifier,
		BatchSize:   50,
		Interval:    2 * time.Second,
		MaxAttempts: 5,
	}
}

func (d *NotificationDispatcher) Run(ctx context.Context) {
	if d == nil || d.DB == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		d.processOnce()
		select {
		case <-ctx.Done():
			return
		case <-time.After(d.Interval):
		}
	}
}

func (d *NotificationDispatcher) processOnce() {
	var pending []models.Notification
	err := d.DB.
		Where("status = ? OR (status = ? AND attempts < ?)",
			models.NotificationPending, models.NotificationFailed, d.MaxAttempts).
		Order("created_at asc").
		Limit(d.BatchSize).
		Find(&pending).Error
	if err != nil {
		config.LogError(d.Logger, "notifications", "processOnce", "outbox fetch", nil, err)
		return
	}

	for i := range pending {
		n := &pending[i]
		sendErr := d.Notifier.Send(n)

		updates := map[string]interface{}{
			"attempts": n.Attempts + 1,
		}
		if sendErr != nil {
			msg := sendErr.Error()
			if len(msg) > 500 {
				msg = msg[:500]
			}
			updates["status"] = models.NotificationFailed
			updates["last_error"] = msg
			d.Logger.WithError(sendErr).WithField("notificationId", n.ID).Warn("notification delivery failed")
		} else {
			now := time.Now()
			updates["status"] = models.NotificationSent
			updates["sent_at"] = now
		}

		if err := d.DB.Model(&models.Notification{}).
			Where("id = ?", n.ID).
			Updates(updates).Error; err != nil {
			config.LogError(d.Logger, "notifications", "processOnce", "outbox update", n.ID, err)
		}
	}
}
