// Package alert fans toast notifications out for unread pushes.
package alert

import (
	"context"
	"time"

	"go.uber.org/zap"
	"notify_client/internal/model"
)

type Alert struct {
	NotificationID int64          `json:"notificationId"`
	UserID         int64          `json:"userId"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Priority       model.Priority `json:"priority,omitempty"`
	Link           *string        `json:"link,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// FromNotification builds the toast for a pushed notification.
func FromNotification(userID int64, n model.Notification) Alert {
	a := Alert{
		NotificationID: n.ID,
		UserID:         userID,
		Title:          n.Subject,
		Message:        n.Message,
		Priority:       n.Priority,
		CreatedAt:      n.CreatedAt,
	}
	if n.Link != nil {
		link := *n.Link
		a.Link = &link
	}
	return a
}

type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// LogNotifier writes alerts to the log. Used when no broker is configured.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (l *LogNotifier) Notify(_ context.Context, a Alert) error {
	fields := []zap.Field{
		zap.Int64("notification_id", a.NotificationID),
		zap.String("title", a.Title),
		zap.String("priority", string(a.Priority)),
	}
	if a.Link != nil {
		fields = append(fields, zap.String("link", *a.Link))
	}
	l.logger.Info("toast", fields...)
	return nil
}
