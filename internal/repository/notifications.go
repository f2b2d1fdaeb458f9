package repository

import (
	"context"

	"notify_client/internal/model"
)

type ListOptions struct {
	UnreadOnly bool
}

// NotificationGateway is the REST notification service as seen by the client.
// Bulk actions are expressed as N individual calls.
type NotificationGateway interface {
	ListNotifications(ctx context.Context, opts ListOptions) ([]model.Notification, error)
	UnreadCount(ctx context.Context) (int, error)
	MarkAsRead(ctx context.Context, id int64) error
	MarkAllAsRead(ctx context.Context) error
	Dismiss(ctx context.Context, id int64) error
}
