package domain

import (
	"errors"
	"fmt"

	"notify_client/internal/model"
)

var (
	ErrInvalidNotification = errors.New("invalid notification")
	ErrInvalidPriority     = errors.New("invalid priority")
	ErrUnknownBulkAction   = errors.New("unknown bulk action")
	ErrAuthFailed          = errors.New("authentication failed")
	ErrNoUser              = errors.New("no user to connect")
)

// Display strings surfaced through State.Error.
const (
	MsgAuthFailed          = "Authentication failed"
	MsgLostConnection      = "Lost connection to notification server"
	MsgLoadNotifications   = "Failed to load notifications"
	MsgLoadUnreadCount     = "Failed to load unread count"
	MsgMarkAsRead          = "Failed to mark notification as read"
	MsgMarkAllAsRead       = "Failed to mark all notifications as read"
	MsgDismissNotification = "Failed to dismiss notification"
)

func ConnectionErrorMessage(err error) string {
	if err == nil {
		return "Connection error"
	}
	return fmt.Sprintf("Connection error: %v", err)
}

func BulkFailureMessage(t model.BulkActionType) string {
	switch t {
	case model.BulkRead:
		return "Failed to mark notifications as read"
	default:
		return fmt.Sprintf("Failed to %s notifications", t)
	}
}

func IsValidPriority(p model.Priority) bool {
	switch p {
	case model.PriorityHigh, model.PriorityMedium, model.PriorityLow:
		return true
	default:
		return false
	}
}

func IsValidBulkAction(t model.BulkActionType) bool {
	return t == model.BulkRead || t == model.BulkDismiss
}

// ValidatePushed checks the fields a pushed notification must carry to be
// merged. Type is opaque and not checked.
func ValidatePushed(n model.Notification) error {
	if n.ID <= 0 {
		return fmt.Errorf("%w: missing id", ErrInvalidNotification)
	}
	if n.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing createdAt", ErrInvalidNotification)
	}
	if n.Priority != "" && !IsValidPriority(n.Priority) {
		return fmt.Errorf("%w: %q", ErrInvalidPriority, n.Priority)
	}
	return nil
}

// Normalize enforces readStatus=false => readAt=nil.
func Normalize(n model.Notification) model.Notification {
	if !n.ReadStatus {
		n.ReadAt = nil
	}
	return n
}
