package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"notify_client/internal/model"
	"notify_client/internal/repository"
)

func TestMemoryGateway(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	s := New(zap.NewNop())
	first := s.Add(model.Notification{Subject: "a", CreatedAt: base})
	second := s.Add(model.Notification{Subject: "b", CreatedAt: base.Add(time.Minute)})
	s.Add(model.Notification{Subject: "c", CreatedAt: base.Add(2 * time.Minute), ReadStatus: true})

	list, err := s.ListNotifications(ctx, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "c", list[0].Subject)

	unread, err := s.ListNotifications(ctx, repository.ListOptions{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 2)

	count, err := s.UnreadCount(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	require.NoError(t, s.MarkAsRead(ctx, first.ID))
	count, _ = s.UnreadCount(ctx)
	require.Equal(t, 1, count)

	require.NoError(t, s.Dismiss(ctx, second.ID))
	list, _ = s.ListNotifications(ctx, repository.ListOptions{})
	require.Len(t, list, 2)

	require.NoError(t, s.MarkAllAsRead(ctx))
	count, _ = s.UnreadCount(ctx)
	require.Zero(t, count)

}

func TestMemoryGatewayUnknownIDs(t *testing.T) {
	ctx := context.Background()
	s := New(zap.NewNop())
	s.Add(model.Notification{Subject: "a"})

	require.NoError(t, s.MarkAsRead(ctx, 999))
	require.NoError(t, s.Dismiss(ctx, 999))

	list, err := s.ListNotifications(ctx, repository.ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 1)

	pushed := s.Add(model.Notification{ID: 999, Subject: "late"})
	list, _ = s.ListNotifications(ctx, repository.ListOptions{})
	require.Len(t, list, 1)
	require.NotEqual(t, pushed.ID, list[0].ID)
}

func TestMemoryGatewayFailNext(t *testing.T) {
	ctx := context.Background()
	s := New(zap.NewNop())
	n := s.Add(model.Notification{Subject: "a"})

	boom := errors.New("boom")
	s.FailNext("dismiss", boom)
	require.ErrorIs(t, s.Dismiss(ctx, n.ID), boom)
	require.NoError(t, s.Dismiss(ctx, n.ID))
}
