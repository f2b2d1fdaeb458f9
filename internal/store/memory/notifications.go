package memory

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"
	"notify_client/internal/model"
	"notify_client/internal/repository"
)

var _ repository.NotificationGateway = (*Store)(nil)

// Add stores a notification, assigning an id and createdAt when missing.
func (s *Store) Add(n model.Notification) model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.ID == 0 {
		n.ID = s.nextID
	}
	if n.ID >= s.nextID {
		s.nextID = n.ID + 1
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	s.records = append(s.records, n)
	return n
}

func (s *Store) ListNotifications(_ context.Context, opts repository.ListOptions) ([]model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("list"); err != nil {
		return nil, err
	}

	result := make([]model.Notification, 0, len(s.records))
	for _, record := range s.records {
		if _, gone := s.dismissed[record.ID]; gone {
			continue
		}
		if opts.UnreadOnly && record.ReadStatus {
			continue
		}
		result = append(result, record.Clone())
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *Store) UnreadCount(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("unread_count"); err != nil {
		return 0, err
	}
	count := 0
	for _, record := range s.records {
		if _, gone := s.dismissed[record.ID]; gone {
			continue
		}
		if !record.ReadStatus {
			count++
		}
	}
	return count, nil
}

// MarkAsRead and Dismiss accept ids the gateway never held. In demo runs the
// collection also holds pushed notifications that were never added here.
func (s *Store) MarkAsRead(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("mark_read"); err != nil {
		return err
	}
	for i := range s.records {
		if s.records[i].ID != id {
			continue
		}
		if !s.records[i].ReadStatus {
			now := time.Now().UTC()
			s.records[i].ReadStatus = true
			s.records[i].ReadAt = &now
		}
		return nil
	}
	s.log.Debug("memory mark read: id not held, accepted", zap.Int64("id", id))
	return nil
}

func (s *Store) MarkAllAsRead(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("mark_all_read"); err != nil {
		return err
	}
	now := time.Now().UTC()
	for i := range s.records {
		if !s.records[i].ReadStatus {
			at := now
			s.records[i].ReadStatus = true
			s.records[i].ReadAt = &at
		}
	}
	return nil
}

func (s *Store) Dismiss(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.takeFailure("dismiss"); err != nil {
		return err
	}
	s.dismissed[id] = struct{}{}
	return nil
}
