package memory

import (
	"sync"

	"go.uber.org/zap"
	"notify_client/internal/model"
)

// Store is an in-process stand-in for the REST notification service, used
// when no API URL is configured and by tests.
type Store struct {
	mu        sync.Mutex
	nextID    int64
	records   []model.Notification
	dismissed map[int64]struct{}
	failures  map[string]error
	log       *zap.Logger
}

func New(logger *zap.Logger) *Store {
	return &Store{
		nextID:    1,
		dismissed: map[int64]struct{}{},
		failures:  map[string]error{},
		log:       logger,
	}
}

// FailNext makes the next call of op ("list", "unread_count", "mark_read",
// "mark_all_read", "dismiss") return err.
func (s *Store) FailNext(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Store) takeFailure(op string) error {
	err, ok := s.failures[op]
	if !ok {
		return nil
	}
	delete(s.failures, op)
	return err
}
