package notify

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"notify_client/internal/domain"
	"notify_client/internal/model"
	"notify_client/internal/reconcile"
)

// Mutations are optimistic: the local effect is applied first and is kept
// when the confirming call fails. The failure lands in State.Error and is
// also returned.

func (s *Store) MarkAsRead(ctx context.Context, id int64) error {
	if !s.apply(reconcile.MarkedRead{ID: id, At: s.now()}) {
		return ErrClosed
	}
	if err := s.gw.MarkAsRead(ctx, id); err != nil {
		return s.mutationFailed("mark_read", domain.MsgMarkAsRead, fmt.Errorf("mark notification %d as read: %w", id, err))
	}
	return nil
}

func (s *Store) MarkAllAsRead(ctx context.Context) error {
	if !s.apply(reconcile.AllMarkedRead{At: s.now()}) {
		return ErrClosed
	}
	if err := s.gw.MarkAllAsRead(ctx); err != nil {
		return s.mutationFailed("mark_all_read", domain.MsgMarkAllAsRead, fmt.Errorf("mark all notifications as read: %w", err))
	}
	return nil
}

func (s *Store) DismissNotification(ctx context.Context, id int64) error {
	if !s.apply(reconcile.Dismissed{ID: id}) {
		return ErrClosed
	}
	if err := s.gw.Dismiss(ctx, id); err != nil {
		return s.mutationFailed("dismiss", domain.MsgDismissNotification, fmt.Errorf("dismiss notification %d: %w", id, err))
	}
	return nil
}

// PerformBulkAction applies the action to every id at once and clears the
// selection, then confirms each id with its own concurrent call. Ids whose
// call fails are put back as they were before the action.
func (s *Store) PerformBulkAction(ctx context.Context, action model.BulkAction) error {
	if !domain.IsValidBulkAction(action.Type) {
		return fmt.Errorf("%w: %q", domain.ErrUnknownBulkAction, action.Type)
	}
	ids := uniqueIDs(action.IDs)

	previous := make(map[int64]model.Notification, len(ids))
	at := s.now()
	if !s.update(func(st reconcile.State) reconcile.State {
		for _, id := range ids {
			if n, ok := st.Find(id); ok {
				previous[id] = n.Clone()
			}
			switch action.Type {
			case model.BulkRead:
				st = reconcile.Reduce(st, reconcile.MarkedRead{ID: id, At: at})
			case model.BulkDismiss:
				st = reconcile.Reduce(st, reconcile.Dismissed{ID: id})
			}
		}
		return reconcile.Reduce(st, reconcile.SelectionCleared{})
	}) {
		return ErrClosed
	}

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		failed = make(map[int64]error)
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			var err error
			switch action.Type {
			case model.BulkRead:
				err = s.gw.MarkAsRead(ctx, id)
			case model.BulkDismiss:
				err = s.gw.Dismiss(ctx, id)
			}
			if err != nil {
				mu.Lock()
				failed[id] = err
				mu.Unlock()
			}
		}(id)
	}
	wg.Wait()

	if len(failed) == 0 {
		return nil
	}

	events := make([]reconcile.Event, 0, len(failed)+1)
	var firstErr error
	for _, id := range ids {
		err, ok := failed[id]
		if !ok {
			continue
		}
		if firstErr == nil {
			firstErr = err
		}
		if prev, ok := previous[id]; ok {
			events = append(events, reconcile.Restored{Previous: prev})
		}
	}
	message := domain.BulkFailureMessage(action.Type)
	events = append(events, reconcile.MutationFailed{Message: message})
	s.apply(events...)

	s.metrics.MutationFailed("bulk_" + string(action.Type))
	s.log.Error("bulk action failed",
		zap.String("type", string(action.Type)),
		zap.Int("ids", len(ids)),
		zap.Int("failed", len(failed)),
		zap.Error(firstErr),
	)
	return fmt.Errorf("%s %d of %d notifications failed: %w", action.Type, len(failed), len(ids), firstErr)
}

func (s *Store) ToggleSelection(id int64) {
	s.apply(reconcile.SelectionToggled{ID: id})
}

// SelectAll selects the entries visible under the current filter.
func (s *Store) SelectAll() {
	s.apply(reconcile.AllSelected{})
}

func (s *Store) ClearSelection() {
	s.apply(reconcile.SelectionCleared{})
}

// SetFilter replaces the filter. Only the unread-only dimension is applied
// by the server, so only a change there reloads the snapshot.
func (s *Store) SetFilter(ctx context.Context, f model.Filter) error {
	if f.Priority != nil && !domain.IsValidPriority(*f.Priority) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidPriority, *f.Priority)
	}
	var reload bool
	if !s.update(func(st reconcile.State) reconcile.State {
		reload = st.Filter.UnreadOnly != f.UnreadOnly
		return reconcile.Reduce(st, reconcile.FilterChanged{Filter: f})
	}) {
		return ErrClosed
	}
	if !reload {
		return nil
	}
	return s.Refresh(ctx)
}

func (s *Store) mutationFailed(op, message string, err error) error {
	s.log.Error("mutation confirmation failed", zap.String("operation", op), zap.Error(err))
	s.metrics.MutationFailed(op)
	s.apply(reconcile.MutationFailed{Message: message})
	return err
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
