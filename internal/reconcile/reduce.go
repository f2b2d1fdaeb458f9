package reconcile

import (
	"time"

	"notify_client/internal/domain"
	"notify_client/internal/model"
)

type Event interface {
	event()
}

// SnapshotLoaded replaces the whole collection; the snapshot is authoritative.
// It clears an earlier load error.
type SnapshotLoaded struct{ Notifications []model.Notification }

type UnreadCountLoaded struct{ Count int }

// PushReceived merges one notification from the live channel.
type PushReceived struct{ Notification model.Notification }

type MarkedRead struct {
	ID int64
	At time.Time
}

type AllMarkedRead struct{ At time.Time }

type Dismissed struct{ ID int64 }

// Restored undoes a local mutation for one entry using its pre-mutation copy.
type Restored struct{ Previous model.Notification }

type SelectionToggled struct{ ID int64 }

// AllSelected selects every entry visible under the current filter.
type AllSelected struct{}

type SelectionCleared struct{}

type FilterChanged struct{ Filter model.Filter }

// ConnectionChanged reports a channel transition. Connected clears only an
// error the channel itself raised.
type ConnectionChanged struct {
	State model.ConnectionState
	Error string
}

type LoadingStarted struct{}

// Failed ends a load with an error.
type Failed struct{ Message string }

// MutationFailed records an advisory error without touching the collection.
type MutationFailed struct{ Message string }

func (SnapshotLoaded) event()    {}
func (UnreadCountLoaded) event() {}
func (PushReceived) event()      {}
func (MarkedRead) event()        {}
func (AllMarkedRead) event()     {}
func (Dismissed) event()         {}
func (Restored) event()          {}
func (SelectionToggled) event()  {}
func (AllSelected) event()       {}
func (SelectionCleared) event()  {}
func (FilterChanged) event()     {}
func (ConnectionChanged) event() {}
func (LoadingStarted) event()    {}
func (Failed) event()            {}
func (MutationFailed) event()    {}

// Reduce returns the state after applying ev. s is left untouched.
func Reduce(s State, ev Event) State {
	switch e := ev.(type) {
	case SnapshotLoaded:
		return applySnapshot(s, e.Notifications)
	case UnreadCountLoaded:
		if e.Count < 0 {
			e.Count = 0
		}
		s.UnreadCount = e.Count
		return s
	case PushReceived:
		return applyPush(s, e.Notification)
	case MarkedRead:
		return markRead(s, e.ID, e.At)
	case AllMarkedRead:
		return markAllRead(s, e.At)
	case Dismissed:
		return dismiss(s, e.ID)
	case Restored:
		return restore(s, e.Previous)
	case SelectionToggled:
		if s.indexOf(e.ID) < 0 {
			return s
		}
		selected := s.cloneSelected()
		if _, ok := selected[e.ID]; ok {
			delete(selected, e.ID)
		} else {
			selected[e.ID] = struct{}{}
		}
		s.Selected = selected
		return s
	case AllSelected:
		selected := s.cloneSelected()
		for _, n := range s.Notifications {
			if s.Filter.Match(n) {
				selected[n.ID] = struct{}{}
			}
		}
		s.Selected = selected
		return s
	case SelectionCleared:
		s.Selected = map[int64]struct{}{}
		return s
	case FilterChanged:
		s.Filter = e.Filter
		return s
	case ConnectionChanged:
		s.IsConnected = e.State == model.Connected
		if s.IsConnected {
			s = s.clearError(ConnectionError)
		}
		if e.Error != "" {
			s = s.setError(e.Error, ConnectionError)
		}
		return s
	case LoadingStarted:
		s.IsLoading = true
		return s
	case Failed:
		s.IsLoading = false
		return s.setError(e.Message, LoadError)
	case MutationFailed:
		return s.setError(e.Message, MutationError)
	default:
		return s
	}
}

func applySnapshot(s State, list []model.Notification) State {
	seen := make(map[int64]struct{}, len(list))
	next := make([]model.Notification, 0, len(list))
	for _, n := range list {
		if _, dup := seen[n.ID]; dup {
			continue
		}
		seen[n.ID] = struct{}{}
		next = append(next, domain.Normalize(n))
	}
	sortByCreatedDesc(next)
	s.Notifications = next
	s.UnreadCount = s.CountUnread()
	s.Selected = pruneSelected(s.Selected, next)
	s.IsLoading = false
	return s.clearError(LoadError)
}

// applyPush replaces an existing entry in place or inserts a new one. The
// unread count only moves for new unread ids; read-state flips of existing
// entries are expected through the mutation path.
func applyPush(s State, n model.Notification) State {
	n = domain.Normalize(n)
	next := s.cloneNotifications()
	if i := s.indexOf(n.ID); i >= 0 {
		next[i] = n
	} else {
		next = append([]model.Notification{n}, next...)
		if !n.ReadStatus {
			s.UnreadCount++
		}
	}
	sortByCreatedDesc(next)
	s.Notifications = next
	return s
}

func markRead(s State, id int64, at time.Time) State {
	i := s.indexOf(id)
	if i < 0 || s.Notifications[i].ReadStatus {
		return s
	}
	next := s.cloneNotifications()
	readAt := at
	next[i].ReadStatus = true
	next[i].ReadAt = &readAt
	s.Notifications = next
	if s.UnreadCount > 0 {
		s.UnreadCount--
	}
	return s
}

func markAllRead(s State, at time.Time) State {
	next := s.cloneNotifications()
	for i := range next {
		if next[i].ReadStatus {
			continue
		}
		readAt := at
		next[i].ReadStatus = true
		next[i].ReadAt = &readAt
	}
	s.Notifications = next
	s.UnreadCount = 0
	return s
}

func dismiss(s State, id int64) State {
	i := s.indexOf(id)
	if i >= 0 {
		wasUnread := !s.Notifications[i].ReadStatus
		next := make([]model.Notification, 0, len(s.Notifications)-1)
		next = append(next, s.Notifications[:i]...)
		next = append(next, s.Notifications[i+1:]...)
		s.Notifications = next
		if wasUnread && s.UnreadCount > 0 {
			s.UnreadCount--
		}
	}
	if _, ok := s.Selected[id]; ok {
		selected := s.cloneSelected()
		delete(selected, id)
		s.Selected = selected
	}
	return s
}

func restore(s State, prev model.Notification) State {
	prev = domain.Normalize(prev)
	i := s.indexOf(prev.ID)
	if i < 0 {
		next := append(s.cloneNotifications(), prev)
		sortByCreatedDesc(next)
		s.Notifications = next
		if !prev.ReadStatus {
			s.UnreadCount++
		}
		return s
	}
	cur := s.Notifications[i]
	if cur.ReadStatus && !prev.ReadStatus {
		next := s.cloneNotifications()
		next[i].ReadStatus = false
		next[i].ReadAt = nil
		s.Notifications = next
		s.UnreadCount++
	}
	return s
}
