// Package reconcile merges REST snapshots, pushed notifications and local
// mutations into one de-duplicated collection sorted by createdAt descending.
//
// All transitions go through Reduce, which never mutates its input.
package reconcile

import (
	"sort"

	"notify_client/internal/model"
)

// ErrorSource records which path set State.Error, so only the same path's
// recovery clears it.
type ErrorSource int

const (
	NoError ErrorSource = iota
	LoadError
	MutationError
	ConnectionError
)

type State struct {
	Notifications []model.Notification
	UnreadCount   int
	IsConnected   bool
	IsLoading     bool
	Error         string
	ErrorSource   ErrorSource
	Selected      map[int64]struct{}
	Filter        model.Filter
}

func (s State) setError(msg string, src ErrorSource) State {
	s.Error = msg
	s.ErrorSource = src
	return s
}

func (s State) clearError(src ErrorSource) State {
	if s.ErrorSource == src {
		s.Error = ""
		s.ErrorSource = NoError
	}
	return s
}

func NewState() State {
	return State{
		Notifications: []model.Notification{},
		Selected:      map[int64]struct{}{},
	}
}

func (s State) indexOf(id int64) int {
	for i := range s.Notifications {
		if s.Notifications[i].ID == id {
			return i
		}
	}
	return -1
}

// Find returns the entry with the given id.
func (s State) Find(id int64) (model.Notification, bool) {
	if i := s.indexOf(id); i >= 0 {
		return s.Notifications[i], true
	}
	return model.Notification{}, false
}

// CountUnread recomputes the unread count from the collection.
func (s State) CountUnread() int {
	count := 0
	for _, n := range s.Notifications {
		if !n.ReadStatus {
			count++
		}
	}
	return count
}

// View returns a deep copy suitable for handing to the UI.
func (s State) View() model.State {
	out := model.State{
		Notifications: make([]model.Notification, 0, len(s.Notifications)),
		UnreadCount:   s.UnreadCount,
		IsConnected:   s.IsConnected,
		IsLoading:     s.IsLoading,
		Error:         s.Error,
		SelectedIDs:   make([]int64, 0, len(s.Selected)),
		Filter:        s.Filter,
	}
	for _, n := range s.Notifications {
		out.Notifications = append(out.Notifications, n.Clone())
	}
	for id := range s.Selected {
		out.SelectedIDs = append(out.SelectedIDs, id)
	}
	sort.Slice(out.SelectedIDs, func(i, j int) bool { return out.SelectedIDs[i] < out.SelectedIDs[j] })
	return out
}

func (s State) cloneNotifications() []model.Notification {
	out := make([]model.Notification, len(s.Notifications))
	copy(out, s.Notifications)
	return out
}

func (s State) cloneSelected() map[int64]struct{} {
	out := make(map[int64]struct{}, len(s.Selected))
	for id := range s.Selected {
		out[id] = struct{}{}
	}
	return out
}

func sortByCreatedDesc(list []model.Notification) {
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}

// pruneSelected drops selected ids that are no longer in the collection.
func pruneSelected(selected map[int64]struct{}, list []model.Notification) map[int64]struct{} {
	present := make(map[int64]struct{}, len(list))
	for _, n := range list {
		present[n.ID] = struct{}{}
	}
	out := make(map[int64]struct{}, len(selected))
	for id := range selected {
		if _, ok := present[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}
