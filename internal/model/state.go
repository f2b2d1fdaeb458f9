package model

// Filter narrows the notification list. UnreadOnly is enforced by the server,
// Priority and Type are a client-side projection over the loaded list.
type Filter struct {
	UnreadOnly bool      `json:"unreadOnly"`
	Priority   *Priority `json:"priority,omitempty"`
	Type       *string   `json:"type,omitempty"`
}

func (f Filter) Match(n Notification) bool {
	if f.UnreadOnly && n.ReadStatus {
		return false
	}
	if f.Priority != nil && n.Priority != *f.Priority {
		return false
	}
	if f.Type != nil && n.Type != *f.Type {
		return false
	}
	return true
}

type ConnectionState int

const (
	Disconnected ConnectionState = iota
	Connecting
	Connected
)

func (s ConnectionState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

type BulkActionType string

const (
	BulkRead    BulkActionType = "read"
	BulkDismiss BulkActionType = "dismiss"
)

type BulkAction struct {
	Type BulkActionType `json:"type"`
	IDs  []int64        `json:"ids"`
}

// State is the read-only view handed to the UI layer.
type State struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unreadCount"`
	IsConnected   bool           `json:"isConnected"`
	IsLoading     bool           `json:"isLoading"`
	Error         string         `json:"error,omitempty"`
	SelectedIDs   []int64        `json:"selectedIds"`
	Filter        Filter         `json:"filter"`
}

// Visible applies the client-side filter projection.
func (s State) Visible() []Notification {
	out := make([]Notification, 0, len(s.Notifications))
	for _, n := range s.Notifications {
		if s.Filter.Match(n) {
			out = append(out, n)
		}
	}
	return out
}
