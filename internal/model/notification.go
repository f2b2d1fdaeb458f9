package model

import "time"

type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Notification is the entity served by the REST gateway and pushed over the
// live channel. ID is stable across both sources.
type Notification struct {
	ID         int64      `json:"id"`
	AuthorID   int64      `json:"authorId"`
	TargetID   int64      `json:"targetId"`
	Type       string     `json:"type"`
	Subject    string     `json:"subject"`
	Message    string     `json:"message"`
	Channels   []string   `json:"channels,omitempty"`
	ReadStatus bool       `json:"readStatus"`
	ReadAt     *time.Time `json:"readAt"`
	Priority   Priority   `json:"priority"`
	Link       *string    `json:"link"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Clone returns a copy that shares no pointers with n.
func (n Notification) Clone() Notification {
	out := n
	if n.Channels != nil {
		out.Channels = append([]string(nil), n.Channels...)
	}
	if n.ReadAt != nil {
		t := *n.ReadAt
		out.ReadAt = &t
	}
	if n.Link != nil {
		l := *n.Link
		out.Link = &l
	}
	return out
}

type UnreadCount struct {
	Count int `json:"count"`
}
