package dto

import "notify_client/internal/model"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// StateResponse is the store snapshot plus its filter projection.
type StateResponse struct {
	model.State
	Visible []model.Notification `json:"visible"`
}

func NewStateResponse(s model.State) StateResponse {
	return StateResponse{State: s, Visible: s.Visible()}
}

type BulkActionRequest struct {
	Type string  `json:"type" binding:"required"`
	IDs  []int64 `json:"ids" binding:"required"`
}

type FilterRequest struct {
	UnreadOnly bool    `json:"unreadOnly"`
	Priority   *string `json:"priority"`
	Type       *string `json:"type"`
}

func (r FilterRequest) Filter() model.Filter {
	f := model.Filter{UnreadOnly: r.UnreadOnly, Type: r.Type}
	if r.Priority != nil {
		p := model.Priority(*r.Priority)
		f.Priority = &p
	}
	return f
}
