package controller

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"notify_client/internal/config"
	"notify_client/internal/domain"
	"notify_client/internal/http/dto"
	"notify_client/internal/http/resp"
	"notify_client/internal/model"
	"notify_client/internal/service/notify"
	"notify_client/internal/sse"
)

type Handler struct {
	cfg   *config.Config
	store *notify.Store
	hub   *sse.Hub
	log   *zap.Logger
}

func NewHandler(cfg *config.Config, store *notify.Store, hub *sse.Hub, logger *zap.Logger) *Handler {
	return &Handler{cfg: cfg, store: store, hub: hub, log: logger}
}

func (h *Handler) State(c *gin.Context) {
	c.JSON(http.StatusOK, dto.NewStateResponse(h.store.Snapshot()))
}

func (h *Handler) MarkAsRead(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	h.respond(c, h.store.MarkAsRead(c.Request.Context(), id))
}

func (h *Handler) MarkAllAsRead(c *gin.Context) {
	h.respond(c, h.store.MarkAllAsRead(c.Request.Context()))
}

func (h *Handler) Dismiss(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	h.respond(c, h.store.DismissNotification(c.Request.Context(), id))
}

func (h *Handler) BulkAction(c *gin.Context) {
	var req dto.BulkActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: "type and ids are required"})
		return
	}
	h.respond(c, h.store.PerformBulkAction(c.Request.Context(), model.BulkAction{
		Type: model.BulkActionType(req.Type),
		IDs:  req.IDs,
	}))
}

func (h *Handler) ToggleSelection(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	h.store.ToggleSelection(id)
	h.respond(c, nil)
}

func (h *Handler) SelectAll(c *gin.Context) {
	h.store.SelectAll()
	h.respond(c, nil)
}

func (h *Handler) ClearSelection(c *gin.Context) {
	h.store.ClearSelection()
	h.respond(c, nil)
}

func (h *Handler) SetFilter(c *gin.Context) {
	var req dto.FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: "invalid json"})
		return
	}
	h.respond(c, h.store.SetFilter(c.Request.Context(), req.Filter()))
}

func (h *Handler) Refresh(c *gin.Context) {
	err := h.store.RefreshUnreadCount(c.Request.Context())
	if err == nil {
		err = h.store.Refresh(c.Request.Context())
	}
	h.respond(c, err)
}

func (h *Handler) Reconnect(c *gin.Context) {
	if err := h.store.Reconnect(c.Request.Context()); err != nil {
		h.respond(c, err)
		return
	}
	c.JSON(http.StatusAccepted, dto.NewStateResponse(h.store.Snapshot()))
}

// Events streams the store state as SSE "state" events, starting with the
// current snapshot.
func (h *Handler) Events(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		h.log.Error("streaming unsupported")
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Code: resp.CodeInternalError, Message: "streaming unsupported"})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	client := sse.NewClient()
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	var seq int64
	if err := writeState(c.Writer, seq, h.store.Snapshot()); err != nil {
		h.log.Error("write state failed", zap.Error(err))
		return
	}
	flusher.Flush()

	heartbeat := time.NewTicker(h.cfg.SSEHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(c.Writer, ": ping\n\n"); err != nil {
				h.log.Error("heartbeat write failed", zap.Error(err))
				return
			}
			flusher.Flush()
		case state, ok := <-client.Ch:
			if !ok {
				return
			}
			seq++
			if err := writeState(c.Writer, seq, state); err != nil {
				h.log.Error("write state failed", zap.Error(err))
				return
			}
			flusher.Flush()
		}
	}
}

func writeState(w http.ResponseWriter, seq int64, state model.State) error {
	payload, err := json.Marshal(dto.NewStateResponse(state))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "id: %d\nevent: state\ndata: %s\n\n", seq, payload)
	return err
}

func (h *Handler) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: "id must be a positive integer"})
		return 0, false
	}
	return id, true
}

// respond maps store errors onto status codes. A failed confirmation still
// leaves the optimistic change in place, so its message is the store's.
func (h *Handler) respond(c *gin.Context, err error) {
	if err == nil {
		c.JSON(http.StatusOK, dto.NewStateResponse(h.store.Snapshot()))
		return
	}
	switch {
	case errors.Is(err, notify.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, dto.ErrorResponse{Code: resp.CodeUnavailable, Message: "store closed"})
	case errors.Is(err, domain.ErrUnknownBulkAction),
		errors.Is(err, domain.ErrInvalidPriority),
		errors.Is(err, domain.ErrNoUser):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Code: resp.CodeBadRequest, Message: err.Error()})
	default:
		message := h.store.Snapshot().Error
		if message == "" {
			message = "upstream request failed"
		}
		_ = c.Error(err)
		c.JSON(http.StatusBadGateway, dto.ErrorResponse{Code: resp.CodeUpstreamFailed, Message: message})
	}
}
