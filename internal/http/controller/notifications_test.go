package controller

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"notify_client/internal/alert"
	"notify_client/internal/config"
	"notify_client/internal/http/dto"
	"notify_client/internal/http/resp"
	"notify_client/internal/model"
	"notify_client/internal/push"
	"notify_client/internal/service/notify"
	"notify_client/internal/sse"
	"notify_client/internal/store/memory"
)

type stubConnector struct {
	reconnects int
}

func (s *stubConnector) Connect(context.Context, int64, push.Listener) error { return nil }
func (s *stubConnector) Disconnect()                                          {}
func (s *stubConnector) Reconnect(context.Context) error {
	s.reconnects++
	return nil
}

type fixture struct {
	router *gin.Engine
	gw     *memory.Store
	store  *notify.Store
	hub    *sse.Hub
	conn   *stubConnector
}

func setupRouter(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	gw := memory.New(zap.NewNop())
	gw.Add(model.Notification{ID: 1, Subject: "first", Priority: model.PriorityHigh, CreatedAt: base})
	gw.Add(model.Notification{ID: 2, Subject: "second", Priority: model.PriorityLow, CreatedAt: base.Add(time.Hour)})
	gw.Add(model.Notification{ID: 3, Subject: "third", Priority: model.PriorityLow, ReadStatus: true, CreatedAt: base.Add(2 * time.Hour)})

	conn := &stubConnector{}
	store := notify.NewStore(gw, conn, alert.NewLogNotifier(zap.NewNop()), nil, zap.NewNop())
	require.NoError(t, store.Start(context.Background(), 7))

	hub := sse.NewHub()
	handler := NewHandler(&config.Config{SSEHeartbeat: time.Minute}, store, hub, zap.NewNop())

	router := gin.New()
	router.GET("/state", handler.State)
	router.GET("/events", handler.Events)
	router.POST("/refresh", handler.Refresh)
	router.POST("/reconnect", handler.Reconnect)
	router.POST("/notifications/read-all", handler.MarkAllAsRead)
	router.POST("/notifications/bulk", handler.BulkAction)
	router.POST("/notifications/:id/read", handler.MarkAsRead)
	router.DELETE("/notifications/:id", handler.Dismiss)
	router.POST("/selection/all", handler.SelectAll)
	router.POST("/selection/:id", handler.ToggleSelection)
	router.DELETE("/selection", handler.ClearSelection)
	router.PUT("/filter", handler.SetFilter)

	return &fixture{router: router, gw: gw, store: store, hub: hub, conn: conn}
}

func performJSONRequest(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) dto.StateResponse {
	t.Helper()
	var out dto.StateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) dto.ErrorResponse {
	t.Helper()
	var out dto.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestStateController(t *testing.T) {
	f := setupRouter(t)

	rec := performJSONRequest(t, f.router, http.MethodGet, "/state", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	state := decodeState(t, rec)
	require.Len(t, state.Notifications, 3)
	require.Equal(t, int64(3), state.Notifications[0].ID)
	require.Equal(t, 2, state.UnreadCount)
	require.Len(t, state.Visible, 3)
}

func TestMutationControllers(t *testing.T) {
	t.Run("mark as read", func(t *testing.T) {
		f := setupRouter(t)
		rec := performJSONRequest(t, f.router, http.MethodPost, "/notifications/1/read", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, 1, decodeState(t, rec).UnreadCount)
	})

	t.Run("bad id", func(t *testing.T) {
		f := setupRouter(t)
		rec := performJSONRequest(t, f.router, http.MethodPost, "/notifications/abc/read", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
		require.Equal(t, resp.CodeBadRequest, decodeError(t, rec).Code)
	})

	t.Run("upstream failure keeps optimistic state", func(t *testing.T) {
		f := setupRouter(t)
		f.gw.FailNext("dismiss", errors.New("500"))

		rec := performJSONRequest(t, f.router, http.MethodDelete, "/notifications/2", nil)
		require.Equal(t, http.StatusBadGateway, rec.Code)
		body := decodeError(t, rec)
		require.Equal(t, resp.CodeUpstreamFailed, body.Code)
		require.Equal(t, "Failed to dismiss notification", body.Message)
		require.Len(t, f.store.Snapshot().Notifications, 2)
	})

	t.Run("pushed notification in demo mode", func(t *testing.T) {
		f := setupRouter(t)
		f.store.OnPush(model.Notification{ID: 9, Subject: "pushed", CreatedAt: time.Date(2026, 1, 3, 0, 0, 0, 0, time.UTC)})

		rec := performJSONRequest(t, f.router, http.MethodPost, "/notifications/9/read", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		state := decodeState(t, rec)
		require.Empty(t, state.Error)
		require.Equal(t, 2, state.UnreadCount)

		rec = performJSONRequest(t, f.router, http.MethodDelete, "/notifications/9", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Empty(t, decodeState(t, rec).Error)
	})

	t.Run("mark all as read", func(t *testing.T) {
		f := setupRouter(t)
		rec := performJSONRequest(t, f.router, http.MethodPost, "/notifications/read-all", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, 0, decodeState(t, rec).UnreadCount)
	})

	t.Run("bulk dismiss", func(t *testing.T) {
		f := setupRouter(t)
		rec := performJSONRequest(t, f.router, http.MethodPost, "/notifications/bulk", map[string]any{
			"type": "dismiss",
			"ids":  []int64{1, 2},
		})
		require.Equal(t, http.StatusOK, rec.Code)
		state := decodeState(t, rec)
		require.Len(t, state.Notifications, 1)
		require.Equal(t, 0, state.UnreadCount)
	})

	t.Run("bulk unknown type", func(t *testing.T) {
		f := setupRouter(t)
		rec := performJSONRequest(t, f.router, http.MethodPost, "/notifications/bulk", map[string]any{
			"type": "archive",
			"ids":  []int64{1},
		})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bulk missing body", func(t *testing.T) {
		f := setupRouter(t)
		rec := performJSONRequest(t, f.router, http.MethodPost, "/notifications/bulk", map[string]any{})
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestSelectionAndFilterControllers(t *testing.T) {
	f := setupRouter(t)

	rec := performJSONRequest(t, f.router, http.MethodPut, "/filter", map[string]any{"priority": "LOW"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeState(t, rec).Visible, 2)

	rec = performJSONRequest(t, f.router, http.MethodPost, "/selection/all", nil)
	require.Equal(t, []int64{2, 3}, decodeState(t, rec).SelectedIDs)

	rec = performJSONRequest(t, f.router, http.MethodPost, "/selection/2", nil)
	require.Equal(t, []int64{3}, decodeState(t, rec).SelectedIDs)

	rec = performJSONRequest(t, f.router, http.MethodDelete, "/selection", nil)
	require.Empty(t, decodeState(t, rec).SelectedIDs)

	rec = performJSONRequest(t, f.router, http.MethodPut, "/filter", map[string]any{"unreadOnly": true})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, decodeState(t, rec).Notifications, 2)

	rec = performJSONRequest(t, f.router, http.MethodPut, "/filter", map[string]any{"priority": "URGENT"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefreshAndReconnectControllers(t *testing.T) {
	f := setupRouter(t)
	f.gw.Add(model.Notification{ID: 4, Subject: "fourth", CreatedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)})

	rec := performJSONRequest(t, f.router, http.MethodPost, "/refresh", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	state := decodeState(t, rec)
	require.Equal(t, int64(4), state.Notifications[0].ID)
	require.Equal(t, 3, state.UnreadCount)

	f.gw.FailNext("list", errors.New("503"))
	rec = performJSONRequest(t, f.router, http.MethodPost, "/refresh", nil)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Equal(t, "Failed to load notifications", decodeError(t, rec).Message)

	rec = performJSONRequest(t, f.router, http.MethodPost, "/reconnect", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, 1, f.conn.reconnects)

	f.store.Close()
	rec = performJSONRequest(t, f.router, http.MethodPost, "/reconnect", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestEventsController(t *testing.T) {
	f := setupRouter(t)
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go f.hub.Run(hubCtx)

	server := httptest.NewServer(f.router)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+"/events", nil)
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, "text/event-stream", res.Header.Get("Content-Type"))

	reader := bufio.NewReader(res.Body)
	var lines []string
	for i := 0; i < 3; i++ {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		lines = append(lines, strings.TrimSuffix(line, "\n"))
	}
	require.Equal(t, "id: 0", lines[0])
	require.Equal(t, "event: state", lines[1])
	require.True(t, strings.HasPrefix(lines[2], "data: "))
	require.Contains(t, lines[2], `"unreadCount":2`)
}
