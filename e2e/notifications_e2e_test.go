package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"notify_client/internal/alert"
	"notify_client/internal/app"
	"notify_client/internal/config"
	"notify_client/internal/credential"
	"notify_client/internal/domain"
	httpserver "notify_client/internal/http"
	"notify_client/internal/http/controller"
	"notify_client/internal/http/dto"
	"notify_client/internal/metrics"
	"notify_client/internal/model"
	"notify_client/internal/push"
	"notify_client/internal/service/notify"
	"notify_client/internal/sse"
	"notify_client/internal/store"
)

var base = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type recordingNotifier struct {
	mu     sync.Mutex
	alerts []alert.Alert
}

func (r *recordingNotifier) Notify(_ context.Context, a alert.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.alerts = append(r.alerts, a)
	return nil
}

func (r *recordingNotifier) sent() []alert.Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]alert.Alert(nil), r.alerts...)
}

type client struct {
	store   *notify.Store
	manager *push.Manager
	toasts  *recordingNotifier
	control *httptest.Server
}

func startClient(t *testing.T, b *backend) *client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		UserID:             7,
		APIBaseURL:         b.apiURL(),
		PushURL:            b.pushURL(),
		PushTransport:      config.TransportWebSocket,
		MaxRetries:         3,
		ReconnectBaseDelay: 20 * time.Millisecond,
		ReconnectDelay:     10 * time.Millisecond,
		SSEHeartbeat:       time.Minute,
		OTELServiceName:    "notifyd-e2e",
	}
	logger := zap.NewNop()
	creds := credential.NewStatic(backendToken)
	m := metrics.New(prometheus.NewRegistry())

	transport, err := app.NewTransport(cfg, logger)
	require.NoError(t, err)
	manager := push.NewManager(cfg, transport, creds, m, logger)
	toasts := &recordingNotifier{}
	st := notify.NewStore(store.NewGateway(cfg, creds, m, logger), manager, toasts, m, logger)

	handler := controller.NewHandler(cfg, st, sse.NewHub(), logger)
	control := httptest.NewServer(httpserver.NewRouter(cfg, handler, logger))
	t.Cleanup(func() {
		st.Close()
		control.Close()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, st.Start(ctx, cfg.UserID))
	b.waitConnected(5 * time.Second)
	require.Eventually(t, func() bool { return st.Snapshot().IsConnected }, 5*time.Second, 10*time.Millisecond)

	return &client{store: st, manager: manager, toasts: toasts, control: control}
}

func (c *client) call(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req, err := http.NewRequest(method, c.control.URL+path, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = res.Body.Close() }()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(res.Body)
	require.NoError(t, err)
	return res, buf.Bytes()
}

func ids(ns []model.Notification) []int64 {
	out := make([]int64, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.ID)
	}
	return out
}

func TestNotificationLifecycle(t *testing.T) {
	b := newBackend(t,
		model.Notification{ID: 1, Type: "SYSTEM", Subject: "deploy", Priority: model.PriorityHigh, CreatedAt: base},
		model.Notification{ID: 2, Type: "COMMENT", Subject: "reply", Priority: model.PriorityLow, ReadStatus: true, CreatedAt: base.Add(time.Hour)},
	)
	c := startClient(t, b)
	require.Equal(t, "/user/7/notifications", b.lastTopic())

	res, body := c.call(t, http.MethodGet, "/state", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var state dto.StateResponse
	require.NoError(t, json.Unmarshal(body, &state))
	require.Equal(t, []int64{2, 1}, ids(state.Notifications))
	require.Equal(t, 1, state.UnreadCount)
	require.True(t, state.IsConnected)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.push(ctx, map[string]any{
		"id":         3,
		"type":       "MENTION",
		"subject":    "you were mentioned",
		"message":    "@dev look",
		"readStatus": false,
		"priority":   "MEDIUM",
		"createdAt":  base.Add(2 * time.Hour).Format(time.RFC3339),
	}))
	require.Eventually(t, func() bool {
		s := c.store.Snapshot()
		return len(s.Notifications) == 3 && s.UnreadCount == 2
	}, 5*time.Second, 10*time.Millisecond)
	require.Equal(t, []int64{3, 2, 1}, ids(c.store.Snapshot().Notifications))

	require.Eventually(t, func() bool { return len(c.toasts.sent()) == 1 }, 5*time.Second, 10*time.Millisecond)
	toast := c.toasts.sent()[0]
	require.Equal(t, int64(3), toast.NotificationID)
	require.Equal(t, int64(7), toast.UserID)
	require.Equal(t, "you were mentioned", toast.Title)

	res, body = c.call(t, http.MethodPost, "/notifications/3/read", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, json.Unmarshal(body, &state))
	require.Equal(t, 1, state.UnreadCount)

	b.failOn("dismiss", 1)
	res, body = c.call(t, http.MethodPost, "/notifications/bulk", map[string]any{
		"type": "dismiss",
		"ids":  []int64{1, 2},
	})
	require.Equal(t, http.StatusBadGateway, res.StatusCode)
	var failure dto.ErrorResponse
	require.NoError(t, json.Unmarshal(body, &failure))
	require.Equal(t, domain.BulkFailureMessage(model.BulkDismiss), failure.Message)

	snap := c.store.Snapshot()
	require.Equal(t, []int64{3, 1}, ids(snap.Notifications))
	require.Equal(t, 1, snap.UnreadCount)
	require.Empty(t, snap.SelectedIDs)
	require.Equal(t, []string{"dismiss 1", "dismiss 2", "read 3"}, b.callLog())

	c.store.Close()
	require.Equal(t, model.Disconnected, c.manager.Machine().State)
	res, _ = c.call(t, http.MethodPost, "/refresh", nil)
	require.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}

func TestPushReconnectsAfterServerDrop(t *testing.T) {
	b := newBackend(t, model.Notification{ID: 1, Subject: "hello", CreatedAt: base})
	c := startClient(t, b)
	require.Equal(t, 1, b.socketCount())

	b.dropSockets()
	b.waitConnected(5 * time.Second)
	require.Eventually(t, func() bool { return c.store.Snapshot().IsConnected }, 5*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, b.push(ctx, map[string]any{
		"id":        2,
		"subject":   "after restart",
		"priority":  "LOW",
		"createdAt": base.Add(time.Minute).Format(time.RFC3339),
	}))
	require.Eventually(t, func() bool { return c.store.Snapshot().UnreadCount == 2 }, 5*time.Second, 10*time.Millisecond)

	res, _ := c.call(t, http.MethodPost, "/reconnect", nil)
	require.Equal(t, http.StatusAccepted, res.StatusCode)
	b.waitConnected(5 * time.Second)
	require.Eventually(t, func() bool {
		return c.store.Snapshot().IsConnected && c.manager.Machine().RetryCount == 0
	}, 5*time.Second, 10*time.Millisecond)
}
