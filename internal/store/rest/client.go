package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
	"notify_client/internal/credential"
	"notify_client/internal/metrics"
	"notify_client/internal/model"
	"notify_client/internal/repository"
	"notify_client/internal/telemetry"
)

type HTTPError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("http %d %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Client talks to the REST notification service. Calls are not retried and
// carry no timeout of their own beyond the http.Client's.
type Client struct {
	baseURL    string
	creds      credential.Provider
	httpClient *http.Client
	log        *zap.Logger
	metrics    *metrics.Metrics
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(cl *Client) {
		cl.metrics = m
	}
}

func New(baseURL string, creds credential.Provider, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		creds:      creds,
		httpClient: http.DefaultClient,
		log:        logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ repository.NotificationGateway = (*Client)(nil)

func (c *Client) ListNotifications(ctx context.Context, opts repository.ListOptions) ([]model.Notification, error) {
	q := url.Values{}
	if opts.UnreadOnly {
		q.Set("unreadOnly", "true")
	}
	path := "/notifications"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []model.Notification
	if err := c.doJSON(ctx, "list", http.MethodGet, path, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = []model.Notification{}
	}
	return out, nil
}

func (c *Client) UnreadCount(ctx context.Context) (int, error) {
	var out model.UnreadCount
	if err := c.doJSON(ctx, "unread_count", http.MethodGet, "/notifications/unread-count", &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

func (c *Client) MarkAsRead(ctx context.Context, id int64) error {
	return c.doJSON(ctx, "mark_read", http.MethodPatch, fmt.Sprintf("/notifications/%d/read", id), nil)
}

func (c *Client) MarkAllAsRead(ctx context.Context) error {
	return c.doJSON(ctx, "mark_all_read", http.MethodPatch, "/notifications/read-all", nil)
}

func (c *Client) Dismiss(ctx context.Context, id int64) error {
	return c.doJSON(ctx, "dismiss", http.MethodPatch, fmt.Sprintf("/notifications/%d/dismiss", id), nil)
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, out any) (err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "gateway."+op)
	requestID := uuid.NewString()
	span.SetAttributes(
		attribute.String("http.request.method", method),
		attribute.String("url.path", path),
		attribute.String("request.id", requestID),
	)
	start := time.Now()
	defer func() {
		c.metrics.ObserveRequest(op, err, time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, op+" failed")
		}
		span.End()
	}()

	token, err := c.creds.Token(ctx)
	if err != nil {
		return fmt.Errorf("bearer token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Warn("gateway request failed", zap.String("op", op), zap.String("request_id", requestID), zap.Error(err))
		return err
	}
	payload, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return readErr
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errPayload struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		_ = json.Unmarshal(payload, &errPayload)
		if errPayload.Message == "" {
			errPayload.Message = strings.TrimSpace(string(payload))
		}
		c.log.Warn("gateway request rejected",
			zap.String("op", op),
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode),
		)
		return &HTTPError{StatusCode: resp.StatusCode, Code: errPayload.Code, Message: errPayload.Message}
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}
