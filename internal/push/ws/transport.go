// Package ws carries the push channel over a WebSocket with a JSON
// subscribe frame.
package ws

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
	"notify_client/internal/push"
)

const (
	readLimit    = 1 << 20
	writeTimeout = 10 * time.Second
)

type subscribeFrame struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}

type Transport struct {
	endpoint string
	log      *zap.Logger
}

func New(endpoint string, logger *zap.Logger) *Transport {
	return &Transport{endpoint: endpoint, log: logger}
}

func (t *Transport) Topic(userID int64) string {
	return fmt.Sprintf("/user/%d/notifications", userID)
}

// Dial authenticates during the upgrade. The token travels as the
// access_token query parameter and as a bearer header.
func (t *Transport) Dial(ctx context.Context, token string) (push.Conn, error) {
	u, err := url.Parse(t.endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse push url: %w", err)
	}
	q := u.Query()
	q.Set("access_token", token)
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	c, resp, err := websocket.Dial(ctx, u.String(), &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		if resp != nil {
			if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
				return nil, fmt.Errorf("websocket handshake: status %d: %w: %w", resp.StatusCode, push.ErrRejected, err)
			}
			return nil, fmt.Errorf("websocket handshake: status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket handshake: %w", err)
	}
	c.SetReadLimit(readLimit)
	t.log.Debug("websocket connected", zap.String("host", u.Host))
	return &conn{c: c}, nil
}

type conn struct {
	c *websocket.Conn
}

func (c *conn) Subscribe(ctx context.Context, topic string) error {
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(writeCtx, c.c, subscribeFrame{Type: "subscribe", Topic: topic})
}

func (c *conn) Read(ctx context.Context) ([]byte, error) {
	for {
		typ, data, err := c.c.Read(ctx)
		if err != nil {
			return nil, err
		}
		if typ == websocket.MessageText {
			return data, nil
		}
	}
}

func (c *conn) Close() error {
	err := c.c.Close(websocket.StatusNormalClosure, "")
	if err != nil && websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		return nil
	}
	return err
}
