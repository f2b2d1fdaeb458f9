package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
	"notify_client/internal/model"
)

const backendToken = "tok-e2e"

// backend fakes the notification REST service and its push endpoint on a
// single server.
type backend struct {
	t      *testing.T
	server *httptest.Server

	mu        sync.Mutex
	items     map[int64]model.Notification
	failNext  map[string]int64
	calls     []string
	sockets   []*websocket.Conn
	topics    []string
	connected chan struct{}
}

func newBackend(t *testing.T, seed ...model.Notification) *backend {
	t.Helper()
	b := &backend{
		t:         t,
		items:     make(map[int64]model.Notification),
		failNext:  make(map[string]int64),
		connected: make(chan struct{}, 8),
	}
	for _, n := range seed {
		b.items[n.ID] = n
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /notifications", b.list)
	mux.HandleFunc("GET /notifications/unread-count", b.unreadCount)
	mux.HandleFunc("PATCH /notifications/read-all", b.readAll)
	mux.HandleFunc("PATCH /notifications/{id}/read", b.read)
	mux.HandleFunc("PATCH /notifications/{id}/dismiss", b.dismiss)
	mux.HandleFunc("GET /ws/notifications", b.socket)

	b.server = httptest.NewServer(b.authorized(mux))
	t.Cleanup(func() {
		b.dropSockets()
		b.server.Close()
	})
	return b
}

func (b *backend) apiURL() string { return b.server.URL }

func (b *backend) pushURL() string {
	return "ws" + strings.TrimPrefix(b.server.URL, "http") + "/ws/notifications"
}

// failOn makes the next call of op ("read" or "dismiss") for id answer 500.
func (b *backend) failOn(op string, id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext[op] = id
}

func (b *backend) callLog() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := append([]string(nil), b.calls...)
	sort.Strings(out)
	return out
}

func (b *backend) socketCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sockets)
}

func (b *backend) lastTopic() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.topics) == 0 {
		return ""
	}
	return b.topics[len(b.topics)-1]
}

func (b *backend) waitConnected(d time.Duration) {
	b.t.Helper()
	select {
	case <-b.connected:
	case <-time.After(d):
		b.t.Fatalf("push client did not subscribe within %s", d)
	}
}

// push writes payload to the newest subscribed socket.
func (b *backend) push(ctx context.Context, payload any) error {
	b.mu.Lock()
	if len(b.sockets) == 0 {
		b.mu.Unlock()
		return errors.New("no subscriber")
	}
	c := b.sockets[len(b.sockets)-1]
	b.mu.Unlock()
	return wsjson.Write(ctx, c, payload)
}

// dropSockets closes every live socket, as a server restart would.
func (b *backend) dropSockets() {
	b.mu.Lock()
	sockets := b.sockets
	b.sockets = nil
	b.mu.Unlock()
	for _, c := range sockets {
		_ = c.Close(websocket.StatusGoingAway, "restart")
	}
}

func (b *backend) authorized(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+backendToken {
			http.Error(w, `{"code":"unauthorized","message":"bad token"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *backend) list(w http.ResponseWriter, r *http.Request) {
	unreadOnly := r.URL.Query().Get("unreadOnly") == "true"
	b.mu.Lock()
	out := make([]model.Notification, 0, len(b.items))
	for _, n := range b.items {
		if unreadOnly && n.ReadStatus {
			continue
		}
		out = append(out, n)
	}
	b.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	writeJSON(w, out)
}

func (b *backend) unreadCount(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	count := 0
	for _, n := range b.items {
		if !n.ReadStatus {
			count++
		}
	}
	b.mu.Unlock()
	writeJSON(w, model.UnreadCount{Count: count})
}

func (b *backend) readAll(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, "read-all")
	for id, n := range b.items {
		n.ReadStatus = true
		b.items[id] = n
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *backend) read(w http.ResponseWriter, r *http.Request) {
	b.mutate(w, r, "read", func(id int64) {
		n := b.items[id]
		n.ReadStatus = true
		b.items[id] = n
	})
}

func (b *backend) dismiss(w http.ResponseWriter, r *http.Request) {
	b.mutate(w, r, "dismiss", func(id int64) {
		delete(b.items, id)
	})
}

func (b *backend) mutate(w http.ResponseWriter, r *http.Request, op string, apply func(int64)) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "bad id", http.StatusBadRequest)
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, fmt.Sprintf("%s %d", op, id))
	if b.failNext[op] == id {
		delete(b.failNext, op)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"internal","message":"boom"}`))
		return
	}
	if _, ok := b.items[id]; !ok {
		http.Error(w, `{"code":"not_found","message":"no such notification"}`, http.StatusNotFound)
		return
	}
	apply(id)
	w.WriteHeader(http.StatusNoContent)
}

func (b *backend) socket(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, nil)
	if err != nil {
		return
	}
	defer c.CloseNow()

	ctx := r.Context()
	var frame struct {
		Type  string `json:"type"`
		Topic string `json:"topic"`
	}
	if err := wsjson.Read(ctx, c, &frame); err != nil || frame.Type != "subscribe" {
		return
	}
	b.mu.Lock()
	b.sockets = append(b.sockets, c)
	b.topics = append(b.topics, frame.Topic)
	b.mu.Unlock()
	b.connected <- struct{}{}

	for {
		if _, _, err := c.Read(ctx); err != nil {
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
