package sse

import (
	"context"
	"sync"

	"notify_client/internal/model"
)

// Client receives the latest state. Ch should have capacity 1; a slow client
// only ever sees the newest state.
type Client struct {
	Ch chan model.State
}

func NewClient() *Client {
	return &Client{Ch: make(chan model.State, 1)}
}

type Hub struct {
	register   chan *Client
	unregister chan *Client
	broadcast  chan model.State
	clients    map[*Client]struct{}
	last       *model.State
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan model.State, 1),
		clients:    make(map[*Client]struct{}),
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Broadcast never blocks: an undelivered older state is replaced.
func (h *Hub) Broadcast(state model.State) {
	for {
		select {
		case h.broadcast <- state:
			return
		default:
		}
		select {
		case <-h.broadcast:
		default:
		}
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case state := <-h.broadcast:
			h.broadcastAll(state)
		}
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	last := h.last
	h.mu.Unlock()
	if last != nil {
		offer(client, *last)
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}

func (h *Hub) broadcastAll(state model.State) {
	h.mu.Lock()
	h.last = &state
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		offer(c, state)
	}
}

// offer replaces whatever the client has not consumed yet.
func offer(c *Client, state model.State) {
	if cap(c.Ch) == 0 {
		select {
		case c.Ch <- state:
		default:
		}
		return
	}
	for {
		select {
		case c.Ch <- state:
			return
		default:
		}
		select {
		case <-c.Ch:
		default:
		}
	}
}
