package ws

import (
	"context"
	"net/http"
	"slices"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/encore/internal/domain"
	"github.com/hilthontt/encore/internal/infrastructure/logging"
)

// Hub fans new notifications out to the websocket clients of each user.
// A user may hold several connections at once.
type Hub struct {
	logger   logging.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[int64]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(logger logging.Logger, allowedOrigins []string) *Hub {
	return &Hub{
		logger:     logger,
		clients:    make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
	}
}

func checkOrigin(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 || slices.Contains(allowed, "*") {
			return true
		}
		return slices.Contains(allowed, origin)
	}
}

// Run owns client registration until ctx is cancelled, then closes every stream.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	defer h.cleanup()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.mu.Lock()
			set, ok := h.clients[c.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[c.userID] = set
			}
			set[c] = struct{}{}
			h.mu.Unlock()

		case c := <-h.unregister:
			h.mu.Lock()
			if set, ok := h.clients[c.userID]; ok {
				if _, ok := set[c]; ok {
					delete(set, c)
					close(c.send)
				}
				if len(set) == 0 {
					delete(h.clients, c.userID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Serve upgrades the request and streams userID's notifications to it.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID int64) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	c := newClient(conn, userID)
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return nil
	}

	go c.writePump(h)
	go c.readPump(h)
	return nil
}

// Push sends n to every connected client of its user without blocking.
// It reports how many clients accepted the event.
func (h *Hub) Push(n *domain.Notification) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	event := &Event{Type: EventNotificationCreated, Data: n}
	delivered := 0
	for c := range h.clients[n.UserID] {
		select {
		case c.send <- event:
			delivered++
		default:
			h.logger.Warn(logging.IO, logging.Push, "notification stream buffer full", map[logging.ExtraKey]any{
				logging.UserID:         n.UserID,
				logging.NotificationID: n.ID,
			})
		}
	}
	return delivered
}

// Connected returns the number of open streams for userID.
func (h *Hub) Connected(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) cleanup() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, set := range h.clients {
		for c := range set {
			close(c.send)
		}
	}
	h.clients = make(map[int64]map[*Client]struct{})

	h.logger.Info(logging.IO, logging.Shutdown, "notification hub stopped", nil)
}
