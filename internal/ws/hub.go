package ws

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rudrark0109/sync-chat/internal/metrics"
)

// OnlineStatusEvent is broadcast to every connected client after each
// connect or disconnect. It carries the complete set of online user IDs.
type OnlineStatusEvent struct {
	Type   string   `json:"type"`
	Online []string `json:"online"`
}

// Hub is the presence registry: it owns the mapping from user ID to that
// user's active connection. It starts empty and is rebuilt from zero on
// restart; there is no persistence or reconciliation.
//
// A user has at most one addressable connection. A second connection for
// the same user closes and replaces the first.
type Hub struct {
	mu      sync.RWMutex
	clients map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	logger zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes connect and disconnect events until ctx is canceled, then
// closes every remaining client.
func (h *Hub) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			h.closeAllClients()
			close(h.done)
			return ctx.Err()

		case c := <-h.register:
			h.addClient(c)
			h.broadcastOnlineSet()

		case c := <-h.unregister:
			if h.removeClient(c) {
				h.broadcastOnlineSet()
			}
		}
	}
}

// Register announces a new authenticated connection to the hub. A no-op
// after shutdown so read pumps unwinding late do not block.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

// Unregister removes a connection from the hub. Safe to call for a
// connection that was already replaced by a newer one, and a no-op after
// shutdown.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if old, ok := h.clients[c.userID]; ok && old != c {
		// Overwrite-on-connect: only the most recent connection is
		// addressable.
		old.shutdown()
	}
	h.clients[c.userID] = c
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WebsocketConnections.Set(float64(total))
	h.logger.Info().
		Str("user_id", c.userID.String()).
		Int("online", total).
		Msg("websocket client connected")
}

// removeClient deletes the mapping only if it still points at this exact
// client. Disconnect is reported per-connection, so a stale disconnect
// from a replaced connection must not evict the live one.
func (h *Hub) removeClient(c *Client) bool {
	h.mu.Lock()
	current, ok := h.clients[c.userID]
	if !ok || current != c {
		h.mu.Unlock()
		return false
	}
	delete(h.clients, c.userID)
	c.shutdown()
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WebsocketConnections.Set(float64(total))
	h.logger.Info().
		Str("user_id", c.userID.String()).
		Int("online", total).
		Msg("websocket client disconnected")
	return true
}

// SendToUser pushes a payload to the user's connection if one is present.
// It reports whether a connection was found; a full send buffer drops the
// payload (delivery is best-effort). The lock is held across the send so
// it stays ordered with the hub's map mutations; send channels themselves
// are never closed, so a racing disconnect cannot panic a sender.
func (h *Hub) SendToUser(userID uuid.UUID, payload []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[userID]
	if !ok {
		return false
	}

	select {
	case c.send <- payload:
	default:
		// Slow consumer; the payload is dropped, the persisted row is
		// still discoverable via history fetch.
	}
	return true
}

// BroadcastAll pushes a payload to every connected client.
func (h *Hub) BroadcastAll(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- payload:
		default:
		}
	}
}

// OnlineIDs returns the sorted set of currently online user IDs.
func (h *Hub) OnlineIDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id.String())
	}
	sort.Strings(ids)
	return ids
}

// broadcastOnlineSet sends the full online-user list to every client.
func (h *Hub) broadcastOnlineSet() {
	payload, err := json.Marshal(OnlineStatusEvent{
		Type:   "online_status_update",
		Online: h.OnlineIDs(),
	})
	if err != nil {
		return
	}
	h.BroadcastAll(payload)
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	for id, c := range h.clients {
		c.shutdown()
		delete(h.clients, id)
	}
	h.mu.Unlock()

	metrics.WebsocketConnections.Set(0)
	h.logger.Info().Msg("closed all websocket clients during shutdown")
}
