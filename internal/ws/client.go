package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rudrark0109/sync-chat/internal/chat"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	maxMessageSize = 4096
)

// Client is one authenticated WebSocket connection: the connection handle
// the presence registry maps a user to.
//
// The send channel is never closed. The hub signals a replaced or removed
// connection through done, and the write pump owns the connection's
// teardown, so goroutines pushing into send cannot hit a closed channel.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	done     chan struct{}
	doneOnce sync.Once
	userID   uuid.UUID
	router   *chat.Router
	logger   zerolog.Logger
}

// shutdown asks the write pump to close the connection. Idempotent.
func (c *Client) shutdown() {
	c.doneOnce.Do(func() { close(c.done) })
}

// inboundEnvelope is the frame clients send.
type inboundEnvelope struct {
	Type        string `json:"type"`
	RecipientID string `json:"recipient_id"`
	Content     string `json:"content"`
	IsMedia     bool   `json:"is_media"`
}

func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Str("user_id", c.userID.String()).Msg("websocket read error")
			}
			return
		}

		var env inboundEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			c.sendError("invalid_json")
			continue
		}

		switch env.Type {
		case "private_message":
			c.handlePrivateMessage(ctx, env)
		default:
			c.sendError("unsupported_type")
		}
	}
}

func (c *Client) handlePrivateMessage(ctx context.Context, env inboundEnvelope) {
	if env.RecipientID == "" || env.Content == "" {
		c.sendError("missing_fields")
		return
	}
	recipientID, err := uuid.Parse(env.RecipientID)
	if err != nil {
		c.sendError("invalid_recipient")
		return
	}

	if _, err := c.router.Send(ctx, c.userID, recipientID, env.Content, env.IsMedia); err != nil {
		if errors.Is(err, chat.ErrUnknownRecipient) {
			c.sendError("unknown_recipient")
			return
		}
		c.logger.Error().Err(err).Str("user_id", c.userID.String()).Msg("message send failed")
		c.sendError("send_failed")
	}
}

// sendError queues an error frame for the client; dropped if the buffer
// is full.
func (c *Client) sendError(code string) {
	payload, _ := json.Marshal(map[string]string{"type": "error", "error": code})
	select {
	case c.send <- payload:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker((pongWait * 9) / 10)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-c.done:
			// Replaced by a newer connection or the hub is shutting down.
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Serve runs the client's pumps; it returns when the connection drops.
func (c *Client) Serve(ctx context.Context) {
	go c.writePump()
	c.readPump(ctx)
}
