package ws

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rudrark0109/sync-chat/internal/api/middleware"
	"github.com/rudrark0109/sync-chat/internal/chat"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// ServeWS upgrades an authenticated HTTP request to a WebSocket,
// registers the connection with the hub and starts the pumps. It must sit
// behind the session-auth middleware.
func ServeWS(hub *Hub, router *chat.Router, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.GetUserFromContext(r.Context())
		if user == nil {
			http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("websocket upgrade failed")
			return
		}

		client := &Client{
			hub:    hub,
			conn:   conn,
			send:   make(chan []byte, 256),
			done:   make(chan struct{}),
			userID: user.ID,
			router: router,
			logger: logger,
		}

		hub.Register(client)
		go client.Serve(context.Background())
	}
}
