package chat

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rudrark0109/sync-chat/internal/metrics"
	"github.com/rudrark0109/sync-chat/internal/models"
	"github.com/rudrark0109/sync-chat/internal/store"
)

// ErrUnknownRecipient is returned when the recipient does not exist.
var ErrUnknownRecipient = errors.New("unknown recipient")

// Pusher is the presence-side capability the router needs: a best-effort
// push to a user's live connection. SendToUser reports whether a
// connection was found; delivery itself is fire-and-forget.
type Pusher interface {
	SendToUser(userID uuid.UUID, payload []byte) bool
}

// NewMessageEvent is the payload pushed to an online recipient.
type NewMessageEvent struct {
	Type     string `json:"type"`
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
	IsMedia  bool   `json:"is_media"`
	TS       int64  `json:"ts"`
}

// Router routes an outbound message: it persists the message first, then
// pushes it to the recipient's connection if one is present. Persistence
// always completes before the push is attempted, so a concurrent history
// fetch never misses the message.
type Router struct {
	store    store.DataStore
	presence Pusher
	logger   zerolog.Logger
}

// NewRouter creates a message router.
func NewRouter(dataStore store.DataStore, presence Pusher, logger zerolog.Logger) *Router {
	return &Router{store: dataStore, presence: presence, logger: logger}
}

// Send persists a message from senderID to recipientID and pushes it to
// the recipient if online. An offline recipient is not an error; the
// message is discoverable via a later history fetch.
func (r *Router) Send(ctx context.Context, senderID, recipientID uuid.UUID, content string, isMedia bool) (*models.Message, error) {
	recipient, err := r.store.GetUserByID(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if recipient == nil {
		return nil, ErrUnknownRecipient
	}

	msg, err := r.store.CreateMessage(ctx, senderID, recipientID, content, isMedia)
	if err != nil {
		return nil, err
	}
	metrics.MessagesSent.Inc()

	payload, err := json.Marshal(NewMessageEvent{
		Type:     "new_message",
		SenderID: msg.SenderID.String(),
		Content:  msg.Content,
		IsMedia:  msg.IsMedia,
		TS:       msg.CreatedAt.UnixMilli(),
	})
	if err != nil {
		// The message is already durable; a marshal failure only costs
		// the live push.
		r.logger.Error().Err(err).Msg("failed to encode push payload")
		return msg, nil
	}

	if r.presence.SendToUser(recipientID, payload) {
		metrics.MessagesPushed.Inc()
	}

	return msg, nil
}
