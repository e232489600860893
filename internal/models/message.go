package models

import (
	"time"

	"github.com/google/uuid"
)

// Message represents a direct message between two users.
// IsRead flips false -> true exactly once, when the receiver first
// fetches the conversation.
type Message struct {
	ID         int64     `json:"id"`
	Content    string    `json:"content"`
	IsMedia    bool      `json:"is_media"`
	IsRead     bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
	SenderID   uuid.UUID `json:"sender_id"`
	ReceiverID uuid.UUID `json:"receiver_id"`
}
