package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/rudrark0109/sync-chat/internal/api/middleware"
)

// MessageResponse represents one message in a history response.
type MessageResponse struct {
	ID       int64  `json:"id"`
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
	IsMedia  bool   `json:"is_media"`
	IsRead   bool   `json:"is_read"`
	TS       int64  `json:"ts"`
}

// MessageListResponse represents the history fetch response.
type MessageListResponse struct {
	Messages []MessageResponse `json:"messages"`
}

// GetMessages returns the viewer's conversation with the peer in the URL,
// ascending by timestamp. Side effect: all of the peer's unread messages
// to the viewer are marked read, whether or not the caller displays them.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.GetUserFromContext(r.Context())
	if viewer == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	peerID, err := uuid.Parse(chi.URLParam(r, "peerID"))
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid peer ID format")
		return
	}

	peer, err := h.store.GetUserByID(r.Context(), peerID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if peer == nil {
		h.Error(w, http.StatusNotFound, "peer not found")
		return
	}

	msgs, err := h.store.FetchConversation(r.Context(), viewer.ID, peerID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to fetch conversation")
		return
	}

	messages := make([]MessageResponse, len(msgs))
	for i, m := range msgs {
		messages[i] = MessageResponse{
			ID:       m.ID,
			SenderID: m.SenderID.String(),
			Content:  m.Content,
			IsMedia:  m.IsMedia,
			IsRead:   m.IsRead,
			TS:       m.CreatedAt.UnixMilli(),
		}
	}

	h.JSON(w, http.StatusOK, MessageListResponse{Messages: messages})
}
