package handlers

import (
	"net/http"

	"github.com/rudrark0109/sync-chat/internal/api/middleware"
)

// ConversationInfo represents one potential chat peer in the listing.
type ConversationInfo struct {
	PeerID      string `json:"peer_id"`
	Username    string `json:"username"`
	UnreadCount int64  `json:"unread_count"`
}

// ConversationListResponse represents the conversations listing response.
type ConversationListResponse struct {
	Conversations []ConversationInfo `json:"conversations"`
}

// ListConversations returns every other user with the viewer's unread
// count for that peer, for rendering the conversation list with badges.
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	viewer := middleware.GetUserFromContext(r.Context())
	if viewer == nil {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return
	}

	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	unread, err := h.store.UnreadCounts(r.Context(), viewer.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	conversations := make([]ConversationInfo, 0, len(users))
	for _, u := range users {
		if u.ID == viewer.ID {
			continue
		}
		conversations = append(conversations, ConversationInfo{
			PeerID:      u.ID.String(),
			Username:    u.Username,
			UnreadCount: unread[u.ID],
		})
	}

	h.JSON(w, http.StatusOK, ConversationListResponse{Conversations: conversations})
}
