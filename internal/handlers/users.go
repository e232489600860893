package handlers

import (
	"net/http"
	"time"
)

// UserInfo represents a user in the public listing.
type UserInfo struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
}

// UserListResponse represents the user listing response.
type UserListResponse struct {
	Users []UserInfo `json:"users"`
}

// ListUsers handles the read-only listing of all users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.store.ListUsers(r.Context())
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	out := make([]UserInfo, len(users))
	for i, u := range users {
		out[i] = UserInfo{
			ID:        u.ID.String(),
			Username:  u.Username,
			Email:     u.Email,
			CreatedAt: u.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	h.JSON(w, http.StatusOK, UserListResponse{Users: out})
}
