package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/rudrark0109/sync-chat/internal/metrics"
	"github.com/rudrark0109/sync-chat/internal/store"
)

// RegisterRequest represents the registration request body.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterResponse represents the registration response.
type RegisterResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// newUserEvent is broadcast to all connected clients when someone registers.
type newUserEvent struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Register handles user registration.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	username := sanitizeUsername(req.Username)
	if username == "" {
		h.Error(w, http.StatusBadRequest, "username is required")
		return
	}
	if !isValidEmail(req.Email) {
		h.Error(w, http.StatusBadRequest, "invalid email format")
		return
	}
	if len(req.Password) < 6 {
		h.Error(w, http.StatusBadRequest, "password must be at least 6 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := h.store.CreateUser(r.Context(), username, req.Email, string(hash))
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicateEmail):
			h.Error(w, http.StatusConflict, "email address already exists")
		case errors.Is(err, store.ErrDuplicateUsername):
			h.Error(w, http.StatusConflict, "username already exists")
		default:
			h.Error(w, http.StatusInternalServerError, "failed to create user")
		}
		return
	}
	metrics.UsersRegistered.Inc()

	// Announce the new account to everyone currently connected.
	if payload, err := json.Marshal(newUserEvent{
		Type:     "new_user_joined",
		ID:       user.ID.String(),
		Username: user.Username,
	}); err == nil {
		h.hub.BroadcastAll(payload)
	}

	h.JSON(w, http.StatusCreated, RegisterResponse{
		ID:       user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
	})
}
