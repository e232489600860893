package handlers

import (
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/rudrark0109/sync-chat/internal/store"
	"github.com/rudrark0109/sync-chat/internal/ws"
)

// emailRegex validates email addresses per RFC 5322 (simplified).
var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store      store.DataStore
	sessions   store.Sessions
	hub        *ws.Hub
	sessionTTL time.Duration
	logger     zerolog.Logger
}

// NewHandler creates a new Handler with the given dependencies.
func NewHandler(dataStore store.DataStore, sessions store.Sessions, hub *ws.Hub, sessionTTL time.Duration, logger zerolog.Logger) *Handler {
	return &Handler{
		store:      dataStore,
		sessions:   sessions,
		hub:        hub,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// sanitizeUsername trims and limits a username to 80 characters, removing
// control characters.
func sanitizeUsername(name string) string {
	name = strings.TrimSpace(name)

	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	if len(name) > 80 {
		name = name[:80]
	}

	return name
}

// isValidEmail validates email addresses using RFC 5322 pattern.
func isValidEmail(email string) bool {
	if len(email) == 0 || len(email) > 120 {
		return false
	}
	return emailRegex.MatchString(email)
}
