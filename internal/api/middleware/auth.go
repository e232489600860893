package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/rudrark0109/sync-chat/internal/models"
	"github.com/rudrark0109/sync-chat/internal/store"
)

type contextKey string

const UserContextKey contextKey = "user"

// SessionCookie is the name of the session cookie set on login.
const SessionCookie = "syncchat_session"

// AuthMiddleware resolves the session cookie to a user for protected
// endpoints.
type AuthMiddleware struct {
	store    store.DataStore
	sessions store.Sessions
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(dataStore store.DataStore, sessions store.Sessions) *AuthMiddleware {
	return &AuthMiddleware{store: dataStore, sessions: sessions}
}

// RequireAuth rejects requests without a valid session uniformly; it never
// distinguishes a missing cookie from an expired or forged one.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookie)
		if err != nil || cookie.Value == "" {
			jsonError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		userID, ok, err := m.sessions.GetSession(r.Context(), cookie.Value)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "session lookup failed")
			return
		}
		if !ok {
			jsonError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		user, err := m.store.GetUserByID(r.Context(), userID)
		if err != nil {
			jsonError(w, http.StatusInternalServerError, "database error")
			return
		}
		if user == nil {
			jsonError(w, http.StatusUnauthorized, "authentication required")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}

// GetUserFromContext retrieves the authenticated user from the request context.
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// NewSessionToken returns a 64-hex-char random session token.
func NewSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
