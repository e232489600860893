package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rudrark0109/sync-chat/internal/api"
	"github.com/rudrark0109/sync-chat/internal/chat"
	"github.com/rudrark0109/sync-chat/internal/handlers"
	"github.com/rudrark0109/sync-chat/internal/store"
	"github.com/rudrark0109/sync-chat/internal/ws"
)

type testEnv struct {
	server *httptest.Server
	store  *store.SQLiteStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dataStore, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite store: %v", err)
	}
	t.Cleanup(dataStore.Close)

	logger := zerolog.Nop()
	hub := ws.NewHub(logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	router := api.NewRouter(api.Deps{
		Logger:         logger,
		Store:          dataStore,
		Sessions:       store.NewMemorySessions(),
		Hub:            hub,
		ChatRouter:     chat.NewRouter(dataStore, hub, logger),
		SessionTTL:     time.Hour,
		AllowedOrigins: []string{"http://app.example.com"},
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testEnv{server: server, store: dataStore}
}

func (e *testEnv) postJSON(t *testing.T, client *http.Client, path string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("failed to encode body: %v", err)
	}
	resp, err := client.Post(e.server.URL+path, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST %s failed: %v", path, err)
	}
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func (e *testEnv) register(t *testing.T, username, email, password string) handlers.RegisterResponse {
	t.Helper()
	resp := e.postJSON(t, http.DefaultClient, "/register", handlers.RegisterRequest{
		Username: username,
		Email:    email,
		Password: password,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d", username, resp.StatusCode)
	}
	var out handlers.RegisterResponse
	decodeJSON(t, resp, &out)
	return out
}

// login returns an http.Client whose cookie jar holds the session.
func (e *testEnv) login(t *testing.T, email, password string) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	client := &http.Client{Jar: jar}
	resp := e.postJSON(t, client, "/login", handlers.LoginRequest{Email: email, Password: password})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d", email, resp.StatusCode)
	}
	return client
}

func errorMessage(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body map[string]string
	decodeJSON(t, resp, &body)
	return body["error"]
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	cases := []struct {
		name string
		req  handlers.RegisterRequest
	}{
		{"missing username", handlers.RegisterRequest{Email: "a@example.com", Password: "secret1"}},
		{"bad email", handlers.RegisterRequest{Username: "a", Email: "not-an-email", Password: "secret1"}},
		{"short password", handlers.RegisterRequest{Username: "a", Email: "a@example.com", Password: "short"}},
	}
	for _, tc := range cases {
		resp := env.postJSON(t, http.DefaultClient, "/register", tc.req)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", tc.name, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestRegisterDuplicates(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "secret1")

	resp := env.postJSON(t, http.DefaultClient, "/register", handlers.RegisterRequest{
		Username: "alice2", Email: "alice@example.com", Password: "secret1",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate email: expected 409, got %d", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != "email address already exists" {
		t.Fatalf("duplicate email message: %q", msg)
	}

	resp = env.postJSON(t, http.DefaultClient, "/register", handlers.RegisterRequest{
		Username: "alice", Email: "alice2@example.com", Password: "secret1",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate username: expected 409, got %d", resp.StatusCode)
	}
	if msg := errorMessage(t, resp); msg != "username already exists" {
		t.Fatalf("duplicate username message: %q", msg)
	}
}

func TestLoginFailuresAreUniform(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "secret1")

	wrongPassword := env.postJSON(t, http.DefaultClient, "/login", handlers.LoginRequest{
		Email: "alice@example.com", Password: "wrong-1",
	})
	unknownEmail := env.postJSON(t, http.DefaultClient, "/login", handlers.LoginRequest{
		Email: "ghost@example.com", Password: "secret1",
	})

	if wrongPassword.StatusCode != http.StatusUnauthorized || unknownEmail.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", wrongPassword.StatusCode, unknownEmail.StatusCode)
	}
	msgA := errorMessage(t, wrongPassword)
	msgB := errorMessage(t, unknownEmail)
	if msgA != msgB {
		t.Fatalf("failure messages differ: %q vs %q", msgA, msgB)
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "secret1")
	client := env.login(t, "alice@example.com", "secret1")

	resp, err := client.Get(env.server.URL + "/api/conversations")
	if err != nil {
		t.Fatalf("GET /api/conversations failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("authenticated request: expected 200, got %d", resp.StatusCode)
	}

	resp = env.postJSON(t, client, "/logout", struct{}{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", resp.StatusCode)
	}

	resp, err = client.Get(env.server.URL + "/api/conversations")
	if err != nil {
		t.Fatalf("GET after logout failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("after logout: expected 401, got %d", resp.StatusCode)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{
		"/api/conversations",
		"/api/messages/" + uuid.NewString(),
	} {
		resp, err := http.Get(env.server.URL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s without a session: expected 401, got %d", path, resp.StatusCode)
		}
	}
}

func TestConversationListAndHistoryFetch(t *testing.T) {
	env := newTestEnv(t)
	alice := env.register(t, "alice", "alice@example.com", "secret1")
	bob := env.register(t, "bob", "bob@example.com", "secret1")
	env.register(t, "carol", "carol@example.com", "secret1")

	aliceID := uuid.MustParse(alice.ID)
	bobID := uuid.MustParse(bob.ID)
	ctx := context.Background()
	for _, content := range []string{"hey", "you there?"} {
		if _, err := env.store.CreateMessage(ctx, bobID, aliceID, content, false); err != nil {
			t.Fatalf("seeding message failed: %v", err)
		}
	}

	client := env.login(t, "alice@example.com", "secret1")

	resp, err := client.Get(env.server.URL + "/api/conversations")
	if err != nil {
		t.Fatalf("GET /api/conversations failed: %v", err)
	}
	var list handlers.ConversationListResponse
	decodeJSON(t, resp, &list)
	if len(list.Conversations) != 2 {
		t.Fatalf("expected 2 peers (viewer excluded), got %d", len(list.Conversations))
	}
	unreadByName := make(map[string]int64)
	for _, c := range list.Conversations {
		unreadByName[c.Username] = c.UnreadCount
	}
	if unreadByName["bob"] != 2 || unreadByName["carol"] != 0 {
		t.Fatalf("unexpected unread badges: %v", unreadByName)
	}

	resp, err = client.Get(env.server.URL + "/api/messages/" + bob.ID)
	if err != nil {
		t.Fatalf("GET /api/messages failed: %v", err)
	}
	var history handlers.MessageListResponse
	decodeJSON(t, resp, &history)
	if len(history.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(history.Messages))
	}
	if history.Messages[0].Content != "hey" || history.Messages[1].Content != "you there?" {
		t.Fatalf("history out of order: %+v", history.Messages)
	}
	for _, m := range history.Messages {
		if m.SenderID != bob.ID {
			t.Fatalf("unexpected sender %s", m.SenderID)
		}
	}

	// Fetching the history cleared the unread badge.
	resp, err = client.Get(env.server.URL + "/api/conversations")
	if err != nil {
		t.Fatalf("GET /api/conversations failed: %v", err)
	}
	decodeJSON(t, resp, &list)
	for _, c := range list.Conversations {
		if c.Username == "bob" && c.UnreadCount != 0 {
			t.Fatalf("bob's unread badge should be 0 after fetch, got %d", c.UnreadCount)
		}
	}
}

func TestGetMessagesBadPeer(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "secret1")
	client := env.login(t, "alice@example.com", "secret1")

	resp, err := client.Get(env.server.URL + "/api/messages/not-a-uuid")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("malformed peer ID: expected 400, got %d", resp.StatusCode)
	}

	resp, err = client.Get(env.server.URL + "/api/messages/" + uuid.NewString())
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown peer: expected 404, got %d", resp.StatusCode)
	}
}

func TestListUsersPublic(t *testing.T) {
	env := newTestEnv(t)
	env.register(t, "alice", "alice@example.com", "secret1")
	env.register(t, "bob", "bob@example.com", "secret1")

	resp, err := http.Get(env.server.URL + "/api/users")
	if err != nil {
		t.Fatalf("GET /api/users failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var out handlers.UserListResponse
	decodeJSON(t, resp, &out)
	if len(out.Users) != 2 {
		t.Fatalf("expected 2 users, got %d", len(out.Users))
	}
	for _, u := range out.Users {
		if u.ID == "" || u.Username == "" || u.CreatedAt == "" {
			t.Fatalf("incomplete user entry: %+v", u)
		}
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var health handlers.HealthResponse
	decodeJSON(t, resp, &health)
	if health.Status != "healthy" {
		t.Fatalf("expected healthy, got %q", health.Status)
	}
	if health.Checks["database"].Status != "pass" {
		t.Fatalf("database check: %+v", health.Checks["database"])
	}
	if _, ok := health.Checks["redis"]; ok {
		t.Fatal("redis check should be absent when redis is not configured")
	}
}

func TestCORSCredentialedOrigin(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/api/users", nil)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Origin", "http://app.example.com")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()

	// A wildcard here would make browsers drop the session cookie on
	// credentialed requests; the configured origin must be echoed back.
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "http://app.example.com" {
		t.Fatalf("Access-Control-Allow-Origin = %q, want the configured origin", got)
	}
	if resp.Header.Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("expected Access-Control-Allow-Credentials: true")
	}

	req, err = http.NewRequest(http.MethodGet, env.server.URL+"/api/users", nil)
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	req.Header.Set("Origin", "http://evil.example.com")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unlisted origin must not be allowed, got %q", got)
	}
}

func TestRequireJSONContentType(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Post(env.server.URL+"/register", "text/plain",
		strings.NewReader(`{"username":"x","email":"x@example.com","password":"secret1"}`))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415 for non-JSON content type, got %d", resp.StatusCode)
	}
}
