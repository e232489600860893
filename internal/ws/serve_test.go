package ws_test

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
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/rudrark0109/sync-chat/internal/api"
	"github.com/rudrark0109/sync-chat/internal/chat"
	"github.com/rudrark0109/sync-chat/internal/store"
	"github.com/rudrark0109/sync-chat/internal/ws"
)

type wsEnv struct {
	server *httptest.Server
	store  *store.SQLiteStore
}

func newWSEnv(t *testing.T) *wsEnv {
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
		Logger:     logger,
		Store:      dataStore,
		Sessions:   store.NewMemorySessions(),
		Hub:        hub,
		ChatRouter: chat.NewRouter(dataStore, hub, logger),
		SessionTTL: time.Hour,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &wsEnv{server: server, store: dataStore}
}

// signup registers a user over HTTP and returns their ID plus a cookie
// jar holding a live session.
func (e *wsEnv) signup(t *testing.T, username, email string) (uuid.UUID, http.CookieJar) {
	t.Helper()

	body, _ := json.Marshal(map[string]string{
		"username": username, "email": email, "password": "secret1",
	})
	resp, err := http.Post(e.server.URL+"/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	var reg struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reg); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s: status %d", username, resp.StatusCode)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	client := &http.Client{Jar: jar}
	body, _ = json.Marshal(map[string]string{"email": email, "password": "secret1"})
	resp, err = client.Post(e.server.URL+"/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login %s: status %d", username, resp.StatusCode)
	}

	return uuid.MustParse(reg.ID), jar
}

func (e *wsEnv) dial(t *testing.T, jar http.CookieJar) *websocket.Conn {
	t.Helper()
	dialer := websocket.Dialer{Jar: jar}
	wsURL := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws"
	conn, _, err := dialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitForEvent reads frames until one of the given type arrives.
func waitForEvent(t *testing.T, conn *websocket.Conn, eventType string) map[string]interface{} {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var frame map[string]interface{}
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("waiting for %q frame: %v", eventType, err)
		}
		if frame["type"] == eventType {
			return frame
		}
	}
}

// waitForOnlineSet reads online_status_update frames until the set
// matches want exactly.
func waitForOnlineSet(t *testing.T, conn *websocket.Conn, want ...uuid.UUID) {
	t.Helper()
	wanted := make(map[string]bool, len(want))
	for _, id := range want {
		wanted[id.String()] = true
	}
	deadline := time.Now().Add(5 * time.Second)
	for {
		_ = conn.SetReadDeadline(deadline)
		var frame struct {
			Type   string   `json:"type"`
			Online []string `json:"online"`
		}
		if err := conn.ReadJSON(&frame); err != nil {
			t.Fatalf("waiting for online set %v: %v", want, err)
		}
		if frame.Type != "online_status_update" {
			continue
		}
		if len(frame.Online) != len(wanted) {
			continue
		}
		match := true
		for _, id := range frame.Online {
			if !wanted[id] {
				match = false
				break
			}
		}
		if match {
			return
		}
	}
}

func TestWebsocketRequiresSession(t *testing.T) {
	env := newWSEnv(t)

	wsURL := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err == nil {
		t.Fatal("expected the handshake to fail without a session")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %+v", resp)
	}
}

func TestPresenceAndMessageDelivery(t *testing.T) {
	env := newWSEnv(t)
	aliceID, aliceJar := env.signup(t, "alice", "alice@example.com")
	bobID, bobJar := env.signup(t, "bob", "bob@example.com")

	alice := env.dial(t, aliceJar)
	waitForOnlineSet(t, alice, aliceID)

	bob := env.dial(t, bobJar)
	waitForOnlineSet(t, alice, aliceID, bobID)
	waitForOnlineSet(t, bob, aliceID, bobID)

	err := alice.WriteJSON(map[string]interface{}{
		"type":         "private_message",
		"recipient_id": bobID.String(),
		"content":      "hello over the wire",
	})
	if err != nil {
		t.Fatalf("send failed: %v", err)
	}

	frame := waitForEvent(t, bob, "new_message")
	if frame["sender_id"] != aliceID.String() {
		t.Fatalf("unexpected sender: %v", frame["sender_id"])
	}
	if frame["content"] != "hello over the wire" {
		t.Fatalf("unexpected content: %v", frame["content"])
	}

	// The pushed message is also durable.
	msgs, err := env.store.FetchConversation(context.Background(), bobID, aliceID)
	if err != nil {
		t.Fatalf("FetchConversation failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "hello over the wire" {
		t.Fatalf("expected the message persisted, got %+v", msgs)
	}

	// Bob leaving shrinks the online set announced to alice.
	bob.Close()
	waitForOnlineSet(t, alice, aliceID)
}

func TestNewUserAnnouncement(t *testing.T) {
	env := newWSEnv(t)
	aliceID, aliceJar := env.signup(t, "alice", "alice@example.com")

	alice := env.dial(t, aliceJar)
	waitForOnlineSet(t, alice, aliceID)

	env.signup(t, "carol", "carol@example.com")

	frame := waitForEvent(t, alice, "new_user_joined")
	if frame["username"] != "carol" {
		t.Fatalf("expected carol announcement, got %v", frame)
	}
}

func TestInboundFrameErrors(t *testing.T) {
	env := newWSEnv(t)
	aliceID, aliceJar := env.signup(t, "alice", "alice@example.com")
	alice := env.dial(t, aliceJar)
	waitForOnlineSet(t, alice, aliceID)

	expectError := func(payload interface{}, code string) {
		t.Helper()
		if err := alice.WriteJSON(payload); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		frame := waitForEvent(t, alice, "error")
		if frame["error"] != code {
			t.Fatalf("expected error %q, got %v", code, frame["error"])
		}
	}

	expectError(map[string]string{"type": "shout"}, "unsupported_type")
	expectError(map[string]string{"type": "private_message"}, "missing_fields")
	expectError(map[string]string{
		"type": "private_message", "recipient_id": "not-a-uuid", "content": "x",
	}, "invalid_recipient")
	expectError(map[string]string{
		"type": "private_message", "recipient_id": uuid.NewString(), "content": "x",
	}, "unknown_recipient")
}
