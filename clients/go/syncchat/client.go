// Package syncchat provides a Go client for the sync-chat HTTP and
// WebSocket API.
package syncchat

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a sync-chat API client. Login stores the session cookie in
// the client's jar; subsequent calls and the WebSocket connection reuse it.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new client for the given base URL.
func NewClient(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
	}
}

// User is a user record returned by the API.
type User struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at,omitempty"`
}

// Conversation is one peer entry from the conversation listing.
type Conversation struct {
	PeerID      string `json:"peer_id"`
	Username    string `json:"username"`
	UnreadCount int64  `json:"unread_count"`
}

// Message is one history entry.
type Message struct {
	ID       int64  `json:"id"`
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
	IsMedia  bool   `json:"is_media"`
	IsRead   bool   `json:"is_read"`
	TS       int64  `json:"ts"`
}

type apiError struct {
	Error string `json:"error"`
}

func (c *Client) do(method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// Register creates a new account.
func (c *Client) Register(username, email, password string) (*User, error) {
	var user User
	err := c.do(http.MethodPost, "/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates and stores the session cookie.
func (c *Client) Login(email, password string) (*User, error) {
	var user User
	err := c.do(http.MethodPost, "/login", map[string]string{
		"email":    email,
		"password": password,
	}, &user)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout ends the session.
func (c *Client) Logout() error {
	return c.do(http.MethodPost, "/logout", nil, nil)
}

// Users lists all registered users.
func (c *Client) Users() ([]User, error) {
	var resp struct {
		Users []User `json:"users"`
	}
	if err := c.do(http.MethodGet, "/api/users", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// Conversations lists chat peers with unread counts.
func (c *Client) Conversations() ([]Conversation, error) {
	var resp struct {
		Conversations []Conversation `json:"conversations"`
	}
	if err := c.do(http.MethodGet, "/api/conversations", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Conversations, nil
}

// Messages fetches the conversation with a peer. Server side, this marks
// the peer's messages to the caller as read.
func (c *Client) Messages(peerID string) ([]Message, error) {
	var resp struct {
		Messages []Message `json:"messages"`
	}
	if err := c.do(http.MethodGet, "/api/messages/"+peerID, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// Event is a frame received over the realtime channel.
type Event struct {
	Type     string   `json:"type"`
	SenderID string   `json:"sender_id,omitempty"`
	Content  string   `json:"content,omitempty"`
	IsMedia  bool     `json:"is_media,omitempty"`
	TS       int64    `json:"ts,omitempty"`
	Online   []string `json:"online,omitempty"`
	ID       string   `json:"id,omitempty"`
	Username string   `json:"username,omitempty"`
	Error    string   `json:"error,omitempty"`
}

// Conn is a live realtime connection.
type Conn struct {
	ws *websocket.Conn
}

// Connect opens the WebSocket using the logged-in session cookie.
func (c *Client) Connect() (*Conn, error) {
	u, err := url.Parse(c.BaseURL + "/ws")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	header := http.Header{}
	httpURL, _ := url.Parse(c.BaseURL)
	for _, cookie := range c.HTTPClient.Jar.Cookies(httpURL) {
		header.Add("Cookie", cookie.String())
	}

	ws, _, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		return nil, err
	}
	return &Conn{ws: ws}, nil
}

// Send sends a direct message to a recipient.
func (c *Conn) Send(recipientID, content string, isMedia bool) error {
	return c.ws.WriteJSON(map[string]interface{}{
		"type":         "private_message",
		"recipient_id": recipientID,
		"content":      content,
		"is_media":     isMedia,
	})
}

// Next blocks until the next event arrives.
func (c *Conn) Next() (*Event, error) {
	var ev Event
	if err := c.ws.ReadJSON(&ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// Close closes the connection.
func (c *Conn) Close() error {
	return c.ws.Close()
}
