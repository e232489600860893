package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/rudrark0109/sync-chat/internal/models"
)

// SQLiteStore handles SQLite database operations. It is the development
// and test backend; production runs on PostgreSQL.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/syncchat.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/syncchat.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		email TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content TEXT NOT NULL,
		is_media INTEGER NOT NULL DEFAULT 0,
		is_read INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		sender_id TEXT NOT NULL REFERENCES users(id),
		receiver_id TEXT NOT NULL REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS daily_analytics (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		date DATE UNIQUE NOT NULL,
		new_users_count INTEGER NOT NULL DEFAULT 0,
		messages_sent_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_messages_unread ON messages(receiver_id, sender_id, is_read);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(sender_id, receiver_id);
	CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// mapSQLiteUnique translates a sqlite unique-constraint violation into the
// matching sentinel error, or returns err unchanged.
func mapSQLiteUnique(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
		switch {
		case strings.Contains(err.Error(), "users.email"):
			return ErrDuplicateEmail
		case strings.Contains(err.Error(), "users.username"):
			return ErrDuplicateUsername
		}
	}
	return err
}

// CreateUser creates a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	id := uuid.New()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_hash, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id.String(), username, email, passwordHash, now)
	if err != nil {
		return nil, mapSQLiteUnique(err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.getUser(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE id = ?
	`, id.String())
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE email = ?
	`, email)
}

func (s *SQLiteStore) getUser(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	user := &models.User{}
	var idStr string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&idStr,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	user.ID = uuid.MustParse(idStr)
	return user, nil
}

// ListUsers retrieves all users, oldest first.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var u models.User
		var idStr string
		if err := rows.Scan(&idStr, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.ID = uuid.MustParse(idStr)
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateMessage persists a new message with a server-assigned timestamp
// and is_read = false.
func (s *SQLiteStore) CreateMessage(ctx context.Context, senderID, receiverID uuid.UUID, content string, isMedia bool) (*models.Message, error) {
	now := time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (content, is_media, is_read, created_at, sender_id, receiver_id)
		VALUES (?, ?, 0, ?, ?, ?)
	`, content, boolToInt(isMedia), now, senderID.String(), receiverID.String())
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &models.Message{
		ID:         id,
		Content:    content,
		IsMedia:    isMedia,
		IsRead:     false,
		CreatedAt:  now,
		SenderID:   senderID,
		ReceiverID: receiverID,
	}, nil
}

// FetchConversation marks unread messages from peerID to viewerID as read,
// then returns the full conversation ascending by timestamp.
func (s *SQLiteStore) FetchConversation(ctx context.Context, viewerID, peerID uuid.UUID) ([]models.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE messages SET is_read = 1
		WHERE sender_id = ? AND receiver_id = ? AND is_read = 0
	`, peerID.String(), viewerID.String())
	if err != nil {
		return nil, err
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT id, content, is_media, is_read, created_at, sender_id, receiver_id
		FROM messages
		WHERE (sender_id = ? AND receiver_id = ?)
		   OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at, id
	`, viewerID.String(), peerID.String(), peerID.String(), viewerID.String())
	if err != nil {
		return nil, err
	}

	msgs, err := scanSQLiteMessages(rows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return msgs, nil
}

func scanSQLiteMessages(rows *sql.Rows) ([]models.Message, error) {
	defer rows.Close()
	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		var isMedia, isRead int
		var senderStr, receiverStr string
		if err := rows.Scan(&m.ID, &m.Content, &isMedia, &isRead, &m.CreatedAt, &senderStr, &receiverStr); err != nil {
			return nil, err
		}
		m.IsMedia = isMedia == 1
		m.IsRead = isRead == 1
		m.SenderID = uuid.MustParse(senderStr)
		m.ReceiverID = uuid.MustParse(receiverStr)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// UnreadCount returns the number of unread messages from peerID to viewerID.
func (s *SQLiteStore) UnreadCount(ctx context.Context, viewerID, peerID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE sender_id = ? AND receiver_id = ? AND is_read = 0
	`, peerID.String(), viewerID.String()).Scan(&count)
	return count, err
}

// UnreadCounts returns per-sender unread counts for viewerID.
func (s *SQLiteStore) UnreadCounts(ctx context.Context, viewerID uuid.UUID) (map[uuid.UUID]int64, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sender_id, COUNT(*) FROM messages
		WHERE receiver_id = ? AND is_read = 0
		GROUP BY sender_id
	`, viewerID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int64)
	for rows.Next() {
		var senderStr string
		var n int64
		if err := rows.Scan(&senderStr, &n); err != nil {
			return nil, err
		}
		counts[uuid.MustParse(senderStr)] = n
	}
	return counts, rows.Err()
}

// CountUsersCreatedOn counts users created on the given calendar date.
func (s *SQLiteStore) CountUsersCreatedOn(ctx context.Context, date time.Time) (int64, error) {
	start, end := dayBounds(date)
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users WHERE created_at >= ? AND created_at < ?
	`, start, end).Scan(&count)
	return count, err
}

// CountMessagesSentOn counts messages sent on the given calendar date.
func (s *SQLiteStore) CountMessagesSentOn(ctx context.Context, date time.Time) (int64, error) {
	start, end := dayBounds(date)
	var count int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM messages WHERE created_at >= ? AND created_at < ?
	`, start, end).Scan(&count)
	return count, err
}

// UpsertDailyAnalytics writes the summary row for a date, replacing the
// counts if the row already exists.
func (s *SQLiteStore) UpsertDailyAnalytics(ctx context.Context, date time.Time, newUsers, messagesSent int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_analytics (date, new_users_count, messages_sent_count)
		VALUES (?, ?, ?)
		ON CONFLICT (date) DO UPDATE
		SET new_users_count = excluded.new_users_count,
		    messages_sent_count = excluded.messages_sent_count
	`, dateString(date), newUsers, messagesSent)
	return err
}

// GetDailyAnalytics retrieves the summary row for a date.
func (s *SQLiteStore) GetDailyAnalytics(ctx context.Context, date time.Time) (*models.DailyAnalytics, error) {
	row := &models.DailyAnalytics{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, date, new_users_count, messages_sent_count
		FROM daily_analytics WHERE date = ?
	`, dateString(date)).Scan(
		&row.ID,
		&row.Date,
		&row.NewUsersCount,
		&row.MessagesSentCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}

// dayBounds returns the UTC start of the given calendar date and of the
// following day.
func dayBounds(date time.Time) (time.Time, time.Time) {
	y, m, d := date.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
