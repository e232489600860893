package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rudrark0109/sync-chat/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// mapUniqueViolation translates a unique-constraint violation into the
// matching sentinel error, or returns err unchanged.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch {
		case strings.Contains(pgErr.ConstraintName, "email"):
			return ErrDuplicateEmail
		case strings.Contains(pgErr.ConstraintName, "username"):
			return ErrDuplicateUsername
		}
	}
	return err
}

// CreateUser creates a new user record.
func (s *PostgresStore) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, username, email, password_hash, created_at
	`, username, email, passwordHash).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, mapUniqueViolation(err)
	}
	return user, nil
}

// GetUserByID retrieves a user by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.getUser(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE id = $1
	`, id)
}

// GetUserByEmail retrieves a user by email.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, `
		SELECT id, username, email, password_hash, created_at
		FROM users WHERE email = $1
	`, email)
}

func (s *PostgresStore) getUser(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	user := &models.User{}
	err := s.pool.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// ListUsers retrieves all users, oldest first.
func (s *PostgresStore) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.pool.Query(ctx, `
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
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateMessage persists a new message with a server-assigned timestamp
// and is_read = false.
func (s *PostgresStore) CreateMessage(ctx context.Context, senderID, receiverID uuid.UUID, content string, isMedia bool) (*models.Message, error) {
	msg := &models.Message{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (content, is_media, sender_id, receiver_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, content, is_media, is_read, created_at, sender_id, receiver_id
	`, content, isMedia, senderID, receiverID).Scan(
		&msg.ID,
		&msg.Content,
		&msg.IsMedia,
		&msg.IsRead,
		&msg.CreatedAt,
		&msg.SenderID,
		&msg.ReceiverID,
	)
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// FetchConversation marks unread messages from peerID to viewerID as read,
// then returns the full conversation ascending by timestamp. Both steps
// run in one transaction so the returned history reflects the read flip.
func (s *PostgresStore) FetchConversation(ctx context.Context, viewerID, peerID uuid.UUID) ([]models.Message, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE messages SET is_read = TRUE
		WHERE sender_id = $1 AND receiver_id = $2 AND is_read = FALSE
	`, peerID, viewerID)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, content, is_media, is_read, created_at, sender_id, receiver_id
		FROM messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at, id
	`, viewerID, peerID)
	if err != nil {
		return nil, err
	}

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return msgs, nil
}

func scanMessages(rows pgx.Rows) ([]models.Message, error) {
	defer rows.Close()
	var msgs []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.Content, &m.IsMedia, &m.IsRead, &m.CreatedAt, &m.SenderID, &m.ReceiverID); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// UnreadCount returns the number of unread messages from peerID to viewerID.
func (s *PostgresStore) UnreadCount(ctx context.Context, viewerID, peerID uuid.UUID) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages
		WHERE sender_id = $1 AND receiver_id = $2 AND is_read = FALSE
	`, peerID, viewerID).Scan(&count)
	return count, err
}

// UnreadCounts returns per-sender unread counts for viewerID.
func (s *PostgresStore) UnreadCounts(ctx context.Context, viewerID uuid.UUID) (map[uuid.UUID]int64, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT sender_id, COUNT(*) FROM messages
		WHERE receiver_id = $1 AND is_read = FALSE
		GROUP BY sender_id
	`, viewerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[uuid.UUID]int64)
	for rows.Next() {
		var sender uuid.UUID
		var n int64
		if err := rows.Scan(&sender, &n); err != nil {
			return nil, err
		}
		counts[sender] = n
	}
	return counts, rows.Err()
}

// CountUsersCreatedOn counts users created on the given calendar date.
func (s *PostgresStore) CountUsersCreatedOn(ctx context.Context, date time.Time) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM users WHERE created_at::date = $1::date
	`, dateString(date)).Scan(&count)
	return count, err
}

// CountMessagesSentOn counts messages sent on the given calendar date.
func (s *PostgresStore) CountMessagesSentOn(ctx context.Context, date time.Time) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM messages WHERE created_at::date = $1::date
	`, dateString(date)).Scan(&count)
	return count, err
}

// UpsertDailyAnalytics writes the summary row for a date, replacing the
// counts if the row already exists. The single statement keeps the write
// all-or-nothing.
func (s *PostgresStore) UpsertDailyAnalytics(ctx context.Context, date time.Time, newUsers, messagesSent int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO daily_analytics (date, new_users_count, messages_sent_count)
		VALUES ($1::date, $2, $3)
		ON CONFLICT (date) DO UPDATE
		SET new_users_count = EXCLUDED.new_users_count,
		    messages_sent_count = EXCLUDED.messages_sent_count
	`, dateString(date), newUsers, messagesSent)
	return err
}

// GetDailyAnalytics retrieves the summary row for a date.
func (s *PostgresStore) GetDailyAnalytics(ctx context.Context, date time.Time) (*models.DailyAnalytics, error) {
	row := &models.DailyAnalytics{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, date, new_users_count, messages_sent_count
		FROM daily_analytics WHERE date = $1::date
	`, dateString(date)).Scan(
		&row.ID,
		&row.Date,
		&row.NewUsersCount,
		&row.MessagesSentCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return row, nil
}

// dateString normalizes a time to its calendar date in YYYY-MM-DD form.
func dateString(t time.Time) string {
	return t.Format("2006-01-02")
}
