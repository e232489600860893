package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/rudrark0109/sync-chat/internal/models"
)

// Sentinel errors returned by DataStore implementations. Drivers report
// uniqueness violations differently; implementations normalize them so
// handlers can respond with a user-facing conflict message.
var (
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUsername = errors.New("username already taken")
)

// DataStore defines the interface for persistent storage of users,
// messages and daily analytics. Both PostgresStore and SQLiteStore
// implement this interface.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User operations
	CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	// Message operations
	CreateMessage(ctx context.Context, senderID, receiverID uuid.UUID, content string, isMedia bool) (*models.Message, error)
	// FetchConversation marks all unread messages from peerID to viewerID
	// as read, then returns the full history between the two in either
	// direction, ascending by timestamp. Both steps run in one transaction.
	FetchConversation(ctx context.Context, viewerID, peerID uuid.UUID) ([]models.Message, error)
	UnreadCount(ctx context.Context, viewerID, peerID uuid.UUID) (int64, error)
	// UnreadCounts returns per-sender unread counts for viewerID, keyed by
	// the sender's user ID. Senders with no unread messages are absent.
	UnreadCounts(ctx context.Context, viewerID uuid.UUID) (map[uuid.UUID]int64, error)

	// Analytics operations
	CountUsersCreatedOn(ctx context.Context, date time.Time) (int64, error)
	CountMessagesSentOn(ctx context.Context, date time.Time) (int64, error)
	UpsertDailyAnalytics(ctx context.Context, date time.Time, newUsers, messagesSent int64) error
	GetDailyAnalytics(ctx context.Context, date time.Time) (*models.DailyAnalytics, error)
}
