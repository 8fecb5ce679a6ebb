package database

import (
	"context"
	"fmt"
	"time"

	"github.com/pr-poehali-dev/messenger-db-hosting/internal/models"
)

// DBInterface is the data access capability injected into every handler.
type DBInterface interface {
	// User methods
	CreateUser(ctx context.Context, username, email, passwordHash, avatarURL string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateLastSeen(ctx context.Context, userID int64) error
	SearchUsers(ctx context.Context, query string, limit int) ([]*models.UserSearchResult, error)

	// Chat methods
	ListChats(ctx context.Context, userID int64) ([]*models.ChatSummary, error)
	FindChat(ctx context.Context, userID, otherUserID int64) (int64, error)
	GetOrCreateChat(ctx context.Context, userID, otherUserID int64) (int64, error)
	IsParticipant(ctx context.Context, chatID, userID int64) (bool, error)

	// Message methods
	CreateMessage(ctx context.Context, chatID, senderID int64, text string) (*models.Message, error)
	GetMessages(ctx context.Context, chatID int64) ([]*models.MessageView, error)

	// Common methods
	Ping(ctx context.Context) error
	Close() error
}

// Migrator is implemented by stores that can create their own schema.
type Migrator interface {
	Migrate(ctx context.Context) error
}

type DatabaseType string

const (
	PostgreSQL DatabaseType = "postgres"
)

// PoolConfig bounds the shared connection pool.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func NewDatabase(dbType DatabaseType, connStr string, pool PoolConfig) (DBInterface, error) {
	switch dbType {
	case PostgreSQL:
		return NewPostgresDB(connStr, pool)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}
