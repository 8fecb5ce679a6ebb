package api

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pr-poehali-dev/messenger-db-hosting/internal/models"
)

// MockDB implements the DBInterface for testing
type MockDB struct {
	mock.Mock
}

// CreateUser mocks creating a user
func (m *MockDB) CreateUser(ctx context.Context, username, email, passwordHash, avatarURL string) (*models.User, error) {
	args := m.Called(username, email, passwordHash, avatarURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// GetUserByEmail mocks retrieving a user by email
func (m *MockDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// UpdateLastSeen mocks updating the last seen time for a user
func (m *MockDB) UpdateLastSeen(ctx context.Context, userID int64) error {
	return m.Called(userID).Error(0)
}

// SearchUsers mocks the username search
func (m *MockDB) SearchUsers(ctx context.Context, query string, limit int) ([]*models.UserSearchResult, error) {
	args := m.Called(query, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UserSearchResult), args.Error(1)
}

// ListChats mocks retrieving the chat list of a user
func (m *MockDB) ListChats(ctx context.Context, userID int64) ([]*models.ChatSummary, error) {
	args := m.Called(userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.ChatSummary), args.Error(1)
}

// FindChat mocks looking up the chat of two users
func (m *MockDB) FindChat(ctx context.Context, userID, otherUserID int64) (int64, error) {
	args := m.Called(userID, otherUserID)
	return args.Get(0).(int64), args.Error(1)
}

// GetOrCreateChat mocks the chat find-or-create
func (m *MockDB) GetOrCreateChat(ctx context.Context, userID, otherUserID int64) (int64, error) {
	args := m.Called(userID, otherUserID)
	return args.Get(0).(int64), args.Error(1)
}

// IsParticipant mocks the membership check
func (m *MockDB) IsParticipant(ctx context.Context, chatID, userID int64) (bool, error) {
	args := m.Called(chatID, userID)
	return args.Bool(0), args.Error(1)
}

// CreateMessage mocks storing a message
func (m *MockDB) CreateMessage(ctx context.Context, chatID, senderID int64, text string) (*models.Message, error) {
	args := m.Called(chatID, senderID, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

// GetMessages mocks retrieving a chat history
func (m *MockDB) GetMessages(ctx context.Context, chatID int64) ([]*models.MessageView, error) {
	args := m.Called(chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.MessageView), args.Error(1)
}

// Ping mocks the health check
func (m *MockDB) Ping(ctx context.Context) error {
	return m.Called().Error(0)
}

// Close mocks closing the database connection
func (m *MockDB) Close() error {
	return m.Called().Error(0)
}
