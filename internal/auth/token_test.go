package auth

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pr-poehali-dev/messenger-db-hosting/internal/models"
)

var testKey = []byte("test-secret-key-for-token-tests")

// MockSessionStore implements SessionStore for testing
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Save(ctx context.Context, tokenID string, userID int64, ttl time.Duration) error {
	return m.Called(tokenID, userID, ttl).Error(0)
}

func (m *MockSessionStore) Exists(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(tokenID)
	return args.Bool(0), args.Error(1)
}

func TestGenerateToken(t *testing.T) {
	tokens := NewTokenManager(testKey, time.Hour, nil)

	tests := []struct {
		name    string
		user    *models.User
		wantErr bool
	}{
		{
			name:    "valid user",
			user:    &models.User{ID: 7, Username: "testuser", Email: "test@example.com"},
			wantErr: false,
		},
		{
			name:    "missing user ID",
			user:    &models.User{Username: "testuser", Email: "test@example.com"},
			wantErr: true,
		},
		{
			name:    "nil user",
			user:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, expiry, err := tokens.GenerateToken(context.Background(), tt.user)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Empty(t, token)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, token)
			assert.True(t, expiry.After(time.Now()))

			claims, err := tokens.ValidateToken(context.Background(), token)
			require.NoError(t, err)
			assert.Equal(t, tt.user.ID, claims.UserID)
			assert.Equal(t, tt.user.Username, claims.Username)
			assert.NotEmpty(t, claims.ID)
		})
	}
}

func TestGenerateTokenIsUnique(t *testing.T) {
	tokens := NewTokenManager(testKey, time.Hour, nil)
	user := &models.User{ID: 1, Username: "alice"}

	first, _, err := tokens.GenerateToken(context.Background(), user)
	require.NoError(t, err)
	second, _, err := tokens.GenerateToken(context.Background(), user)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestValidateToken(t *testing.T) {
	tokens := NewTokenManager(testKey, time.Hour, nil)
	user := &models.User{ID: 3, Username: "testuser"}

	validToken, _, err := tokens.GenerateToken(context.Background(), user)
	require.NoError(t, err)

	expired := NewTokenManager(testKey, -time.Minute, nil)
	expiredToken, _, err := expired.GenerateToken(context.Background(), user)
	require.NoError(t, err)

	otherKey := NewTokenManager([]byte("another-key"), time.Hour, nil)
	foreignToken, _, err := otherKey.GenerateToken(context.Background(), user)
	require.NoError(t, err)

	tests := []struct {
		name        string
		tokenString string
		wantErr     bool
	}{
		{"valid token", validToken, false},
		{"empty token", "", true},
		{"invalid token format", "not.a.valid.jwt.token", true},
		{"tampered token", validToken + "tampered", true},
		{"expired token", expiredToken, true},
		{"signed with another key", foreignToken, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, err := tokens.ValidateToken(context.Background(), tt.tokenString)

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidToken)
				assert.Nil(t, claims)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, user.ID, claims.UserID)
		})
	}
}

func TestTokenWithSessionStore(t *testing.T) {
	store := new(MockSessionStore)
	tokens := NewTokenManager(testKey, time.Hour, store)
	user := &models.User{ID: 9, Username: "alice"}

	var tokenID string
	store.On("Save", mock.AnythingOfType("string"), int64(9), time.Hour).
		Run(func(args mock.Arguments) { tokenID = args.String(0) }).
		Return(nil).Once()

	token, _, err := tokens.GenerateToken(context.Background(), user)
	require.NoError(t, err)
	require.NotEmpty(t, tokenID)

	store.On("Exists", tokenID).Return(true, nil).Once()
	claims, err := tokens.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, tokenID, claims.ID)

	store.On("Exists", tokenID).Return(false, nil).Once()
	_, err = tokens.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	store.On("Exists", tokenID).Return(false, errors.New("redis down")).Once()
	_, err = tokens.ValidateToken(context.Background(), token)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrTokenRevoked)

	store.AssertExpectations(t)
}

func TestGenerateTokenSessionStoreFailure(t *testing.T) {
	store := new(MockSessionStore)
	store.On("Save", mock.Anything, int64(9), time.Hour).Return(errors.New("redis down"))
	tokens := NewTokenManager(testKey, time.Hour, store)

	token, _, err := tokens.GenerateToken(context.Background(), &models.User{ID: 9})
	assert.Error(t, err)
	assert.Empty(t, token)
}

func TestRandomKey(t *testing.T) {
	a, err := RandomKey()
	require.NoError(t, err)
	b, err := RandomKey()
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}

func TestRedisSessionStore(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}

	store := NewRedisSessionStore(RedisConfig{Addr: addr})
	defer store.Close()
	ctx := context.Background()
	require.NoError(t, store.Ping(ctx))

	require.NoError(t, store.Save(ctx, "test-token", 1, time.Minute))
	ok, err := store.Exists(ctx, "test-token")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.client.Del(ctx, sessionKey("test-token")).Err())
	ok, err = store.Exists(ctx, "test-token")
	require.NoError(t, err)
	assert.False(t, ok)
}
