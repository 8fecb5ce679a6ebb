package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"github.com/pr-poehali-dev/messenger-db-hosting/internal/logger"
	"github.com/pr-poehali-dev/messenger-db-hosting/internal/models"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token is not an active session")
	log             = logger.New("auth")
)

// Claims represents the claims in an issued token
type Claims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenManager issues HS256 tokens and, when asked, validates them. With a
// session store every issued token id is recorded and validation also
// requires the id to still be present there.
type TokenManager struct {
	key      []byte
	ttl      time.Duration
	sessions SessionStore
}

// NewTokenManager creates a token manager. sessions may be nil.
func NewTokenManager(key []byte, ttl time.Duration, sessions SessionStore) *TokenManager {
	return &TokenManager{key: key, ttl: ttl, sessions: sessions}
}

// RandomKey returns a fresh 32-byte signing key, used when no secret is
// configured and tokens are only checked for presence.
func RandomKey() ([]byte, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// GenerateToken creates a new token for a user
func (m *TokenManager) GenerateToken(ctx context.Context, user *models.User) (string, time.Time, error) {
	if user == nil {
		return "", time.Time{}, errors.New("user cannot be nil")
	}
	if user.ID == 0 {
		return "", time.Time{}, errors.New("user ID cannot be empty")
	}

	now := time.Now()
	expirationTime := now.Add(m.ttl)

	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   fmt.Sprint(user.ID),
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(m.key)
	if err != nil {
		return "", time.Time{}, err
	}

	if m.sessions != nil {
		if err := m.sessions.Save(ctx, claims.ID, user.ID, m.ttl); err != nil {
			return "", time.Time{}, fmt.Errorf("failed to store session: %w", err)
		}
	}

	return tokenString, expirationTime, nil
}

// ValidateToken checks signature, expiry and, with a session store, that the
// token id is still recorded.
func (m *TokenManager) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		log.Warn("Validating empty token")
		return nil, ErrInvalidToken
	}

	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.key, nil
	})
	if err != nil {
		log.Debug("Token validation error: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	if m.sessions != nil {
		active, err := m.sessions.Exists(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to look up session: %w", err)
		}
		if !active {
			return nil, ErrTokenRevoked
		}
	}

	log.Debug("Token validated successfully for user: %s", claims.Username)
	return claims, nil
}
